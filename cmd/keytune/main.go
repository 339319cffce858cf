// Command keytune detects the key and tuning of audio clips and retunes
// them to a target key.
//
// Usage:
//
//	keytune analyze [flags] FILE
//	keytune retune [flags] FILE --to KEY
//	keytune serve [flags]
//	keytune remote analyze|retune --server URL ...
//	keytune config
//
// Examples:
//
//	keytune analyze song.mp3
//	keytune retune song.wav --to C -o fixed.wav
//	keytune retune song.wav --to c --transposition nearest
//	keytune serve --port 5000
//	keytune remote retune song.wav --to F# --server http://localhost:5000
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
