package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-keytune/audioio"
	"github.com/cwbudde/algo-keytune/dsp/buffer"
	"github.com/cwbudde/algo-keytune/dsp/core"
	"github.com/cwbudde/algo-keytune/dsp/pitchclass"
	"github.com/cwbudde/algo-keytune/keytune"
)

func (a *app) analyzeCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Print the key, tuning offset and chroma profile of an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, info, err := a.load(args[0])
			if err != nil {
				return err
			}
			kt, err := a.tuner()
			if err != nil {
				return err
			}
			res, err := kt.Analyze(buf)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printAnalysis(out, args[0], info, buf, res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	addAnalysisFlags(cmd)
	return cmd
}

func (a *app) retuneCmd() *cobra.Command {
	var to, output string
	cmd := &cobra.Command{
		Use:   "retune FILE --to KEY",
		Short: "Shift an audio file to a target key on the equal-tempered grid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, _, err := a.load(args[0])
			if err != nil {
				return err
			}
			kt, err := a.tuner()
			if err != nil {
				return err
			}
			res, err := kt.Analyze(buf)
			if err != nil {
				return err
			}
			fixed, shift, err := kt.Retune(buf, &res, to)
			if err != nil {
				return err
			}
			if err := writeWAV(output, fixed); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%+.1f cents) -> %s: shifted %+.3f semitones, wrote %s\n",
				res.Key, res.TuningOffsetCents, strings.ToUpper(strings.TrimSpace(to)), shift, output)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "target key, e.g. C or f#")
	cmd.Flags().StringVarP(&output, "output", "o", "fixed.wav", "output WAV file")
	_ = cmd.MarkFlagRequired("to")
	addAnalysisFlags(cmd)
	return cmd
}

func (a *app) load(path string) (buffer.Buffer, audioio.Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return buffer.Buffer{}, audioio.Info{}, err
	}
	return audioio.Decode(data, a.cfg.ChannelMode())
}

func writeWAV(path string, buf buffer.Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := audioio.EncodeWAV(f, buf); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func printAnalysis(w io.Writer, name string, info audioio.Info, buf buffer.Buffer, res keytune.AnalysisResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "File:\t%s\n", name)
	fmt.Fprintf(tw, "Format:\t%s, %d Hz, %d ch\n", info.ContentType, info.SampleRate, info.Channels)
	fmt.Fprintf(tw, "Duration:\t%s (%s samples)\n", buf.Duration().Round(1e6), humanize.Comma(int64(buf.Len())))
	fmt.Fprintf(tw, "Key:\t%s\n", res.Key)
	fmt.Fprintf(tw, "Tuning offset:\t%+.2f cents (A4 = %.2f Hz)\n", res.TuningOffsetCents, core.TunedReference(res.TuningOffsetCents))
	fmt.Fprintf(tw, "Peak level:\t%.1f dBFS\n", core.LinearToDB(buf.Peak()))
	_ = tw.Flush()

	fmt.Fprintln(w, "Chroma:")
	peak := res.Chroma.Max()
	for _, c := range pitchclass.All() {
		v := res.Chroma[c]
		bar := 0
		if peak > 0 {
			bar = int(v / peak * 40)
		}
		fmt.Fprintf(w, "  %-2s %.3f %s\n", c, v, strings.Repeat("#", bar))
	}
}
