// Package session keeps analysed clips between an /analyze call and the
// /key_switch calls that follow it. Entries are keyed by random tokens and
// expire after a TTL.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cwbudde/algo-keytune/dsp/buffer"
	"github.com/cwbudde/algo-keytune/keytune"
)

var (
	// ErrNotFound is returned by Get for unknown or expired tokens.
	ErrNotFound = errors.New("session: not found")
	// ErrTooLarge is returned by Put when one entry exceeds the store budget.
	ErrTooLarge = errors.New("session: entry exceeds store budget")
)

// Entry is one analysed clip. It is read-only once stored.
type Entry struct {
	Token      string
	Result     keytune.AnalysisResult
	Samples    []float64
	SampleRate int
	Filename   string
	CreatedAt  time.Time
}

// NewEntry builds an entry with a fresh token for buf and its analysis.
func NewEntry(buf buffer.Buffer, result keytune.AnalysisResult, filename string) *Entry {
	return &Entry{
		Token:      NewToken(),
		Result:     result,
		Samples:    buf.Samples(),
		SampleRate: buf.SampleRate(),
		Filename:   filename,
		CreatedAt:  time.Now().UTC(),
	}
}

// Buffer returns the stored clip.
func (e *Entry) Buffer() buffer.Buffer {
	return buffer.Wrap(e.Samples, e.SampleRate)
}

// Size approximates the memory held by e in bytes.
func (e *Entry) Size() int64 {
	return int64(8*len(e.Samples) + len(e.Token) + len(e.Filename))
}

// NewToken returns a random session token.
func NewToken() string {
	return uuid.NewString()
}

// Store holds entries until they expire.
type Store interface {
	Put(ctx context.Context, e *Entry) error
	Get(ctx context.Context, token string) (*Entry, error)
	Delete(ctx context.Context, token string) error
	Close() error
}
