package client_test

import (
	"context"
	"errors"
	"math"
	"net/http/httptest"
	"testing"

	"github.com/cwbudde/algo-keytune/audioio"
	"github.com/cwbudde/algo-keytune/client"
	"github.com/cwbudde/algo-keytune/dsp/buffer"
	"github.com/cwbudde/algo-keytune/internal/config"
	"github.com/cwbudde/algo-keytune/internal/server"
	"github.com/cwbudde/algo-keytune/internal/session"
	"github.com/cwbudde/algo-keytune/internal/testutil"
	"github.com/cwbudde/algo-keytune/keytune"
)

func newClient(t *testing.T) *client.Client {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Workers = 1
	cfg.Analysis.Transposition = "nearest"
	opts, err := cfg.TunerOptions()
	if err != nil {
		t.Fatal(err)
	}
	tuner, err := keytune.New(opts...)
	if err != nil {
		t.Fatal(err)
	}
	budget, err := cfg.Session.MaxMemoryBytes()
	if err != nil {
		t.Fatal(err)
	}
	store := session.NewMemoryStore(cfg.Session.TTL, cfg.Session.Cleanup, budget)
	s, err := server.New(cfg, tuner, store)
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
		_ = store.Close()
	})

	c, err := client.New(ts.URL + "/")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestClientRoundTrip(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	if err := c.Health(ctx); err != nil {
		t.Fatalf("Health() error = %v", err)
	}

	const rate = 22050
	wav, err := audioio.EncodeWAVBytes(buffer.New(testutil.DeterministicSine(440, rate, 0.8, rate), rate))
	if err != nil {
		t.Fatal(err)
	}
	res, err := c.Analyze(ctx, "a440.wav", wav)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if res.Key != "A" || res.Filename != "a440.wav" {
		t.Fatalf("Analyze() = %+v", res)
	}

	data, shift, err := c.KeySwitch(ctx, res.Session, "C")
	if err != nil {
		t.Fatalf("KeySwitch() error = %v", err)
	}
	if math.Abs(shift-(3-res.TuningOffset/100)) > 1e-9 {
		t.Fatalf("shift = %v, want ~3", shift)
	}
	out, _, err := audioio.Decode(data, audioio.ChannelMix)
	if err != nil {
		t.Fatalf("reply is not audio: %v", err)
	}
	if out.Len() != rate {
		t.Fatalf("reply length = %d, want %d", out.Len(), rate)
	}
}

func TestClientErrors(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	_, _, err := c.KeySwitch(ctx, "no-such-session", "C")
	var apiErr *client.ErrorResponse
	if !errors.As(err, &apiErr) {
		t.Fatalf("KeySwitch() error = %T %v", err, err)
	}
	if apiErr.Status != 400 || apiErr.Message != "No file analyzed yet." {
		t.Fatalf("KeySwitch() error = %+v", apiErr)
	}
	if !errors.Is(err, keytune.ErrNotAnalyzed) {
		t.Fatal("errors.Is(ErrNotAnalyzed) = false")
	}

	_, err = c.Analyze(ctx, "junk.bin", []byte("plainly not audio"))
	if !errors.Is(err, keytune.ErrDecode) {
		t.Fatalf("Analyze(junk) error = %v, want DecodeError", err)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "localhost:5000", "ftp://host", "http://[::1"} {
		if _, err := client.New(u); err == nil {
			t.Fatalf("New(%q) accepted", u)
		}
	}
}
