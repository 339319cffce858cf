package server

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/algo-keytune/audioio"
	"github.com/cwbudde/algo-keytune/client"
	"github.com/cwbudde/algo-keytune/dsp/buffer"
	"github.com/cwbudde/algo-keytune/internal/config"
	"github.com/cwbudde/algo-keytune/internal/session"
	"github.com/cwbudde/algo-keytune/internal/testutil"
	"github.com/cwbudde/algo-keytune/keytune"
)

const testRate = 22050

func newTestServer(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Workers = 2
	if mutate != nil {
		mutate(cfg)
	}
	tuner, err := keytune.New()
	if err != nil {
		t.Fatalf("keytune.New() error = %v", err)
	}
	budget, err := cfg.Session.MaxMemoryBytes()
	if err != nil {
		t.Fatal(err)
	}
	store := session.NewMemoryStore(cfg.Session.TTL, cfg.Session.Cleanup, budget)
	s, err := New(cfg, tuner, store)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
		_ = store.Close()
	})
	return ts
}

func sineWAV(t *testing.T, freq float64) []byte {
	t.Helper()
	data, err := audioio.EncodeWAVBytes(buffer.New(testutil.DeterministicSine(freq, testRate, 0.8, testRate), testRate))
	if err != nil {
		t.Fatalf("EncodeWAVBytes() error = %v", err)
	}
	return data
}

func upload(t *testing.T, ts *httptest.Server, field, filename string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(ts.URL+"/analyze", mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatalf("POST /analyze error = %v", err)
	}
	return resp
}

func keySwitch(t *testing.T, ts *httptest.Server, form url.Values) *http.Response {
	t.Helper()
	resp, err := http.PostForm(ts.URL+"/key_switch", form)
	if err != nil {
		t.Fatalf("POST /key_switch error = %v", err)
	}
	return resp
}

func requireError(t *testing.T, resp *http.Response, status int, code, message string) {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != status {
		t.Fatalf("status = %d, want %d", resp.StatusCode, status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
	var e client.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	if e.Code != code || (message != "" && e.Message != message) {
		t.Fatalf("error = %s %q, want %s %q", e.Code, e.Message, code, message)
	}
}

func analyzeOK(t *testing.T, ts *httptest.Server, data []byte) client.AnalyzeResponse {
	t.Helper()
	resp := upload(t, ts, "file", "clip.wav", data)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	var out client.AnalyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding analyze body: %v", err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != `{"ok":true}` {
		t.Fatalf("GET /healthz = %d %s", resp.StatusCode, body)
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	ts := newTestServer(t, nil)

	requireError(t, upload(t, ts, "audio", "clip.wav", sineWAV(t, 440)), 400, client.ErrCodeBadRequest, "No file provided.")

	resp, err := http.Post(ts.URL+"/analyze", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatal(err)
	}
	requireError(t, resp, 400, client.ErrCodeBadRequest, "No file provided.")
}

func TestAnalyzeNoFileSelected(t *testing.T) {
	ts := newTestServer(t, nil)
	requireError(t, upload(t, ts, "file", "", nil), 400, client.ErrCodeBadRequest, "No file selected.")
}

func TestAnalyzeRejectsNonAudio(t *testing.T) {
	ts := newTestServer(t, nil)
	resp := upload(t, ts, "file", "notes.txt", []byte("these are not the samples you are looking for"))
	requireError(t, resp, 400, client.ErrCodeDecode, "")
}

func TestAnalyzeTooLarge(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Server.MaxUpload = "1KB" })
	requireError(t, upload(t, ts, "file", "clip.wav", sineWAV(t, 440)), 413, client.ErrCodeTooLarge, "")
}

func TestAnalyzeOverSessionBudget(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Session.MaxMemory = "100KB" })
	requireError(t, upload(t, ts, "file", "clip.wav", sineWAV(t, 440)), 413, client.ErrCodeTooLarge, "")
}

func TestKeySwitchWithoutSession(t *testing.T) {
	ts := newTestServer(t, nil)
	requireError(t, keySwitch(t, ts, url.Values{"desired_key": {"C"}}), 400, client.ErrCodeNotAnalyzed, "No file analyzed yet.")
	requireError(t, keySwitch(t, ts, url.Values{"desired_key": {"C"}, "session": {"unknown"}}), 400, client.ErrCodeNotAnalyzed, "No file analyzed yet.")
}

func TestAnalyzeThenKeySwitch(t *testing.T) {
	ts := newTestServer(t, nil)
	res := analyzeOK(t, ts, sineWAV(t, 440))
	if res.Key != "A" || math.Abs(res.TuningOffset) > 5 {
		t.Fatalf("analyze = %+v, want A near 0 cents", res)
	}
	if res.Session == "" || res.SampleRate != testRate || math.Abs(res.Duration-1) > 1e-9 {
		t.Fatalf("analyze = %+v", res)
	}

	resp := keySwitch(t, ts, url.Values{"desired_key": {"c"}, "session": {res.Session}})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/wav" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != `attachment; filename="fixed.wav"` {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	shift, err := strconv.ParseFloat(resp.Header.Get(client.ShiftHeader), 64)
	if err != nil {
		t.Fatalf("shift header: %v", err)
	}
	if want := -9 - res.TuningOffset/100; math.Abs(shift-want) > 1e-9 {
		t.Fatalf("shift = %v, want %v", shift, want)
	}

	data, _ := io.ReadAll(resp.Body)
	out, _, err := audioio.Decode(data, audioio.ChannelMix)
	if err != nil {
		t.Fatalf("decoding reply: %v", err)
	}
	if out.Len() != testRate || out.SampleRate() != testRate {
		t.Fatalf("reply %d@%d, want %d@%d", out.Len(), out.SampleRate(), testRate, testRate)
	}
}

// middlePeak is the largest magnitude in the middle half of samples, away
// from shifter edge effects.
func middlePeak(samples []float64) float64 {
	peak := 0.0
	for _, v := range samples[len(samples)/4 : 3*len(samples)/4] {
		peak = math.Max(peak, math.Abs(v))
	}
	return peak
}

func TestKeySwitchPreservesLevel(t *testing.T) {
	ts := newTestServer(t, nil)
	upload := sineWAV(t, 440)
	in, _, err := audioio.Decode(upload, audioio.ChannelMix)
	if err != nil {
		t.Fatalf("decoding upload: %v", err)
	}
	if got := middlePeak(in.Samples()); math.Abs(got-0.8) > 0.001 {
		t.Fatalf("upload peak = %v, want 0.8", got)
	}

	res := analyzeOK(t, ts, upload)
	resp := keySwitch(t, ts, url.Values{"desired_key": {res.Key}, "session": {res.Session}})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, body)
	}
	data, _ := io.ReadAll(resp.Body)
	out, _, err := audioio.Decode(data, audioio.ChannelMix)
	if err != nil {
		t.Fatalf("decoding reply: %v", err)
	}
	if got := middlePeak(out.Samples()); math.Abs(got-0.8) > 0.08 {
		t.Fatalf("reply peak = %v, want ~0.8", got)
	}
}

func TestKeySwitchSessionHeader(t *testing.T) {
	ts := newTestServer(t, nil)
	res := analyzeOK(t, ts, sineWAV(t, 440))

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/key_switch", strings.NewReader("desired_key=A"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(client.SessionHeader, res.Session)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestKeySwitchInvalidKey(t *testing.T) {
	ts := newTestServer(t, nil)
	res := analyzeOK(t, ts, sineWAV(t, 440))
	for _, key := range []string{"", "H", "c##", "Db"} {
		resp := keySwitch(t, ts, url.Values{"desired_key": {key}, "session": {res.Session}})
		requireError(t, resp, 400, client.ErrCodeUnknownKey, "Invalid or missing desired key.")
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	ts := newTestServer(t, nil)
	a := analyzeOK(t, ts, sineWAV(t, 440))
	e := analyzeOK(t, ts, sineWAV(t, testutil.MIDIHz(64, 0)))
	if a.Key != "A" || e.Key != "E" || a.Session == e.Session {
		t.Fatalf("analyses = %+v / %+v", a, e)
	}

	shiftOf := func(session string) float64 {
		resp := keySwitch(t, ts, url.Values{"desired_key": {"A"}, "session": {session}})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		v, err := strconv.ParseFloat(resp.Header.Get(client.ShiftHeader), 64)
		if err != nil {
			t.Fatal(err)
		}
		return v
	}
	if got := shiftOf(a.Session); math.Abs(got) > 0.1 {
		t.Fatalf("A->A shift = %v, want ~0", got)
	}
	if got := shiftOf(e.Session); math.Abs(got-5) > 0.1 {
		t.Fatalf("E->A shift = %v, want ~5", got)
	}
}

func TestSessionExpires(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.Session.TTL = 50 * time.Millisecond
		c.Session.Cleanup = 10 * time.Millisecond
	})
	res := analyzeOK(t, ts, sineWAV(t, 440))
	time.Sleep(150 * time.Millisecond)
	requireError(t, keySwitch(t, ts, url.Values{"desired_key": {"C"}, "session": {res.Session}}), 400, client.ErrCodeNotAnalyzed, "")
}

func TestCORSAndPreflight(t *testing.T) {
	ts := newTestServer(t, nil)
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/analyze", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("OPTIONS status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestUnknownRoutes(t *testing.T) {
	ts := newTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	requireError(t, resp, 404, client.ErrCodeNotFound, "")

	resp, err = http.Get(ts.URL + "/analyze")
	if err != nil {
		t.Fatal(err)
	}
	requireError(t, resp, 405, client.ErrCodeMethod, "")
}

func TestMetricsRoute(t *testing.T) {
	ts := newTestServer(t, nil)
	if resp, err := http.Get(ts.URL + "/healthz"); err == nil {
		resp.Body.Close()
	}
	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "keytune_http_requests_total") {
		t.Fatalf("GET /metrics = %d", resp.StatusCode)
	}

	off := newTestServer(t, func(c *config.Config) { c.Metrics.Enabled = false })
	resp, err = http.Get(off.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	requireError(t, resp, 404, client.ErrCodeNotFound, "")
}

func TestRequestCounter(t *testing.T) {
	var c requestCounter
	if a, b := c.GetNextId(), c.GetNextId(); a != "REQ-0" || b != "REQ-1" {
		t.Fatalf("ids = %s, %s", a, b)
	}
}
