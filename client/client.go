// Package client talks to a keytune server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client calls the /analyze and /key_switch endpoints of one server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("client: invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("client: server URL needs an http or https scheme: %q", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Analyze uploads an audio file and returns the detected key, tuning and
// session token.
func (c *Client) Analyze(ctx context.Context, filename string, data []byte) (*AnalyzeResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: analyze: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}
	out := &AnalyzeResponse{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("client: decoding analyze response: %w", err)
	}
	return out, nil
}

// KeySwitch retunes the clip held by session to desiredKey and returns the
// WAV bytes and the applied shift in semitones.
func (c *Client) KeySwitch(ctx context.Context, session, desiredKey string) ([]byte, float64, error) {
	form := url.Values{}
	form.Set("desired_key", desiredKey)
	form.Set("session", session)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/key_switch", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(SessionHeader, session)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("client: key_switch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, readError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("client: reading audio: %w", err)
	}
	shift, err := strconv.ParseFloat(resp.Header.Get(ShiftHeader), 64)
	if err != nil {
		return nil, 0, fmt.Errorf("client: bad %s header: %w", ShiftHeader, err)
	}
	return data, shift, nil
}

// Health reports whether the server answers /healthz.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: healthz: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return readError(resp)
	}
	return nil
}

func readError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	e := &ErrorResponse{}
	if err := json.Unmarshal(body, e); err != nil || e.Code == "" {
		e = &ErrorResponse{Code: ErrCodeUnknown, Message: strings.TrimSpace(string(body))}
	}
	e.Status = resp.StatusCode
	return e
}
