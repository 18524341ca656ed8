// Package oracle provides an HTTP client for the watermark embedding
// and extraction service.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"wmguard/internal/config"
	"wmguard/internal/guard"
)

// Client calls the watermark service over HTTP. Images travel base64
// encoded inside JSON bodies.
type Client struct {
	baseURL   string
	threshold float64
	httpc     *http.Client
}

var _ guard.Oracle = (*Client)(nil)

// NewClient builds a client from the oracle config.
func NewClient(cfg config.OracleConfig) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		threshold: cfg.ExtractThreshold,
		httpc:     &http.Client{Timeout: cfg.TimeoutOrDefault()},
	}
}

type embedRequest struct {
	Image     []byte `json:"image"`
	Watermark string `json:"watermark"`
}

type embedResponse struct {
	Image     []byte `json:"image"`
	Watermark string `json:"watermark"`
}

type extractRequest struct {
	Image     []byte  `json:"image"`
	Threshold float64 `json:"threshold"`
}

type extractResponse struct {
	Bits       string  `json:"bits"`
	Mask       []byte  `json:"mask,omitempty"`
	Tampered   bool    `json:"tampered"`
	TamperRate float64 `json:"tamper_rate"`
}

func (c *Client) Embed(ctx context.Context, image []byte, payload string) (*guard.EmbedResult, error) {
	var resp embedResponse
	err := c.post(ctx, "/embed", embedRequest{Image: image, Watermark: payload}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Image) == 0 {
		return nil, fmt.Errorf("embed response carried no image")
	}
	return &guard.EmbedResult{Image: resp.Image, PayloadEcho: resp.Watermark}, nil
}

func (c *Client) Extract(ctx context.Context, image []byte) (*guard.Extraction, error) {
	var resp extractResponse
	err := c.post(ctx, "/extract", extractRequest{Image: image, Threshold: c.threshold}, &resp)
	if err != nil {
		return nil, err
	}
	return &guard.Extraction{
		Bits:       resp.Bits,
		Mask:       resp.Mask,
		Tampered:   resp.Tampered,
		TamperRate: resp.TamperRate,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Bounded read keeps a misbehaving service from flooding logs.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
