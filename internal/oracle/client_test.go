package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wmguard/internal/config"
)

func testConfig(url string) config.OracleConfig {
	var cfg config.OracleConfig
	cfg.BaseURL = url
	cfg.ExtractThreshold = 0.5
	return cfg
}

func TestClientEmbed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/embed", r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []byte("raw-image"), req.Image)
		assert.Equal(t, "0101", req.Watermark)

		json.NewEncoder(w).Encode(embedResponse{
			Image:     []byte("marked-image"),
			Watermark: req.Watermark,
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	res, err := c.Embed(context.Background(), []byte("raw-image"), "0101")
	require.NoError(t, err)
	assert.Equal(t, []byte("marked-image"), res.Image)
	assert.Equal(t, "0101", res.PayloadEcho)
}

func TestClientEmbedEmptyImage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Watermark: "0101"})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.Embed(context.Background(), []byte("raw"), "0101")
	assert.ErrorContains(t, err, "no image")
}

func TestClientExtract(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/extract", r.URL.Path)

		var req extractRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 0.5, req.Threshold)

		json.NewEncoder(w).Encode(extractResponse{
			Bits:       "110011",
			Mask:       []byte("mask-bytes"),
			Tampered:   true,
			TamperRate: 12.5,
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	ext, err := c.Extract(context.Background(), []byte("candidate"))
	require.NoError(t, err)
	assert.Equal(t, "110011", ext.Bits)
	assert.Equal(t, []byte("mask-bytes"), ext.Mask)
	assert.True(t, ext.Tampered)
	assert.Equal(t, 12.5, ext.TamperRate)
}

func TestClientServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.Extract(context.Background(), []byte("candidate"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "503")
	assert.ErrorContains(t, err, "model not loaded")
}

func TestClientTimeout(t *testing.T) {
	t.Parallel()

	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	cfg := testConfig(srv.URL)
	c := NewClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Extract(ctx, []byte("candidate"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
