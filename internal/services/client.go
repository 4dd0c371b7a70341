// Package services holds the clients for the external collaborators: LLM
// question resolution, nearest-address and best-resume ranking, the embedding
// worker port, verification email lookup, job metadata and result publishing.
// The Broker fronts them with single-flight gating and a small TTL cache.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/config"
)

const (
	dialTimeout           = 15 * time.Second
	tlsHandshakeTimeout   = 10 * time.Second
	responseHeaderTimeout = 30 * time.Second
	maxIdleConns          = 32
	idleConnTimeout       = 90 * time.Second

	maxResponseBytes = 4 << 20
)

// httpClient is the shared JSON-over-HTTP transport for every service
// endpoint. Responses use the uniform bus envelope.
type httpClient struct {
	log    *zap.Logger
	client *http.Client
}

func newHTTPClient(log *zap.Logger) *httpClient {
	transport := &http.Transport{
		MaxIdleConns:          maxIdleConns,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
	}
	return &httpClient{
		log:    log,
		client: &http.Client{Transport: transport},
	}
}

// busMessage wraps body into an action-tagged bus message.
func busMessage(action schemas.Action, body any) (schemas.Message, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return schemas.Message{}, fmt.Errorf("encode request: %w", err)
	}
	return schemas.Message{Action: action, Data: raw}, nil
}

// postJSON posts body as an action-tagged message and decodes the envelope
// payload into out. The endpoint's timeout bounds the whole round trip.
func (c *httpClient) postJSON(ctx context.Context, ep config.ServiceEndpoint, action schemas.Action, body, out any) error {
	if ep.URL == "" {
		return fmt.Errorf("service endpoint not configured")
	}
	if ep.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ep.Timeout)
		defer cancel()
	}

	msg, err := busMessage(action, body)
	if err != nil {
		return err
	}
	raw, err := c.postRaw(ctx, ep.URL, msg)
	if err != nil {
		return err
	}

	var envelope schemas.BusResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode response envelope: %w", err)
	}
	if !envelope.Success {
		return fmt.Errorf("service error: %s", envelope.Error)
	}
	if out == nil {
		return nil
	}

	payload := envelope.Payload
	if len(payload) == 0 {
		payload = envelope.Data
	}
	if len(payload) == 0 {
		return fmt.Errorf("service returned empty payload")
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// postRaw posts body and returns the raw response bytes.
func (c *httpClient) postRaw(ctx context.Context, url string, body any) ([]byte, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, err
	}
	c.log.Debug("service call",
		zap.String("url", url), zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("service returned HTTP %d", resp.StatusCode)
	}
	return raw, nil
}
