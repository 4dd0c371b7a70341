package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/kalpthakkar/ApplyPilot-sub000/api/schemas"
	"github.com/kalpthakkar/ApplyPilot-sub000/internal/config"
)

// LLMClient resolves escalated questions through the LLM service. Every
// response is schema-validated before any answer is trusted.
type LLMClient struct {
	log    *zap.Logger
	http   *httpClient
	ep     config.ServiceEndpoint
	schema *gojsonschema.Schema
}

// NewLLMClient builds the client. The response schema is a compile-time
// constant, so a load failure is a programming error.
func NewLLMClient(log *zap.Logger, http *httpClient, ep config.ServiceEndpoint) (*LLMClient, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemas.LLMResolveResponseSchema))
	if err != nil {
		return nil, fmt.Errorf("compile LLM response schema: %w", err)
	}
	return &LLMClient{
		log:    log.Named("llm"),
		http:   http,
		ep:     ep,
		schema: schema,
	}, nil
}

// ResolveQuestions sends one batched resolution request and returns the
// validated answers.
func (c *LLMClient) ResolveQuestions(ctx context.Context, req schemas.LLMResolveRequest) ([]schemas.LLMAnswer, error) {
	if len(req.Questions) == 0 {
		return nil, nil
	}
	if c.ep.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.ep.Timeout)
		defer cancel()
	}

	msg, err := busMessage(schemas.ActionResolveQuestionWithLLM, req)
	if err != nil {
		return nil, err
	}
	raw, err := c.http.postRaw(ctx, c.ep.URL, msg)
	if err != nil {
		return nil, err
	}

	resp, err := c.decode(raw)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("LLM resolution failed: %s", strings.Join(resp.Errors, "; "))
	}

	c.log.Debug("LLM resolution complete",
		zap.Int("questions", len(req.Questions)), zap.Int("answers", len(resp.Payload)))
	return resp.Payload, nil
}

// decode validates the raw body against the response contract, then
// unmarshals it.
func (c *LLMClient) decode(raw []byte) (*schemas.LLMResolveResponse, error) {
	result, err := c.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validate LLM response: %w", err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			issues = append(issues, e.String())
		}
		return nil, fmt.Errorf("LLM response violates contract: %s", strings.Join(issues, "; "))
	}

	var resp schemas.LLMResolveResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode LLM response: %w", err)
	}
	return &resp, nil
}
