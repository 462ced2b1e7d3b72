package adapters

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ports "github.com/ZanzyTHEbar/zero-assistant/zero/generation/harness/ports"
	"github.com/rs/zerolog"
)

const (
	loadingMarker  = "is currently loading"
	maxErrorBody   = 512
	maxSuccessBody = 4 << 20
)

// HTTPProviderConfig is the transport configuration of the inference endpoint.
type HTTPProviderConfig struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
	UserAgent          string
}

// HTTPProvider calls a Hugging Face style text-generation endpoint.
//
// Request: POST {"inputs": prompt, "parameters": {...}} with a bearer token.
// Response: [{"generated_text": ...}] on 200, {"error": "... is currently loading",
// "estimated_time": seconds} while the model is cold, anything else is a failure.
type HTTPProvider struct {
	client    *http.Client
	userAgent string
	logger    zerolog.Logger
}

// NewHTTPProvider builds a provider with its own http.Client.
func NewHTTPProvider(cfg HTTPProviderConfig, logger zerolog.Logger) *HTTPProvider {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // host opt-in
		logger.Warn().Msg("TLS verification disabled for the inference endpoint")
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "zero-assistant"
	}

	return &HTTPProvider{
		client:    &http.Client{Timeout: cfg.Timeout, Transport: transport},
		userAgent: userAgent,
		logger:    logger,
	}
}

// NewHTTPProviderWithClient is used by tests to inject an httptest client.
func NewHTTPProviderWithClient(client *http.Client, logger zerolog.Logger) *HTTPProvider {
	return &HTTPProvider{client: client, userAgent: "zero-assistant", logger: logger}
}

type inferencePayload struct {
	Inputs     string               `json:"inputs"`
	Parameters *inferenceParameters `json:"parameters,omitempty"`
	Options    *inferenceOptions    `json:"options,omitempty"`
}

type inferenceParameters struct {
	MaxNewTokens   int     `json:"max_new_tokens,omitempty"`
	Temperature    float32 `json:"temperature,omitempty"`
	TopP           float32 `json:"top_p,omitempty"`
	ReturnFullText *bool   `json:"return_full_text,omitempty"`
}

type inferenceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type generation struct {
	GeneratedText string `json:"generated_text"`
}

type loadingBody struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

func buildPayload(req ports.InferenceRequest) inferencePayload {
	payload := inferencePayload{Inputs: req.Prompt}
	o := req.Options
	if o.MaxNewTokens > 0 || o.Temperature > 0 || o.TopP > 0 || o.ReturnFullText != nil {
		payload.Parameters = &inferenceParameters{
			MaxNewTokens:   o.MaxNewTokens,
			Temperature:    o.Temperature,
			TopP:           o.TopP,
			ReturnFullText: o.ReturnFullText,
		}
	}
	if o.WaitForModel {
		payload.Options = &inferenceOptions{WaitForModel: true}
	}
	return payload
}

// Infer performs exactly one HTTP round trip.
func (p *HTTPProvider) Infer(ctx context.Context, req ports.InferenceRequest) (ports.InferenceResult, error) {
	if req.Endpoint == "" {
		return ports.InferenceResult{}, errors.New("inference endpoint is empty")
	}

	body, err := json.Marshal(buildPayload(req))
	if err != nil {
		return ports.InferenceResult{}, fmt.Errorf("failed to encode inference payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint, bytes.NewReader(body))
	if err != nil {
		return ports.InferenceResult{}, fmt.Errorf("failed to build inference request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", p.userAgent)
	if req.AuthToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.AuthToken)
	}

	start := time.Now()
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return ports.InferenceResult{}, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSuccessBody))
	if err != nil {
		return ports.InferenceResult{}, fmt.Errorf("failed to read inference response: %w", err)
	}

	p.logger.Debug().
		Int("status", resp.StatusCode).
		Int("prompt_bytes", len(req.Prompt)).
		Dur("latency", time.Since(start)).
		Msg("Inference response")

	if resp.StatusCode == http.StatusOK {
		return decodeGeneration(raw), nil
	}

	return classifyError(resp.StatusCode, raw), nil
}

func decodeGeneration(raw []byte) ports.InferenceResult {
	var list []generation
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return ports.Failure(ports.ReasonInvalid, http.StatusOK, "empty generation list")
		}
		return ports.Success(list[0].GeneratedText)
	}

	var single generation
	if err := json.Unmarshal(raw, &single); err == nil && single.GeneratedText != "" {
		return ports.Success(single.GeneratedText)
	}

	return ports.Failure(ports.ReasonInvalid, http.StatusOK, "unexpected response body: "+truncate(string(raw)))
}

func classifyError(status int, raw []byte) ports.InferenceResult {
	text := string(raw)
	if strings.Contains(text, loadingMarker) {
		var lb loadingBody
		_ = json.Unmarshal(raw, &lb)
		return ports.Loading(time.Duration(lb.EstimatedTime * float64(time.Second)))
	}

	reason := ports.ReasonStatus
	if status == http.StatusTooManyRequests {
		reason = ports.ReasonRateLimited
	}
	return ports.Failure(reason, status, truncate(strings.TrimSpace(text)))
}

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}

// Ensure HTTPProvider implements the Provider interface.
var _ ports.Provider = (*HTTPProvider)(nil)
