package harnessports

import (
	"context"
	"fmt"
	"time"
)

// InferenceRequest is built fresh for every call and never reused.
type InferenceRequest struct {
	Endpoint  string
	Prompt    string
	AuthToken string // secret, never logged
	Options   Options
}

// Options carries optional generation parameters forwarded to the endpoint.
type Options struct {
	MaxNewTokens   int
	Temperature    float32
	TopP           float32
	ReturnFullText *bool
	WaitForModel   bool
}

// ResultKind tags an InferenceResult.
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultLoading
	ResultFailure
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultLoading:
		return "loading"
	case ResultFailure:
		return "failure"
	default:
		return fmt.Sprintf("ResultKind(%d)", int(k))
	}
}

// FailureReason refines a Failure result.
type FailureReason string

const (
	ReasonStatus      FailureReason = "status"
	ReasonNetwork     FailureReason = "network"
	ReasonTimeout     FailureReason = "timeout"
	ReasonRateLimited FailureReason = "rate_limited"
	ReasonCanceled    FailureReason = "canceled"
	ReasonInvalid     FailureReason = "invalid"
)

// InferenceResult is the tagged outcome of one endpoint call:
// Success{Text}, Loading{RetryAfter} or Failure{StatusCode, Message, Reason}.
type InferenceResult struct {
	Kind ResultKind

	Text string // Success: raw completion, or the extracted answer once returned by the session manager

	RetryAfter time.Duration // Loading

	StatusCode int // Failure
	Message    string
	Reason     FailureReason
}

func Success(text string) InferenceResult {
	return InferenceResult{Kind: ResultSuccess, Text: text}
}

func Loading(retryAfter time.Duration) InferenceResult {
	return InferenceResult{Kind: ResultLoading, RetryAfter: retryAfter}
}

func Failure(reason FailureReason, statusCode int, message string) InferenceResult {
	return InferenceResult{Kind: ResultFailure, Reason: reason, StatusCode: statusCode, Message: message}
}

func (r InferenceResult) IsSuccess() bool { return r.Kind == ResultSuccess }
func (r InferenceResult) IsLoading() bool { return r.Kind == ResultLoading }
func (r InferenceResult) IsFailure() bool { return r.Kind == ResultFailure }

// Provider is the port to the remote text-generation endpoint.
// A transport-level problem is reported as an error; every HTTP answer is a result.
type Provider interface {
	Infer(ctx context.Context, req InferenceRequest) (InferenceResult, error)
}
