package harness

import (
	"fmt"

	"github.com/ZanzyTHEbar/zero-assistant/zero"
	ports "github.com/ZanzyTHEbar/zero-assistant/zero/generation/harness/ports"
)

// ResultError classifies a non-success result. It returns nil for Success.
func ResultError(r ports.InferenceResult) error {
	const op = "inference"
	switch {
	case r.IsSuccess():
		return nil
	case r.IsLoading():
		return zero.Errorf(zero.KindColdStart, op, "model loading, retry after %s", r.RetryAfter)
	case r.Reason == ports.ReasonTimeout:
		return zero.Errorf(zero.KindTimeout, op, "%s", r.Message)
	case r.Reason == ports.ReasonInvalid:
		return zero.Errorf(zero.KindExtractionFailure, op, "%s", r.Message)
	case r.StatusCode != 0:
		return zero.Errorf(zero.KindNetworkFailure, op, "status %d (%s): %s", r.StatusCode, r.Reason, r.Message)
	default:
		return zero.Errorf(zero.KindNetworkFailure, op, "%s: %s", r.Reason, r.Message)
	}
}

// FailureReply turns a non-success result into the sentence shown to the user.
func FailureReply(r ports.InferenceResult) string {
	switch r.Reason {
	case ports.ReasonTimeout:
		return "My AI is taking too long to wake up. Please try again in a minute."
	case ports.ReasonNetwork:
		return "I can't reach my AI right now. Please check the internet connection."
	case ports.ReasonRateLimited:
		return "I'm getting too many requests right now. Please wait a moment."
	case ports.ReasonCanceled:
		return "Okay, never mind."
	case ports.ReasonInvalid:
		return "Sorry, my AI gave me an answer I couldn't understand."
	default:
		return fmt.Sprintf("Something's wrong with my AI. I'm getting the following error:\nError %d: %s", r.StatusCode, r.Message)
	}
}
