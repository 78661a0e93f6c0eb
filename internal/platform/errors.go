package platform

import (
	"errors"
	"fmt"
)

// FailureKind classifies a publish failure for retry policy.
type FailureKind string

const (
	KindAccountInvalid   FailureKind = "account_invalid"
	KindRateLimited      FailureKind = "rate_limited"
	KindTransientNetwork FailureKind = "transient_network"
	KindContentRejected  FailureKind = "content_rejected"
	KindUnknown          FailureKind = "unknown"
)

type PublishError struct {
	Kind     FailureKind
	Platform string
	Message  string
	Err      error
}

func (e *PublishError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Platform, e.Message, e.Kind)
	}
	return fmt.Sprintf("%s: publish failed (%s)", e.Platform, e.Kind)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the orchestrator may schedule another attempt.
// AccountInvalid needs a reconnect, ContentRejected a content change;
// retrying either would just repeat the same failure.
func (e *PublishError) Retryable() bool {
	switch e.Kind {
	case KindAccountInvalid, KindContentRejected:
		return false
	}
	return true
}

func NewPublishError(kind FailureKind, platform, message string, err error) *PublishError {
	return &PublishError{Kind: kind, Platform: platform, Message: message, Err: err}
}

// Classify maps any error to a failure kind, unwrapping PublishError when
// present and treating everything else as transport-level trouble.
func Classify(err error) FailureKind {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// kindFromStatus maps an HTTP status from a platform API to a failure kind.
func kindFromStatus(status int) FailureKind {
	switch {
	case status == 401 || status == 403:
		return KindAccountInvalid
	case status == 429:
		return KindRateLimited
	case status >= 500:
		return KindTransientNetwork
	case status == 400 || status == 422:
		return KindContentRejected
	}
	return KindUnknown
}
