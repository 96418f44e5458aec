package domain

import "fmt"

// ErrorKind classifies a domain error without string matching at call sites.
type ErrorKind string

const (
	KindInvalidConfig      ErrorKind = "invalid_config"
	KindProviderUnavailable ErrorKind = "provider_unavailable"
	KindStaleData          ErrorKind = "stale_data"
	KindPartialEnrichment  ErrorKind = "partial_enrichment"
	KindScoreUnderconfident ErrorKind = "score_underconfident"
	KindRunTimeout         ErrorKind = "run_timeout"
	KindCacheUnavailable   ErrorKind = "cache_unavailable"
)

// Error is a domain-typed error carrying a Kind, so callers can dispatch via
// errors.As without string matching.
type Error struct {
	kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.Message)
}

// Kind reports the error's classification.
func (e *Error) Kind() ErrorKind {
	return e.kind
}

// Unwrap exposes the wrapped cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

func newErr(kind ErrorKind, msg string, cause error) *Error {
	return &Error{kind: kind, Message: msg, Cause: cause}
}

// NewInvalidConfig reports a strategy config that failed validation (e.g.
// weights not summing to 1.00).
func NewInvalidConfig(msg string, cause error) *Error {
	return newErr(KindInvalidConfig, msg, cause)
}

// NewProviderUnavailable reports an upstream market data provider failure
// (circuit open, exhausted retries, non-2xx after backoff).
func NewProviderUnavailable(msg string, cause error) *Error {
	return newErr(KindProviderUnavailable, msg, cause)
}

// NewStaleData reports a snapshot older than the freshness bound.
func NewStaleData(msg string, cause error) *Error {
	return newErr(KindStaleData, msg, cause)
}

// NewPartialEnrichment reports a symbol whose enrichment left required
// fields unknown (e.g. too little trailing daily history).
func NewPartialEnrichment(msg string, cause error) *Error {
	return newErr(KindPartialEnrichment, msg, cause)
}

// NewScoreUnderconfident reports a candidate whose renormalized confidence
// fell below the minimum confidence required to keep it.
func NewScoreUnderconfident(msg string, cause error) *Error {
	return newErr(KindScoreUnderconfident, msg, cause)
}

// NewRunTimeout reports a run that exceeded its deadline before reaching
// the publish stage.
func NewRunTimeout(msg string, cause error) *Error {
	return newErr(KindRunTimeout, msg, cause)
}

// NewCacheUnavailable reports a cache backend failure on publish or read.
func NewCacheUnavailable(msg string, cause error) *Error {
	return newErr(KindCacheUnavailable, msg, cause)
}
