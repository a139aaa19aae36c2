package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrRunInProgress       = errors.New("news pipeline run already in progress")
	ErrUnknownCategory     = errors.New("unknown category")
)

// Transient classification failure labels, persisted as "<label>: <detail>".
const (
	LabelTimeout           = "Timeout"
	LabelQuotaExceeded     = "Quota Exceeded"
	LabelMalformedResponse = "Malformed Response"
	LabelInvalidCategory   = "Invalid Category"
	LabelAIError           = "AI Error"
	LabelUnclassified      = "Unclassified"
)

const rejectedPrefix = "AI Rejected: "

// ClassificationError is the non-accepted outcome of classifying one article.
// Rejected is terminal; Transient is retried on the next run.
type ClassificationError struct {
	Kind   ErrorKind
	Label  string
	Reason string
	Err    error
}

func Rejected(reason string) *ClassificationError {
	return &ClassificationError{Kind: ErrorKindRejected, Reason: reason}
}

func Transient(label string, err error) *ClassificationError {
	return &ClassificationError{Kind: ErrorKindTransient, Label: label, Err: err}
}

func (e *ClassificationError) Error() string {
	if e.Kind == ErrorKindRejected {
		return rejectedPrefix + e.Reason
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Label, e.Err)
	}
	if e.Reason != "" {
		return e.Label + ": " + e.Reason
	}
	return e.Label
}

func (e *ClassificationError) Unwrap() error { return e.Err }

func (e *ClassificationError) Retryable() bool { return e.Kind == ErrorKindTransient }

type FeedFetchError struct {
	FeedID string
	Err    error
}

func (e *FeedFetchError) Error() string { return "feed:" + e.FeedID + ": " + e.Err.Error() }

func (e *FeedFetchError) Unwrap() error { return e.Err }

type PersistenceError struct {
	SourceID string
	Err      error
}

func (e *PersistenceError) Error() string {
	return "persist:" + e.SourceID + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }
