package models

import "errors"

// Ingestion errors are fatal to an upload action.
var (
	ErrNoDocuments        = errors.New("no documents uploaded")
	ErrUnreadableDocument = errors.New("unreadable document")
	ErrUnsupportedFormat  = errors.New("unsupported file format")
	ErrNoText             = errors.New("no text extracted from documents")
)

// ErrProvider marks failures of the embedding or completion provider.
var ErrProvider = errors.New("provider error")

// Usage errors are caused by asking at the wrong time or with bad input.
var (
	ErrNotReady      = errors.New("no documents processed yet")
	ErrEmptyQuestion = errors.New("question is empty")
	ErrEmptyQuery    = errors.New("search query is empty")
)

// ErrInvalidConfig is returned for unusable settings.
var ErrInvalidConfig = errors.New("invalid configuration")

type ErrorKind string

const (
	KindIngestion ErrorKind = "ingestion_error"
	KindProvider  ErrorKind = "provider_error"
	KindUsage     ErrorKind = "usage_error"
	KindInternal  ErrorKind = "internal_error"
)

// KindOf classifies err for presentation.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNotReady), errors.Is(err, ErrEmptyQuestion), errors.Is(err, ErrEmptyQuery):
		return KindUsage
	case errors.Is(err, ErrProvider):
		return KindProvider
	case errors.Is(err, ErrNoDocuments), errors.Is(err, ErrUnreadableDocument),
		errors.Is(err, ErrUnsupportedFormat), errors.Is(err, ErrNoText):
		return KindIngestion
	default:
		return KindInternal
	}
}
