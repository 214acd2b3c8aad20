package assistant

import "errors"

var (
	// ErrNoMatches reports that retrieval succeeded but found nothing.
	ErrNoMatches = errors.New("assistant: no matching documents")

	// ErrGeneration tags failures while opening or reading the answer stream.
	ErrGeneration = errors.New("assistant: generation failed")
)
