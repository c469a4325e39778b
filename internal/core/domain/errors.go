package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBuildInProgress indicates a build is already running for the library.
	// A second build request is rejected, not queued.
	ErrBuildInProgress = errors.New("build in progress")

	// ErrTaskNotFound indicates the referenced task id is unknown.
	ErrTaskNotFound = errors.New("task not found")

	// ErrUnreadableDocument indicates a source document could not be read
	// or extracted. Builds log and skip the document; it is never fatal.
	ErrUnreadableDocument = errors.New("unreadable document")

	// ErrIndexCorrupt indicates a persisted index artifact is truncated or
	// inconsistent (e.g. vector dimensionality mismatch). Recovery is a
	// full rebuild, never a partial patch.
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrDimensionMismatch indicates an embedding vector does not match
	// the library's fixed dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrNoExemplars indicates the library's exemplar index is empty, so
	// retrieval-backed operations cannot proceed.
	ErrNoExemplars = errors.New("no exemplars in library")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Semantic diagnosis, scanning and polishing are disabled without it.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrBackendUnavailable indicates an inference backend (embedding or
	// generation) could not be reached.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrRateLimited indicates the backend rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrBudgetExceeded indicates the request would exceed the output or
	// token budget. The request fails fast before calling the generation
	// backend again.
	ErrBudgetExceeded = errors.New("budget exceeded")

	// ErrGenerationDegraded indicates the generation backend never produced
	// a contract-compliant rewrite within the retry budget. The caller still
	// receives a valid evidence-only result alongside this error.
	ErrGenerationDegraded = errors.New("generation degraded to evidence-only result")
)
