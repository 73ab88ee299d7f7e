package handlers

import (
	"time"

	"github.com/go-playground/validator/v10"

	"visionvault/internal/indexer"
	"visionvault/internal/library"
)

// Indexer is the part of the indexer the handlers depend on.
type Indexer interface {
	IsReady() bool
	IsSweeping() bool
	LastSweep() time.Time
	TriggerAsync(trigger indexer.Trigger) bool
	GetHealthStatus() indexer.HealthStatus
}

// Handlers holds the dependencies shared by every handler.
type Handlers struct {
	lib            *library.Library
	indexer        Indexer
	validate       *validator.Validate
	uploadMaxBytes int64
}

// New creates the handlers. uploadMaxBytes bounds the size of a single
// uploaded file; zero uses the library default.
func New(lib *library.Library, idx Indexer, uploadMaxBytes int64) *Handlers {
	if uploadMaxBytes <= 0 {
		uploadMaxBytes = library.DefaultUploadMaxBytes
	}
	return &Handlers{
		lib:            lib,
		indexer:        idx,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		uploadMaxBytes: uploadMaxBytes,
	}
}
