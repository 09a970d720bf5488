package weather

import (
	"errors"

	"github.com/i474232898/skywatch/internal/upstream"
)

var (
	// ErrSourceUnavailable marks a single provider failure; the pipeline moves on.
	ErrSourceUnavailable = upstream.ErrSourceUnavailable

	// ErrAllSourcesExhausted is returned when no provider produced a snapshot.
	ErrAllSourcesExhausted = errors.New("all weather sources failed")

	// ErrNoSnapshot is returned by a Store that holds nothing for a key.
	ErrNoSnapshot = errors.New("no snapshot stored")
)
