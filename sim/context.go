// Package sim threads the per-rank runtime state through the core's
// entry points and sequences the per-level primitives the mesh
// exposes. Time-stepping policy stays with the embedder.
package sim

import (
	"log/slog"

	"github.com/comp-physics/ECOGEN-CIT/mesh"
)

// RuntimeContext carries what used to be process-wide state: the rank
// identity, the structured logger, and the per-rank error list that
// is collectively verified at barriers.
type RuntimeContext struct {
	Rank   int
	Size   int
	Log    *slog.Logger
	Errors *mesh.ErrorList
}

// NewRuntimeContext builds a context for one rank. A nil logger
// disables logging.
func NewRuntimeContext(rank, size int, log *slog.Logger) *RuntimeContext {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &RuntimeContext{
		Rank:   rank,
		Size:   size,
		Log:    log.With("rank", rank),
		Errors: &mesh.ErrorList{},
	}
}
