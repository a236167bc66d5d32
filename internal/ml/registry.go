package ml

import (
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

// Registry holds the single active model. Activation is an atomic pointer
// swap, so concurrent readers always observe a fully formed model, either
// the old one or the new one, never a mix.
type Registry struct {
	active atomic.Pointer[TrainedModel]
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Activate replaces the active model. The model must not be mutated by the
// caller afterwards.
func (r *Registry) Activate(model *TrainedModel) {
	r.active.Store(model)
	log.Info().
		Str("version", model.Version).
		Float64("accuracy", model.Accuracy).
		Msg("model activated")
}

// Current returns the active model, or ErrNoActiveModel if none has ever
// been activated. Safe under any number of concurrent readers.
func (r *Registry) Current() (*TrainedModel, error) {
	m := r.active.Load()
	if m == nil {
		return nil, ErrNoActiveModel
	}
	return m, nil
}
