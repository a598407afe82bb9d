package renderer

import (
	"fmt"

	"github.com/spaghettifunk/epoch/engine/core"
)

// Renderer owns the active backend for the lifetime of the engine.
type Renderer struct {
	rendererType RendererType
	backend      Backend
}

// New selects a backend. Only the headless backend ships with the runtime;
// GPU backends are linked in by the platform layer through NewWithBackend.
func New(t RendererType) (*Renderer, error) {
	switch t {
	case Headless:
		return &Renderer{rendererType: t, backend: NewHeadlessBackend()}, nil
	}
	return nil, fmt.Errorf("renderer backend '%s' is not available in this build", t)
}

func NewWithBackend(t RendererType, backend Backend) *Renderer {
	return &Renderer{rendererType: t, backend: backend}
}

func (r *Renderer) Initialize(appName string) error {
	if err := r.backend.Initialize(appName); err != nil {
		core.LogError("failed to initialize %s renderer: %s", r.rendererType, err)
		return err
	}
	core.LogInfo("%s renderer initialized", r.rendererType)
	return nil
}

func (r *Renderer) Shutdown() error {
	return r.backend.Shutdown()
}

func (r *Renderer) Backend() Backend {
	return r.backend
}

func (r *Renderer) Type() RendererType {
	return r.rendererType
}
