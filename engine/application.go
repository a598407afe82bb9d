package engine

import (
	"github.com/spaghettifunk/epoch/engine/assetpack"
	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/renderer"
)

type ApplicationConfig struct {
	// The application name, used for logging and the renderer.
	Name     string
	LogLevel core.LogLevel
	// Backend used when the engine is not handed one. Only Headless ships.
	RendererType renderer.RendererType
	// Path to the project file whose asset pack is loaded.
	ProjectPath string
	// Overrides the pack location taken from the project, if set.
	AssetPackPath string
	LoadMode      assetpack.LoadMode
	// Number of job workers. Zero means one per CPU.
	JobWorkers int
	// Frames per second the loop aims for. Zero disables frame limiting.
	TargetFrameRate float64
	// Stops the loop after this many frames, if non-zero.
	MaxFrames uint64
	// Maximum number of scene changes queued between two frames.
	MaxPendingScenes int
}
