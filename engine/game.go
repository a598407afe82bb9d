package engine

import (
	"github.com/spaghettifunk/epoch/engine/scene"
	"github.com/spaghettifunk/epoch/engine/systems"
)

/**
 * @brief The hooks a game plugs into the engine. Every hook is optional.
 */
type Game struct {
	ApplicationConfig *ApplicationConfig
	SystemManager     *systems.SystemManager
	State             any
	FnBoot            Boot
	FnInitialize      Initialize
	FnSceneLoaded     SceneLoaded
	FnUpdate          Update
	FnShutdown        Shutdown
}

type Boot func() error

// Initialize receives the app binary read from the asset pack, nil if the pack has none.
type Initialize func(appBinary []byte) error
type SceneLoaded func(s *scene.Scene) error
type Update func(deltaTime float64) error
type Shutdown func() error
