package testbed

import (
	"github.com/dustin/go-humanize"

	"github.com/spaghettifunk/epoch/engine"
	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/renderer/metadata"
	"github.com/spaghettifunk/epoch/engine/scene"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	elapsed       float64
	appBinarySize int
	scenesLoaded  int
	meshCount     int
	triangleCount uint32
	missingAssets int
}

// NewTestGame returns a game that walks every loaded scene and resolves the
// assets its entities render, reporting what it found.
func NewTestGame(config *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{},
		},
	}
	tg.FnBoot = tg.Boot
	tg.FnInitialize = tg.Initialize
	tg.FnSceneLoaded = tg.SceneLoaded
	tg.FnUpdate = tg.Update
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Boot() error {
	core.LogInfo("booting testbed '%s'...", g.ApplicationConfig.Name)
	return nil
}

func (g *TestGame) Initialize(appBinary []byte) error {
	g.state().appBinarySize = len(appBinary)
	if appBinary == nil {
		core.LogWarn("asset pack carries no app binary, running without scripts")
	}
	return nil
}

func (g *TestGame) SceneLoaded(s *scene.Scene) error {
	state := g.state()
	state.scenesLoaded++
	am := g.SystemManager.AssetManager()
	for _, e := range s.Entities {
		if e.MeshRenderer == nil {
			continue
		}
		mesh, ok := am.GetAsset(e.MeshRenderer.Mesh).(*metadata.Mesh)
		if !ok {
			state.missingAssets++
			core.LogWarn("entity '%s' renders mesh %s which is unavailable", e.Name, e.MeshRenderer.Mesh)
			continue
		}
		state.meshCount++
		state.triangleCount += mesh.TriangleCount()
		for _, h := range e.MeshRenderer.Materials {
			if am.GetAsset(h) == nil {
				state.missingAssets++
			}
		}
	}
	core.LogInfo("scene '%s': %d entities", s.Name, len(s.Entities))
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	g.state().elapsed += deltaTime
	return nil
}

func (g *TestGame) Shutdown() error {
	s := g.state()
	core.LogInfo("testbed ran %.2fs: %d scenes, %d meshes (%s triangles), %d missing assets, app binary %s",
		s.elapsed, s.scenesLoaded, s.meshCount, humanize.Comma(int64(s.triangleCount)), s.missingAssets,
		humanize.Bytes(uint64(s.appBinarySize)))
	return nil
}
