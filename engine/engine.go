package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/spaghettifunk/epoch/engine/assetpack"
	"github.com/spaghettifunk/epoch/engine/containers"
	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/project"
	"github.com/spaghettifunk/epoch/engine/renderer"
	"github.com/spaghettifunk/epoch/engine/resources"
	"github.com/spaghettifunk/epoch/engine/scene"
	"github.com/spaghettifunk/epoch/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently booting up
	EngineStageBooting
	// Engine completed boot process and is ready to be initialized
	EngineStageBootComplete
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

func (s Stage) String() string {
	return [...]string{"uninitialized", "booting", "boot complete", "initializing", "initialized", "running", "shutting down"}[s]
}

const defaultMaxPendingScenes = 8

var ErrNoStartScene = errors.New("project has no start scene")

/**
 * @brief The runtime: boots a project from its asset pack, activates the
 * start scene and drives the game hooks once per frame.
 */
type Engine struct {
	currentStage Stage
	gameInstance *Game
	isRunning    atomic.Bool

	project       *project.Project
	pack          *assetpack.AssetPack
	renderer      *renderer.Renderer
	systemManager *systems.SystemManager
	events        *core.EventBus
	metrics       *core.FrameMetrics
	clock         *core.Clock
	lastTime      float64

	sceneMu       sync.Mutex
	sceneRequests *containers.RingQueue[resources.Handle]
	activeScene   *scene.Scene
	appBinary     []byte
}

// New opens the project and its asset pack. backend may be nil, in which case
// the backend is picked from the configured renderer type.
func New(g *Game, backend renderer.Backend) (*Engine, error) {
	config := g.ApplicationConfig
	if config == nil {
		return nil, fmt.Errorf("game has no application config")
	}
	core.SetLogLevel(config.LogLevel)

	e := &Engine{
		currentStage: EngineStageBooting,
		gameInstance: g,
		events:       core.NewEventBus(),
		metrics:      core.NewFrameMetrics(),
		clock:        core.NewClock(),
	}
	if backend != nil {
		e.renderer = renderer.NewWithBackend(config.RendererType, backend)
	} else {
		r, err := renderer.New(config.RendererType)
		if err != nil {
			return nil, err
		}
		e.renderer = r
	}
	pending := config.MaxPendingScenes
	if pending <= 0 {
		pending = defaultMaxPendingScenes
	}
	e.sceneRequests = containers.NewRingQueue[resources.Handle](pending)

	proj, err := project.Load(config.ProjectPath)
	if err != nil {
		core.LogError("failed to load project: %s", err)
		return nil, err
	}
	e.project = proj

	packPath := config.AssetPackPath
	if packPath == "" {
		packPath = proj.AssetPackPath()
	}
	pack, err := assetpack.Load(packPath, assetpack.NewRegistry(e.renderer.Backend()), assetpack.WithLoadMode(config.LoadMode))
	if err != nil {
		return nil, err
	}
	e.pack = pack

	if g.FnBoot != nil {
		if err := g.FnBoot(); err != nil {
			pack.Close()
			return nil, err
		}
	}
	e.currentStage = EngineStageBootComplete
	return e, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	config := e.gameInstance.ApplicationConfig

	if err := e.renderer.Initialize(config.Name); err != nil {
		return err
	}

	sm, err := systems.NewSystemManager(systems.SystemManagerConfig{JobWorkers: config.JobWorkers}, e.pack, e.renderer.Backend())
	if err != nil {
		return err
	}
	e.systemManager = sm
	e.gameInstance.SystemManager = sm

	e.events.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)

	start := e.project.Config.StartScene
	if !start.IsValid() {
		return ErrNoStartScene
	}
	if err := e.activateScene(start); err != nil {
		return err
	}

	e.appBinary, err = e.pack.ReadAppBinary()
	if err != nil {
		return fmt.Errorf("reading app binary: %w", err)
	}
	core.LogInfo("app binary: %s", humanize.Bytes(uint64(len(e.appBinary))))

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e.appBinary); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) activateScene(handle resources.Handle) error {
	sc, err := e.systemManager.AssetManager().LoadScene(handle)
	if err != nil {
		return err
	}
	e.sceneMu.Lock()
	e.activeScene = sc
	e.sceneMu.Unlock()

	// warm the cache for everything the scene renders
	for _, h := range sc.AssetReferences() {
		if e.systemManager.AssetManager().GetAsset(h) == nil {
			e.events.Fire(core.EVENT_CODE_ASSET_UNAVAILABLE, e, core.EventContext{Data: h})
		}
	}
	e.events.Fire(core.EVENT_CODE_SCENE_LOADED, e, core.EventContext{Data: handle})
	if e.gameInstance.FnSceneLoaded != nil {
		return e.gameInstance.FnSceneLoaded(sc)
	}
	return nil
}

// RequestScene queues a scene change. It takes effect at the start of the next frame.
func (e *Engine) RequestScene(handle resources.Handle) error {
	e.sceneMu.Lock()
	defer e.sceneMu.Unlock()
	return e.sceneRequests.Enqueue(handle)
}

func (e *Engine) processSceneRequests() {
	for {
		e.sceneMu.Lock()
		handle, err := e.sceneRequests.Dequeue()
		e.sceneMu.Unlock()
		if err != nil {
			return
		}
		if err := e.activateScene(handle); err != nil {
			core.LogError("scene change to %s failed: %s", handle, err)
		}
	}
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	config := e.gameInstance.ApplicationConfig
	var targetFrameTime time.Duration
	if config.TargetFrameRate > 0 {
		targetFrameTime = time.Duration(float64(time.Second) / config.TargetFrameRate)
	}

	for e.isRunning.Load() {
		frameStart := time.Now()
		e.processSceneRequests()

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := (currentTime - e.lastTime) / float64(time.Second)

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("game update failed, shutting down: %s", err)
				e.isRunning.Store(false)
				return err
			}
		}

		frameElapsed := time.Since(frameStart)
		if remaining := targetFrameTime - frameElapsed; remaining > 0 {
			time.Sleep(remaining)
		}
		e.metrics.Update(frameElapsed.Seconds())
		e.lastTime = currentTime

		if config.MaxFrames > 0 && e.metrics.Frames() >= config.MaxFrames {
			e.isRunning.Store(false)
		}
	}
	core.LogDebug("engine loop stopped after %d frames (%.1f fps)", e.metrics.Frames(), e.metrics.FPS())
	return nil
}

// Stop asks the loop to exit at the end of the current frame. Safe to call from any goroutine.
func (e *Engine) Stop() {
	e.events.Fire(core.EVENT_CODE_APPLICATION_QUIT, e, core.EventContext{})
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	var errs []error
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	if e.systemManager != nil {
		errs = append(errs, e.systemManager.Shutdown())
	}
	e.events.Clear()
	errs = append(errs, e.renderer.Shutdown(), e.pack.Close())
	return errors.Join(errs...)
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Events() *core.EventBus {
	return e.events
}

func (e *Engine) Metrics() *core.FrameMetrics {
	return e.metrics
}

func (e *Engine) Project() *project.Project {
	return e.project
}

func (e *Engine) AssetManager() *systems.RuntimeAssetManager {
	return e.systemManager.AssetManager()
}

func (e *Engine) ActiveScene() *scene.Scene {
	e.sceneMu.Lock()
	defer e.sceneMu.Unlock()
	return e.activeScene
}

func (e *Engine) AppBinary() []byte {
	return e.appBinary
}

func (e *Engine) onEvent(code core.SystemEventCode, sender any, listener any, context core.EventContext) bool {
	switch code {
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.isRunning.Store(false)
		return true
	}
	return false
}
