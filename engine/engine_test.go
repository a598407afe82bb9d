package engine

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/epoch/engine/assetpack"
	"github.com/spaghettifunk/epoch/engine/assets"
	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/project"
	"github.com/spaghettifunk/epoch/engine/renderer"
	"github.com/spaghettifunk/epoch/engine/renderer/metadata"
	"github.com/spaghettifunk/epoch/engine/resources"
	"github.com/spaghettifunk/epoch/engine/scene"
)

const triangleObj = "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"

type sandbox struct {
	projectPath string
	main        resources.Handle
	level       resources.Handle
	mesh        resources.Handle
}

// newSandbox writes a project with two scenes, a mesh and a script module,
// then builds its asset pack.
func newSandbox(t *testing.T) sandbox {
	t.Helper()
	proj := project.New(t.TempDir(), "Sandbox")
	meshPath := filepath.Join(proj.AssetDirectory(), "Meshes", "tri.obj")
	require.NoError(t, os.MkdirAll(filepath.Dir(meshPath), 0o755))
	require.NoError(t, os.WriteFile(meshPath, []byte(triangleObj), 0o644))
	require.NoError(t, os.MkdirAll(proj.ScriptModulePath(), 0o755))
	require.NoError(t, os.WriteFile(proj.ScriptModuleFilePath(), []byte("MZ-app"), 0o644))

	am := assets.NewAssetManager(proj.AssetDirectory(), proj.AssetRegistryPath())
	require.NoError(t, am.Initialize())
	defer am.Close()
	mesh := am.AssetsOfType(resources.AssetTypeMesh)[0]

	level := scene.New(resources.InvalidHandle, "Level")
	level.CreateEntity("Tri").MeshRenderer = &scene.MeshRendererComponent{Mesh: mesh, Visible: true}
	levelHandle, err := am.CreateAsset("Scenes/Level.epoch", level)
	require.NoError(t, err)

	main := scene.New(resources.InvalidHandle, "Main")
	main.CreateEntity("Tri").MeshRenderer = &scene.MeshRendererComponent{Mesh: mesh, Visible: true}
	main.CreateEntity("Loader").Script = &scene.ScriptComponent{
		ClassName: "Sandbox.Loader",
		Fields:    []scene.ScriptField{{Name: "Next", Assets: []resources.Handle{levelHandle}}},
	}
	mainHandle, err := am.CreateAsset("Scenes/Main.epoch", main)
	require.NoError(t, err)

	proj.Config.StartScene = mainHandle
	require.NoError(t, proj.Save())
	_, err = assetpack.Build(proj, am, assetpack.NewRegistry(nil), nil)
	require.NoError(t, err)

	return sandbox{projectPath: proj.FilePath(), main: mainHandle, level: levelHandle, mesh: mesh}
}

func TestEngineBootsFromPack(t *testing.T) {
	sb := newSandbox(t)

	var loaded []string
	var binary []byte
	updates := 0
	var e *Engine
	game := &Game{
		ApplicationConfig: &ApplicationConfig{Name: "Sandbox", LogLevel: core.ErrorLevel, ProjectPath: sb.projectPath, JobWorkers: 1, MaxFrames: 3},
		FnInitialize: func(appBinary []byte) error {
			binary = appBinary
			return nil
		},
		FnSceneLoaded: func(s *scene.Scene) error {
			loaded = append(loaded, s.Name)
			return nil
		},
		FnUpdate: func(float64) error {
			updates++
			if updates == 1 {
				return e.RequestScene(sb.level)
			}
			return nil
		},
	}

	backend := renderer.NewHeadlessBackend()
	e, err := New(game, backend)
	require.NoError(t, err)
	assert.Equal(t, EngineStageBootComplete, e.Stage())

	require.NoError(t, e.Initialize())
	assert.Equal(t, EngineStageInitialized, e.Stage())
	assert.Equal(t, []byte("MZ-app"), binary)
	assert.Equal(t, "Main", e.ActiveScene().Name)
	assert.NotNil(t, game.SystemManager)

	mesh, ok := e.AssetManager().GetAsset(sb.mesh).(*metadata.Mesh)
	require.True(t, ok)
	assert.Len(t, mesh.Vertices, 3)

	require.NoError(t, e.Run())
	assert.Equal(t, 3, updates)
	assert.Equal(t, uint64(3), e.Metrics().Frames())
	assert.Equal(t, []string{"Main", "Level"}, loaded)
	assert.Equal(t, sb.level, e.AssetManager().ActiveScene())

	require.NoError(t, e.Shutdown())
	assert.Equal(t, EngineStageShuttingDown, e.Stage())
}

func TestEngineStop(t *testing.T) {
	sb := newSandbox(t)
	var e *Engine
	game := &Game{
		ApplicationConfig: &ApplicationConfig{Name: "Sandbox", LogLevel: core.ErrorLevel, ProjectPath: sb.projectPath, JobWorkers: 1},
		FnUpdate: func(float64) error {
			e.Stop()
			return nil
		},
	}
	e, err := New(game, nil)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	require.NoError(t, e.Run())
	assert.Equal(t, uint64(1), e.Metrics().Frames())
	require.NoError(t, e.Shutdown())
}

func TestEngineReportsUnavailableAssets(t *testing.T) {
	sb := newSandbox(t)
	game := &Game{ApplicationConfig: &ApplicationConfig{Name: "Sandbox", LogLevel: core.ErrorLevel, ProjectPath: sb.projectPath, JobWorkers: 1}}
	e, err := New(game, nil)
	require.NoError(t, err)
	defer e.Shutdown()

	var scenes []resources.Handle
	e.Events().Register(core.EVENT_CODE_SCENE_LOADED, t, func(_ core.SystemEventCode, _, _ any, data core.EventContext) bool {
		scenes = append(scenes, data.Data.(resources.Handle))
		return false
	})
	require.NoError(t, e.Initialize())
	assert.Equal(t, []resources.Handle{sb.main}, scenes)

	// Requests beyond the queue capacity are rejected.
	for i := 0; i < defaultMaxPendingScenes; i++ {
		require.NoError(t, e.RequestScene(sb.level))
	}
	assert.Error(t, e.RequestScene(sb.level))
}

func TestEngineMissingProject(t *testing.T) {
	game := &Game{ApplicationConfig: &ApplicationConfig{ProjectPath: filepath.Join(t.TempDir(), "none.eproj")}}
	_, err := New(game, nil)
	assert.Error(t, err)
}

func TestEngineLogsProjectPathVerbatim(t *testing.T) {
	var logs bytes.Buffer
	core.SetLogOutput(&logs)
	t.Cleanup(func() { core.SetLogOutput(os.Stderr) })

	path := filepath.Join(t.TempDir(), "100%d%s.eproj")
	game := &Game{ApplicationConfig: &ApplicationConfig{ProjectPath: path}}
	_, err := New(game, nil)
	require.Error(t, err)
	assert.Contains(t, logs.String(), "100%d%s.eproj")
	assert.NotContains(t, logs.String(), "%!")
}
