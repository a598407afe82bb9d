package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/epoch/engine/assetpack"
	"github.com/spaghettifunk/epoch/engine/assets"
	"github.com/spaghettifunk/epoch/engine/project"
	"github.com/spaghettifunk/epoch/engine/resources"
	"github.com/spaghettifunk/epoch/engine/scene"
)

func writeProject(t *testing.T) *project.Project {
	t.Helper()
	proj := project.New(t.TempDir(), "Cli")
	obj := filepath.Join(proj.AssetDirectory(), "tri.obj")
	require.NoError(t, os.MkdirAll(filepath.Dir(obj), 0o755))
	require.NoError(t, os.WriteFile(obj, []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"), 0o644))
	require.NoError(t, os.MkdirAll(proj.ScriptModulePath(), 0o755))
	require.NoError(t, os.WriteFile(proj.ScriptModuleFilePath(), []byte("app"), 0o644))

	am := assets.NewAssetManager(proj.AssetDirectory(), proj.AssetRegistryPath())
	require.NoError(t, am.Initialize())
	sc := scene.New(resources.InvalidHandle, "Main")
	sc.CreateEntity("Tri").MeshRenderer = &scene.MeshRendererComponent{
		Mesh: am.AssetsOfType(resources.AssetTypeMesh)[0], Visible: true,
	}
	h, err := am.CreateAsset("Main.epoch", sc)
	require.NoError(t, err)
	require.NoError(t, am.Close())

	proj.Config.StartScene = h
	require.NoError(t, proj.Save())
	return proj
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestBuildInspectExtract(t *testing.T) {
	proj := writeProject(t)
	pack := filepath.Join(t.TempDir(), "out", "Game.eap")

	out, err := execute(t, "build", proj.FilePath(), "-o", pack)
	require.NoError(t, err)
	assert.Contains(t, out, "packed 1 assets")
	assert.FileExists(t, pack)

	out, err = execute(t, "inspect", pack, "--verify")
	require.NoError(t, err)
	assert.Contains(t, out, "EPAP v1")
	assert.Contains(t, out, "1 scenes, 1 unique assets")
	assert.Contains(t, out, "Mesh")
	assert.Contains(t, out, "all chunks verified")

	app := filepath.Join(t.TempDir(), "app.bin")
	_, err = execute(t, "extract-app", pack, "-o", app)
	require.NoError(t, err)
	data, err := os.ReadFile(app)
	require.NoError(t, err)
	assert.Equal(t, []byte("app"), data)
}

func TestBuildSummaryFollowsProgress(t *testing.T) {
	saved := progressInterval
	progressInterval = time.Microsecond
	t.Cleanup(func() { progressInterval = saved })

	proj := writeProject(t)
	var out bytes.Buffer
	require.NoError(t, runBuild(&out, proj.FilePath(), filepath.Join(t.TempDir(), "Game.eap")))

	text := out.String()
	last := text[strings.LastIndex(text, "\r"):]
	assert.True(t, strings.HasPrefix(last, "\rpacked 1 assets"), "summary must be the last line, got %q", last)
}

func TestReportProgressStopsWhenDone(t *testing.T) {
	done := make(chan struct{})
	close(done)
	var out bytes.Buffer
	reportProgress(&out, assetpack.NewProgress(), done)
	assert.Empty(t, out.String())
}

func TestRunCommand(t *testing.T) {
	proj := writeProject(t)
	_, err := execute(t, "build", proj.FilePath())
	require.NoError(t, err)

	_, err = execute(t, "run", proj.FilePath(), "--frames", "2", "--fps", "0")
	require.NoError(t, err)
}

func TestInspectRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.eap")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a pack"), 0o644))
	_, err := execute(t, "inspect", path)
	assert.Error(t, err)

	_, err = execute(t, "build", filepath.Join(t.TempDir(), "missing.eproj"))
	assert.Error(t, err)
}
