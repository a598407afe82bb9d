package assets

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/epoch/engine/assetpack"
	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/project"
	"github.com/spaghettifunk/epoch/engine/renderer"
	"github.com/spaghettifunk/epoch/engine/renderer/metadata"
	"github.com/spaghettifunk/epoch/engine/resources"
	"github.com/spaghettifunk/epoch/engine/scene"
)

const quadObj = `# quad
o Quad
v -1 -1 0
v 1 -1 0
v 1 1 0
v -1 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
f 1/1 2/2 3/3 4/4
`

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 40), B: 200, A: 255})
		}
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newProject(t *testing.T) (*project.Project, *AssetManager) {
	t.Helper()
	proj := project.New(t.TempDir(), "Sandbox")
	writePNG(t, filepath.Join(proj.AssetDirectory(), "Textures", "bricks.png"), 4, 2)
	writeFile(t, filepath.Join(proj.AssetDirectory(), "Meshes", "quad.obj"), quadObj)
	writeFile(t, filepath.Join(proj.AssetDirectory(), "notes.txt"), "not an asset")

	am := NewAssetManager(proj.AssetDirectory(), proj.AssetRegistryPath())
	require.NoError(t, am.Initialize())
	t.Cleanup(func() { am.Close() })
	return proj, am
}

func TestInitializeImportsAssetDirectory(t *testing.T) {
	proj, am := newProject(t)

	textures := am.AssetsOfType(resources.AssetTypeTexture)
	meshes := am.AssetsOfType(resources.AssetTypeMesh)
	require.Len(t, textures, 1)
	require.Len(t, meshes, 1)
	assert.FileExists(t, proj.AssetRegistryPath())

	md, ok := am.GetMetadata(textures[0])
	require.True(t, ok)
	assert.Equal(t, "Textures/bricks.png", md.FilePath)
	assert.False(t, md.IsDataLoaded)

	asset, err := am.GetAsset(textures[0])
	require.NoError(t, err)
	tex := asset.(*metadata.Texture2D)
	assert.Equal(t, textures[0], tex.Handle())
	assert.Equal(t, uint32(4), tex.Width())
	assert.Equal(t, uint32(2), tex.Height())
	assert.Equal(t, uint64(len(tex.Pixels)), tex.ExpectedSize())

	asset, err = am.GetAsset(meshes[0])
	require.NoError(t, err)
	mesh := asset.(*metadata.Mesh)
	assert.Len(t, mesh.Vertices, 4)
	assert.Len(t, mesh.Indices, 6)
	require.Len(t, mesh.Submeshes, 1)
	assert.Equal(t, "Quad", mesh.Submeshes[0].NodeName)
}

func TestRegistryKeepsHandlesAcrossSessions(t *testing.T) {
	proj, am := newProject(t)
	texture := am.AssetsOfType(resources.AssetTypeTexture)[0]
	require.NoError(t, am.Close())

	again := NewAssetManager(proj.AssetDirectory(), proj.AssetRegistryPath())
	require.NoError(t, again.Initialize())
	defer again.Close()
	assert.Equal(t, []resources.Handle{texture}, again.AssetsOfType(resources.AssetTypeTexture))
}

func TestRegistryDropsDeletedFiles(t *testing.T) {
	proj, am := newProject(t)
	require.NoError(t, am.Close())
	require.NoError(t, os.Remove(filepath.Join(proj.AssetDirectory(), "Meshes", "quad.obj")))

	again := NewAssetManager(proj.AssetDirectory(), proj.AssetRegistryPath())
	require.NoError(t, again.Initialize())
	defer again.Close()
	assert.Empty(t, again.AssetsOfType(resources.AssetTypeMesh))
}

func TestMemoryAssets(t *testing.T) {
	_, am := newProject(t)
	tex := metadata.CreateDefaultTextures().Default
	h := am.AddMemoryAsset(tex)
	assert.True(t, h.IsValid())

	md, ok := am.GetMetadata(h)
	require.True(t, ok)
	assert.True(t, md.IsMemoryAsset)
	got, err := am.GetAsset(h)
	require.NoError(t, err)
	assert.Same(t, tex, got)
}

func TestUnknownHandle(t *testing.T) {
	_, am := newProject(t)
	_, err := am.GetAsset(42)
	assert.ErrorIs(t, err, core.ErrLookup)
	_, ok := am.GetMetadata(42)
	assert.False(t, ok)
}

func TestImportAsEnvironment(t *testing.T) {
	proj, am := newProject(t)
	path := filepath.Join(proj.AssetDirectory(), "Sky", "sky.png")
	writePNG(t, path, 12, 2)

	h, err := am.ImportAssetAs(path, resources.AssetTypeEnvTexture)
	require.NoError(t, err)
	asset, err := am.GetAsset(h)
	require.NoError(t, err)
	cube := asset.(*metadata.TextureCube)
	assert.Equal(t, uint32(2), cube.Width())
	assert.Equal(t, cube.ExpectedSize(), uint64(len(cube.Pixels)))
}

func TestWatcherImportsNewFiles(t *testing.T) {
	proj, am := newProject(t)
	changed := make(chan resources.Handle, 4)
	am.OnChange = func(h resources.Handle, op fsnotify.Op) {
		if op&fsnotify.Create != 0 {
			changed <- h
		}
	}
	require.NoError(t, am.Watch())

	writePNG(t, filepath.Join(proj.AssetDirectory(), "Textures", "new.png"), 1, 1)
	select {
	case h := <-changed:
		md, ok := am.GetMetadata(h)
		require.True(t, ok)
		assert.Equal(t, "Textures/new.png", md.FilePath)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not pick up the new file")
	}
}

func TestBuildPackFromProject(t *testing.T) {
	proj, am := newProject(t)
	texture := am.AssetsOfType(resources.AssetTypeTexture)[0]
	mesh := am.AssetsOfType(resources.AssetTypeMesh)[0]

	mat := metadata.NewMaterial("Bricks")
	mat.AlbedoTexture = texture
	matHandle, err := am.CreateAsset("Materials/bricks.mat", mat)
	require.NoError(t, err)

	sc := scene.New(resources.InvalidHandle, "Main")
	sc.CreateEntity("Wall").MeshRenderer = &scene.MeshRendererComponent{
		Mesh: mesh, Materials: []resources.Handle{matHandle}, Visible: true,
	}
	sceneHandle, err := am.CreateAsset("Scenes/Main.epoch", sc)
	require.NoError(t, err)
	proj.Config.StartScene = sceneHandle

	progress := assetpack.NewProgress()
	result, err := assetpack.Build(proj, am, assetpack.NewRegistry(nil), progress)
	require.NoError(t, err)
	assert.Equal(t, 3, result.UniqueAssets)
	assert.Equal(t, 1.0, progress.Value())

	pack, err := assetpack.Load(proj.AssetPackPath(), assetpack.NewRegistry(renderer.NewHeadlessBackend()))
	require.NoError(t, err)
	defer pack.Close()

	loaded, err := pack.LoadAsset(sceneHandle, matHandle)
	require.NoError(t, err)
	assert.Equal(t, texture, loaded.(*metadata.Material).AlbedoTexture)
	assert.True(t, pack.IsAssetHandleValid(texture))
}
