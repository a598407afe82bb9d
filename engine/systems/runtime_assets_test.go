package systems

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/epoch/engine/assetpack"
	"github.com/spaghettifunk/epoch/engine/renderer"
	"github.com/spaghettifunk/epoch/engine/renderer/metadata"
	"github.com/spaghettifunk/epoch/engine/resources"
	"github.com/spaghettifunk/epoch/engine/scene"
)

const (
	lobby     resources.Handle = 10
	arena     resources.Handle = 20
	lobbyMesh resources.Handle = 101
	arenaMesh resources.Handle = 102
	arenaMat  resources.Handle = 103
)

type sourceMap map[resources.Handle]resources.Asset

func (s sourceMap) GetAsset(handle resources.Handle) (resources.Asset, error) {
	if a, ok := s[handle]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("asset %s not found", handle)
}

func (s sourceMap) GetMetadata(handle resources.Handle) (resources.Metadata, bool) {
	a, ok := s[handle]
	if !ok {
		return resources.Metadata{}, false
	}
	return resources.Metadata{Handle: handle, Type: a.AssetType(), FilePath: handle.String()}, true
}

func (s sourceMap) add(handle resources.Handle, asset resources.Asset) {
	asset.(resources.HandleSetter).SetHandle(handle)
	s[handle] = asset
}

// buildPack writes a pack where the lobby links the arena and each scene
// owns one mesh. The arena mesh is only indexed under the arena.
func buildPack(t *testing.T) *assetpack.AssetPack {
	t.Helper()
	return buildPackFor(t, renderer.NewHeadlessBackend())
}

// buildPackFor is buildPack with the pack uploading to backend.
func buildPackFor(t *testing.T, backend renderer.Backend) *assetpack.AssetPack {
	t.Helper()
	src := sourceMap{}
	src.add(lobbyMesh, GenerateQuadMesh("LobbyQuad"))
	src.add(arenaMesh, GenerateCubeMesh(1, 1, 1, 1, 1, "ArenaCube"))
	src.add(arenaMat, metadata.NewMaterial("Arena"))

	l := scene.New(lobby, "Lobby")
	l.CreateEntity("Quad").MeshRenderer = &scene.MeshRendererComponent{Mesh: lobbyMesh, Visible: true}
	l.CreateEntity("Door").Script = &scene.ScriptComponent{
		ClassName: "Game.Door",
		Fields:    []scene.ScriptField{{Name: "Target", Assets: []resources.Handle{arena}}},
	}
	src.add(lobby, l)

	a := scene.New(arena, "Arena")
	a.CreateEntity("Cube").MeshRenderer = &scene.MeshRendererComponent{
		Mesh: arenaMesh, Materials: []resources.Handle{arenaMat}, Visible: true,
	}
	src.add(arena, a)

	registry := assetpack.NewRegistry(nil)
	file, err := assetpack.NewBuilder(registry, src).Plan(lobby, nil)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "Game.epap")
	_, err = assetpack.NewSerializer(registry, src).SerializeToFile(path, file, nil, nil)
	require.NoError(t, err)

	pack, err := assetpack.Load(path, assetpack.NewRegistry(backend))
	require.NoError(t, err)
	t.Cleanup(func() { pack.Close() })
	return pack
}

func TestGetAssetIsSceneScoped(t *testing.T) {
	ram := NewRuntimeAssetManager(buildPack(t), nil, nil)

	assert.Nil(t, ram.GetAsset(lobbyMesh), "no active scene yet")

	sc, err := ram.LoadScene(lobby)
	require.NoError(t, err)
	assert.Equal(t, "Lobby", sc.Name)
	assert.Equal(t, lobby, ram.ActiveScene())

	mesh, ok := ram.GetAsset(lobbyMesh).(*metadata.Mesh)
	require.True(t, ok)
	assert.Equal(t, lobbyMesh, mesh.Handle())
	assert.NotNil(t, mesh.VertexBuffer)
	assert.True(t, ram.IsAssetLoaded(lobbyMesh))
	assert.Same(t, mesh, ram.GetAsset(lobbyMesh))

	// Valid in the pack but not reachable from the lobby's index.
	assert.True(t, ram.IsAssetHandleValid(arenaMesh))
	assert.Nil(t, ram.GetAsset(arenaMesh))

	_, err = ram.LoadScene(arena)
	require.NoError(t, err)
	assert.NotNil(t, ram.GetAsset(arenaMesh))
	assert.Equal(t, resources.AssetTypeMaterial, ram.GetAssetType(arenaMat))
	// Cached assets keep resolving after the scene changes.
	assert.NotNil(t, ram.GetAsset(lobbyMesh))
}

func TestGetAssetMissingHandle(t *testing.T) {
	ram := NewRuntimeAssetManager(buildPack(t), nil, nil)
	_, err := ram.LoadScene(lobby)
	require.NoError(t, err)

	assert.Nil(t, ram.GetAsset(12345))
	assert.Nil(t, ram.GetAsset(resources.InvalidHandle))
	assert.False(t, ram.IsAssetHandleValid(12345))
	assert.False(t, ram.IsAssetHandleValid(resources.InvalidHandle))
	assert.Equal(t, resources.AssetTypeNone, ram.GetAssetType(12345))

	_, err = ram.LoadScene(999)
	assert.Error(t, err)
	assert.Equal(t, lobby, ram.ActiveScene())
}

func TestMemoryAssetsTakePriority(t *testing.T) {
	ram := NewRuntimeAssetManager(buildPack(t), nil, nil)
	_, err := ram.LoadScene(lobby)
	require.NoError(t, err)

	override := GenerateCubeMesh(3, 3, 3, 1, 1, "Override")
	override.SetHandle(lobbyMesh)
	assert.Equal(t, lobbyMesh, ram.AddMemoryOnlyAsset(override))
	assert.Same(t, override, ram.GetAsset(lobbyMesh))
	assert.True(t, ram.IsMemoryAsset(lobbyMesh))
	assert.False(t, ram.IsAssetLoaded(lobbyMesh))

	fresh := metadata.NewMaterial("Runtime")
	h := ram.AddMemoryOnlyAsset(fresh)
	assert.True(t, h.IsValid())
	assert.Equal(t, h, fresh.Handle())
	assert.True(t, ram.IsAssetHandleValid(h))

	ram.RemoveAsset(lobbyMesh)
	assert.False(t, ram.IsMemoryAsset(lobbyMesh))
	assert.NotSame(t, override, ram.GetAsset(lobbyMesh))
}

func TestReloadData(t *testing.T) {
	ram := NewRuntimeAssetManager(buildPack(t), nil, nil)
	_, err := ram.LoadScene(lobby)
	require.NoError(t, err)

	first := ram.GetAsset(lobbyMesh)
	require.NotNil(t, first)
	assert.True(t, ram.ReloadData(lobbyMesh))
	assert.True(t, ram.IsAssetLoaded(lobbyMesh), "reload caches the fresh copy")

	second := ram.GetAsset(lobbyMesh)
	require.NotNil(t, second)
	assert.NotSame(t, first, second)
	assert.Contains(t, ram.LoadedAssets(), lobbyMesh)
	assert.Contains(t, ram.LoadedAssets(), lobby)

	// A handle never read before is loaded by the reload itself.
	_, err = ram.LoadScene(arena)
	require.NoError(t, err)
	assert.False(t, ram.IsAssetLoaded(arenaMesh))
	assert.True(t, ram.ReloadData(arenaMesh))
	assert.True(t, ram.IsAssetLoaded(arenaMesh))

	// Not in the arena's index: the reload fails and the cached copy stays.
	assert.False(t, ram.ReloadData(lobbyMesh))
	assert.Same(t, second, ram.GetAsset(lobbyMesh))
	assert.False(t, ram.ReloadData(12345))

	override := GenerateQuadMesh("Override")
	handle := ram.AddMemoryOnlyAsset(override)
	assert.False(t, ram.ReloadData(handle))
	assert.Same(t, override, ram.GetAsset(handle))
}

func TestReleasingMeshFreesGPUBuffers(t *testing.T) {
	backend := renderer.NewHeadlessBackend()
	ram := NewRuntimeAssetManager(buildPackFor(t, backend), backend, nil)
	_, err := ram.LoadScene(arena)
	require.NoError(t, err)

	mesh, ok := ram.GetAsset(arenaMesh).(*metadata.Mesh)
	require.True(t, ok)
	vb, ib := mesh.VertexBuffer, mesh.IndexBuffer
	require.NotNil(t, vb)
	require.NotNil(t, ib)
	live := backend.Stats().Live

	ram.RemoveAsset(arenaMesh)
	assert.Equal(t, metadata.InvalidID, vb.ID)
	assert.Equal(t, metadata.InvalidID, ib.ID)
	assert.Nil(t, mesh.VertexBuffer)
	assert.Equal(t, live-2, backend.Stats().Live)

	reloaded, ok := ram.GetAsset(arenaMesh).(*metadata.Mesh)
	require.True(t, ok)
	old := reloaded.VertexBuffer
	assert.True(t, ram.ReloadData(arenaMesh))
	assert.Equal(t, metadata.InvalidID, old.ID, "reload releases the replaced copy")
	assert.Equal(t, live, backend.Stats().Live)

	require.NoError(t, ram.Shutdown())
	assert.Zero(t, backend.Stats().Live)
}

func TestGetAssetAsync(t *testing.T) {
	js, err := NewJobSystem(2, 4)
	require.NoError(t, err)
	defer js.Shutdown()
	ram := NewRuntimeAssetManager(buildPack(t), nil, js)
	_, err = ram.LoadScene(arena)
	require.NoError(t, err)

	results := make(chan resources.Asset, 2)
	ram.GetAssetAsync(arenaMesh, func(a resources.Asset) { results <- a })
	ram.GetAssetAsync(777, func(a resources.Asset) { results <- a })

	got := map[bool]int{}
	for i := 0; i < 2; i++ {
		select {
		case a := <-results:
			got[a != nil]++
		case <-time.After(5 * time.Second):
			t.Fatal("async load did not finish")
		}
	}
	assert.Equal(t, map[bool]int{true: 1, false: 1}, got)
}

func TestConcurrentGetAsset(t *testing.T) {
	ram := NewRuntimeAssetManager(buildPack(t), nil, nil)
	_, err := ram.LoadScene(arena)
	require.NoError(t, err)

	var wg sync.WaitGroup
	seen := make([]resources.Asset, 8)
	for i := range seen {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seen[i] = ram.GetAsset(arenaMesh)
		}(i)
	}
	wg.Wait()
	for _, a := range seen {
		assert.Same(t, ram.GetAsset(arenaMesh), a)
	}
}

func TestLoadBuiltInAssets(t *testing.T) {
	backend := renderer.NewHeadlessBackend()
	ram := NewRuntimeAssetManager(nil, backend, nil)
	builtIn, err := ram.LoadBuiltInAssets()
	require.NoError(t, err)

	cube, ok := ram.GetAsset(builtIn.Cube).(*metadata.Mesh)
	require.True(t, ok)
	assert.Len(t, cube.Indices, 36)
	assert.NotNil(t, cube.IndexBuffer)

	mat, ok := ram.GetAsset(builtIn.DefaultMaterial).(*metadata.Material)
	require.True(t, ok)
	assert.Equal(t, metadata.DefaultMaterialName, mat.Name)
	assert.Equal(t, builtIn.DiffuseTexture, mat.AlbedoTexture)
	assert.True(t, ram.IsMemoryAsset(builtIn.NormalTexture))
	assert.Equal(t, resources.AssetTypeTexture, ram.GetAssetType(builtIn.DefaultTexture))

	stats := backend.Stats()
	assert.Equal(t, 3, stats.VertexBuffers)
	assert.Equal(t, 4, stats.Textures2D)

	// No pack means nothing beyond memory resolves.
	assert.Nil(t, ram.GetAsset(42))
	require.NoError(t, ram.Shutdown())
	assert.Nil(t, ram.GetAsset(builtIn.Cube))
}
