package systems

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spaghettifunk/epoch/engine/assetpack"
	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/renderer"
	"github.com/spaghettifunk/epoch/engine/renderer/metadata"
	"github.com/spaghettifunk/epoch/engine/resources"
	"github.com/spaghettifunk/epoch/engine/scene"
)

// Names of the meshes created by LoadBuiltInAssets.
const (
	BuiltInCubeName  = "Cube"
	BuiltInQuadName  = "Quad"
	BuiltInPlaneName = "Plane"
)

/**
 * @brief Handles of the assets every runtime creates in memory at startup.
 */
type BuiltInAssets struct {
	Cube            resources.Handle
	Quad            resources.Handle
	Plane           resources.Handle
	DefaultTexture  resources.Handle
	DiffuseTexture  resources.Handle
	SpecularTexture resources.Handle
	NormalTexture   resources.Handle
	DefaultMaterial resources.Handle
}

/**
 * @brief Resolves assets by handle for a shipped game. Assets come from a
 * single asset pack, scoped by the active scene, or from memory.
 */
type RuntimeAssetManager struct {
	pack    *assetpack.AssetPack
	backend renderer.Backend
	jobs    *JobSystem

	mutex        sync.RWMutex
	loadedAssets map[resources.Handle]resources.Asset
	memoryAssets map[resources.Handle]resources.Asset
	activeScene  resources.Handle

	builtIn BuiltInAssets
}

// NewRuntimeAssetManager wraps an opened pack. backend and jobs may be nil;
// without a backend built-in assets stay CPU side, without jobs
// GetAssetAsync runs inline.
func NewRuntimeAssetManager(pack *assetpack.AssetPack, backend renderer.Backend, jobs *JobSystem) *RuntimeAssetManager {
	return &RuntimeAssetManager{
		pack:         pack,
		backend:      backend,
		jobs:         jobs,
		loadedAssets: make(map[resources.Handle]resources.Asset),
		memoryAssets: make(map[resources.Handle]resources.Asset),
	}
}

func (ram *RuntimeAssetManager) Pack() *assetpack.AssetPack {
	return ram.pack
}

/**
 * @brief Returns the asset for handle, or nil if it cannot be resolved.
 * Memory assets win over pack assets. A pack asset is read under the
 * active scene the first time and cached afterwards.
 */
func (ram *RuntimeAssetManager) GetAsset(handle resources.Handle) resources.Asset {
	if !handle.IsValid() {
		return nil
	}
	ram.mutex.RLock()
	if asset, ok := ram.memoryAssets[handle]; ok {
		ram.mutex.RUnlock()
		return asset
	}
	if asset, ok := ram.loadedAssets[handle]; ok {
		ram.mutex.RUnlock()
		return asset
	}
	sceneHandle := ram.activeScene
	ram.mutex.RUnlock()

	asset, err := ram.loadFromPack(sceneHandle, handle)
	if err != nil {
		core.LogError("failed to load asset %s in scene %s: %s", handle, sceneHandle, err)
		return nil
	}

	ram.mutex.Lock()
	defer ram.mutex.Unlock()
	// another goroutine may have won the race
	if existing, ok := ram.loadedAssets[handle]; ok {
		ram.release(asset)
		return existing
	}
	ram.loadedAssets[handle] = asset
	return asset
}

func (ram *RuntimeAssetManager) loadFromPack(sceneHandle, handle resources.Handle) (resources.Asset, error) {
	if ram.pack == nil {
		return nil, fmt.Errorf("no asset pack loaded: %w", core.ErrLookup)
	}
	if !sceneHandle.IsValid() {
		return nil, fmt.Errorf("no active scene: %w", core.ErrLookup)
	}
	return ram.pack.LoadAsset(sceneHandle, handle)
}

/**
 * @brief Loads the given handle on the job system and hands the result
 * (nil on failure) to callback.
 */
func (ram *RuntimeAssetManager) GetAssetAsync(handle resources.Handle, callback func(resources.Asset)) {
	task := JobTask{
		Name: fmt.Sprintf("load-asset-%s", handle),
		Run: func() (any, error) {
			asset := ram.GetAsset(handle)
			if asset == nil {
				return nil, fmt.Errorf("asset %s unavailable: %w", handle, core.ErrLookup)
			}
			return asset, nil
		},
		OnComplete: func(result any) {
			if callback != nil {
				callback(result.(resources.Asset))
			}
		},
		OnFailure: func(error) {
			if callback != nil {
				callback(nil)
			}
		},
	}
	if ram.jobs == nil {
		ram.runInline(task)
		return
	}
	if err := ram.jobs.Submit(task); err != nil {
		core.LogWarn("asynchronous load of %s ran inline: %s", handle, err)
		ram.runInline(task)
	}
}

func (ram *RuntimeAssetManager) runInline(task JobTask) {
	result, err := task.Run()
	if err != nil {
		task.OnFailure(err)
		return
	}
	task.OnComplete(result)
}

// LoadScene reads the scene from the pack and makes it the active scene.
func (ram *RuntimeAssetManager) LoadScene(handle resources.Handle) (*scene.Scene, error) {
	if ram.pack == nil {
		return nil, fmt.Errorf("no asset pack loaded: %w", core.ErrLookup)
	}
	sc, err := ram.pack.LoadScene(handle)
	if err != nil {
		core.LogError("failed to load scene %s: %s", handle, err)
		return nil, err
	}
	ram.mutex.Lock()
	ram.activeScene = handle
	ram.loadedAssets[handle] = sc
	ram.mutex.Unlock()
	core.LogInfo("scene '%s' (%s) is now active", sc.Name, handle)
	return sc, nil
}

func (ram *RuntimeAssetManager) ActiveScene() resources.Handle {
	ram.mutex.RLock()
	defer ram.mutex.RUnlock()
	return ram.activeScene
}

// GetAssetType reports the type of a memory, cached or packed asset.
func (ram *RuntimeAssetManager) GetAssetType(handle resources.Handle) resources.AssetType {
	ram.mutex.RLock()
	if asset, ok := ram.memoryAssets[handle]; ok {
		ram.mutex.RUnlock()
		return asset.AssetType()
	}
	if asset, ok := ram.loadedAssets[handle]; ok {
		ram.mutex.RUnlock()
		return asset.AssetType()
	}
	ram.mutex.RUnlock()
	if ram.pack == nil {
		return resources.AssetTypeNone
	}
	return ram.pack.AssetType(handle)
}

/**
 * @brief Registers an asset built at runtime. An asset without a handle
 * gets a fresh one. Returns the handle.
 */
func (ram *RuntimeAssetManager) AddMemoryOnlyAsset(asset resources.Asset) resources.Handle {
	handle := asset.Handle()
	if !handle.IsValid() {
		handle = resources.Handle(core.NewUUID())
		if hs, ok := asset.(resources.HandleSetter); ok {
			hs.SetHandle(handle)
		}
	}
	ram.mutex.Lock()
	ram.memoryAssets[handle] = asset
	ram.mutex.Unlock()
	return handle
}

// ReloadData reads handle from the pack again under the active scene and
// replaces the cached copy. Memory assets are not reloaded. On a failed read
// the previous copy, if any, stays cached and false is returned.
func (ram *RuntimeAssetManager) ReloadData(handle resources.Handle) bool {
	ram.mutex.RLock()
	_, isMemory := ram.memoryAssets[handle]
	sceneHandle := ram.activeScene
	ram.mutex.RUnlock()
	if isMemory || !handle.IsValid() {
		return false
	}

	asset, err := ram.loadFromPack(sceneHandle, handle)
	if err != nil {
		core.LogError("failed to reload asset %s in scene %s: %s", handle, sceneHandle, err)
		return false
	}

	ram.mutex.Lock()
	defer ram.mutex.Unlock()
	if old, ok := ram.loadedAssets[handle]; ok {
		ram.release(old)
	}
	ram.loadedAssets[handle] = asset
	return true
}

// RemoveAsset forgets the handle in both caches.
func (ram *RuntimeAssetManager) RemoveAsset(handle resources.Handle) {
	ram.mutex.Lock()
	defer ram.mutex.Unlock()
	if asset, ok := ram.loadedAssets[handle]; ok {
		ram.release(asset)
		delete(ram.loadedAssets, handle)
	}
	if asset, ok := ram.memoryAssets[handle]; ok {
		ram.release(asset)
		delete(ram.memoryAssets, handle)
	}
}

func (ram *RuntimeAssetManager) release(asset resources.Asset) {
	if ram.backend == nil {
		return
	}
	switch a := asset.(type) {
	case *metadata.Mesh:
		ram.backend.DestroyVertexBuffer(a.VertexBuffer)
		ram.backend.DestroyIndexBuffer(a.IndexBuffer)
		a.VertexBuffer, a.IndexBuffer = nil, nil
	case *metadata.Texture2D:
		ram.backend.DestroyTexture(a.GPU)
		a.GPU = nil
	case *metadata.TextureCube:
		ram.backend.DestroyTexture(a.GPU)
		a.GPU = nil
	}
}

func (ram *RuntimeAssetManager) IsMemoryAsset(handle resources.Handle) bool {
	ram.mutex.RLock()
	defer ram.mutex.RUnlock()
	_, ok := ram.memoryAssets[handle]
	return ok
}

func (ram *RuntimeAssetManager) IsAssetLoaded(handle resources.Handle) bool {
	ram.mutex.RLock()
	defer ram.mutex.RUnlock()
	_, ok := ram.loadedAssets[handle]
	return ok
}

// IsAssetHandleValid is true for memory assets and for any handle in the pack index.
func (ram *RuntimeAssetManager) IsAssetHandleValid(handle resources.Handle) bool {
	if !handle.IsValid() {
		return false
	}
	if ram.IsMemoryAsset(handle) {
		return true
	}
	return ram.pack != nil && ram.pack.IsAssetHandleValid(handle)
}

// LoadedAssets returns a snapshot of the pack-backed cache.
func (ram *RuntimeAssetManager) LoadedAssets() map[resources.Handle]resources.Asset {
	ram.mutex.RLock()
	defer ram.mutex.RUnlock()
	out := make(map[resources.Handle]resources.Asset, len(ram.loadedAssets))
	for h, a := range ram.loadedAssets {
		out[h] = a
	}
	return out
}

func (ram *RuntimeAssetManager) BuiltIn() BuiltInAssets {
	return ram.builtIn
}

/**
 * @brief Creates the primitive meshes, the default textures and the default
 * material as memory assets, uploading them when a backend is set.
 */
func (ram *RuntimeAssetManager) LoadBuiltInAssets() (BuiltInAssets, error) {
	var errs []error

	meshes := []*metadata.Mesh{
		GenerateCubeMesh(1, 1, 1, 1, 1, BuiltInCubeName),
		GenerateQuadMesh(BuiltInQuadName),
		GeneratePlaneMesh(10, 10, 5, 5, 5, 5, BuiltInPlaneName),
	}
	for _, m := range meshes {
		errs = append(errs, ram.uploadMesh(m))
	}

	textures := metadata.CreateDefaultTextures()
	for _, t := range textures.All() {
		errs = append(errs, ram.uploadTexture(t))
	}

	material := metadata.NewMaterial(metadata.DefaultMaterialName)
	material.Data.Roughness = 0.8

	ram.builtIn = BuiltInAssets{
		Cube:            ram.AddMemoryOnlyAsset(meshes[0]),
		Quad:            ram.AddMemoryOnlyAsset(meshes[1]),
		Plane:           ram.AddMemoryOnlyAsset(meshes[2]),
		DefaultTexture:  ram.AddMemoryOnlyAsset(textures.Default),
		DiffuseTexture:  ram.AddMemoryOnlyAsset(textures.Diffuse),
		SpecularTexture: ram.AddMemoryOnlyAsset(textures.Specular),
		NormalTexture:   ram.AddMemoryOnlyAsset(textures.Normal),
	}
	material.AlbedoTexture = ram.builtIn.DiffuseTexture
	material.NormalTexture = ram.builtIn.NormalTexture
	ram.builtIn.DefaultMaterial = ram.AddMemoryOnlyAsset(material)

	if err := errors.Join(errs...); err != nil {
		return ram.builtIn, fmt.Errorf("failed to upload built-in assets: %w", err)
	}
	core.LogDebug("built-in assets loaded")
	return ram.builtIn, nil
}

func (ram *RuntimeAssetManager) uploadMesh(m *metadata.Mesh) error {
	if ram.backend == nil {
		return nil
	}
	vb, err := ram.backend.CreateVertexBuffer(m.Vertices, m.VertexCount(), renderer.VertexStride)
	if err != nil {
		return fmt.Errorf("mesh '%s': %w", m.Submeshes[0].MeshName, err)
	}
	ib, err := ram.backend.CreateIndexBuffer(m.Indices, m.IndexCount())
	if err != nil {
		return fmt.Errorf("mesh '%s': %w", m.Submeshes[0].MeshName, err)
	}
	m.VertexBuffer, m.IndexBuffer = vb, ib
	return nil
}

func (ram *RuntimeAssetManager) uploadTexture(t *metadata.Texture2D) error {
	if ram.backend == nil {
		return nil
	}
	gpu, err := ram.backend.CreateTexture2D(t.Spec, t.Pixels)
	if err != nil {
		return fmt.Errorf("texture '%s': %w", t.Spec.Name, err)
	}
	t.GPU = gpu
	return nil
}

// Shutdown releases every GPU texture the manager still references.
func (ram *RuntimeAssetManager) Shutdown() error {
	ram.mutex.Lock()
	defer ram.mutex.Unlock()
	for _, a := range ram.loadedAssets {
		ram.release(a)
	}
	for _, a := range ram.memoryAssets {
		ram.release(a)
	}
	ram.loadedAssets = make(map[resources.Handle]resources.Asset)
	ram.memoryAssets = make(map[resources.Handle]resources.Asset)
	ram.activeScene = resources.InvalidHandle
	return nil
}
