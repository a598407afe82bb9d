// Package assets is the editor side asset manager: it owns the asset
// registry of a project, imports source files through per-type loaders and
// serves live assets to the pack builder.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/epoch/engine/assets/loaders"
	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/renderer/metadata"
	"github.com/spaghettifunk/epoch/engine/resources"
	"github.com/spaghettifunk/epoch/engine/scene"
)

var ErrNoLoader = errors.New("no loader registered for asset type")

type AssetManager struct {
	assetDir     string
	registryPath string

	registry     *Registry
	loaded       map[resources.Handle]resources.Asset
	memoryAssets map[resources.Handle]resources.Asset
	loaders      map[resources.AssetType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool

	// OnChange is called from the watcher goroutine after a watched file
	// was imported, modified or removed.
	OnChange func(handle resources.Handle, op fsnotify.Op)
}

// NewAssetManager creates a manager over assetDir whose registry is stored at
// registryPath. Call Initialize before use.
func NewAssetManager(assetDir, registryPath string) *AssetManager {
	am := &AssetManager{
		assetDir:     assetDir,
		registryPath: registryPath,
		registry:     NewRegistry(),
		loaded:       make(map[resources.Handle]resources.Asset),
		memoryAssets: make(map[resources.Handle]resources.Asset),
		loaders:      make(map[resources.AssetType]Loader),
		done:         make(chan struct{}),
	}

	// Register loaders
	am.RegisterLoader(resources.AssetTypeTexture, &loaders.TextureLoader{})
	am.RegisterLoader(resources.AssetTypeEnvTexture, &loaders.EnvironmentLoader{})
	am.RegisterLoader(resources.AssetTypeMesh, &loaders.ObjLoader{})
	am.RegisterLoader(resources.AssetTypeMaterial, &loaders.MaterialLoader{})
	am.RegisterLoader(resources.AssetTypeScene, &loaders.SceneLoader{})
	for _, t := range []resources.AssetType{resources.AssetTypeScript, resources.AssetTypeScriptFile, resources.AssetTypeAudio, resources.AssetTypeFont} {
		am.RegisterLoader(t, &loaders.BinaryLoader{Type: t})
	}
	return am
}

// Initialize reads the registry and imports every file of the asset
// directory that is not registered yet. Registered files that no longer
// exist are dropped.
func (am *AssetManager) Initialize() error {
	reg, err := LoadRegistry(am.registryPath)
	if err != nil {
		return err
	}
	am.mutex.Lock()
	am.registry = reg
	am.mutex.Unlock()

	if err := os.MkdirAll(am.assetDir, 0o755); err != nil {
		return err
	}
	if err := am.scan(); err != nil {
		return err
	}
	core.LogInfo("asset registry has %d assets", am.registry.Len())
	return am.SaveRegistry()
}

func (am *AssetManager) scan() error {
	am.mutex.Lock()
	for _, h := range am.registry.Handles() {
		md, _ := am.registry.Get(h)
		if _, err := os.Stat(am.absPath(md.FilePath)); err != nil {
			core.LogWarn("asset %d (%s) no longer exists, removing it from the registry", h, md.FilePath)
			am.registry.Remove(h)
		}
	}
	am.mutex.Unlock()

	return filepath.WalkDir(am.assetDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		am.handleFileEvent(path)
		return nil
	})
}

// RegisterLoader sets the loader for an asset type.
func (am *AssetManager) RegisterLoader(assetType resources.AssetType, loader Loader) {
	am.loaders[assetType] = loader
}

func (am *AssetManager) AssetDirectory() string {
	return am.assetDir
}

func (am *AssetManager) relPath(path string) string {
	if rel, err := filepath.Rel(am.assetDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		path = rel
	}
	return filepath.ToSlash(path)
}

func (am *AssetManager) absPath(rel string) string {
	return filepath.Join(am.assetDir, filepath.FromSlash(rel))
}

// ImportAsset registers the file at path, guessing its type from the extension.
func (am *AssetManager) ImportAsset(path string) (resources.Handle, error) {
	return am.ImportAssetAs(path, resources.AssetTypeFromPath(path))
}

// ImportAssetAs registers the file at path with an explicit type. Importing
// a registered file returns its existing handle.
func (am *AssetManager) ImportAssetAs(path string, assetType resources.AssetType) (resources.Handle, error) {
	if assetType == resources.AssetTypeNone {
		return resources.InvalidHandle, fmt.Errorf("cannot import %s: unknown asset type", path)
	}
	rel := am.relPath(path)

	am.mutex.Lock()
	defer am.mutex.Unlock()
	if md, ok := am.registry.FindByPath(rel); ok {
		if md.Type != assetType {
			md.Type = assetType
			am.registry.Set(md)
			delete(am.loaded, md.Handle)
		}
		return md.Handle, nil
	}
	md := resources.Metadata{Handle: resources.Handle(core.NewUUID()), Type: assetType, FilePath: rel}
	am.registry.Set(md)
	core.LogDebug("imported %s as %s %d", rel, assetType, md.Handle)
	return md.Handle, nil
}

// GetMetadata returns the metadata of a registered or memory asset.
func (am *AssetManager) GetMetadata(handle resources.Handle) (resources.Metadata, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	if a, ok := am.memoryAssets[handle]; ok {
		return resources.Metadata{Handle: handle, Type: a.AssetType(), IsMemoryAsset: true, IsDataLoaded: true}, true
	}
	md, ok := am.registry.Get(handle)
	if !ok {
		return md, false
	}
	_, md.IsDataLoaded = am.loaded[handle]
	return md, true
}

func (am *AssetManager) FindByPath(path string) (resources.Metadata, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return am.registry.FindByPath(am.relPath(path))
}

// GetAsset returns the asset, importing it from disk on first use.
func (am *AssetManager) GetAsset(handle resources.Handle) (resources.Asset, error) {
	am.mutex.RLock()
	if a, ok := am.memoryAssets[handle]; ok {
		am.mutex.RUnlock()
		return a, nil
	}
	if a, ok := am.loaded[handle]; ok {
		am.mutex.RUnlock()
		return a, nil
	}
	md, ok := am.registry.Get(handle)
	am.mutex.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: asset %d is not registered", core.ErrLookup, handle)
	}

	asset, err := am.load(md)
	if err != nil {
		return nil, err
	}

	am.mutex.Lock()
	defer am.mutex.Unlock()
	if existing, ok := am.loaded[handle]; ok {
		return existing, nil
	}
	am.loaded[handle] = asset
	return asset, nil
}

func (am *AssetManager) load(md resources.Metadata) (resources.Asset, error) {
	loader, ok := am.loaders[md.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoLoader, md.Type)
	}
	asset, err := loader.Load(am.absPath(md.FilePath))
	if err != nil {
		core.LogError("failed to load %s %d from %s: %s", md.Type, md.Handle, md.FilePath, err)
		return nil, err
	}
	if hs, ok := asset.(resources.HandleSetter); ok {
		hs.SetHandle(md.Handle)
	}
	return asset, nil
}

// AddMemoryAsset registers an asset that exists only in memory. Memory
// assets are never written to packs.
func (am *AssetManager) AddMemoryAsset(asset resources.Asset) resources.Handle {
	handle := asset.Handle()
	if !handle.IsValid() {
		handle = resources.Handle(core.NewUUID())
		if hs, ok := asset.(resources.HandleSetter); ok {
			hs.SetHandle(handle)
		}
	}
	am.mutex.Lock()
	am.memoryAssets[handle] = asset
	am.mutex.Unlock()
	return handle
}

// ReloadData drops the cached asset so the next GetAsset reads the file again.
func (am *AssetManager) ReloadData(handle resources.Handle) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.unload(handle)
}

func (am *AssetManager) unload(handle resources.Handle) {
	asset, ok := am.loaded[handle]
	if !ok {
		return
	}
	delete(am.loaded, handle)
	if loader, ok := am.loaders[asset.AssetType()]; ok {
		if err := loader.Unload(asset); err != nil {
			core.LogWarn("unloading asset %d: %s", handle, err)
		}
	}
}

// RemoveAsset forgets an asset. The source file is left alone.
func (am *AssetManager) RemoveAsset(handle resources.Handle) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.unload(handle)
	delete(am.memoryAssets, handle)
	am.registry.Remove(handle)
}

// AssetsOfType lists registered assets of type t in handle order.
func (am *AssetManager) AssetsOfType(t resources.AssetType) []resources.Handle {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	var out []resources.Handle
	for _, h := range am.registry.Handles() {
		if md, _ := am.registry.Get(h); md.Type == t {
			out = append(out, h)
		}
	}
	return out
}

func (am *AssetManager) SaveRegistry() error {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return am.registry.Save(am.registryPath)
}

// Watch starts following changes under the asset directory: new files are
// imported, modified files are reloaded on next use and removed files are
// dropped from the registry.
func (am *AssetManager) Watch() error {
	if am.isClosed {
		return errors.New("asset manager already closed")
	}
	if am.fsnotify != nil {
		return nil
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	am.fsnotify = fsWatch
	if err := am.watchRecursive(am.assetDir); err != nil {
		fsWatch.Close()
		am.fsnotify = nil
		return err
	}
	go am.start()
	return nil
}

// Close stops the watcher and saves the registry.
func (am *AssetManager) Close() error {
	if am.isClosed {
		return nil
	}
	am.isClosed = true
	if am.fsnotify != nil {
		close(am.done)
	}
	return am.SaveRegistry()
}

func (am *AssetManager) start() {
	for {
		select {

		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					am.watchRecursive(e.Name)
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				am.notify(am.handleFileEvent(e.Name), e.Op)
			}
			// Can't stat a deleted path, so treat rename and remove the same way.
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				am.notify(am.removePath(e.Name), e.Op)
				am.fsnotify.Remove(e.Name)
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-am.done:
			am.fsnotify.Close()
			return
		}
	}
}

func (am *AssetManager) notify(handle resources.Handle, op fsnotify.Op) {
	if handle.IsValid() && am.OnChange != nil {
		am.OnChange(handle, op)
	}
}

// watchRecursive adds path and every directory below it to the watch list.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// handleFileEvent imports a new file, or marks a known one for reload.
func (am *AssetManager) handleFileEvent(path string) resources.Handle {
	if filepath.Clean(path) == filepath.Clean(am.registryPath) {
		return resources.InvalidHandle
	}
	assetType := resources.AssetTypeFromPath(path)
	if md, ok := am.FindByPath(path); ok {
		am.ReloadData(md.Handle)
		return md.Handle
	}
	if assetType == resources.AssetTypeNone {
		return resources.InvalidHandle
	}
	handle, err := am.ImportAsset(path)
	if err != nil {
		core.LogWarn("%s", err)
		return resources.InvalidHandle
	}
	return handle
}

// removePath drops the asset whose file was deleted.
func (am *AssetManager) removePath(path string) resources.Handle {
	md, ok := am.FindByPath(path)
	if !ok {
		return resources.InvalidHandle
	}
	am.RemoveAsset(md.Handle)
	return md.Handle
}

// CreateAsset writes a scene or material to relPath under the asset
// directory and registers it, keeping the asset's handle if it has one.
func (am *AssetManager) CreateAsset(relPath string, asset resources.Asset) (resources.Handle, error) {
	path := am.absPath(relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return resources.InvalidHandle, err
	}
	var err error
	switch a := asset.(type) {
	case *scene.Scene:
		err = scene.SaveFile(a, path)
	case *metadata.Material:
		err = loaders.SaveMaterial(a, path)
	default:
		return resources.InvalidHandle, fmt.Errorf("cannot create %s assets", asset.AssetType())
	}
	if err != nil {
		return resources.InvalidHandle, err
	}

	handle := asset.Handle()
	if !handle.IsValid() {
		handle = resources.Handle(core.NewUUID())
		if hs, ok := asset.(resources.HandleSetter); ok {
			hs.SetHandle(handle)
		}
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.registry.Set(resources.Metadata{Handle: handle, Type: asset.AssetType(), FilePath: am.relPath(path)})
	am.loaded[handle] = asset
	return handle, nil
}
