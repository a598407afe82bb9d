package assetpack

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/resources"
	"github.com/spaghettifunk/epoch/engine/scene"
	"github.com/spaghettifunk/epoch/engine/serialization"
)

// LoadMode decides what a corrupt chunk does to the rest of the pack.
type LoadMode int

const (
	// LoadModeLenient fails only the asset whose chunk is corrupt and records it.
	LoadModeLenient LoadMode = iota
	// LoadModeStrict marks the whole pack corrupted on the first bad chunk.
	LoadModeStrict
)

func (m LoadMode) String() string {
	if m == LoadModeStrict {
		return "strict"
	}
	return "lenient"
}

type Option func(*AssetPack)

func WithLoadMode(mode LoadMode) Option {
	return func(p *AssetPack) {
		p.mode = mode
	}
}

// AssetPack is an opened pack. Only the index is read up front; every
// payload is read on request. Calls on one AssetPack are serialized since
// they share one read cursor. Separate AssetPacks on the same file are independent.
type AssetPack struct {
	mu       sync.Mutex
	path     string
	file     *File
	reader   *serialization.FileStreamReader
	registry *Registry
	mode     LoadMode

	corrupted error
	failed    map[resources.Handle]error
}

// Load opens path and parses its index.
func Load(path string, registry *Registry, opts ...Option) (*AssetPack, error) {
	reader, err := serialization.NewFileStreamReader(path)
	if err != nil {
		return nil, err
	}
	file, err := DeserializeIndex(reader)
	if err != nil {
		reader.Close()
		core.LogError("failed to load asset pack %s: %s", path, err)
		return nil, err
	}
	p := &AssetPack{
		path:     path,
		file:     file,
		reader:   reader,
		registry: registry,
		failed:   map[resources.Handle]error{},
	}
	for _, opt := range opts {
		opt(p)
	}
	core.LogInfo("loaded asset pack %s: %d scenes, %d assets, build %d (%s mode)",
		path, len(file.Index.Scenes), file.UniqueAssets(), file.Header.BuildVersion, p.mode)
	return p, nil
}

func (p *AssetPack) Path() string {
	return p.path
}

// File returns the parsed header and index. Callers must not modify it.
func (p *AssetPack) File() *File {
	return p.file
}

func (p *AssetPack) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reader.Close()
}

// begin clears stream state left by a previous failed request.
func (p *AssetPack) begin() error {
	if p.corrupted != nil {
		return fmt.Errorf("%w: %w", core.ErrPackCorrupted, p.corrupted)
	}
	p.reader.Reset()
	return nil
}

func (p *AssetPack) fail(handle resources.Handle, err error) error {
	if !errors.Is(err, core.ErrFormat) && !errors.Is(err, core.ErrStream) {
		return err
	}
	if p.mode == LoadModeStrict {
		p.corrupted = fmt.Errorf("asset %d: %w", handle, err)
		core.LogError("asset pack %s is corrupted: %s", p.path, p.corrupted)
		return err
	}
	p.failed[handle] = err
	core.LogWarn("skipping corrupt asset %d in %s: %s", handle, p.path, err)
	return err
}

func (p *AssetPack) lookup(sceneHandle, assetHandle resources.Handle) (AssetInfo, error) {
	si, ok := p.file.Index.Scenes[sceneHandle]
	if !ok {
		return AssetInfo{}, fmt.Errorf("%w: scene %d is not in the asset pack", core.ErrLookup, sceneHandle)
	}
	info, ok := si.Assets[assetHandle]
	if !ok {
		return AssetInfo{}, fmt.Errorf("%w: asset %d is not referenced by scene %d", core.ErrLookup, assetHandle, sceneHandle)
	}
	return info, nil
}

// LoadAsset reads one asset in the context of a scene. The index is nested by
// scene, so an asset is only found through a scene that references it.
func (p *AssetPack) LoadAsset(sceneHandle, assetHandle resources.Handle) (resources.Asset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(); err != nil {
		return nil, err
	}
	info, err := p.lookup(sceneHandle, assetHandle)
	if err != nil {
		core.LogWarn("%s", err)
		return nil, err
	}
	if info.PackedSize == 0 {
		return nil, fmt.Errorf("%w: asset %d", core.ErrAssetMissing, assetHandle)
	}
	asset, err := p.registry.DeserializeFromAssetPack(p.reader, info)
	if err != nil {
		return nil, p.fail(assetHandle, err)
	}
	if hs, ok := asset.(resources.HandleSetter); ok {
		hs.SetHandle(assetHandle)
	}
	return asset, nil
}

func (p *AssetPack) LoadScene(sceneHandle resources.Handle) (*scene.Scene, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(); err != nil {
		return nil, err
	}
	si, ok := p.file.Index.Scenes[sceneHandle]
	if !ok {
		err := fmt.Errorf("%w: scene %d is not in the asset pack", core.ErrLookup, sceneHandle)
		core.LogWarn("%s", err)
		return nil, err
	}
	if si.PackedSize == 0 {
		return nil, fmt.Errorf("%w: scene %d", core.ErrAssetMissing, sceneHandle)
	}
	info := AssetInfo{PackedOffset: si.PackedOffset, PackedSize: si.PackedSize, Type: uint16(resources.AssetTypeScene)}
	asset, err := p.registry.DeserializeFromAssetPack(p.reader, info)
	if err != nil {
		return nil, p.fail(sceneHandle, err)
	}
	sc, ok := asset.(*scene.Scene)
	if !ok {
		return nil, p.fail(sceneHandle, fmt.Errorf("%w: scene chunk decoded to %s", core.ErrFormat, asset.AssetType()))
	}
	sc.SetHandle(sceneHandle)
	return sc, nil
}

// ReadAppBinary returns the embedded application binary without its length prefix.
func (p *AssetPack) ReadAppBinary() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.begin(); err != nil {
		return nil, err
	}
	idx := &p.file.Index
	if err := p.reader.SetPosition(idx.AppBinaryOffset); err != nil {
		return nil, err
	}
	data, err := serialization.ReadBuffer(p.reader)
	if err != nil {
		return nil, fmt.Errorf("%w: app binary: %w", core.ErrFormat, err)
	}
	if p.reader.Position() > idx.AppBinaryOffset+idx.AppBinarySize {
		return nil, fmt.Errorf("%w: app binary runs past its recorded size", core.ErrFormat)
	}
	return data, nil
}

// IsAssetHandleValid reports whether any scene references handle. It scans
// all scenes.
func (p *AssetPack) IsAssetHandleValid(handle resources.Handle) bool {
	if !handle.IsValid() {
		return false
	}
	for _, si := range p.file.Index.Scenes {
		if _, ok := si.Assets[handle]; ok {
			return true
		}
	}
	return false
}

// AssetType returns the type tag recorded for handle, or AssetTypeNone.
func (p *AssetPack) AssetType(handle resources.Handle) resources.AssetType {
	if info, ok := p.file.FindAsset(handle); ok {
		return info.AssetType()
	}
	return resources.AssetTypeNone
}

// FailedAssets lists assets that failed to decode in lenient mode.
func (p *AssetPack) FailedAssets() []resources.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Sorted(maps.Keys(p.failed))
}

// Corrupted returns the error that poisoned a strict pack, or nil.
func (p *AssetPack) Corrupted() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.corrupted
}

// VerifyIssue is one chunk that did not pass Verify.
type VerifyIssue struct {
	Scene resources.Handle
	Asset resources.Handle
	Type  resources.AssetType
	Err   error
}

func (v VerifyIssue) String() string {
	if v.Asset == resources.InvalidHandle {
		return fmt.Sprintf("scene %d: %s", v.Scene, v.Err)
	}
	return fmt.Sprintf("scene %d, %s %d: %s", v.Scene, v.Type, v.Asset, v.Err)
}

// Verify checks the framing of every scene and every unique asset chunk
// without creating GPU resources. Zero-size entries are reported as missing.
// Verify does not change the pack's load state.
func (p *AssetPack) Verify() []VerifyIssue {
	p.mu.Lock()
	defer p.mu.Unlock()
	var issues []VerifyIssue
	checked := map[resources.Handle]struct{}{}
	for _, sh := range p.file.SceneHandles() {
		si := p.file.Index.Scenes[sh]
		p.reader.Reset()
		sceneInfo := AssetInfo{PackedOffset: si.PackedOffset, PackedSize: si.PackedSize, Type: uint16(resources.AssetTypeScene)}
		if err := p.validate(sceneInfo); err != nil {
			issues = append(issues, VerifyIssue{Scene: sh, Type: resources.AssetTypeScene, Err: err})
		}
		for _, ah := range si.AssetHandles() {
			if _, ok := checked[ah]; ok {
				continue
			}
			checked[ah] = struct{}{}
			p.reader.Reset()
			info := si.Assets[ah]
			if err := p.validate(info); err != nil {
				issues = append(issues, VerifyIssue{Scene: sh, Asset: ah, Type: info.AssetType(), Err: err})
			}
		}
	}
	p.reader.Reset()
	return issues
}

func (p *AssetPack) validate(info AssetInfo) error {
	if info.PackedSize == 0 {
		return core.ErrAssetMissing
	}
	return p.registry.ValidateChunk(p.reader, info)
}
