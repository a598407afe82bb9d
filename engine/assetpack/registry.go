package assetpack

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/renderer"
	"github.com/spaghettifunk/epoch/engine/resources"
	"github.com/spaghettifunk/epoch/engine/serialization"
)

// AssetSource resolves live assets while a pack is being built. The editor
// asset manager implements it.
type AssetSource interface {
	GetAsset(handle resources.Handle) (resources.Asset, error)
	GetMetadata(handle resources.Handle) (resources.Metadata, bool)
}

// SerializationInfo is where a chunk landed in the pack.
type SerializationInfo struct {
	Offset uint64
	Size   uint64
}

// RuntimeSerializer converts one asset type to and from its pack chunk.
type RuntimeSerializer interface {
	// SerializeToAssetPack writes the chunk for handle at the writer's cursor.
	SerializeToAssetPack(handle resources.Handle, w serialization.Writer, source AssetSource) (SerializationInfo, error)
	// DeserializeFromAssetPack seeks to info and rebuilds the asset, creating GPU resources where needed.
	DeserializeFromAssetPack(r serialization.Reader, info AssetInfo) (resources.Asset, error)
}

// ChunkValidator is implemented by serializers that can check a chunk without
// building the asset.
type ChunkValidator interface {
	ValidateChunk(r serialization.Reader, info AssetInfo) error
}

// Registry maps asset types to their runtime serializers. Adding an asset
// type to packs means registering one serializer here.
type Registry struct {
	serializers map[resources.AssetType]RuntimeSerializer
}

// NewRegistry returns a registry with every built-in serializer. GPU resources
// of loaded assets are created through backend.
func NewRegistry(backend renderer.Backend) *Registry {
	r := &Registry{serializers: map[resources.AssetType]RuntimeSerializer{}}
	r.Register(resources.AssetTypeScene, &SceneRuntimeSerializer{})
	r.Register(resources.AssetTypeMesh, &MeshRuntimeSerializer{backend: backend})
	r.Register(resources.AssetTypeTexture, &TextureRuntimeSerializer{backend: backend})
	r.Register(resources.AssetTypeEnvTexture, &TextureRuntimeSerializer{backend: backend, cube: true})
	r.Register(resources.AssetTypeMaterial, &MaterialRuntimeSerializer{})
	return r
}

func (r *Registry) Register(t resources.AssetType, s RuntimeSerializer) {
	r.serializers[t] = s
}

func (r *Registry) Lookup(t resources.AssetType) (RuntimeSerializer, bool) {
	s, ok := r.serializers[t]
	return s, ok
}

func (r *Registry) Supports(t resources.AssetType) bool {
	_, ok := r.serializers[t]
	return ok
}

// SerializeToAssetPack writes one chunk. On any failure the writer is moved
// back to where the chunk started so the next chunk overwrites the partial bytes.
// A stream failure is returned wrapped in core.ErrStream; everything else
// is a per-asset failure wrapped in core.ErrPartialAsset.
func (r *Registry) SerializeToAssetPack(handle resources.Handle, t resources.AssetType, w serialization.Writer, source AssetSource) (SerializationInfo, error) {
	start := w.Position()
	s, ok := r.serializers[t]
	if !ok {
		return SerializationInfo{Offset: start}, fmt.Errorf("%w: %w: %s", core.ErrPartialAsset, core.ErrUnsupportedAssetType, t)
	}
	info, err := s.SerializeToAssetPack(handle, w, source)
	if err == nil && !w.Good() {
		err = w.Err()
	}
	if err != nil {
		if errors.Is(err, core.ErrStream) || !w.Good() {
			return SerializationInfo{Offset: start}, err
		}
		if perr := w.SetPosition(start); perr != nil {
			return SerializationInfo{Offset: start}, perr
		}
		return SerializationInfo{Offset: start}, fmt.Errorf("%w: %w", core.ErrPartialAsset, err)
	}
	if info.Size == 0 {
		return SerializationInfo{Offset: start}, fmt.Errorf("%w: %s %d produced no bytes", core.ErrPartialAsset, t, handle)
	}
	return info, nil
}

// DeserializeFromAssetPack dispatches on the type tag stored in info.
func (r *Registry) DeserializeFromAssetPack(rd serialization.Reader, info AssetInfo) (resources.Asset, error) {
	s, ok := r.serializers[info.AssetType()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedAssetType, info.AssetType())
	}
	return s.DeserializeFromAssetPack(rd, info)
}

// ValidateChunk checks a chunk's framing. Types without a validator only get
// their range checked by the caller.
func (r *Registry) ValidateChunk(rd serialization.Reader, info AssetInfo) error {
	s, ok := r.serializers[info.AssetType()]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnsupportedAssetType, info.AssetType())
	}
	if v, ok := s.(ChunkValidator); ok {
		return v.ValidateChunk(rd, info)
	}
	return nil
}

// seekChunk moves r to the chunk start after checking the chunk lies inside the stream.
func seekChunk(r serialization.Reader, info AssetInfo) error {
	if info.PackedSize == 0 {
		return core.ErrAssetMissing
	}
	if info.End() < info.PackedOffset || info.End() > r.Size() {
		return fmt.Errorf("%w: chunk [%d, %d) outside of %d byte pack", core.ErrFormat, info.PackedOffset, info.End(), r.Size())
	}
	return r.SetPosition(info.PackedOffset)
}
