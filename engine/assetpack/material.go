package assetpack

import (
	"fmt"

	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/renderer/metadata"
	"github.com/spaghettifunk/epoch/engine/resources"
	"github.com/spaghettifunk/epoch/engine/serialization"
)

type materialBlock struct {
	Data            metadata.MaterialData
	AlbedoTexture   uint64
	NormalTexture   uint64
	MaterialTexture uint64
}

// MaterialRuntimeSerializer writes the fixed material block followed by the material name.
// Textures stay separate assets referenced by handle.
type MaterialRuntimeSerializer struct{}

func (s *MaterialRuntimeSerializer) SerializeToAssetPack(handle resources.Handle, w serialization.Writer, source AssetSource) (SerializationInfo, error) {
	info := SerializationInfo{Offset: w.Position()}
	asset, err := source.GetAsset(handle)
	if err != nil {
		return info, err
	}
	mat, ok := asset.(*metadata.Material)
	if !ok {
		return info, fmt.Errorf("asset %d is a %s, not a material", handle, asset.AssetType())
	}
	block := materialBlock{
		Data:            mat.Data,
		AlbedoTexture:   uint64(mat.AlbedoTexture),
		NormalTexture:   uint64(mat.NormalTexture),
		MaterialTexture: uint64(mat.MaterialTexture),
	}
	if err := serialization.WriteRaw(w, &block); err != nil {
		return info, err
	}
	if err := serialization.WriteString(w, mat.Name); err != nil {
		return info, err
	}
	info.Size = w.Position() - info.Offset
	return info, nil
}

func (s *MaterialRuntimeSerializer) DeserializeFromAssetPack(r serialization.Reader, info AssetInfo) (resources.Asset, error) {
	if err := seekChunk(r, info); err != nil {
		return nil, err
	}
	var block materialBlock
	if err := serialization.ReadRaw(r, &block); err != nil {
		return nil, fmt.Errorf("%w: material block: %w", core.ErrFormat, err)
	}
	name, err := serialization.ReadString(r)
	if err != nil {
		return nil, fmt.Errorf("%w: material name: %w", core.ErrFormat, err)
	}
	if r.Position() > info.End() {
		return nil, fmt.Errorf("%w: material runs past its chunk", core.ErrFormat)
	}
	mat := metadata.NewMaterial(name)
	mat.Data = block.Data
	mat.AlbedoTexture = resources.Handle(block.AlbedoTexture)
	mat.NormalTexture = resources.Handle(block.NormalTexture)
	mat.MaterialTexture = resources.Handle(block.MaterialTexture)
	return mat, nil
}

func (s *MaterialRuntimeSerializer) ValidateChunk(r serialization.Reader, info AssetInfo) error {
	_, err := s.DeserializeFromAssetPack(r, info)
	return err
}
