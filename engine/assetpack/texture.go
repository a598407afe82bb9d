package assetpack

import (
	"fmt"

	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/renderer"
	"github.com/spaghettifunk/epoch/engine/renderer/metadata"
	"github.com/spaghettifunk/epoch/engine/resources"
	"github.com/spaghettifunk/epoch/engine/serialization"
)

// TextureMetadata opens every texture chunk and is followed by the
// length-prefixed pixel buffer.
type TextureMetadata struct {
	Width  uint32
	Height uint32
	Format uint16
}

// TextureRuntimeSerializer handles 2D textures, or cube textures when cube is set.
type TextureRuntimeSerializer struct {
	backend renderer.Backend
	cube    bool
}

func NewTextureRuntimeSerializer(backend renderer.Backend, cube bool) *TextureRuntimeSerializer {
	return &TextureRuntimeSerializer{backend: backend, cube: cube}
}

func (s *TextureRuntimeSerializer) SerializeToAssetPack(handle resources.Handle, w serialization.Writer, source AssetSource) (SerializationInfo, error) {
	asset, err := source.GetAsset(handle)
	if err != nil {
		return SerializationInfo{}, err
	}
	var spec metadata.TextureSpecification
	var pixels []byte
	switch t := asset.(type) {
	case *metadata.Texture2D:
		if s.cube {
			return SerializationInfo{}, fmt.Errorf("asset %d is a 2D texture, expected a cube texture", handle)
		}
		spec, pixels = t.Spec, t.Pixels
	case *metadata.TextureCube:
		if !s.cube {
			return SerializationInfo{}, fmt.Errorf("asset %d is a cube texture, expected a 2D texture", handle)
		}
		spec, pixels = t.Spec, t.Pixels
	default:
		return SerializationInfo{}, fmt.Errorf("asset %d is a %s, not a texture", handle, asset.AssetType())
	}
	return WriteTextureChunk(w, spec, pixels)
}

func WriteTextureChunk(w serialization.Writer, spec metadata.TextureSpecification, pixels []byte) (SerializationInfo, error) {
	info := SerializationInfo{Offset: w.Position()}
	md := TextureMetadata{Width: spec.Width, Height: spec.Height, Format: uint16(spec.Format)}
	if err := serialization.WriteRaw(w, &md); err != nil {
		return info, err
	}
	if err := serialization.WriteBuffer(w, pixels); err != nil {
		return info, err
	}
	info.Size = w.Position() - info.Offset
	return info, nil
}

// ReadTextureChunk decodes a texture chunk and checks the pixel buffer matches
// the declared dimensions and format. faces is 1 for 2D textures and 6 for cubes.
func ReadTextureChunk(r serialization.Reader, info AssetInfo, faces uint64) (metadata.TextureSpecification, []byte, error) {
	var spec metadata.TextureSpecification
	if err := seekChunk(r, info); err != nil {
		return spec, nil, err
	}
	var md TextureMetadata
	if err := serialization.ReadRaw(r, &md); err != nil {
		return spec, nil, fmt.Errorf("%w: texture metadata: %w", core.ErrFormat, err)
	}
	pixels, err := serialization.ReadBuffer(r)
	if err != nil {
		return spec, nil, fmt.Errorf("%w: texture pixels: %w", core.ErrFormat, err)
	}
	if r.Position() > info.End() {
		return spec, nil, fmt.Errorf("%w: texture data runs %d bytes past its chunk", core.ErrFormat, r.Position()-info.End())
	}
	spec = metadata.TextureSpecification{
		Width:  md.Width,
		Height: md.Height,
		Format: metadata.TextureFormat(md.Format),
	}
	if spec.Format.BytesPerPixel() == 0 {
		return spec, nil, fmt.Errorf("%w: unknown texture format %d", core.ErrFormat, md.Format)
	}
	if expected := metadata.GetMemorySize(spec.Format, spec.Width, spec.Height) * faces; expected > 0 && uint64(len(pixels)) != expected {
		return spec, nil, fmt.Errorf("%w: %dx%d %s texture holds %d bytes, expected %d",
			core.ErrFormat, spec.Width, spec.Height, spec.Format, len(pixels), expected)
	}
	return spec, pixels, nil
}

func (s *TextureRuntimeSerializer) faces() uint64 {
	if s.cube {
		return metadata.CubeFaceCount
	}
	return 1
}

func (s *TextureRuntimeSerializer) DeserializeFromAssetPack(r serialization.Reader, info AssetInfo) (resources.Asset, error) {
	spec, pixels, err := ReadTextureChunk(r, info, s.faces())
	if err != nil {
		return nil, err
	}
	if s.cube {
		tex := metadata.NewTextureCube(spec, pixels)
		if s.backend != nil {
			if tex.GPU, err = s.backend.CreateTextureCube(spec, pixels); err != nil {
				return nil, fmt.Errorf("creating cube texture: %w", err)
			}
		}
		return tex, nil
	}
	tex := metadata.NewTexture2D(spec, pixels)
	if s.backend != nil {
		if tex.GPU, err = s.backend.CreateTexture2D(spec, pixels); err != nil {
			return nil, fmt.Errorf("creating texture: %w", err)
		}
	}
	return tex, nil
}

func (s *TextureRuntimeSerializer) ValidateChunk(r serialization.Reader, info AssetInfo) error {
	_, _, err := ReadTextureChunk(r, info, s.faces())
	return err
}
