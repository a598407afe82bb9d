package metadata

import (
	"github.com/spaghettifunk/epoch/engine/resources"
)

const (
	/** @brief The default texture name. */
	DEFAULT_TEXTURE_NAME string = "default"
	/** @brief The default diffuse texture name. */
	DEFAULT_DIFFUSE_TEXTURE_NAME string = "default_DIFF"
	/** @brief The default specular texture name. */
	DEFAULT_SPECULAR_TEXTURE_NAME string = "default_SPEC"
	/** @brief The default normal texture name. */
	DEFAULT_NORMAL_TEXTURE_NAME string = "default_NORM"
)

/** @brief Pixel format tag, stored as uint16 in texture chunks. */
type TextureFormat uint16

const (
	TextureFormatNone TextureFormat = iota
	/** @brief 8 bits per channel, 4 channels. */
	TextureFormatRGBA
	TextureFormatRGBA16F
	TextureFormatRGBA32F
	TextureFormatR11G11B10F
	TextureFormatRGB10A2UNORM
	TextureFormatRG16F
	TextureFormatR32F
	TextureFormatR32UI
	TextureFormatDEPTH32
)

func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA:
		return "RGBA"
	case TextureFormatRGBA16F:
		return "RGBA16F"
	case TextureFormatRGBA32F:
		return "RGBA32F"
	case TextureFormatR11G11B10F:
		return "R11G11B10F"
	case TextureFormatRGB10A2UNORM:
		return "RGB10A2UNORM"
	case TextureFormatRG16F:
		return "RG16F"
	case TextureFormatR32F:
		return "R32F"
	case TextureFormatR32UI:
		return "R32UI"
	case TextureFormatDEPTH32:
		return "DEPTH32"
	}
	return "None"
}

// BytesPerPixel returns 0 for TextureFormatNone and unknown tags.
func (f TextureFormat) BytesPerPixel() uint64 {
	switch f {
	case TextureFormatRGBA, TextureFormatR11G11B10F, TextureFormatRGB10A2UNORM,
		TextureFormatRG16F, TextureFormatR32F, TextureFormatR32UI, TextureFormatDEPTH32:
		return 4
	case TextureFormatRGBA16F:
		return 8
	case TextureFormatRGBA32F:
		return 16
	}
	return 0
}

func (f TextureFormat) IsDepth() bool {
	return f == TextureFormatDEPTH32
}

// GetMemorySize is the size in bytes of one width x height face in the given format.
func GetMemorySize(format TextureFormat, width, height uint32) uint64 {
	return uint64(width) * uint64(height) * format.BytesPerPixel()
}

/**
 * @brief Describes the texture the backend should create.
 */
type TextureSpecification struct {
	Format TextureFormat
	Width  uint32
	Height uint32
	/** @brief Sampler filtering. */
	Filter TextureFilter
	Wrap   TextureRepeat
	Name   string
}

/** @brief Represents supported texture filtering modes. */
type TextureFilter int

const (
	/** @brief Linear (i.e. bilinear) filtering.*/
	TextureFilterModeLinear TextureFilter = iota
	/** @brief Nearest-neighbor filtering. */
	TextureFilterModeNearest
)

type TextureRepeat int

const (
	TextureRepeatRepeat TextureRepeat = iota
	TextureRepeatMirroredRepeat
	TextureRepeatClampToEdge
	TextureRepeatClampToBorder
)

/**
 * @brief A two-dimensional texture asset.
 */
type Texture2D struct {
	resources.Base

	Spec TextureSpecification
	/** @brief The raw texture data (pixels), tightly packed rows. */
	Pixels []byte
	/** @brief The uploaded texture, nil until created by a backend. */
	GPU *GPUTexture
}

func NewTexture2D(spec TextureSpecification, pixels []byte) *Texture2D {
	return &Texture2D{Spec: spec, Pixels: pixels}
}

func (t *Texture2D) AssetType() resources.AssetType {
	return resources.AssetTypeTexture
}

func (t *Texture2D) Width() uint32 {
	return t.Spec.Width
}

func (t *Texture2D) Height() uint32 {
	return t.Spec.Height
}

func (t *Texture2D) Format() TextureFormat {
	return t.Spec.Format
}

// ExpectedSize is the pixel buffer size implied by Spec.
func (t *Texture2D) ExpectedSize() uint64 {
	return GetMemorySize(t.Spec.Format, t.Spec.Width, t.Spec.Height)
}

/**
 * @brief A cube texture, used for environment maps. Pixels hold the
 * six faces back to back in +X, -X, +Y, -Y, +Z, -Z order; width and
 * height are those of a single face.
 */
type TextureCube struct {
	resources.Base

	Spec   TextureSpecification
	Pixels []byte
	GPU    *GPUTexture
}

const CubeFaceCount = 6

func NewTextureCube(spec TextureSpecification, pixels []byte) *TextureCube {
	return &TextureCube{Spec: spec, Pixels: pixels}
}

func (t *TextureCube) AssetType() resources.AssetType {
	return resources.AssetTypeEnvTexture
}

func (t *TextureCube) Width() uint32 {
	return t.Spec.Width
}

func (t *TextureCube) Height() uint32 {
	return t.Spec.Height
}

func (t *TextureCube) Format() TextureFormat {
	return t.Spec.Format
}

func (t *TextureCube) ExpectedSize() uint64 {
	return GetMemorySize(t.Spec.Format, t.Spec.Width, t.Spec.Height) * CubeFaceCount
}

// Face returns the pixels of one cube face, or nil if the buffer is too short.
func (t *TextureCube) Face(i int) []byte {
	faceSize := GetMemorySize(t.Spec.Format, t.Spec.Width, t.Spec.Height)
	start := uint64(i) * faceSize
	if i < 0 || i >= CubeFaceCount || start+faceSize > uint64(len(t.Pixels)) {
		return nil
	}
	return t.Pixels[start : start+faceSize]
}

// DefaultTextures holds the procedural textures every runtime starts with.
type DefaultTextures struct {
	Default  *Texture2D
	Diffuse  *Texture2D
	Specular *Texture2D
	Normal   *Texture2D
}

// CreateDefaultTextures builds the default textures in code so no asset files are needed.
func CreateDefaultTextures() *DefaultTextures {
	// 256x256 blue/white checkerboard.
	texDimension := uint32(256)
	channels := uint32(4)
	pixels := make([]uint8, texDimension*texDimension*channels)
	for i := range pixels {
		pixels[i] = 255
	}
	for row := uint32(0); row < texDimension; row++ {
		for col := uint32(0); col < texDimension; col++ {
			index := (row * texDimension) + col
			indexBpp := index * channels
			if row%2 != 0 {
				if col%2 != 0 {
					pixels[indexBpp+0] = 0
					pixels[indexBpp+1] = 0
				}
			} else {
				if col%2 == 0 {
					pixels[indexBpp+0] = 0
					pixels[indexBpp+1] = 0
				}
			}
		}
	}
	def := NewTexture2D(TextureSpecification{
		Format: TextureFormatRGBA, Width: texDimension, Height: texDimension,
		Filter: TextureFilterModeNearest, Name: DEFAULT_TEXTURE_NAME,
	}, pixels)

	// Default diffuse map is all white.
	diffPixels := make([]uint8, 16*16*4)
	for i := range diffPixels {
		diffPixels[i] = 255
	}
	diffuse := NewTexture2D(TextureSpecification{
		Format: TextureFormatRGBA, Width: 16, Height: 16, Name: DEFAULT_DIFFUSE_TEXTURE_NAME,
	}, diffPixels)

	// Default spec map is black (no specular).
	specular := NewTexture2D(TextureSpecification{
		Format: TextureFormatRGBA, Width: 16, Height: 16, Name: DEFAULT_SPECULAR_TEXTURE_NAME,
	}, make([]uint8, 16*16*4))

	normalPixels := make([]uint8, 16*16*4)
	for row := 0; row < 16; row++ {
		for col := 0; col < 16; col++ {
			indexBpp := uint32((row*16)+col) * channels
			// Set blue, z-axis by default and alpha.
			normalPixels[indexBpp+0] = 128
			normalPixels[indexBpp+1] = 128
			normalPixels[indexBpp+2] = 255
			normalPixels[indexBpp+3] = 255
		}
	}
	normal := NewTexture2D(TextureSpecification{
		Format: TextureFormatRGBA, Width: 16, Height: 16, Name: DEFAULT_NORMAL_TEXTURE_NAME,
	}, normalPixels)

	return &DefaultTextures{
		Default:  def,
		Diffuse:  diffuse,
		Specular: specular,
		Normal:   normal,
	}
}

// All returns the default textures in a fixed order.
func (d *DefaultTextures) All() []*Texture2D {
	return []*Texture2D{d.Default, d.Diffuse, d.Specular, d.Normal}
}
