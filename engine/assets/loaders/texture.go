package loaders

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/epoch/engine/renderer/metadata"
	"github.com/spaghettifunk/epoch/engine/resources"
)

type TextureLoader struct {
	// FlipY flips rows so the first row is the bottom of the image.
	FlipY bool
}

func decodeImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// toRGBA converts any decoded image into tightly packed 8 bit RGBA.
func toRGBA(img image.Image, flipY bool) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	if flipY {
		row := make([]byte, dst.Stride)
		h := dst.Rect.Dy()
		for y := 0; y < h/2; y++ {
			top := dst.Pix[y*dst.Stride : (y+1)*dst.Stride]
			bottom := dst.Pix[(h-1-y)*dst.Stride : (h-y)*dst.Stride]
			copy(row, top)
			copy(top, bottom)
			copy(bottom, row)
		}
	}
	return dst
}

func textureName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func (tl *TextureLoader) Load(path string) (resources.Asset, error) {
	img, err := decodeImage(path)
	if err != nil {
		return nil, err
	}
	rgba := toRGBA(img, tl.FlipY)
	spec := metadata.TextureSpecification{
		Format: metadata.TextureFormatRGBA,
		Width:  uint32(rgba.Rect.Dx()),
		Height: uint32(rgba.Rect.Dy()),
		Filter: metadata.TextureFilterModeLinear,
		Wrap:   metadata.TextureRepeatRepeat,
		Name:   textureName(path),
	}
	if spec.Width == 0 || spec.Height == 0 {
		return nil, fmt.Errorf("texture %s is empty", path)
	}
	return metadata.NewTexture2D(spec, rgba.Pix), nil
}

func (tl *TextureLoader) Unload(resources.Asset) error {
	return nil
}

// EnvironmentLoader imports a cube map stored as a horizontal strip of six
// square faces in +X, -X, +Y, -Y, +Z, -Z order.
type EnvironmentLoader struct{}

func (el *EnvironmentLoader) Load(path string) (resources.Asset, error) {
	img, err := decodeImage(path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	size := b.Dy()
	if size == 0 || b.Dx() != size*metadata.CubeFaceCount {
		return nil, fmt.Errorf("environment map %s is %dx%d, expected a strip of %d square faces", path, b.Dx(), b.Dy(), metadata.CubeFaceCount)
	}

	face := image.NewRGBA(image.Rect(0, 0, size, size))
	pixels := make([]byte, 0, len(face.Pix)*metadata.CubeFaceCount)
	for i := 0; i < metadata.CubeFaceCount; i++ {
		src := image.Pt(b.Min.X+i*size, b.Min.Y)
		draw.Draw(face, face.Bounds(), img, src, draw.Src)
		pixels = append(pixels, face.Pix...)
	}

	spec := metadata.TextureSpecification{
		Format: metadata.TextureFormatRGBA,
		Width:  uint32(size),
		Height: uint32(size),
		Filter: metadata.TextureFilterModeLinear,
		Wrap:   metadata.TextureRepeatClampToEdge,
		Name:   textureName(path),
	}
	return metadata.NewTextureCube(spec, pixels), nil
}

func (el *EnvironmentLoader) Unload(resources.Asset) error {
	return nil
}
