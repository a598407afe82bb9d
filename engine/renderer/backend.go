package renderer

import (
	"github.com/spaghettifunk/epoch/engine/math"
	"github.com/spaghettifunk/epoch/engine/renderer/metadata"
)

// Backend creates GPU resources from raw asset data. Every call is synchronous
// and the returned handles are opaque to the caller.
type Backend interface {
	Initialize(appName string) error
	Shutdown() error
	CreateVertexBuffer(vertices []math.Vertex3D, count, stride uint32) (*metadata.VertexBuffer, error)
	CreateIndexBuffer(indices []uint32, count uint32) (*metadata.IndexBuffer, error)
	CreateTexture2D(spec metadata.TextureSpecification, pixels []byte) (*metadata.GPUTexture, error)
	CreateTextureCube(spec metadata.TextureSpecification, pixels []byte) (*metadata.GPUTexture, error)
	DestroyVertexBuffer(buffer *metadata.VertexBuffer)
	DestroyIndexBuffer(buffer *metadata.IndexBuffer)
	DestroyTexture(texture *metadata.GPUTexture)
}

type RendererType uint8

const (
	Headless RendererType = iota
	Vulkan
	DirectX
	Metal
	OpenGL
)

func (t RendererType) String() string {
	switch t {
	case Vulkan:
		return "vulkan"
	case DirectX:
		return "directx"
	case Metal:
		return "metal"
	case OpenGL:
		return "opengl"
	}
	return "headless"
}

// VertexStride is the size in bytes of one math.Vertex3D as laid out in buffers and packs.
const VertexStride uint32 = 14 * 4
