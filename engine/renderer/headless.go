package renderer

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/math"
	"github.com/spaghettifunk/epoch/engine/renderer/metadata"
)

// Stats counts the resources a HeadlessBackend has created.
type Stats struct {
	VertexBuffers int
	IndexBuffers  int
	Textures2D    int
	TexturesCube  int
	BytesUploaded uint64
	// Live is the number of buffers and textures not destroyed yet.
	Live int
}

// HeadlessBackend satisfies Backend without a GPU. It validates the
// requests, hands out increasing ids and keeps counters. Used by the
// pack tools and the tests.
type HeadlessBackend struct {
	mu     sync.Mutex
	nextID uint32
	stats  Stats
	live   map[uint32]struct{}
}

func NewHeadlessBackend() *HeadlessBackend {
	return &HeadlessBackend{live: map[uint32]struct{}{}}
}

func (hb *HeadlessBackend) Initialize(appName string) error {
	core.LogDebug("headless renderer initialized for '%s'", appName)
	return nil
}

func (hb *HeadlessBackend) Shutdown() error {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	if len(hb.live) > 0 {
		core.LogDebug("headless renderer shutting down with %d live resources", len(hb.live))
	}
	hb.live = map[uint32]struct{}{}
	return nil
}

func (hb *HeadlessBackend) id() uint32 {
	hb.nextID++
	return hb.nextID
}

func (hb *HeadlessBackend) CreateVertexBuffer(vertices []math.Vertex3D, count, stride uint32) (*metadata.VertexBuffer, error) {
	if count == 0 || int(count) > len(vertices) {
		return nil, fmt.Errorf("invalid vertex buffer: count %d for %d vertices", count, len(vertices))
	}
	hb.mu.Lock()
	defer hb.mu.Unlock()
	hb.stats.VertexBuffers++
	hb.stats.BytesUploaded += uint64(count) * uint64(stride)
	vb := &metadata.VertexBuffer{ID: hb.id(), Count: count, Stride: stride}
	hb.live[vb.ID] = struct{}{}
	return vb, nil
}

func (hb *HeadlessBackend) CreateIndexBuffer(indices []uint32, count uint32) (*metadata.IndexBuffer, error) {
	if count == 0 || int(count) > len(indices) {
		return nil, fmt.Errorf("invalid index buffer: count %d for %d indices", count, len(indices))
	}
	hb.mu.Lock()
	defer hb.mu.Unlock()
	hb.stats.IndexBuffers++
	hb.stats.BytesUploaded += uint64(count) * 4
	ib := &metadata.IndexBuffer{ID: hb.id(), Count: count}
	hb.live[ib.ID] = struct{}{}
	return ib, nil
}

func (hb *HeadlessBackend) CreateTexture2D(spec metadata.TextureSpecification, pixels []byte) (*metadata.GPUTexture, error) {
	return hb.createTexture(spec, pixels, false)
}

func (hb *HeadlessBackend) CreateTextureCube(spec metadata.TextureSpecification, pixels []byte) (*metadata.GPUTexture, error) {
	return hb.createTexture(spec, pixels, true)
}

func (hb *HeadlessBackend) createTexture(spec metadata.TextureSpecification, pixels []byte, cube bool) (*metadata.GPUTexture, error) {
	if spec.Width == 0 || spec.Height == 0 {
		return nil, fmt.Errorf("invalid texture dimensions %dx%d", spec.Width, spec.Height)
	}
	if spec.Format == metadata.TextureFormatNone {
		return nil, fmt.Errorf("texture '%s' has no format", spec.Name)
	}
	hb.mu.Lock()
	defer hb.mu.Unlock()
	if cube {
		hb.stats.TexturesCube++
	} else {
		hb.stats.Textures2D++
	}
	hb.stats.BytesUploaded += uint64(len(pixels))
	t := &metadata.GPUTexture{ID: hb.id(), Spec: spec, Cube: cube}
	hb.live[t.ID] = struct{}{}
	return t, nil
}

func (hb *HeadlessBackend) DestroyVertexBuffer(buffer *metadata.VertexBuffer) {
	if buffer == nil {
		return
	}
	hb.mu.Lock()
	defer hb.mu.Unlock()
	delete(hb.live, buffer.ID)
	buffer.ID = metadata.InvalidID
}

func (hb *HeadlessBackend) DestroyIndexBuffer(buffer *metadata.IndexBuffer) {
	if buffer == nil {
		return
	}
	hb.mu.Lock()
	defer hb.mu.Unlock()
	delete(hb.live, buffer.ID)
	buffer.ID = metadata.InvalidID
}

func (hb *HeadlessBackend) DestroyTexture(texture *metadata.GPUTexture) {
	if texture == nil {
		return
	}
	hb.mu.Lock()
	defer hb.mu.Unlock()
	delete(hb.live, texture.ID)
	texture.ID = metadata.InvalidID
}

func (hb *HeadlessBackend) Stats() Stats {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	stats := hb.stats
	stats.Live = len(hb.live)
	return stats
}
