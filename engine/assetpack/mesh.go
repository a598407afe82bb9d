package assetpack

import (
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/math"
	"github.com/spaghettifunk/epoch/engine/renderer"
	"github.com/spaghettifunk/epoch/engine/renderer/metadata"
	"github.com/spaghettifunk/epoch/engine/resources"
	"github.com/spaghettifunk/epoch/engine/serialization"
)

var MeshMagic = [4]byte{'E', 'P', 'M', 'F'}

const MeshVersion uint32 = 1

type MeshFileHeader struct {
	Magic   [4]byte
	Version uint32
}

// MeshFileMetadata follows the header. Offsets are relative to the start of
// the mesh chunk, so a chunk stays readable when extracted on its own.
type MeshFileMetadata struct {
	BoundingBox math.Extents3D

	NodeArrayOffset uint64
	NodeArraySize   uint64

	SubmeshArrayOffset uint64
	SubmeshArraySize   uint64

	VertexBufferOffset uint64
	VertexBufferSize   uint64

	IndexBufferOffset uint64
	IndexBufferSize   uint64
}

var meshPreambleSize = uint64(binary.Size(MeshFileHeader{}) + binary.Size(MeshFileMetadata{}))

type MeshRuntimeSerializer struct {
	backend renderer.Backend
}

func NewMeshRuntimeSerializer(backend renderer.Backend) *MeshRuntimeSerializer {
	return &MeshRuntimeSerializer{backend: backend}
}

func (s *MeshRuntimeSerializer) SerializeToAssetPack(handle resources.Handle, w serialization.Writer, source AssetSource) (SerializationInfo, error) {
	asset, err := source.GetAsset(handle)
	if err != nil {
		return SerializationInfo{}, err
	}
	mesh, ok := asset.(*metadata.Mesh)
	if !ok {
		return SerializationInfo{}, fmt.Errorf("asset %d is a %s, not a mesh", handle, asset.AssetType())
	}
	return WriteMeshChunk(w, mesh)
}

// WriteMeshChunk writes mesh as an EPMF chunk at the writer's cursor. The
// metadata block is reserved first and patched once every section is written.
func WriteMeshChunk(w serialization.Writer, mesh *metadata.Mesh) (SerializationInfo, error) {
	start := w.Position()
	info := SerializationInfo{Offset: start}

	if err := serialization.WriteRaw(w, &MeshFileHeader{Magic: MeshMagic, Version: MeshVersion}); err != nil {
		return info, err
	}
	metadataPos := w.Position()
	if err := serialization.WriteZero(w, uint64(binary.Size(MeshFileMetadata{}))); err != nil {
		return info, err
	}

	md := MeshFileMetadata{BoundingBox: mesh.BoundingBox}
	section := func(offset, size *uint64, write func() error) error {
		*offset = w.Position() - start
		if err := write(); err != nil {
			return err
		}
		*size = (w.Position() - start) - *offset
		return nil
	}

	if err := section(&md.NodeArrayOffset, &md.NodeArraySize, func() error {
		return serialization.WriteArray(w, mesh.Nodes)
	}); err != nil {
		return info, err
	}
	if err := section(&md.SubmeshArrayOffset, &md.SubmeshArraySize, func() error {
		return serialization.WriteArray(w, mesh.Submeshes)
	}); err != nil {
		return info, err
	}
	if err := section(&md.VertexBufferOffset, &md.VertexBufferSize, func() error {
		return serialization.WriteArray(w, mesh.Vertices)
	}); err != nil {
		return info, err
	}
	if err := section(&md.IndexBufferOffset, &md.IndexBufferSize, func() error {
		return serialization.WriteArray(w, mesh.Indices)
	}); err != nil {
		return info, err
	}

	end := w.Position()
	if err := w.SetPosition(metadataPos); err != nil {
		return info, err
	}
	if err := serialization.WriteRaw(w, &md); err != nil {
		return info, err
	}
	if err := w.SetPosition(end); err != nil {
		return info, err
	}

	info.Size = end - start
	return info, nil
}

// ReadMeshFileMetadata reads and checks the chunk preamble: magic, and every
// section lying inside the chunk after the preamble.
func ReadMeshFileMetadata(r serialization.Reader, info AssetInfo) (MeshFileMetadata, error) {
	var md MeshFileMetadata
	if err := seekChunk(r, info); err != nil {
		return md, err
	}
	if info.PackedSize < meshPreambleSize {
		return md, fmt.Errorf("%w: mesh chunk of %d bytes is shorter than its header", core.ErrFormat, info.PackedSize)
	}
	var header MeshFileHeader
	if err := serialization.ReadRaw(r, &header); err != nil {
		return md, err
	}
	if header.Magic != MeshMagic {
		return md, fmt.Errorf("%w: mesh chunk magic %q", core.ErrFormat, header.Magic[:])
	}
	if err := serialization.ReadRaw(r, &md); err != nil {
		return md, err
	}
	sections := [4][2]uint64{
		{md.NodeArrayOffset, md.NodeArraySize},
		{md.SubmeshArrayOffset, md.SubmeshArraySize},
		{md.VertexBufferOffset, md.VertexBufferSize},
		{md.IndexBufferOffset, md.IndexBufferSize},
	}
	for i, sec := range sections {
		off, size := sec[0], sec[1]
		if off < meshPreambleSize || off+size < off || off+size > info.PackedSize {
			return md, fmt.Errorf("%w: mesh section %d [%d, %d) outside chunk of %d bytes", core.ErrFormat, i, off, off+size, info.PackedSize)
		}
	}
	return md, nil
}

func readMeshSection[T any](r serialization.Reader, chunkStart, offset, size uint64, name string) ([]T, error) {
	if err := r.SetPosition(chunkStart + offset); err != nil {
		return nil, err
	}
	items, err := serialization.ReadArray[T](r)
	if err != nil {
		return nil, fmt.Errorf("%w: mesh %s: %w", core.ErrFormat, name, err)
	}
	if read := r.Position() - chunkStart - offset; read != size {
		return nil, fmt.Errorf("%w: mesh %s declared %d bytes, holds %d", core.ErrFormat, name, size, read)
	}
	return items, nil
}

// ReadMeshChunk decodes a mesh chunk without touching the GPU.
func ReadMeshChunk(r serialization.Reader, info AssetInfo) (*metadata.Mesh, error) {
	md, err := ReadMeshFileMetadata(r, info)
	if err != nil {
		return nil, err
	}
	start := info.PackedOffset
	mesh := &metadata.Mesh{BoundingBox: md.BoundingBox}

	if mesh.Nodes, err = readMeshSection[metadata.MeshNode](r, start, md.NodeArrayOffset, md.NodeArraySize, "nodes"); err != nil {
		return nil, err
	}
	if mesh.Submeshes, err = readMeshSection[metadata.Submesh](r, start, md.SubmeshArrayOffset, md.SubmeshArraySize, "submeshes"); err != nil {
		return nil, err
	}
	if mesh.Vertices, err = readMeshSection[math.Vertex3D](r, start, md.VertexBufferOffset, md.VertexBufferSize, "vertices"); err != nil {
		return nil, err
	}
	if mesh.Indices, err = readMeshSection[uint32](r, start, md.IndexBufferOffset, md.IndexBufferSize, "indices"); err != nil {
		return nil, err
	}
	return mesh, nil
}

func (s *MeshRuntimeSerializer) DeserializeFromAssetPack(r serialization.Reader, info AssetInfo) (resources.Asset, error) {
	mesh, err := ReadMeshChunk(r, info)
	if err != nil {
		return nil, err
	}
	if s.backend == nil {
		return mesh, nil
	}
	if len(mesh.Vertices) > 0 {
		vb, err := s.backend.CreateVertexBuffer(mesh.Vertices, mesh.VertexCount(), renderer.VertexStride)
		if err != nil {
			return nil, fmt.Errorf("creating vertex buffer: %w", err)
		}
		mesh.VertexBuffer = vb
	}
	if len(mesh.Indices) > 0 {
		ib, err := s.backend.CreateIndexBuffer(mesh.Indices, mesh.IndexCount())
		if err != nil {
			return nil, fmt.Errorf("creating index buffer: %w", err)
		}
		mesh.IndexBuffer = ib
	}
	return mesh, nil
}

func (s *MeshRuntimeSerializer) ValidateChunk(r serialization.Reader, info AssetInfo) error {
	_, err := ReadMeshChunk(r, info)
	return err
}
