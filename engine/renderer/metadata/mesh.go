package metadata

import (
	"github.com/spaghettifunk/epoch/engine/math"
	"github.com/spaghettifunk/epoch/engine/resources"
	"github.com/spaghettifunk/epoch/engine/serialization"
)

/** @brief Parent index of a root node. */
const RootParent uint32 = 0xffffffff

/**
 * @brief A range of the vertex/index buffers drawn with a single material.
 */
type Submesh struct {
	BaseVertex    uint32
	BaseIndex     uint32
	MaterialIndex uint32
	IndexCount    uint32
	VertexCount   uint32

	/** @brief World transform. */
	Transform      math.Mat4
	LocalTransform math.Mat4

	NodeName string
	MeshName string
}

type submeshBlock struct {
	BaseVertex     uint32
	BaseIndex      uint32
	MaterialIndex  uint32
	IndexCount     uint32
	VertexCount    uint32
	Transform      math.Mat4
	LocalTransform math.Mat4
}

func (s *Submesh) Serialize(w serialization.Writer) error {
	block := submeshBlock{
		BaseVertex:     s.BaseVertex,
		BaseIndex:      s.BaseIndex,
		MaterialIndex:  s.MaterialIndex,
		IndexCount:     s.IndexCount,
		VertexCount:    s.VertexCount,
		Transform:      s.Transform,
		LocalTransform: s.LocalTransform,
	}
	if err := serialization.WriteRaw(w, &block); err != nil {
		return err
	}
	if err := serialization.WriteString(w, s.NodeName); err != nil {
		return err
	}
	return serialization.WriteString(w, s.MeshName)
}

func (s *Submesh) Deserialize(r serialization.Reader) error {
	var block submeshBlock
	if err := serialization.ReadRaw(r, &block); err != nil {
		return err
	}
	nodeName, err := serialization.ReadString(r)
	if err != nil {
		return err
	}
	meshName, err := serialization.ReadString(r)
	if err != nil {
		return err
	}
	*s = Submesh{
		BaseVertex:     block.BaseVertex,
		BaseIndex:      block.BaseIndex,
		MaterialIndex:  block.MaterialIndex,
		IndexCount:     block.IndexCount,
		VertexCount:    block.VertexCount,
		Transform:      block.Transform,
		LocalTransform: block.LocalTransform,
		NodeName:       nodeName,
		MeshName:       meshName,
	}
	return nil
}

/**
 * @brief A node of the mesh hierarchy. Children and submeshes are indices
 * into the owning mesh's node and submesh arrays.
 */
type MeshNode struct {
	Parent         uint32
	Children       []uint32
	Submeshes      []uint32
	Name           string
	LocalTransform math.Mat4
}

func (n *MeshNode) IsRoot() bool {
	return n.Parent == RootParent
}

func (n *MeshNode) Serialize(w serialization.Writer) error {
	if err := serialization.WriteRaw(w, n.Parent); err != nil {
		return err
	}
	if err := serialization.WriteArray(w, n.Children); err != nil {
		return err
	}
	if err := serialization.WriteArray(w, n.Submeshes); err != nil {
		return err
	}
	if err := serialization.WriteString(w, n.Name); err != nil {
		return err
	}
	return serialization.WriteRaw(w, &n.LocalTransform)
}

func (n *MeshNode) Deserialize(r serialization.Reader) error {
	if err := serialization.ReadRaw(r, &n.Parent); err != nil {
		return err
	}
	var err error
	if n.Children, err = serialization.ReadArray[uint32](r); err != nil {
		return err
	}
	if n.Submeshes, err = serialization.ReadArray[uint32](r); err != nil {
		return err
	}
	if n.Name, err = serialization.ReadString(r); err != nil {
		return err
	}
	return serialization.ReadRaw(r, &n.LocalTransform)
}

/**
 * @brief A renderable mesh: CPU side vertex/index data, its node
 * hierarchy, and (once uploaded) the GPU buffers.
 */
type Mesh struct {
	resources.Base

	Vertices    []math.Vertex3D
	Indices     []uint32
	Submeshes   []Submesh
	Nodes       []MeshNode
	BoundingBox math.Extents3D

	VertexBuffer *VertexBuffer
	IndexBuffer  *IndexBuffer
}

// NewMesh builds a single-submesh mesh with one root node over the given geometry.
func NewMesh(vertices []math.Vertex3D, indices []uint32) *Mesh {
	m := &Mesh{
		Vertices: vertices,
		Indices:  indices,
		Submeshes: []Submesh{{
			VertexCount:    uint32(len(vertices)),
			IndexCount:     uint32(len(indices)),
			Transform:      math.NewMat4Identity(),
			LocalTransform: math.NewMat4Identity(),
		}},
		Nodes: []MeshNode{{
			Parent:         RootParent,
			Submeshes:      []uint32{0},
			Name:           "Root",
			LocalTransform: math.NewMat4Identity(),
		}},
	}
	m.BoundingBox = math.GeometryCalculateExtents(vertices)
	return m
}

func (m *Mesh) AssetType() resources.AssetType {
	return resources.AssetTypeMesh
}

func (m *Mesh) VertexCount() uint32 {
	return uint32(len(m.Vertices))
}

func (m *Mesh) IndexCount() uint32 {
	return uint32(len(m.Indices))
}

func (m *Mesh) TriangleCount() uint32 {
	return uint32(len(m.Indices)) / 3
}

func (m *Mesh) RootNode() *MeshNode {
	if len(m.Nodes) == 0 {
		return nil
	}
	return &m.Nodes[0]
}
