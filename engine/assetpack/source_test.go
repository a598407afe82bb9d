package assetpack

import (
	"fmt"
	"time"

	"github.com/spaghettifunk/epoch/engine/math"
	"github.com/spaghettifunk/epoch/engine/renderer/metadata"
	"github.com/spaghettifunk/epoch/engine/resources"
	"github.com/spaghettifunk/epoch/engine/scene"
)

type memSource struct {
	assets   map[resources.Handle]resources.Asset
	metadata map[resources.Handle]resources.Metadata
	broken   map[resources.Handle]bool
}

func newMemSource() *memSource {
	return &memSource{
		assets:   map[resources.Handle]resources.Asset{},
		metadata: map[resources.Handle]resources.Metadata{},
		broken:   map[resources.Handle]bool{},
	}
}

func (s *memSource) add(handle resources.Handle, asset resources.Asset) {
	if hs, ok := asset.(resources.HandleSetter); ok {
		hs.SetHandle(handle)
	}
	s.assets[handle] = asset
	s.metadata[handle] = resources.Metadata{
		Handle:   handle,
		Type:     asset.AssetType(),
		FilePath: fmt.Sprintf("asset_%d", handle),
	}
}

func (s *memSource) GetAsset(handle resources.Handle) (resources.Asset, error) {
	if s.broken[handle] {
		return nil, fmt.Errorf("asset %d failed to import", handle)
	}
	a, ok := s.assets[handle]
	if !ok {
		return nil, fmt.Errorf("asset %d not found", handle)
	}
	return a, nil
}

func (s *memSource) GetMetadata(handle resources.Handle) (resources.Metadata, bool) {
	md, ok := s.metadata[handle]
	return md, ok
}

func triangleMesh() *metadata.Mesh {
	vertices := []math.Vertex3D{
		{Position: math.NewVec3(0, 0, 0), Normal: math.NewVec3(0, 0, 1), Texcoord: math.NewVec2(0, 0)},
		{Position: math.NewVec3(1, 0, 0), Normal: math.NewVec3(0, 0, 1), Texcoord: math.NewVec2(1, 0)},
		{Position: math.NewVec3(0, 1, 0), Normal: math.NewVec3(0, 0, 1), Texcoord: math.NewVec2(0, 1)},
	}
	return metadata.NewMesh(vertices, []uint32{0, 1, 2})
}

func checkerTexture() *metadata.Texture2D {
	spec := metadata.TextureSpecification{Format: metadata.TextureFormatRGBA, Width: 2, Height: 2, Name: "checker"}
	pixels := []byte{
		255, 255, 255, 255, 0, 0, 0, 255,
		0, 0, 0, 255, 255, 255, 255, 255,
	}
	return metadata.NewTexture2D(spec, pixels)
}

const (
	startScene  resources.Handle = 100
	otherScene  resources.Handle = 200
	meshHandle  resources.Handle = 1001
	texHandle   resources.Handle = 1002
	matHandle   resources.Handle = 1003
	otherMesh   resources.Handle = 1004
	brokenMesh  resources.Handle = 1005
	memoryAsset resources.Handle = 1006
)

var buildTime = time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC)

// testWorld is a start scene with a mesh, a material and its texture, which
// links a second scene that shares the mesh and adds one of its own.
func testWorld() *memSource {
	src := newMemSource()
	src.add(meshHandle, triangleMesh())
	src.add(otherMesh, triangleMesh())
	src.add(texHandle, checkerTexture())

	mat := metadata.NewMaterial("Checker")
	mat.AlbedoTexture = texHandle
	mat.Data.Roughness = 0.25
	src.add(matHandle, mat)

	first := scene.New(startScene, "Main")
	e := first.CreateEntity("Triangle")
	e.MeshRenderer = &scene.MeshRendererComponent{Mesh: meshHandle, Materials: []resources.Handle{matHandle}, Visible: true}
	portal := first.CreateEntity("Portal")
	portal.Script = &scene.ScriptComponent{
		ClassName: "Game.Portal",
		Fields:    []scene.ScriptField{{Name: "Target", Assets: []resources.Handle{otherScene}}},
	}
	src.add(startScene, first)

	second := scene.New(otherScene, "Second")
	a := second.CreateEntity("Shared")
	a.MeshRenderer = &scene.MeshRendererComponent{Mesh: meshHandle, Visible: true}
	b := second.CreateEntity("Own")
	b.MeshRenderer = &scene.MeshRendererComponent{Mesh: otherMesh, Visible: true}
	back := second.CreateEntity("Back")
	back.Script = &scene.ScriptComponent{
		ClassName: "Game.Portal",
		Fields:    []scene.ScriptField{{Name: "Target", Assets: []resources.Handle{startScene}}},
	}
	src.add(otherScene, second)
	return src
}
