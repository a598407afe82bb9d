package loaders

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/epoch/engine/renderer/metadata"
	"github.com/spaghettifunk/epoch/engine/resources"
)

func TestParseObjGroups(t *testing.T) {
	src := `
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vn 0 0 1
g First
f 1//1 2//1 3//1
g Second
f 1//1 3//1 4//1
f -4//1 -2//1 -1//1
`
	mesh, err := ParseObj(strings.NewReader(src), "pair")
	require.NoError(t, err)

	assert.Len(t, mesh.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3, 0, 2, 3}, mesh.Indices)
	require.Len(t, mesh.Submeshes, 2)
	assert.Equal(t, uint32(3), mesh.Submeshes[0].IndexCount)
	assert.Equal(t, uint32(3), mesh.Submeshes[1].BaseIndex)
	assert.Equal(t, uint32(6), mesh.Submeshes[1].IndexCount)
	assert.Equal(t, uint32(3), mesh.Submeshes[1].VertexCount)

	require.Len(t, mesh.Nodes, 3)
	assert.True(t, mesh.Nodes[0].IsRoot())
	assert.Equal(t, []uint32{1, 2}, mesh.Nodes[0].Children)
	assert.Equal(t, "Second", mesh.Nodes[2].Name)
	assert.Equal(t, float32(1), mesh.BoundingBox.Max.X)
	assert.Equal(t, float32(1), mesh.Vertices[0].Normal.Z)
}

func TestParseObjGeneratesNormals(t *testing.T) {
	mesh, err := ParseObj(strings.NewReader("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"), "tri")
	require.NoError(t, err)
	for _, v := range mesh.Vertices {
		assert.InDelta(t, 1, v.Normal.Z, 1e-6)
	}
}

func TestParseObjErrors(t *testing.T) {
	_, err := ParseObj(strings.NewReader("v 0 0 0\n"), "empty")
	assert.Error(t, err)

	_, err = ParseObj(strings.NewReader("v 0 0 0\nf 1 2 3\n"), "bad")
	assert.ErrorContains(t, err, "out of range")

	_, err = ParseObj(strings.NewReader("v 0 zero 0\n"), "bad")
	assert.ErrorContains(t, err, "line 1")
}

func TestMaterialFile(t *testing.T) {
	data := []byte(`
name = "Rust"
roughness = 0.8
metalness = 0.6
albedo_color = [0.5, 0.3, 0.1]
albedo_texture = "18446744073709551615"
`)
	cfg, err := ParseMaterial(data)
	require.NoError(t, err)
	mat := cfg.Material()
	assert.Equal(t, "Rust", mat.Name)
	assert.Equal(t, float32(0.8), mat.Data.Roughness)
	assert.Equal(t, float32(0.3), mat.Data.AlbedoColor.Y)
	assert.Equal(t, float32(1), mat.Data.UVTiling.X)
	assert.Equal(t, resources.Handle(18446744073709551615), mat.AlbedoTexture)
	assert.Equal(t, []resources.Handle{18446744073709551615}, mat.Dependencies())

	_, err = ParseMaterial([]byte("roughness = 2.0"))
	assert.Error(t, err)
	_, err = ParseMaterial([]byte("shininess = 2.0"))
	assert.Error(t, err)
}

func TestMaterialSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steel.mat")
	mat := metadata.NewMaterial("Steel")
	mat.Data.Metalness = 1
	mat.NormalTexture = 77
	require.NoError(t, SaveMaterial(mat, path))

	asset, err := (&MaterialLoader{}).Load(path)
	require.NoError(t, err)
	got := asset.(*metadata.Material)
	assert.Equal(t, mat.Name, got.Name)
	assert.Equal(t, mat.Data, got.Data)
	assert.Equal(t, resources.Handle(77), got.NormalTexture)
	assert.False(t, got.AlbedoTexture.IsValid())
}

func TestBinaryLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Game.dll")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))
	loader := &BinaryLoader{Type: resources.AssetTypeScript}
	asset, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, resources.AssetTypeScript, asset.AssetType())
	assert.Equal(t, []byte{1, 2, 3}, asset.(*Binary).Data)
	require.NoError(t, loader.Unload(asset))
	assert.Nil(t, asset.(*Binary).Data)
}
