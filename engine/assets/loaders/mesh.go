package loaders

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/math"
	"github.com/spaghettifunk/epoch/engine/renderer/metadata"
	"github.com/spaghettifunk/epoch/engine/resources"
)

// ObjLoader imports Wavefront OBJ meshes. Every object or group becomes a
// submesh with its own child node under a single root. Polygons are
// triangulated as fans.
type ObjLoader struct{}

type objIndex struct {
	v, vt, vn int
}

type objGroup struct {
	name      string
	baseIndex uint32
}

type objParser struct {
	positions []math.Vec3
	texcoords []math.Vec2
	normals   []math.Vec3

	vertices []math.Vertex3D
	indices  []uint32
	lookup   map[objIndex]uint32
	groups   []objGroup

	hasNormals bool
}

func (ol *ObjLoader) Load(path string) (resources.Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mesh, err := ParseObj(f, textureName(path))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return mesh, nil
}

func (ol *ObjLoader) Unload(resources.Asset) error {
	return nil
}

// ParseObj reads OBJ text into a mesh named name.
func ParseObj(r io.Reader, name string) (*metadata.Mesh, error) {
	p := &objParser{lookup: map[objIndex]uint32{}}
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		var err error
		switch fields[0] {
		case "v":
			var v math.Vec3
			v, err = parseVec3(fields[1:])
			p.positions = append(p.positions, v)
		case "vn":
			var v math.Vec3
			v, err = parseVec3(fields[1:])
			p.normals = append(p.normals, v)
		case "vt":
			var v math.Vec2
			v, err = parseVec2(fields[1:])
			p.texcoords = append(p.texcoords, v)
		case "o", "g":
			p.beginGroup(strings.Join(fields[1:], " "))
		case "f":
			err = p.face(fields[1:])
		case "usemtl", "mtllib", "s":
			// materials are assigned in the scene
		default:
			core.LogDebug("obj: skipping '%s' on line %d", fields[0], line)
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(p.indices) == 0 {
		return nil, fmt.Errorf("no faces")
	}
	return p.build(name), nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

func parseVec3(fields []string) (math.Vec3, error) {
	f, err := parseFloats(fields, 3)
	if err != nil {
		return math.Vec3{}, err
	}
	return math.NewVec3(f[0], f[1], f[2]), nil
}

func parseVec2(fields []string) (math.Vec2, error) {
	f, err := parseFloats(fields, 2)
	if err != nil {
		return math.Vec2{}, err
	}
	return math.NewVec2(f[0], f[1]), nil
}

func (p *objParser) beginGroup(name string) {
	if n := len(p.groups); n > 0 && p.groups[n-1].baseIndex == uint32(len(p.indices)) {
		p.groups[n-1].name = name
		return
	}
	p.groups = append(p.groups, objGroup{name: name, baseIndex: uint32(len(p.indices))})
}

// resolve turns a 1-based (or negative, relative) OBJ index into a 0-based one.
func resolve(s string, count int) (int, error) {
	if s == "" {
		return -1, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		i += count
	} else {
		i--
	}
	if i < 0 || i >= count {
		return 0, fmt.Errorf("index %s out of range", s)
	}
	return i, nil
}

func (p *objParser) corner(token string) (uint32, error) {
	parts := strings.Split(token, "/")
	var key objIndex
	var err error
	if key.v, err = resolve(parts[0], len(p.positions)); err != nil {
		return 0, err
	}
	if key.v < 0 {
		return 0, fmt.Errorf("face corner '%s' has no position", token)
	}
	key.vt, key.vn = -1, -1
	if len(parts) > 1 {
		if key.vt, err = resolve(parts[1], len(p.texcoords)); err != nil {
			return 0, err
		}
	}
	if len(parts) > 2 {
		if key.vn, err = resolve(parts[2], len(p.normals)); err != nil {
			return 0, err
		}
	}
	if idx, ok := p.lookup[key]; ok {
		return idx, nil
	}

	vert := math.Vertex3D{Position: p.positions[key.v], Colour: math.NewVec3One()}
	if key.vt >= 0 {
		vert.Texcoord = p.texcoords[key.vt]
	}
	if key.vn >= 0 {
		vert.Normal = p.normals[key.vn]
		p.hasNormals = true
	}
	idx := uint32(len(p.vertices))
	p.vertices = append(p.vertices, vert)
	p.lookup[key] = idx
	return idx, nil
}

func (p *objParser) face(tokens []string) error {
	if len(tokens) < 3 {
		return fmt.Errorf("face with %d corners", len(tokens))
	}
	if len(p.groups) == 0 {
		p.beginGroup("default")
	}
	corners := make([]uint32, len(tokens))
	for i, tok := range tokens {
		idx, err := p.corner(tok)
		if err != nil {
			return err
		}
		corners[i] = idx
	}
	for i := 1; i+1 < len(corners); i++ {
		p.indices = append(p.indices, corners[0], corners[i], corners[i+1])
	}
	return nil
}

func (p *objParser) build(name string) *metadata.Mesh {
	if !p.hasNormals {
		math.GeometryGenerateNormals(p.vertices, p.indices)
	}
	math.GeometryGenerateTangents(p.vertices, p.indices)

	mesh := &metadata.Mesh{
		Vertices:    p.vertices,
		Indices:     p.indices,
		BoundingBox: math.GeometryCalculateExtents(p.vertices),
	}
	root := metadata.MeshNode{Parent: metadata.RootParent, Name: name, LocalTransform: math.NewMat4Identity()}
	mesh.Nodes = append(mesh.Nodes, root)

	for i, g := range p.groups {
		end := uint32(len(p.indices))
		if i+1 < len(p.groups) {
			end = p.groups[i+1].baseIndex
		}
		if end == g.baseIndex {
			continue
		}
		sub := metadata.Submesh{
			BaseIndex:      g.baseIndex,
			IndexCount:     end - g.baseIndex,
			VertexCount:    countVertices(p.indices[g.baseIndex:end]),
			Transform:      math.NewMat4Identity(),
			LocalTransform: math.NewMat4Identity(),
			NodeName:       g.name,
			MeshName:       name,
		}
		subIndex := uint32(len(mesh.Submeshes))
		mesh.Submeshes = append(mesh.Submeshes, sub)

		nodeIndex := uint32(len(mesh.Nodes))
		mesh.Nodes = append(mesh.Nodes, metadata.MeshNode{
			Parent:         0,
			Submeshes:      []uint32{subIndex},
			Name:           g.name,
			LocalTransform: math.NewMat4Identity(),
		})
		mesh.Nodes[0].Children = append(mesh.Nodes[0].Children, nodeIndex)
	}
	return mesh
}

func countVertices(indices []uint32) uint32 {
	seen := map[uint32]struct{}{}
	for _, i := range indices {
		seen[i] = struct{}{}
	}
	return uint32(len(seen))
}
