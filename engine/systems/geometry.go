package systems

import (
	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/math"
	"github.com/spaghettifunk/epoch/engine/renderer/metadata"
)

func nonZero(name string, v float32) float32 {
	if v == 0 {
		core.LogWarn("%s must be nonzero. Defaulting to one.", name)
		return 1
	}
	return v
}

// quadIndices appends the two triangles of the quad starting at vertex base.
func quadIndices(indices []uint32, base uint32) []uint32 {
	return append(indices, base+0, base+1, base+2, base+0, base+3, base+1)
}

func finishMesh(vertices []math.Vertex3D, indices []uint32, name string) *metadata.Mesh {
	math.GeometryGenerateTangents(vertices, indices)
	mesh := metadata.NewMesh(vertices, indices)
	mesh.Nodes[0].Name = name
	mesh.Submeshes[0].MeshName = name
	mesh.Submeshes[0].NodeName = name
	return mesh
}

/**
 * @brief Generates a plane in the XY plane facing +Z, split into segments.
 * @param width The overall width of the plane. Must be non-zero.
 * @param height The overall height of the plane. Must be non-zero.
 * @param tileX The number of times the texture should tile across the plane on the x-axis.
 * @param tileY The number of times the texture should tile across the plane on the y-axis.
 */
func GeneratePlaneMesh(width, height float32, xSegmentCount, ySegmentCount uint32, tileX, tileY float32, name string) *metadata.Mesh {
	width = nonZero("width", width)
	height = nonZero("height", height)
	tileX = nonZero("tileX", tileX)
	tileY = nonZero("tileY", tileY)
	if xSegmentCount < 1 {
		core.LogWarn("xSegmentCount must be a positive number. Defaulting to one.")
		xSegmentCount = 1
	}
	if ySegmentCount < 1 {
		core.LogWarn("ySegmentCount must be a positive number. Defaulting to one.")
		ySegmentCount = 1
	}

	vertices := make([]math.Vertex3D, 0, xSegmentCount*ySegmentCount*4)
	indices := make([]uint32, 0, xSegmentCount*ySegmentCount*6)
	segWidth := width / float32(xSegmentCount)
	segHeight := height / float32(ySegmentCount)
	normal := math.NewVec3(0, 0, 1)

	for y := uint32(0); y < ySegmentCount; y++ {
		for x := uint32(0); x < xSegmentCount; x++ {
			minX := float32(x)*segWidth - width*0.5
			minY := float32(y)*segHeight - height*0.5
			maxX, maxY := minX+segWidth, minY+segHeight
			minU := float32(x) / float32(xSegmentCount) * tileX
			minV := float32(y) / float32(ySegmentCount) * tileY
			maxU := float32(x+1) / float32(xSegmentCount) * tileX
			maxV := float32(y+1) / float32(ySegmentCount) * tileY

			base := uint32(len(vertices))
			vertices = append(vertices,
				math.Vertex3D{Position: math.NewVec3(minX, minY, 0), Texcoord: math.NewVec2(minU, minV), Normal: normal, Colour: math.NewVec3One()},
				math.Vertex3D{Position: math.NewVec3(maxX, maxY, 0), Texcoord: math.NewVec2(maxU, maxV), Normal: normal, Colour: math.NewVec3One()},
				math.Vertex3D{Position: math.NewVec3(minX, maxY, 0), Texcoord: math.NewVec2(minU, maxV), Normal: normal, Colour: math.NewVec3One()},
				math.Vertex3D{Position: math.NewVec3(maxX, minY, 0), Texcoord: math.NewVec2(maxU, minV), Normal: normal, Colour: math.NewVec3One()},
			)
			indices = quadIndices(indices, base)
		}
	}
	return finishMesh(vertices, indices, name)
}

// GenerateQuadMesh is a single segment unit plane.
func GenerateQuadMesh(name string) *metadata.Mesh {
	return GeneratePlaneMesh(1, 1, 1, 1, 1, 1, name)
}

type cubeFace struct {
	normal  math.Vec3
	corners [4]math.Vec3
}

/**
 * @brief Generates an axis aligned box centered on the origin with 4
 * vertices per face so every face gets its own normal and UVs.
 */
func GenerateCubeMesh(width, height, depth, tileX, tileY float32, name string) *metadata.Mesh {
	hx := nonZero("width", width) * 0.5
	hy := nonZero("height", height) * 0.5
	hz := nonZero("depth", depth) * 0.5
	tileX = nonZero("tileX", tileX)
	tileY = nonZero("tileY", tileY)

	v := math.NewVec3
	faces := [6]cubeFace{
		{v(0, 0, 1), [4]math.Vec3{v(-hx, -hy, hz), v(hx, hy, hz), v(-hx, hy, hz), v(hx, -hy, hz)}},      // front
		{v(0, 0, -1), [4]math.Vec3{v(hx, -hy, -hz), v(-hx, hy, -hz), v(hx, hy, -hz), v(-hx, -hy, -hz)}}, // back
		{v(-1, 0, 0), [4]math.Vec3{v(-hx, -hy, -hz), v(-hx, hy, hz), v(-hx, hy, -hz), v(-hx, -hy, hz)}}, // left
		{v(1, 0, 0), [4]math.Vec3{v(hx, -hy, hz), v(hx, hy, -hz), v(hx, hy, hz), v(hx, -hy, -hz)}},      // right
		{v(0, -1, 0), [4]math.Vec3{v(hx, -hy, hz), v(-hx, -hy, -hz), v(hx, -hy, -hz), v(-hx, -hy, hz)}}, // bottom
		{v(0, 1, 0), [4]math.Vec3{v(-hx, hy, hz), v(hx, hy, -hz), v(-hx, hy, -hz), v(hx, hy, hz)}},      // top
	}
	uvs := [4]math.Vec2{{X: 0, Y: 0}, {X: tileX, Y: tileY}, {X: 0, Y: tileY}, {X: tileX, Y: 0}}

	vertices := make([]math.Vertex3D, 0, 24)
	indices := make([]uint32, 0, 36)
	for _, f := range faces {
		base := uint32(len(vertices))
		for i, p := range f.corners {
			vertices = append(vertices, math.Vertex3D{Position: p, Normal: f.normal, Texcoord: uvs[i], Colour: math.NewVec3One()})
		}
		indices = quadIndices(indices, base)
	}
	return finishMesh(vertices, indices, name)
}
