package math

// GeometryGenerateNormals assigns a face normal to every vertex of each indexed triangle.
func GeometryGenerateNormals(vertices []Vertex3D, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0 := indices[i+0]
		i1 := indices[i+1]
		i2 := indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)

		normal := edge1.Cross(edge2).Normalized()

		// NOTE: This just generates a face normal. Smoothing out should be done in a separate pass if desired.
		vertices[i0].Normal = normal
		vertices[i1].Normal = normal
		vertices[i2].Normal = normal
	}
}

func GeometryGenerateTangents(vertices []Vertex3D, indices []uint32) {
	for i := 0; i+2 < len(indices); i += 3 {
		i0 := indices[i+0]
		i1 := indices[i+1]
		i2 := indices[i+2]

		edge1 := vertices[i1].Position.Sub(vertices[i0].Position)
		edge2 := vertices[i2].Position.Sub(vertices[i0].Position)

		deltaU1 := vertices[i1].Texcoord.X - vertices[i0].Texcoord.X
		deltaV1 := vertices[i1].Texcoord.Y - vertices[i0].Texcoord.Y

		deltaU2 := vertices[i2].Texcoord.X - vertices[i0].Texcoord.X
		deltaV2 := vertices[i2].Texcoord.Y - vertices[i0].Texcoord.Y

		dividend := deltaU1*deltaV2 - deltaU2*deltaV1
		if dividend == 0 {
			continue
		}
		fc := 1.0 / dividend

		tangent := Vec3{
			fc * (deltaV2*edge1.X - deltaV1*edge2.X),
			fc * (deltaV2*edge1.Y - deltaV1*edge2.Y),
			fc * (deltaV2*edge1.Z - deltaV1*edge2.Z)}.Normalized()

		vertices[i0].Tangent = tangent
		vertices[i1].Tangent = tangent
		vertices[i2].Tangent = tangent
	}
}

// GeometryCalculateExtents returns the bounding box of the vertex positions.
// An empty slice yields the zero box.
func GeometryCalculateExtents(vertices []Vertex3D) Extents3D {
	if len(vertices) == 0 {
		return Extents3D{}
	}
	ext := Extents3D{Min: vertices[0].Position, Max: vertices[0].Position}
	for _, v := range vertices[1:] {
		ext.Min = ext.Min.Min(v.Position)
		ext.Max = ext.Max.Max(v.Position)
	}
	return ext
}
