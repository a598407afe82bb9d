package metadata

/** @brief An invalid GPU resource id. */
const InvalidID uint32 = 4294967295

/**
 * @brief Opaque handle to a vertex buffer living on the GPU.
 */
type VertexBuffer struct {
	/** @brief The backend specific resource id. */
	ID uint32
	/** @brief The number of vertices. */
	Count uint32
	/** @brief The size in bytes of a single vertex. */
	Stride uint32
}

/**
 * @brief Opaque handle to an index buffer living on the GPU.
 */
type IndexBuffer struct {
	ID    uint32
	Count uint32
}

/**
 * @brief Opaque handle to an uploaded texture (2D or cube).
 */
type GPUTexture struct {
	ID   uint32
	Spec TextureSpecification
	Cube bool
}
