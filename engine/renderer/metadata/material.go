package metadata

import (
	"github.com/spaghettifunk/epoch/engine/math"
	"github.com/spaghettifunk/epoch/engine/resources"
)

/** @brief The name of the default material. */
const DefaultMaterialName string = "Default-Material"

/**
 * @brief The fixed-size surface parameters of a material.
 */
type MaterialData struct {
	AlbedoColor    math.Vec3
	NormalStrength float32

	UVTiling  math.Vec2
	Roughness float32
	Metalness float32

	EmissionColor    math.Vec3
	EmissionStrength float32
}

func DefaultMaterialData() MaterialData {
	return MaterialData{
		AlbedoColor:    math.NewVec3One(),
		NormalStrength: 1,
		UVTiling:       math.Vec2{X: 1, Y: 1},
		Roughness:      1,
		Metalness:      0,
		EmissionColor:  math.NewVec3One(),
	}
}

/**
 * @brief A material, which represents various properties
 * of a surface in the world such as texture, colour,
 * roughness and emission.
 */
type Material struct {
	resources.Base

	Name string
	Data MaterialData

	/** @brief Albedo map, InvalidHandle when unset. */
	AlbedoTexture resources.Handle
	/** @brief Normal map, InvalidHandle when unset. */
	NormalTexture resources.Handle
	/** @brief Packed roughness/metalness map, InvalidHandle when unset. */
	MaterialTexture resources.Handle
}

func NewMaterial(name string) *Material {
	return &Material{Name: name, Data: DefaultMaterialData()}
}

func (m *Material) AssetType() resources.AssetType {
	return resources.AssetTypeMaterial
}

// Dependencies lists the textures this material samples.
func (m *Material) Dependencies() []resources.Handle {
	deps := make([]resources.Handle, 0, 3)
	for _, h := range []resources.Handle{m.AlbedoTexture, m.NormalTexture, m.MaterialTexture} {
		if h.IsValid() {
			deps = append(deps, h)
		}
	}
	return deps
}
