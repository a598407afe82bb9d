package loaders

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/epoch/engine/math"
	"github.com/spaghettifunk/epoch/engine/renderer/metadata"
	"github.com/spaghettifunk/epoch/engine/resources"
)

// MaterialConfig is the on-disk form of a material (.mat, TOML).
type MaterialConfig struct {
	Name             string           `toml:"name"`
	AlbedoColor      [3]float32       `toml:"albedo_color"`
	NormalStrength   float32          `toml:"normal_strength"`
	UVTiling         [2]float32       `toml:"uv_tiling"`
	Roughness        float32          `toml:"roughness"`
	Metalness        float32          `toml:"metalness"`
	EmissionColor    [3]float32       `toml:"emission_color"`
	EmissionStrength float32          `toml:"emission_strength"`
	AlbedoTexture    resources.Handle `toml:"albedo_texture,omitempty"`
	NormalTexture    resources.Handle `toml:"normal_texture,omitempty"`
	MaterialTexture  resources.Handle `toml:"material_texture,omitempty"`
}

func defaultMaterialConfig() MaterialConfig {
	d := metadata.DefaultMaterialData()
	return MaterialConfig{
		AlbedoColor:      [3]float32{d.AlbedoColor.X, d.AlbedoColor.Y, d.AlbedoColor.Z},
		NormalStrength:   d.NormalStrength,
		UVTiling:         [2]float32{d.UVTiling.X, d.UVTiling.Y},
		Roughness:        d.Roughness,
		Metalness:        d.Metalness,
		EmissionColor:    [3]float32{d.EmissionColor.X, d.EmissionColor.Y, d.EmissionColor.Z},
		EmissionStrength: d.EmissionStrength,
	}
}

type MaterialLoader struct{}

func (ml *MaterialLoader) Load(path string) (resources.Asset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseMaterial(data)
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", path, err)
	}
	if cfg.Name == "" {
		cfg.Name = textureName(path)
	}
	return cfg.Material(), nil
}

func (ml *MaterialLoader) Unload(resources.Asset) error {
	return nil
}

// ParseMaterial decodes a material file. Missing keys keep their defaults.
func ParseMaterial(data []byte) (*MaterialConfig, error) {
	cfg := defaultMaterialConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	if err := validateMaterial(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateMaterial(cfg *MaterialConfig) error {
	if !inRange(cfg.Roughness) {
		return fmt.Errorf("roughness must be between 0.0 and 1.0")
	}
	if !inRange(cfg.Metalness) {
		return fmt.Errorf("metalness must be between 0.0 and 1.0")
	}
	for _, c := range cfg.AlbedoColor {
		if !inRange(c) {
			return fmt.Errorf("albedo_color values must be between 0.0 and 1.0")
		}
	}
	if cfg.EmissionStrength < 0 {
		return fmt.Errorf("emission_strength must be a non-negative value")
	}
	return nil
}

// Check if a float32 value is within [0.0, 1.0]
func inRange(value float32) bool {
	return value >= 0.0 && value <= 1.0
}

func (cfg *MaterialConfig) Material() *metadata.Material {
	mat := metadata.NewMaterial(cfg.Name)
	mat.Data = metadata.MaterialData{
		AlbedoColor:      math.NewVec3(cfg.AlbedoColor[0], cfg.AlbedoColor[1], cfg.AlbedoColor[2]),
		NormalStrength:   cfg.NormalStrength,
		UVTiling:         math.NewVec2(cfg.UVTiling[0], cfg.UVTiling[1]),
		Roughness:        cfg.Roughness,
		Metalness:        cfg.Metalness,
		EmissionColor:    math.NewVec3(cfg.EmissionColor[0], cfg.EmissionColor[1], cfg.EmissionColor[2]),
		EmissionStrength: cfg.EmissionStrength,
	}
	mat.AlbedoTexture = cfg.AlbedoTexture
	mat.NormalTexture = cfg.NormalTexture
	mat.MaterialTexture = cfg.MaterialTexture
	return mat
}

// MaterialConfigFrom is the inverse of Material, used when saving.
func MaterialConfigFrom(mat *metadata.Material) *MaterialConfig {
	d := mat.Data
	return &MaterialConfig{
		Name:             mat.Name,
		AlbedoColor:      [3]float32{d.AlbedoColor.X, d.AlbedoColor.Y, d.AlbedoColor.Z},
		NormalStrength:   d.NormalStrength,
		UVTiling:         [2]float32{d.UVTiling.X, d.UVTiling.Y},
		Roughness:        d.Roughness,
		Metalness:        d.Metalness,
		EmissionColor:    [3]float32{d.EmissionColor.X, d.EmissionColor.Y, d.EmissionColor.Z},
		EmissionStrength: d.EmissionStrength,
		AlbedoTexture:    mat.AlbedoTexture,
		NormalTexture:    mat.NormalTexture,
		MaterialTexture:  mat.MaterialTexture,
	}
}

// SaveMaterial writes mat as a .mat file.
func SaveMaterial(mat *metadata.Material, path string) error {
	data, err := toml.Marshal(MaterialConfigFrom(mat))
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
