// Package scene holds the scene asset: a flat list of entities whose
// components reference other assets by handle.
package scene

import (
	"maps"
	"slices"

	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/math"
	"github.com/spaghettifunk/epoch/engine/resources"
)

type TransformComponent struct {
	Translation math.Vec3 `yaml:"Translation"`
	Rotation    math.Vec3 `yaml:"Rotation"`
	Scale       math.Vec3 `yaml:"Scale"`
}

type MeshRendererComponent struct {
	Mesh      resources.Handle   `yaml:"Mesh"`
	Materials []resources.Handle `yaml:"Materials,omitempty"`
	Visible   bool               `yaml:"Visible"`
}

type SpriteRendererComponent struct {
	Texture resources.Handle `yaml:"Texture"`
	Tint    math.Vec4        `yaml:"Tint"`
}

type SkyLightComponent struct {
	EnvironmentMap resources.Handle `yaml:"EnvironmentMap"`
	Intensity      float32          `yaml:"Intensity"`
}

// ScriptField is an asset-typed field exposed by a script class. Array
// fields carry more than one handle.
type ScriptField struct {
	Name   string             `yaml:"Name"`
	Assets []resources.Handle `yaml:"Assets"`
}

type ScriptComponent struct {
	ClassName string        `yaml:"ClassName"`
	Fields    []ScriptField `yaml:"Fields,omitempty"`
}

type Entity struct {
	ID             uint64                   `yaml:"Entity"`
	Name           string                   `yaml:"Name"`
	Parent         uint64                   `yaml:"Parent,omitempty"`
	Transform      *TransformComponent      `yaml:"TransformComponent,omitempty"`
	MeshRenderer   *MeshRendererComponent   `yaml:"MeshRendererComponent,omitempty"`
	SpriteRenderer *SpriteRendererComponent `yaml:"SpriteRendererComponent,omitempty"`
	SkyLight       *SkyLightComponent       `yaml:"SkyLightComponent,omitempty"`
	Script         *ScriptComponent         `yaml:"ScriptComponent,omitempty"`
}

type Scene struct {
	resources.Base

	Name     string
	Entities []*Entity
}

func New(handle resources.Handle, name string) *Scene {
	s := &Scene{Name: name}
	s.SetHandle(handle)
	return s
}

func (s *Scene) AssetType() resources.AssetType {
	return resources.AssetTypeScene
}

// CreateEntity appends an entity with an identity transform.
func (s *Scene) CreateEntity(name string) *Entity {
	e := &Entity{
		ID:   core.NewUUID(),
		Name: name,
		Transform: &TransformComponent{
			Scale: math.NewVec3One(),
		},
	}
	s.Entities = append(s.Entities, e)
	return e
}

func (s *Scene) FindEntity(id uint64) *Entity {
	for _, e := range s.Entities {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// AssetReferences returns every valid asset handle the components point at,
// ascending and without duplicates. Script fields are reported separately by
// ScriptReferences.
func (s *Scene) AssetReferences() []resources.Handle {
	set := map[resources.Handle]struct{}{}
	add := func(h resources.Handle) {
		if h.IsValid() {
			set[h] = struct{}{}
		}
	}
	for _, e := range s.Entities {
		if mr := e.MeshRenderer; mr != nil {
			add(mr.Mesh)
			for _, m := range mr.Materials {
				add(m)
			}
		}
		if sr := e.SpriteRenderer; sr != nil {
			add(sr.Texture)
		}
		if sl := e.SkyLight; sl != nil {
			add(sl.EnvironmentMap)
		}
	}
	return slices.Sorted(maps.Keys(set))
}

// ScriptReferences returns the handles held by script fields. The caller decides
// which of them are scenes.
func (s *Scene) ScriptReferences() []resources.Handle {
	set := map[resources.Handle]struct{}{}
	for _, e := range s.Entities {
		if e.Script == nil {
			continue
		}
		for _, f := range e.Script.Fields {
			for _, h := range f.Assets {
				if h.IsValid() {
					set[h] = struct{}{}
				}
			}
		}
	}
	return slices.Sorted(maps.Keys(set))
}
