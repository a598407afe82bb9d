package scene

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/resources"
)

var ErrNotAScene = errors.New("document has no 'Scene' key")

type document struct {
	Scene    *string   `yaml:"Scene"`
	Entities []*Entity `yaml:"Entities"`
}

// Marshal renders the scene in its text format.
func Marshal(s *Scene) ([]byte, error) {
	core.LogDebug("serializing scene '%s'", s.Name)
	name := s.Name
	return yaml.Marshal(&document{Scene: &name, Entities: s.Entities})
}

// Unmarshal parses the text format into a scene carrying the given handle.
func Unmarshal(handle resources.Handle, data []byte) (*Scene, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrFormat, err)
	}
	if doc.Scene == nil {
		return nil, fmt.Errorf("%w: %w", core.ErrFormat, ErrNotAScene)
	}
	s := New(handle, *doc.Scene)
	core.LogDebug("deserializing scene '%s'", s.Name)
	for _, e := range doc.Entities {
		if e != nil {
			s.Entities = append(s.Entities, e)
		}
	}
	return s, nil
}

func LoadFile(handle resources.Handle, path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(handle, data)
}

func SaveFile(s *Scene, path string) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
