package assets

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/epoch/engine/resources"
)

// Registry is the persistent handle -> metadata table of a project. Paths
// are relative to the asset directory and use forward slashes.
type Registry struct {
	entries map[resources.Handle]resources.Metadata
	byPath  map[string]resources.Handle
}

type registryFile struct {
	Assets []resources.Metadata `toml:"assets"`
}

func NewRegistry() *Registry {
	return &Registry{
		entries: map[resources.Handle]resources.Metadata{},
		byPath:  map[string]resources.Handle{},
	}
}

// LoadRegistry reads path. A missing file yields an empty registry.
func LoadRegistry(path string) (*Registry, error) {
	r := NewRegistry()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, err
	}
	var file registryFile
	if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&file); err != nil {
		return nil, fmt.Errorf("parsing asset registry %s: %w", path, err)
	}
	for _, md := range file.Assets {
		if !md.IsValid() {
			continue
		}
		r.Set(md)
	}
	return r, nil
}

func (r *Registry) Save(path string) error {
	file := registryFile{Assets: make([]resources.Metadata, 0, len(r.entries))}
	for _, h := range r.Handles() {
		file.Assets = append(file.Assets, r.entries[h])
	}
	data, err := toml.Marshal(&file)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (r *Registry) Set(md resources.Metadata) {
	if old, ok := r.entries[md.Handle]; ok {
		delete(r.byPath, old.FilePath)
	}
	r.entries[md.Handle] = md
	if md.FilePath != "" {
		r.byPath[md.FilePath] = md.Handle
	}
}

func (r *Registry) Get(h resources.Handle) (resources.Metadata, bool) {
	md, ok := r.entries[h]
	return md, ok
}

func (r *Registry) FindByPath(path string) (resources.Metadata, bool) {
	h, ok := r.byPath[path]
	if !ok {
		return resources.Metadata{}, false
	}
	return r.entries[h], true
}

func (r *Registry) Remove(h resources.Handle) {
	if md, ok := r.entries[h]; ok {
		delete(r.byPath, md.FilePath)
		delete(r.entries, h)
	}
}

func (r *Registry) Len() int {
	return len(r.entries)
}

// Handles returns every registered handle in ascending order.
func (r *Registry) Handles() []resources.Handle {
	return slices.Sorted(maps.Keys(r.entries))
}
