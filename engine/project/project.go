// Package project loads the project file that ties a game's assets, start
// scene and script module together.
package project

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/resources"
)

const (
	FileExtension = ".eproj"
	AssetPackName = "AssetPack.eap"
)

type Config struct {
	Name        string `toml:"name"`
	ProductName string `toml:"product_name"`
	CompanyName string `toml:"company_name"`
	Version     string `toml:"version"`

	StartScene resources.Handle `toml:"start_scene"`

	AutosaveDirectory      string `toml:"autosave_directory"`
	AssetDirectory         string `toml:"asset_directory"`
	AssetRegistryPath      string `toml:"asset_registry_path"`
	ScriptModulePath       string `toml:"script_module_path"`
	DefaultScriptNamespace string `toml:"default_script_namespace,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Name:              "Untitled",
		ProductName:       "Untitled",
		Version:           "1.0.0",
		AutosaveDirectory: "Autosaves",
		AssetDirectory:    "Assets",
		AssetRegistryPath: "Regs/AssetRegistry.toml",
		ScriptModulePath:  "Scripts/Binaries",
	}
}

type Project struct {
	Config Config

	directory string
	fileName  string
}

// New returns a project rooted at directory with the default configuration.
func New(directory, name string) *Project {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.ProductName = name
	return &Project{Config: cfg, directory: directory, fileName: name + FileExtension}
}

// Load reads a project file. Keys missing from the file keep their defaults.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project: %w", err)
	}
	cfg := DefaultConfig()
	dec := toml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing project %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	p := &Project{Config: cfg, directory: filepath.Dir(abs), fileName: filepath.Base(abs)}
	core.LogInfo("loaded project '%s' from %s", cfg.Name, p.directory)
	return p, nil
}

// Save writes the project file into the project directory.
func (p *Project) Save() error {
	data, err := toml.Marshal(&p.Config)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(p.directory, 0o755); err != nil {
		return err
	}
	return os.WriteFile(p.FilePath(), data, 0o644)
}

func (p *Project) Directory() string {
	return p.directory
}

func (p *Project) FilePath() string {
	return filepath.Join(p.directory, p.fileName)
}

func (p *Project) AssetDirectory() string {
	return filepath.Join(p.directory, p.Config.AssetDirectory)
}

func (p *Project) AssetRegistryPath() string {
	return filepath.Join(p.directory, p.Config.AssetRegistryPath)
}

func (p *Project) AutosaveDirectory() string {
	return filepath.Join(p.directory, p.Config.AutosaveDirectory)
}

func (p *Project) ScriptModulePath() string {
	return filepath.Join(p.directory, p.Config.ScriptModulePath)
}

// ScriptModuleFilePath is the compiled app binary that gets embedded in the pack.
func (p *Project) ScriptModuleFilePath() string {
	return filepath.Join(p.ScriptModulePath(), p.Config.Name+".dll")
}

func (p *Project) AssetPackPath() string {
	return filepath.Join(p.AssetDirectory(), AssetPackName)
}
