package resources

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Handle identifies an asset. Zero is never a valid handle.
type Handle uint64

const InvalidHandle Handle = 0

func (h Handle) IsValid() bool {
	return h != InvalidHandle
}

func (h Handle) String() string {
	return strconv.FormatUint(uint64(h), 10)
}

// Handles are written as decimal text so config formats limited to int64 keep all 64 bits.
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Handle) UnmarshalText(text []byte) error {
	v, err := strconv.ParseUint(string(text), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid asset handle %q: %w", text, err)
	}
	*h = Handle(v)
	return nil
}

/** @brief The type tag stored next to every asset in a pack index. */
type AssetType uint16

/** @brief Pre-defined asset types. */
const (
	AssetTypeNone AssetType = iota
	AssetTypeScene
	AssetTypePrefab
	AssetTypeTexture
	AssetTypeMesh
	AssetTypeAnimation
	/** @brief Environment (cube) texture. */
	AssetTypeEnvTexture
	AssetTypeMaterial
	AssetTypePhysicsMaterial
	AssetTypeAudio
	AssetTypeVideo
	/** @brief Compiled script module. */
	AssetTypeScript
	/** @brief Script source file. */
	AssetTypeScriptFile
	AssetTypeFont
)

var assetTypeNames = map[AssetType]string{
	AssetTypeNone:            "None",
	AssetTypeScene:           "Scene",
	AssetTypePrefab:          "Prefab",
	AssetTypeTexture:         "Texture",
	AssetTypeMesh:            "Mesh",
	AssetTypeAnimation:       "Animation",
	AssetTypeEnvTexture:      "EnvTexture",
	AssetTypeMaterial:        "Material",
	AssetTypePhysicsMaterial: "PhysicsMaterial",
	AssetTypeAudio:           "Audio",
	AssetTypeVideo:           "Video",
	AssetTypeScript:          "Script",
	AssetTypeScriptFile:      "ScriptFile",
	AssetTypeFont:            "Font",
}

func (t AssetType) String() string {
	if name, ok := assetTypeNames[t]; ok {
		return name
	}
	return "None"
}

// AssetTypeFromString is the inverse of AssetType.String. Unknown names map to AssetTypeNone.
func AssetTypeFromString(s string) AssetType {
	for t, name := range assetTypeNames {
		if strings.EqualFold(name, s) {
			return t
		}
	}
	return AssetTypeNone
}

func (t AssetType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *AssetType) UnmarshalText(text []byte) error {
	*t = AssetTypeFromString(string(text))
	return nil
}

var assetExtensions = map[string]AssetType{
	".epoch":  AssetTypeScene,
	".prefab": AssetTypePrefab,
	".anim":   AssetTypeAnimation,
	".mat":    AssetTypeMaterial,
	".pmat":   AssetTypePhysicsMaterial,

	".fbx":  AssetTypeMesh,
	".gltf": AssetTypeMesh,
	".glb":  AssetTypeMesh,
	".obj":  AssetTypeMesh,

	".png":  AssetTypeTexture,
	".jpg":  AssetTypeTexture,
	".jpeg": AssetTypeTexture,
	".bmp":  AssetTypeTexture,
	".tif":  AssetTypeTexture,
	".tiff": AssetTypeTexture,
	".webp": AssetTypeTexture,
	".hdr":  AssetTypeEnvTexture,
	".cube": AssetTypeEnvTexture,

	".ttf": AssetTypeFont,
	".wav": AssetTypeAudio,
	".ogg": AssetTypeAudio,
	".mp4": AssetTypeVideo,

	".cs":  AssetTypeScriptFile,
	".dll": AssetTypeScript,
	".so":  AssetTypeScript,
}

// AssetTypeFromPath guesses the type of a source file from its extension.
func AssetTypeFromPath(path string) AssetType {
	if t, ok := assetExtensions[strings.ToLower(filepath.Ext(path))]; ok {
		return t
	}
	return AssetTypeNone
}

// Asset is anything the asset managers can hand out.
type Asset interface {
	Handle() Handle
	AssetType() AssetType
}

// Base carries the handle shared by every concrete asset. Embed it.
type Base struct {
	handle Handle
}

func (b *Base) Handle() Handle {
	return b.handle
}

func (b *Base) SetHandle(h Handle) {
	b.handle = h
}

/**
 * @brief Editor-side description of an asset. The runtime never sees the
 * file path; it is frozen into the pack index as type + location.
 */
type Metadata struct {
	Handle        Handle    `toml:"handle"`
	Type          AssetType `toml:"type"`
	FilePath      string    `toml:"path"`
	IsMemoryAsset bool      `toml:"-"`
	IsDataLoaded  bool      `toml:"-"`
}

func (m Metadata) IsValid() bool {
	return m.Handle.IsValid() && m.Type != AssetTypeNone
}

// DependencyProvider is implemented by assets that reference other assets,
// such as a material referencing its textures.
type DependencyProvider interface {
	Dependencies() []Handle
}

// HandleSetter is implemented by every asset embedding Base. Deserializers
// build assets without knowing their handle, the caller assigns it.
type HandleSetter interface {
	SetHandle(h Handle)
}
