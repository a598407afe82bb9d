// Package assetpack builds and reads EPAP asset packs: one file holding a
// project's scenes, their assets and the compiled app binary, with an index
// table at the front so any asset can be loaded without scanning payloads.
//
// Layout (little-endian, packed):
//
//	FileHeader   "EPAP" | version uint32 | buildVersion uint64
//	IndexTable   appBinaryOffset uint64 | appBinarySize uint64 | sceneCount uint32
//	             per scene, ascending handle:
//	               handle uint64 | offset uint64 | size uint64
//	               assetCount uint32 | (handle uint64 | offset uint64 | size uint64 | type uint16)...
//	Payloads     app binary, then every scene followed by its not yet written assets
package assetpack

import (
	"encoding/binary"
	"maps"
	"slices"

	"github.com/spaghettifunk/epoch/engine/resources"
)

var PackMagic = [4]byte{'E', 'P', 'A', 'P'}

const PackVersion uint32 = 1

type FileHeader struct {
	Magic   [4]byte
	Version uint32
	// BuildVersion is the build time as YYYYMMDDhhmmss.
	BuildVersion uint64
}

// AssetInfo locates one asset payload. A zero size marks an asset that failed to serialize.
type AssetInfo struct {
	PackedOffset uint64
	PackedSize   uint64
	Type         uint16
}

func (a AssetInfo) AssetType() resources.AssetType {
	return resources.AssetType(a.Type)
}

func (a AssetInfo) End() uint64 {
	return a.PackedOffset + a.PackedSize
}

type SceneInfo struct {
	PackedOffset uint64
	PackedSize   uint64
	Assets       map[resources.Handle]AssetInfo
}

func (s *SceneInfo) AddAsset(handle resources.Handle, t resources.AssetType) {
	if _, ok := s.Assets[handle]; ok {
		return
	}
	s.Assets[handle] = AssetInfo{Type: uint16(t)}
}

// AssetHandles returns the scene's assets in index order.
func (s *SceneInfo) AssetHandles() []resources.Handle {
	return slices.Sorted(maps.Keys(s.Assets))
}

type IndexTable struct {
	AppBinaryOffset uint64
	AppBinarySize   uint64
	Scenes          map[resources.Handle]*SceneInfo
}

// File is the in-memory model of a pack's header and index.
type File struct {
	Header FileHeader
	Index  IndexTable
}

func NewFile(buildVersion uint64) *File {
	return &File{
		Header: FileHeader{Magic: PackMagic, Version: PackVersion, BuildVersion: buildVersion},
		Index:  IndexTable{Scenes: map[resources.Handle]*SceneInfo{}},
	}
}

// AddScene returns the scene's entry, creating it if needed.
func (f *File) AddScene(handle resources.Handle) *SceneInfo {
	if s, ok := f.Index.Scenes[handle]; ok {
		return s
	}
	s := &SceneInfo{Assets: map[resources.Handle]AssetInfo{}}
	f.Index.Scenes[handle] = s
	return s
}

func (f *File) SceneHandles() []resources.Handle {
	return slices.Sorted(maps.Keys(f.Index.Scenes))
}

// FindAsset returns the first entry for handle in scene order.
func (f *File) FindAsset(handle resources.Handle) (AssetInfo, bool) {
	for _, sh := range f.SceneHandles() {
		if info, ok := f.Index.Scenes[sh].Assets[handle]; ok {
			return info, true
		}
	}
	return AssetInfo{}, false
}

// UniqueAssets counts distinct asset handles across all scenes.
func (f *File) UniqueAssets() int {
	seen := map[resources.Handle]struct{}{}
	for _, s := range f.Index.Scenes {
		for h := range s.Assets {
			seen[h] = struct{}{}
		}
	}
	return len(seen)
}

var (
	headerSize      = uint64(binary.Size(FileHeader{}))
	assetEntrySize  = uint64(binary.Size(uint64(0)) + binary.Size(AssetInfo{}))
	sceneEntrySize  = uint64(3 * binary.Size(uint64(0)))
	countPrefixSize = uint64(binary.Size(uint32(0)))
)

// HeaderSize is the byte size of FileHeader on disk.
func HeaderSize() uint64 {
	return headerSize
}

// IndexTableSize is the exact number of bytes the index occupies once filled.
// It only depends on the scene count and each scene's asset count.
func (f *File) IndexTableSize() uint64 {
	size := 2*uint64(binary.Size(uint64(0))) + countPrefixSize
	for _, s := range f.Index.Scenes {
		size += sceneEntrySize + countPrefixSize + assetEntrySize*uint64(len(s.Assets))
	}
	return size
}
