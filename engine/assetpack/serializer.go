package assetpack

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/dustin/go-humanize"

	"github.com/spaghettifunk/epoch/engine/core"
	"github.com/spaghettifunk/epoch/engine/resources"
	"github.com/spaghettifunk/epoch/engine/serialization"
)

// SerializeResult summarizes a written pack.
type SerializeResult struct {
	// UniqueAssets is the number of distinct assets written (failed ones included).
	UniqueAssets int
	// Failed lists scenes and assets whose chunk could not be written. Their
	// index entries have a zero size.
	Failed []resources.Handle
	Size   uint64
}

// Serializer writes a complete pack from a planned File.
type Serializer struct {
	registry *Registry
	source   AssetSource
}

func NewSerializer(registry *Registry, source AssetSource) *Serializer {
	return &Serializer{registry: registry, source: source}
}

type sceneEntry struct {
	Handle       uint64
	PackedOffset uint64
	PackedSize   uint64
}

func isFatal(w serialization.Writer, err error) bool {
	return errors.Is(err, core.ErrStream) || !w.Good()
}

// Serialize writes header, reserved index, app binary and every scene with its
// assets, then seeks back and fills the index. Each asset is written once no
// matter how many scenes reference it. A stream failure aborts; a single
// asset that fails is logged, left with a zero size and the build goes on.
func (s *Serializer) Serialize(w serialization.Writer, file *File, appBinary []byte, progress *Progress) (*SerializeResult, error) {
	if err := serialization.WriteRaw(w, &file.Header); err != nil {
		return nil, err
	}

	indexPos := w.Position()
	indexSize := file.IndexTableSize()
	if err := serialization.WriteZero(w, indexSize); err != nil {
		return nil, err
	}

	file.Index.AppBinaryOffset = w.Position()
	if err := serialization.WriteBuffer(w, appBinary); err != nil {
		return nil, err
	}
	file.Index.AppBinarySize = w.Position() - file.Index.AppBinaryOffset

	scenes := file.SceneHandles()
	increment := 0.0
	if len(scenes) > 0 {
		increment = 0.4 / float64(len(scenes))
	}

	serialized := map[resources.Handle]SerializationInfo{}
	var failed []resources.Handle

	for _, sh := range scenes {
		si := file.Index.Scenes[sh]
		info, err := s.registry.SerializeToAssetPack(sh, resources.AssetTypeScene, w, s.source)
		if err != nil {
			if isFatal(w, err) {
				return nil, err
			}
			core.LogError("failed to serialize scene %d to asset pack: %s", sh, err)
			failed = append(failed, sh)
		}
		si.PackedOffset, si.PackedSize = info.Offset, info.Size

		for _, ah := range si.AssetHandles() {
			ai := si.Assets[ah]
			done, ok := serialized[ah]
			if !ok {
				done, err = s.registry.SerializeToAssetPack(ah, ai.AssetType(), w, s.source)
				if err != nil {
					if isFatal(w, err) {
						return nil, err
					}
					core.LogError("failed to serialize asset %d (%s) to asset pack: %s", ah, ai.AssetType(), err)
					failed = append(failed, ah)
				}
				serialized[ah] = done
			}
			ai.PackedOffset, ai.PackedSize = done.Offset, done.Size
			si.Assets[ah] = ai
		}
		progress.Add(increment)
	}

	end := w.Position()
	if err := w.SetPosition(indexPos); err != nil {
		return nil, err
	}
	if err := writeIndex(w, &file.Index); err != nil {
		return nil, err
	}
	if written := w.Position() - indexPos; written != indexSize {
		return nil, fmt.Errorf("index table took %d bytes, %d were reserved", written, indexSize)
	}
	if err := w.SetPosition(end); err != nil {
		return nil, err
	}

	slices.Sort(failed)
	core.LogInfo("serialized %d assets in %d scenes into asset pack (%s)", len(serialized), len(scenes), humanize.IBytes(end))
	return &SerializeResult{UniqueAssets: len(serialized), Failed: failed, Size: end}, nil
}

// SerializeToFile writes the pack to path. A pack that failed with a stream
// error is removed again.
func (s *Serializer) SerializeToFile(path string, file *File, appBinary []byte, progress *Progress) (*SerializeResult, error) {
	core.LogInfo("serializing asset pack to %s", path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	w, err := serialization.NewFileStreamWriter(path)
	if err != nil {
		return nil, err
	}
	result, err := s.Serialize(w, file, appBinary, progress)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return result, nil
}

func writeIndex(w serialization.Writer, idx *IndexTable) error {
	if err := serialization.WriteRaw(w, idx.AppBinaryOffset); err != nil {
		return err
	}
	if err := serialization.WriteRaw(w, idx.AppBinarySize); err != nil {
		return err
	}
	if err := serialization.WriteRaw(w, uint32(len(idx.Scenes))); err != nil {
		return err
	}
	for _, sh := range slices.Sorted(maps.Keys(idx.Scenes)) {
		si := idx.Scenes[sh]
		entry := sceneEntry{Handle: uint64(sh), PackedOffset: si.PackedOffset, PackedSize: si.PackedSize}
		if err := serialization.WriteRaw(w, &entry); err != nil {
			return err
		}
		if err := serialization.WriteMap(w, si.Assets); err != nil {
			return err
		}
	}
	return nil
}

// DeserializeIndex reads the header and index table only. A wrong magic or
// version, a truncated index, or an entry pointing outside the stream is a
// core.ErrFormat.
func DeserializeIndex(r serialization.Reader) (*File, error) {
	if err := r.SetPosition(0); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrFormat, err)
	}
	var header FileHeader
	if err := serialization.ReadRaw(r, &header); err != nil {
		return nil, fmt.Errorf("%w: reading header: %w", core.ErrFormat, err)
	}
	if header.Magic != PackMagic {
		return nil, fmt.Errorf("%w: bad asset pack magic %q", core.ErrFormat, header.Magic[:])
	}
	if header.Version != PackVersion {
		return nil, fmt.Errorf("%w: unsupported asset pack version %d", core.ErrFormat, header.Version)
	}

	file := &File{Header: header, Index: IndexTable{Scenes: map[resources.Handle]*SceneInfo{}}}
	idx := &file.Index
	if err := serialization.ReadRaw(r, &idx.AppBinaryOffset); err != nil {
		return nil, fmt.Errorf("%w: reading index: %w", core.ErrFormat, err)
	}
	if err := serialization.ReadRaw(r, &idx.AppBinarySize); err != nil {
		return nil, fmt.Errorf("%w: reading index: %w", core.ErrFormat, err)
	}
	var sceneCount uint32
	if err := serialization.ReadRaw(r, &sceneCount); err != nil {
		return nil, fmt.Errorf("%w: reading index: %w", core.ErrFormat, err)
	}
	if need := uint64(sceneCount) * (sceneEntrySize + countPrefixSize); need > r.Size()-r.Position() {
		return nil, fmt.Errorf("%w: index declares %d scenes, pack too small", core.ErrFormat, sceneCount)
	}
	for i := uint32(0); i < sceneCount; i++ {
		var entry sceneEntry
		if err := serialization.ReadRaw(r, &entry); err != nil {
			return nil, fmt.Errorf("%w: reading scene entry: %w", core.ErrFormat, err)
		}
		assets, err := serialization.ReadMap[resources.Handle, AssetInfo](r)
		if err != nil {
			return nil, fmt.Errorf("%w: reading scene %d assets: %w", core.ErrFormat, entry.Handle, err)
		}
		h := resources.Handle(entry.Handle)
		if _, dup := idx.Scenes[h]; dup {
			return nil, fmt.Errorf("%w: scene %d listed twice", core.ErrFormat, h)
		}
		idx.Scenes[h] = &SceneInfo{PackedOffset: entry.PackedOffset, PackedSize: entry.PackedSize, Assets: assets}
	}

	if err := checkRanges(file, r.Size()); err != nil {
		return nil, err
	}
	return file, nil
}

func checkRange(what string, offset, size, limit uint64) error {
	if offset+size < offset || offset+size > limit {
		return fmt.Errorf("%w: %s [%d, %d) outside of %d byte pack", core.ErrFormat, what, offset, offset+size, limit)
	}
	return nil
}

func checkRanges(file *File, limit uint64) error {
	idx := &file.Index
	if err := checkRange("app binary", idx.AppBinaryOffset, idx.AppBinarySize, limit); err != nil {
		return err
	}
	for sh, si := range idx.Scenes {
		if err := checkRange(fmt.Sprintf("scene %d", sh), si.PackedOffset, si.PackedSize, limit); err != nil {
			return err
		}
		for ah, ai := range si.Assets {
			if err := checkRange(fmt.Sprintf("asset %d", ah), ai.PackedOffset, ai.PackedSize, limit); err != nil {
				return err
			}
		}
	}
	return nil
}
