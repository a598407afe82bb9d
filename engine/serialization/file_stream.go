package serialization

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spaghettifunk/epoch/engine/core"
)

// FileStreamWriter writes to a file created (or truncated) at path.
type FileStreamWriter struct {
	path string
	file *os.File
	pos  uint64
	err  error
}

func NewFileStreamWriter(path string) (*FileStreamWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStream, err)
	}
	return &FileStreamWriter{path: path, file: f}, nil
}

func (fw *FileStreamWriter) Write(p []byte) (int, error) {
	if fw.err != nil {
		return 0, fw.err
	}
	n, err := fw.file.Write(p)
	fw.pos += uint64(n)
	if err != nil {
		fw.fail(fmt.Errorf("%w: write %s: %v", core.ErrStream, fw.path, err))
		return n, fw.err
	}
	return n, nil
}

func (fw *FileStreamWriter) Position() uint64 {
	return fw.pos
}

func (fw *FileStreamWriter) SetPosition(pos uint64) error {
	if fw.err != nil {
		return fw.err
	}
	if _, err := fw.file.Seek(int64(pos), io.SeekStart); err != nil {
		fw.fail(fmt.Errorf("%w: seek %s: %v", core.ErrStream, fw.path, err))
		return fw.err
	}
	fw.pos = pos
	return nil
}

func (fw *FileStreamWriter) Good() bool {
	return fw.err == nil
}

func (fw *FileStreamWriter) Err() error {
	return fw.err
}

func (fw *FileStreamWriter) Path() string {
	return fw.path
}

func (fw *FileStreamWriter) fail(err error) {
	if fw.err == nil {
		fw.err = err
	}
}

// Close flushes the file to disk. It reports the sticky stream error if there was one.
func (fw *FileStreamWriter) Close() error {
	syncErr := fw.file.Sync()
	closeErr := fw.file.Close()
	return errors.Join(fw.err, syncErr, closeErr)
}

// FileStreamReader reads a file through positional reads, so it never shares a cursor
// with other readers of the same file.
type FileStreamReader struct {
	path string
	file *os.File
	size uint64
	pos  uint64
	err  error
}

func NewFileStreamReader(path string) (*FileStreamReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStream, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", core.ErrStream, err)
	}
	return &FileStreamReader{path: path, file: f, size: uint64(info.Size())}, nil
}

func (fr *FileStreamReader) Read(p []byte) (int, error) {
	if fr.err != nil {
		return 0, fr.err
	}
	if len(p) == 0 {
		return 0, nil
	}
	n, err := fr.file.ReadAt(p, int64(fr.pos))
	fr.pos += uint64(n)
	if err != nil {
		if errors.Is(err, io.EOF) {
			fr.fail(fmt.Errorf("%w: read past end of %s", core.ErrStream, fr.path))
			return n, io.EOF
		}
		fr.fail(fmt.Errorf("%w: read %s: %v", core.ErrStream, fr.path, err))
		return n, fr.err
	}
	return n, nil
}

func (fr *FileStreamReader) Position() uint64 {
	return fr.pos
}

func (fr *FileStreamReader) SetPosition(pos uint64) error {
	if fr.err != nil {
		return fr.err
	}
	if pos > fr.size {
		fr.fail(fmt.Errorf("%w: seek to %d past end of %s (%d bytes)", core.ErrStream, pos, fr.path, fr.size))
		return fr.err
	}
	fr.pos = pos
	return nil
}

func (fr *FileStreamReader) Size() uint64 {
	return fr.size
}

func (fr *FileStreamReader) Good() bool {
	return fr.err == nil
}

func (fr *FileStreamReader) Err() error {
	return fr.err
}

// Reset clears a sticky error so the reader can serve the next, independent request.
func (fr *FileStreamReader) Reset() {
	fr.err = nil
}

func (fr *FileStreamReader) fail(err error) {
	if fr.err == nil {
		fr.err = err
	}
}

func (fr *FileStreamReader) Close() error {
	return fr.file.Close()
}
