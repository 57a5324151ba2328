package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// diskMetaExt is appended to the payload name for the metadata sidecar
const diskMetaExt = ".meta"

// DiskStore keeps payloads as files under a dedicated directory. The ref is
// the generated file name, never a caller-supplied path.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob directory %s: %w", dir, err)
	}
	return &DiskStore{dir: dir}, nil
}

// Put writes the payload through a temp file, fsyncs and renames so the
// returned ref always points at fully written bytes.
func (s *DiskStore) Put(ctx context.Context, data []byte, contentType, filename string) (string, error) {
	ref := storageName(filename)
	fullPath := filepath.Join(s.dir, ref)

	if err := writeDurable(fullPath, data); err != nil {
		return "", err
	}

	// Sidecar carries the original filename and content type
	meta := fmt.Sprintf("%s\n%s\n", contentType, filepath.Base(filename))
	if err := writeDurable(fullPath+diskMetaExt, []byte(meta)); err != nil {
		os.Remove(fullPath)
		return "", err
	}

	return ref, nil
}

func (s *DiskStore) Get(ctx context.Context, ref string) (*Blob, error) {
	if !validRef(ref) {
		return nil, ErrNotFound
	}
	fullPath := filepath.Join(s.dir, ref)

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	contentType, filename := "", ref
	if raw, err := os.ReadFile(fullPath + diskMetaExt); err == nil {
		lines := strings.SplitN(string(raw), "\n", 3)
		if len(lines) > 0 {
			contentType = lines[0]
		}
		if len(lines) > 1 && lines[1] != "" {
			filename = lines[1]
		}
	}

	return &Blob{
		Data:        data,
		ContentType: contentType,
		Filename:    filename,
		Size:        int64(len(data)),
	}, nil
}

func (s *DiskStore) Delete(ctx context.Context, ref string) error {
	if !validRef(ref) {
		return nil
	}
	fullPath := filepath.Join(s.dir, ref)
	os.Remove(fullPath + diskMetaExt)
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// DeleteOrphans removes payload files older than minAge whose name is not in
// refs. Sidecars and temp files are cleaned up alongside.
func (s *DiskStore) DeleteOrphans(ctx context.Context, refs map[string]bool, minAge time.Duration) (int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-minAge)

	var deleted int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, diskMetaExt) || strings.HasSuffix(name, ".tmp") {
			continue
		}
		if refs[name] {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err == nil {
			os.Remove(filepath.Join(s.dir, name+diskMetaExt))
			deleted++
		}
	}
	return deleted, nil
}

// storageName builds a collision-resistant file name: timestamp, random
// suffix, original extension
func storageName(filename string) string {
	ext := filepath.Ext(filepath.Base(filename))
	if len(ext) > 16 {
		ext = ""
	}
	return fmt.Sprintf("%d_%s%s", time.Now().UnixNano(), uuid.NewString(), ext)
}

// validRef rejects anything that is not a bare generated file name
func validRef(ref string) bool {
	if ref == "" || ref != filepath.Base(ref) {
		return false
	}
	return !strings.Contains(ref, "..")
}

// writeDurable writes via temp file, fsync and atomic rename
func writeDurable(path string, data []byte) error {
	tmpPath := path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing payload: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming into place: %w", err)
	}

	return nil
}
