package sound

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"soundslot/pkg/spec"

	"github.com/rs/zerolog"
)

// Library binds a Repository to its asset directory and manifest file.
// Callers that play sounds must route Remove and Move through the playback
// coordinator so the active sound is reconciled first.
type Library struct {
	Repo *Repository

	mu        sync.Mutex // serializes file + manifest writes
	object    string
	soundsDir string
	manifest  string
	log       zerolog.Logger
}

// OpenLibrary loads the manifest (if any) and returns the library.
func OpenLibrary(object, soundsDir, manifestPath string, log zerolog.Logger) (*Library, error) {
	name, items, err := LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	if name != "" {
		object = name
	}
	if err := os.MkdirAll(soundsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create sounds dir: %w", err)
	}
	return &Library{
		Repo:      NewRepository(items...),
		object:    object,
		soundsDir: soundsDir,
		manifest:  manifestPath,
		log:       log,
	}, nil
}

// Object is the owner key of this sound list.
func (l *Library) Object() string { return l.object }

// Dir is the directory holding the asset files.
func (l *Library) Dir() string { return l.soundsDir }

// Path returns the on-disk location of an item's asset.
func (l *Library) Path(it *Item) string {
	return filepath.Join(l.soundsDir, it.FileName)
}

// Import copies the file at src into the sounds directory under a content
// hashed file name and appends a new item with a unique name.
func (l *Library) Import(src, name string) (*Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src, err)
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	}
	name = UniqueName(name, l.Repo.Names())
	fileName := assetFileName(data, name, filepath.Ext(src))

	if err := os.WriteFile(filepath.Join(l.soundsDir, fileName), data, 0o644); err != nil {
		return nil, fmt.Errorf("store %s: %w", fileName, err)
	}
	it := NewItem(name, fileName)
	if err := l.Repo.Add(it); err != nil {
		return nil, err
	}
	l.log.Info().Str("sound", name).Str("file", fileName).Msg("sound imported")
	return it, l.save()
}

// Copy duplicates src under a unique name with its own asset file.
func (l *Library) Copy(src *Item) (*Item, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.Repo.IndexOf(src) < 0 {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(l.soundsDir, src.FileName))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.FileName, err)
	}
	name := UniqueName(src.Name(), l.Repo.Names())
	fileName := assetFileName(data, name, filepath.Ext(src.FileName))
	if err := os.WriteFile(filepath.Join(l.soundsDir, fileName), data, 0o644); err != nil {
		return nil, fmt.Errorf("store %s: %w", fileName, err)
	}
	it := NewItem(name, fileName)
	if err := l.Repo.Add(it); err != nil {
		return nil, err
	}
	return it, l.save()
}

// Rename gives it a new unique name. Renaming to the current name is a no-op.
func (l *Library) Rename(it *Item, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if name == it.Name() {
		return nil
	}
	others := make([]string, 0, l.Repo.Len())
	for _, n := range l.Repo.Names() {
		if n != it.Name() {
			others = append(others, n)
		}
	}
	if err := l.Repo.Rename(it, UniqueName(name, others)); err != nil {
		return err
	}
	return l.save()
}

// Remove deletes items from the list and their asset files.
func (l *Library) Remove(items ...*Item) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, it := range items {
		if err := l.Repo.Remove(it); err != nil {
			return fmt.Errorf("remove %q: %w", it.Name(), err)
		}
		if l.Repo.ByFileName(it.FileName) != nil {
			continue
		}
		if err := os.Remove(filepath.Join(l.soundsDir, it.FileName)); err != nil && !os.IsNotExist(err) {
			l.log.Warn().Err(err).Str("file", it.FileName).Msg("asset not removed")
		}
	}
	return l.save()
}

// Move relocates a row and persists the new order.
func (l *Library) Move(from, to int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.Repo.Move(from, to); err != nil {
		return err
	}
	return l.save()
}

// Size returns the asset size in bytes.
func (l *Library) Size(it *Item) (int64, error) {
	fi, err := os.Stat(l.Path(it))
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Open opens the asset for reading.
func (l *Library) Open(it *Item) (io.ReadCloser, error) {
	return os.Open(l.Path(it))
}

func (l *Library) save() error {
	if err := SaveManifest(l.manifest, l.object, l.Repo.Items()); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	return nil
}

func assetFileName(data []byte, name, ext string) string {
	sum := md5.Sum(data)
	return strings.ToUpper(hex.EncodeToString(sum[:])) + spec.FileNameSeparator + name + strings.ToLower(ext)
}
