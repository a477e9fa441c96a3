package sound

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

type manifest struct {
	Object string          `yaml:"object"`
	Sounds []manifestEntry `yaml:"sounds"`
}

type manifestEntry struct {
	ID   uuid.UUID `yaml:"id"`
	Name string    `yaml:"name"`
	File string    `yaml:"file"`
}

// LoadManifest reads the sound list at path. A missing file yields an empty list.
func LoadManifest(path string) (string, []*Item, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return "", nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	items := make([]*Item, 0, len(m.Sounds))
	for _, e := range m.Sounds {
		id := e.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		items = append(items, &Item{ID: id, FileName: e.File, name: e.Name})
	}
	return m.Object, items, nil
}

// SaveManifest writes the list atomically (temp file + rename).
func SaveManifest(path, object string, items []*Item) error {
	m := manifest{Object: object, Sounds: make([]manifestEntry, 0, len(items))}
	for _, it := range items {
		m.Sounds = append(m.Sounds, manifestEntry{ID: it.ID, Name: it.Name(), File: it.FileName})
	}
	data, err := yaml.Marshal(&m)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".sounds-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close manifest: %w", err)
	}
	return os.Rename(tmpPath, path)
}
