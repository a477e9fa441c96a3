// Package sound holds the sound items of one object and the ordered repository
// that owns them.
package sound

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Item is one playable sound asset. ID and FileName are fixed for the lifetime
// of the item; the name is unique within a repository and may be renamed.
type Item struct {
	ID       uuid.UUID
	FileName string

	mu      sync.RWMutex
	name    string
	playing atomic.Bool
}

// NewItem creates an item with a fresh identity.
func NewItem(name, fileName string) *Item {
	return &Item{ID: uuid.New(), FileName: fileName, name: name}
}

func (it *Item) Name() string {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return it.name
}

func (it *Item) setName(name string) {
	it.mu.Lock()
	it.name = name
	it.mu.Unlock()
}

// Playing reports whether the item is the active sound.
func (it *Item) Playing() bool { return it.playing.Load() }

// SetPlaying is written only by the playback coordinator, under its lock.
func (it *Item) SetPlaying(v bool) { it.playing.Store(v) }
