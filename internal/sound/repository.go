package sound

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("sound not found")
	ErrDuplicateName = errors.New("sound name already exists")
	ErrOutOfRange    = errors.New("row index out of range")
)

// Repository is the ordered sound list of one object. Items keep their identity
// across moves. It is safe for concurrent readers.
type Repository struct {
	mu    sync.RWMutex
	items []*Item
}

func NewRepository(items ...*Item) *Repository {
	return &Repository{items: append([]*Item(nil), items...)}
}

func (r *Repository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// At returns the item at row index, or nil when the index is out of range.
func (r *Repository) At(index int) *Item {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.items) {
		return nil
	}
	return r.items[index]
}

// IndexOf returns the row of it, or -1.
func (r *Repository) IndexOf(it *Item) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.indexOf(it)
}

func (r *Repository) indexOf(it *Item) int {
	for i, x := range r.items {
		if x == it {
			return i
		}
	}
	return -1
}

// Lookup finds an item by identity.
func (r *Repository) Lookup(id uuid.UUID) *Item {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, x := range r.items {
		if x.ID == id {
			return x
		}
	}
	return nil
}

// ByFileName finds the item that owns an asset file.
func (r *Repository) ByFileName(fileName string) *Item {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, x := range r.items {
		if x.FileName == fileName {
			return x
		}
	}
	return nil
}

// Items returns a snapshot in insertion order.
func (r *Repository) Items() []*Item {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*Item(nil), r.items...)
}

// Names returns all names in order.
func (r *Repository) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.items))
	for i, x := range r.items {
		names[i] = x.Name()
	}
	return names
}

// Add appends it. Names must be unique.
func (r *Repository) Add(it *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.items {
		if x == it || x.ID == it.ID {
			return fmt.Errorf("add %q: duplicate identity", it.Name())
		}
		if x.Name() == it.Name() {
			return fmt.Errorf("add %q: %w", it.Name(), ErrDuplicateName)
		}
	}
	r.items = append(r.items, it)
	return nil
}

// Remove deletes it from the list.
func (r *Repository) Remove(it *Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.indexOf(it)
	if i < 0 {
		return ErrNotFound
	}
	r.items = append(r.items[:i], r.items[i+1:]...)
	return nil
}

// Move relocates the item at row from to row to.
func (r *Repository) Move(from, to int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.items)
	if from < 0 || from >= n || to < 0 || to >= n {
		return ErrOutOfRange
	}
	if from == to {
		return nil
	}
	it := r.items[from]
	r.items = append(r.items[:from], r.items[from+1:]...)
	r.items = append(r.items[:to], append([]*Item{it}, r.items[to:]...)...)
	return nil
}

// Rename changes the name of it, keeping names unique.
func (r *Repository) Rename(it *Item, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexOf(it) < 0 {
		return ErrNotFound
	}
	for _, x := range r.items {
		if x != it && x.Name() == name {
			return fmt.Errorf("rename to %q: %w", name, ErrDuplicateName)
		}
	}
	it.setName(name)
	return nil
}
