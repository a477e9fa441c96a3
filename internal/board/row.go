package board

import (
	"sync"

	"soundslot/internal/icons"
	"soundslot/internal/playback"
	"soundslot/internal/sound"
	"soundslot/pkg/spec"

	"github.com/google/uuid"
)

// Row is one visible row. Rows are reused as the board scrolls; every rebind
// bumps the generation so handles taken before it go stale.
type Row struct {
	mu   sync.Mutex
	bind playback.Binding
	item *sound.Item
	icon string
}

func newRow() *Row {
	return &Row{bind: playback.Binding{Index: -1}, icon: spec.IconPlay}
}

func (r *Row) Binding() playback.Binding {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bind
}

func (r *Row) SetIcon(ic icons.Icon) {
	r.mu.Lock()
	r.icon = ic.Name
	r.mu.Unlock()
}

// Icon is the name of the icon the row currently shows.
func (r *Row) Icon() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.icon
}

func (r *Row) Item() *sound.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.item
}

// rebind shows it at index. It reports false when the row already shows it there.
func (r *Row) rebind(index int, it *sound.Item) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.Nil
	if it != nil {
		id = it.ID
	} else {
		index = -1
	}
	if r.item == it && r.bind.Index == index {
		return false
	}
	r.item = it
	r.bind = playback.Binding{Index: index, ID: id, Generation: r.bind.Generation + 1}
	return true
}
