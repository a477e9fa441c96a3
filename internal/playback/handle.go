package playback

import (
	"soundslot/internal/icons"

	"github.com/google/uuid"
)

// Binding identifies what a row is currently showing. Generation changes every
// time the row is rebound, so a binding never repeats once the row is reused.
type Binding struct {
	Index      int
	ID         uuid.UUID
	Generation uint64
}

// IconSlot is the icon display of one list row, owned by the host.
type IconSlot interface {
	Binding() Binding
	SetIcon(icons.Icon)
}

// VisualHandle is a non-owning reference to a row's icon slot, valid only
// while the row keeps the binding it had when the handle was created.
type VisualHandle struct {
	slot  IconSlot
	bound Binding
}

// NewHandle captures the slot's current binding.
func NewHandle(slot IconSlot) *VisualHandle {
	return &VisualHandle{slot: slot, bound: slot.Binding()}
}

// Binding is the binding captured at creation.
func (h *VisualHandle) Binding() Binding { return h.bound }

// Valid reports whether the row still shows what the handle was created for.
func (h *VisualHandle) Valid() bool {
	return h != nil && h.slot != nil && h.slot.Binding() == h.bound
}

// apply sets the icon if the handle is still valid.
func (h *VisualHandle) apply(ic icons.Icon) bool {
	if !h.Valid() {
		return false
	}
	h.slot.SetIcon(ic)
	return true
}

func sameRow(a, b *VisualHandle) bool {
	if a == nil || b == nil {
		return false
	}
	return a.slot == b.slot && a.bound == b.bound
}
