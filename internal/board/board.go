// Package board hosts a sound list: a window of reusable rows over the
// library, with every tap and structural change routed through the playback
// coordinator.
package board

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"soundslot/internal/playback"
	"soundslot/internal/sound"
	"soundslot/pkg/spec"

	"github.com/rs/zerolog"
)

var ErrNoRow = errors.New("no such row")

// Probe returns the duration of the asset at path.
type Probe func(path string) (time.Duration, error)

type Config struct {
	Library *sound.Library
	Engine  playback.Engine
	Icons   playback.IconProvider
	Probe   Probe
	Rows    int
	Details bool
	Log     zerolog.Logger
}

// Detail is the extra row information shown in detail mode.
type Detail struct {
	Duration time.Duration
	Size     int64
}

// RowView is a read-only rendering of one row.
type RowView struct {
	Index   int     `json:"row"`
	Name    string  `json:"name"`
	Icon    string  `json:"icon"`
	Playing bool    `json:"playing"`
	Details *Detail `json:"details,omitempty"`
}

// Event is pushed to the sink after state changes and alerts.
type Event struct {
	Type    string `json:"type"`
	Sound   string `json:"sound,omitempty"`
	Message string `json:"message,omitempty"`
}

type Board struct {
	lib   *sound.Library
	coord *playback.Coordinator
	probe Probe
	log   zerolog.Logger

	mu      sync.Mutex
	rows    []*Row
	offset  int
	details bool
	detail  map[string]Detail
	sink    func(Event)
}

// New creates the board and its coordinator and binds the first rows.
func New(cfg Config) *Board {
	if cfg.Rows <= 0 {
		cfg.Rows = spec.DefaultRows
	}
	b := &Board{
		lib:     cfg.Library,
		probe:   cfg.Probe,
		log:     cfg.Log,
		details: cfg.Details,
		detail:  make(map[string]Detail),
	}
	for i := 0; i < cfg.Rows; i++ {
		b.rows = append(b.rows, newRow())
	}
	b.coord = playback.New(playback.Config{
		Repo:    cfg.Library.Repo,
		Engine:  cfg.Engine,
		Icons:   cfg.Icons,
		Alerter: b,
		Owner:   cfg.Library.Object(),
		Dir:     cfg.Library.Dir(),
		Log:     cfg.Log.With().Str("component", "playback").Logger(),
	})
	b.refresh()
	return b
}

// SetSink registers the event receiver; nil disables events.
func (b *Board) SetSink(sink func(Event)) {
	b.mu.Lock()
	b.sink = sink
	b.mu.Unlock()
}

// Completed is the engine completion handler.
func (b *Board) Completed(fileName, ownerKey string, interrupted bool) {
	b.coord.OnCompletion(playback.Completion{FileName: fileName, OwnerKey: ownerKey, Interrupted: interrupted})
	b.emit("STATUS", "")
}

// Alert presents a playback failure.
func (b *Board) Alert(err error) {
	b.log.Warn().Err(err).Msg("alert")
	b.emit("ALERT", err.Error())
}

// Snapshot returns the playback state.
func (b *Board) Snapshot() playback.Snapshot { return b.coord.Snapshot() }

// Close stops all sounds and the coordinator.
func (b *Board) Close() {
	b.coord.Close()
}

// ======================================================
// Interaction
// ======================================================

// Tap toggles the sound at absolute row index. A row outside the visible
// window is toggled without a visual handle.
func (b *Board) Tap(index int) error {
	it := b.lib.Repo.At(index)
	if it == nil {
		return fmt.Errorf("%w: %d", ErrNoRow, index)
	}
	b.coord.Toggle(it, b.handleFor(it))
	b.emit("STATUS", "")
	return nil
}

// Stop silences everything.
func (b *Board) Stop() {
	b.coord.StopAll()
	b.emit("STOPPED", "")
}

// Scroll moves the window so that offset is the first visible row.
func (b *Board) Scroll(offset int) int {
	b.mu.Lock()
	b.offset = b.clamp(offset)
	offset = b.offset
	b.mu.Unlock()
	b.refresh()
	return offset
}

// SetDetails toggles detail mode.
func (b *Board) SetDetails(on bool) {
	b.mu.Lock()
	b.details = on
	b.mu.Unlock()
}

// ======================================================
// Structural changes
// ======================================================

// Remove deletes the sounds at the given rows. Rows already gone are skipped.
func (b *Board) Remove(indexes ...int) error {
	var items []*sound.Item
	for _, i := range indexes {
		if it := b.lib.Repo.At(i); it != nil {
			items = append(items, it)
		}
	}
	defer b.refresh()
	for _, it := range items {
		it := it
		err := b.coord.OnRepositoryMutated(it, func() error {
			return b.lib.Remove(it)
		})
		if errors.Is(err, sound.ErrNotFound) {
			b.log.Debug().Str("sound", it.Name()).Msg("already removed")
			continue
		}
		if err != nil {
			return err
		}
		b.forget(it.FileName)
		b.emit("REMOVED", it.Name())
	}
	return nil
}

// Move relocates a row. Out of range indexes and moves onto the same row leave
// playback untouched.
func (b *Board) Move(from, to int) error {
	it := b.lib.Repo.At(from)
	if it == nil {
		return fmt.Errorf("%w: %d", ErrNoRow, from)
	}
	if to < 0 || to >= b.lib.Repo.Len() {
		return fmt.Errorf("%w: %d", ErrNoRow, to)
	}
	if from == to {
		return nil
	}
	defer b.refresh()
	if err := b.coord.OnRepositoryMutated(it, func() error {
		return b.lib.Move(from, to)
	}); err != nil {
		return err
	}
	b.emit("MOVED", it.Name())
	return nil
}

// Rename gives the sound at index a new unique name and returns it.
func (b *Board) Rename(index int, name string) (string, error) {
	it := b.lib.Repo.At(index)
	if it == nil {
		return "", fmt.Errorf("%w: %d", ErrNoRow, index)
	}
	if err := b.lib.Rename(it, name); err != nil {
		return "", err
	}
	return it.Name(), nil
}

// Copy duplicates the sound at index under a unique name.
func (b *Board) Copy(index int) (*sound.Item, error) {
	it := b.lib.Repo.At(index)
	if it == nil {
		return nil, fmt.Errorf("%w: %d", ErrNoRow, index)
	}
	cp, err := b.lib.Copy(it)
	if err != nil {
		return nil, err
	}
	b.refresh()
	return cp, nil
}

// Add imports the file at path, named after its base name.
func (b *Board) Add(path string) (*sound.Item, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	it, err := b.lib.Import(path, name)
	if err != nil {
		return nil, err
	}
	b.refresh()
	return it, nil
}

// ======================================================
// Views
// ======================================================

// Visible returns the rows in the window.
func (b *Board) Visible() []RowView {
	b.mu.Lock()
	rows := append([]*Row(nil), b.rows...)
	details := b.details
	b.mu.Unlock()

	var out []RowView
	for _, r := range rows {
		it := r.Item()
		if it == nil {
			continue
		}
		v := RowView{Index: r.Binding().Index, Name: it.Name(), Icon: r.Icon(), Playing: it.Playing()}
		if details {
			d := b.detailOf(it)
			v.Details = &d
		}
		out = append(out, v)
	}
	return out
}

// All lists every sound; icons follow the playing flag.
func (b *Board) All() []RowView {
	b.mu.Lock()
	details := b.details
	b.mu.Unlock()

	items := b.lib.Repo.Items()
	out := make([]RowView, 0, len(items))
	for i, it := range items {
		v := RowView{Index: i, Name: it.Name(), Icon: spec.IconPlay, Playing: it.Playing()}
		if v.Playing {
			v.Icon = spec.IconPause
		}
		if details {
			d := b.detailOf(it)
			v.Details = &d
		}
		out = append(out, v)
	}
	return out
}

// Offset is the first visible row.
func (b *Board) Offset() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.offset
}

// ======================================================
// Internals
// ======================================================

// refresh rebinds rows to the current window and lets the coordinator paint
// them. The coordinator is called without b.mu held.
func (b *Board) refresh() {
	type bound struct {
		row  *Row
		item *sound.Item
	}
	var rebound []bound

	b.mu.Lock()
	b.offset = b.clamp(b.offset)
	for i, r := range b.rows {
		it := b.lib.Repo.At(b.offset + i)
		if r.rebind(b.offset+i, it) && it != nil {
			rebound = append(rebound, bound{r, it})
		}
	}
	b.mu.Unlock()

	for _, x := range rebound {
		b.coord.Bind(x.item, playback.NewHandle(x.row))
	}
}

func (b *Board) clamp(offset int) int {
	last := b.lib.Repo.Len() - len(b.rows)
	if offset > last {
		offset = last
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

func (b *Board) handleFor(it *sound.Item) *playback.VisualHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.rows {
		if r.Item() == it {
			return playback.NewHandle(r)
		}
	}
	return nil
}

func (b *Board) detailOf(it *sound.Item) Detail {
	b.mu.Lock()
	d, ok := b.detail[it.FileName]
	b.mu.Unlock()
	if ok {
		return d
	}

	if size, err := b.lib.Size(it); err == nil {
		d.Size = size
	}
	if b.probe != nil {
		if dur, err := b.probe(b.lib.Path(it)); err == nil {
			d.Duration = dur
		} else {
			b.log.Debug().Err(err).Str("file", it.FileName).Msg("no duration")
		}
	}

	b.mu.Lock()
	b.detail[it.FileName] = d
	b.mu.Unlock()
	return d
}

func (b *Board) forget(fileName string) {
	b.mu.Lock()
	delete(b.detail, fileName)
	b.mu.Unlock()
}

func (b *Board) emit(kind, message string) {
	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()
	if sink == nil {
		return
	}
	ev := Event{Type: kind, Message: message}
	if snap := b.coord.Snapshot(); snap.Active != nil {
		ev.Sound = snap.Active.Name()
	}
	sink(ev)
}
