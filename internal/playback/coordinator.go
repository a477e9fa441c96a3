// Package playback coordinates the single playback slot of a sound list.
//
// At most one sound is playing at a time. Toggle, StopAll and
// OnRepositoryMutated are called from the host UI; OnCompletion is called by
// the audio engine from any goroutine. Logical and visual state is updated
// synchronously under the playback lock, and the matching engine work is
// handed to a single worker goroutine that never runs under that lock.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"soundslot/internal/icons"
	"soundslot/internal/sound"
	"soundslot/pkg/spec"

	"github.com/rs/zerolog"
)

// ErrUnplayable is surfaced through the Alerter when the engine rejects a sound.
var ErrUnplayable = errors.New("unable to play sound")

// Engine is the audio engine as seen by the coordinator.
type Engine interface {
	StopAll()
	// Play starts fileName from dir and reports whether the request was accepted.
	// Accepted requests are followed by exactly one Completion carrying ownerKey.
	Play(fileName, ownerKey, dir string) bool
}

// IconProvider resolves icon bitmaps by name.
type IconProvider interface {
	Cached(name string) (icons.Icon, bool)
	Load(name string, onResolved func(icons.Icon, error))
}

// Repository is the part of the sound list the coordinator reads.
type Repository interface {
	IndexOf(it *sound.Item) int
}

// Alerter presents user-visible failures.
type Alerter interface {
	Alert(err error)
}

type noopAlerter struct{}

func (noopAlerter) Alert(error) {}

// Config wires the coordinator's collaborators.
type Config struct {
	Repo    Repository
	Engine  Engine
	Icons   IconProvider
	Alerter Alerter
	// Owner prefixes the owner key of every play request.
	Owner string
	// Dir is the directory holding the sound assets.
	Dir string
	Log zerolog.Logger
}

// intent is the engine work decided by one state transition.
type intent struct {
	seq      uint64
	play     bool
	item     *sound.Item
	fileName string
	ownerKey string
}

type iconRequest struct {
	handle *VisualHandle
	name   string
}

// Coordinator owns the playback state. Create it with New and release it with Close.
type Coordinator struct {
	mu           sync.Mutex // the playback lock
	active       *sound.Item
	activeHandle *VisualHandle
	liveKey      string
	seq          uint64
	pending      *intent
	misses       []iconRequest

	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
	closed sync.Once

	repo    Repository
	engine  Engine
	icons   IconProvider
	alerter Alerter
	owner   string
	dir     string
	log     zerolog.Logger
}

// New creates an idle coordinator and starts its engine worker.
func New(cfg Config) *Coordinator {
	if cfg.Alerter == nil {
		cfg.Alerter = noopAlerter{}
	}
	if cfg.Owner == "" {
		cfg.Owner = spec.AppName
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		wake:    make(chan struct{}, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
		repo:    cfg.Repo,
		engine:  cfg.Engine,
		icons:   cfg.Icons,
		alerter: cfg.Alerter,
		owner:   cfg.Owner,
		dir:     cfg.Dir,
		log:     cfg.Log,
	}
	go c.run(ctx)
	return c
}

// ======================================================
// Host operations
// ======================================================

// Toggle starts item, or stops it when it is the active sound. Starting an
// item while another one plays switches to it. Toggle is a no-op when item
// is no longer in the repository or handle is stale or bound to another item.
func (c *Coordinator) Toggle(item *sound.Item, handle *VisualHandle) {
	c.resolve(c.toggle(item, handle))
}

func (c *Coordinator) toggle(item *sound.Item, handle *VisualHandle) []iconRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item == nil || c.repo.IndexOf(item) < 0 {
		c.log.Debug().Msg("toggle for a sound no longer listed, ignored")
		return nil
	}
	if handle != nil && (!handle.Valid() || handle.Binding().ID != item.ID) {
		c.log.Debug().Str("sound", item.Name()).Msg("toggle from a stale row, ignored")
		return nil
	}

	wasPlaying := c.active == item
	prevHandle := c.activeHandle
	c.deactivate()

	if wasPlaying {
		if !sameRow(prevHandle, handle) {
			c.setIcon(handle, spec.IconPlay)
		}
		c.post(intent{seq: c.seq})
		return c.takeMisses()
	}

	c.active = item
	c.activeHandle = handle
	c.liveKey = fmt.Sprintf("%s#%d", c.owner, c.seq)
	item.SetPlaying(true)
	c.setIcon(handle, spec.IconPause)

	c.post(intent{
		seq:      c.seq,
		play:     true,
		item:     item,
		fileName: item.FileName,
		ownerKey: c.liveKey,
	})
	c.log.Debug().Str("sound", item.Name()).Str("owner_key", c.liveKey).Msg("play requested")
	return c.takeMisses()
}

// StopAll returns to Idle and silences the engine, whatever the current state.
func (c *Coordinator) StopAll() {
	c.resolve(c.stopAll())
}

func (c *Coordinator) stopAll() []iconRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deactivate()
	c.post(intent{seq: c.seq})
	return c.takeMisses()
}

// OnRepositoryMutated must wrap every removal or relocation of item. When item
// is the active sound the coordinator returns to Idle first. mutate, if not
// nil, runs under the playback lock so the structural change is atomic with
// respect to Toggle; it must not call back into the coordinator.
func (c *Coordinator) OnRepositoryMutated(item *sound.Item, mutate func() error) error {
	reqs, err := c.mutated(item, mutate)
	c.resolve(reqs)
	return err
}

func (c *Coordinator) mutated(item *sound.Item, mutate func() error) ([]iconRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item != nil && c.active == item {
		c.log.Debug().Str("sound", item.Name()).Msg("active sound mutated, stopping")
		c.deactivate()
		c.post(intent{seq: c.seq})
	}
	var err error
	if mutate != nil {
		err = mutate()
	}
	return c.takeMisses(), err
}

// OnCompletion is the engine's entry point. Completions that do not belong to
// the live play request are discarded.
func (c *Coordinator) OnCompletion(done Completion) {
	c.resolve(c.complete(done))
}

func (c *Coordinator) complete(done Completion) []iconRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil || done.OwnerKey != c.liveKey || done.FileName != c.active.FileName {
		c.log.Debug().
			Str("file", done.FileName).
			Str("owner_key", done.OwnerKey).
			Msg("stale completion discarded")
		return nil
	}
	c.log.Debug().
		Str("sound", c.active.Name()).
		Bool("interrupted", done.Interrupted).
		Msg("playback finished")
	c.deactivate()
	return c.takeMisses()
}

// Snapshot returns the current state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return Snapshot{State: Idle}
	}
	return Snapshot{State: Playing, Active: c.active, Handle: c.activeHandle}
}

// Bind applies the icon a freshly bound row should show. A row bound to the
// active sound becomes its visual handle, so later transitions update the row
// that is actually on screen.
func (c *Coordinator) Bind(item *sound.Item, handle *VisualHandle) {
	c.resolve(c.bind(item, handle))
}

func (c *Coordinator) bind(item *sound.Item, handle *VisualHandle) []iconRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item == nil || !handle.Valid() || handle.Binding().ID != item.ID {
		return nil
	}
	name := spec.IconPlay
	if c.active != nil && c.active == item {
		c.activeHandle = handle
		name = spec.IconPause
	}
	c.setIcon(handle, name)
	return c.takeMisses()
}

// Close resets to Idle, silences the engine and stops the worker.
func (c *Coordinator) Close() {
	c.closed.Do(func() {
		c.resolve(c.stopAll())
		c.cancel()
		<-c.done
		c.engine.StopAll()
	})
}

// ======================================================
// State helpers (caller holds c.mu)
// ======================================================

// deactivate clears the active sound, reverts its icon and invalidates any
// dispatched intent.
func (c *Coordinator) deactivate() {
	c.seq++
	if c.active == nil {
		return
	}
	c.active.SetPlaying(false)
	c.setIcon(c.activeHandle, spec.IconPlay)
	c.active = nil
	c.activeHandle = nil
	c.liveKey = ""
}

func (c *Coordinator) wantIcon(handle *VisualHandle) string {
	if c.active != nil && sameRow(c.activeHandle, handle) {
		return spec.IconPause
	}
	return spec.IconPlay
}

// setIcon applies a cached icon immediately; misses are resolved after the
// lock is released.
func (c *Coordinator) setIcon(handle *VisualHandle, name string) {
	if !handle.Valid() {
		return
	}
	if ic, ok := c.icons.Cached(name); ok {
		handle.apply(ic)
		return
	}
	c.misses = append(c.misses, iconRequest{handle: handle, name: name})
}

func (c *Coordinator) takeMisses() []iconRequest {
	reqs := c.misses
	c.misses = nil
	return reqs
}

// post replaces any undispatched intent; each intent describes the complete
// desired engine state, so only the latest one needs to run.
func (c *Coordinator) post(in intent) {
	c.pending = &in
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// ======================================================
// Outside the lock
// ======================================================

func (c *Coordinator) resolve(reqs []iconRequest) {
	for _, r := range reqs {
		r := r
		c.icons.Load(r.name, func(ic icons.Icon, err error) {
			if err != nil {
				c.log.Warn().Err(err).Str("icon", r.name).Msg("icon not resolved")
				return
			}
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.wantIcon(r.handle) != r.name {
				return
			}
			r.handle.apply(ic)
		})
	}
}

// run is the engine worker: the only goroutine that calls StopAll/Play.
func (c *Coordinator) run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.wake:
		}

		c.mu.Lock()
		in := c.pending
		c.pending = nil
		c.mu.Unlock()

		if in != nil {
			c.dispatch(in)
		}
	}
}

func (c *Coordinator) dispatch(in *intent) {
	c.engine.StopAll()
	if !in.play {
		return
	}

	c.mu.Lock()
	current := c.seq == in.seq
	c.mu.Unlock()
	if !current {
		// superseded; the newer intent is already pending
		return
	}

	if c.engine.Play(in.fileName, in.ownerKey, c.dir) {
		return
	}

	reqs, reverted := c.reject(in)
	c.resolve(reqs)
	if reverted {
		c.alerter.Alert(fmt.Errorf("%w: %s", ErrUnplayable, in.item.Name()))
	}
}

func (c *Coordinator) reject(in *intent) ([]iconRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != in.item || c.liveKey != in.ownerKey {
		return nil, false
	}
	c.log.Warn().Str("sound", in.item.Name()).Str("file", in.fileName).Msg("engine rejected sound")
	c.deactivate()
	return c.takeMisses(), true
}
