package playback

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"soundslot/internal/icons"
	"soundslot/internal/sound"
	"soundslot/pkg/spec"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ------------------------------------------------------
// Fakes
// ------------------------------------------------------

type fakeSlot struct {
	mu   sync.Mutex
	bind Binding
	icon string
	sets int
}

func newSlot(index int, it *sound.Item) *fakeSlot {
	return &fakeSlot{bind: Binding{Index: index, ID: it.ID, Generation: 1}, icon: spec.IconPlay}
}

func (s *fakeSlot) Binding() Binding {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bind
}

func (s *fakeSlot) SetIcon(ic icons.Icon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.icon = ic.Name
	s.sets++
}

func (s *fakeSlot) Icon() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.icon
}

func (s *fakeSlot) Sets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

func (s *fakeSlot) rebind(index int, it *sound.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bind = Binding{Index: index, ID: it.ID, Generation: s.bind.Generation + 1}
	s.icon = spec.IconPlay
}

type fakeIcons struct {
	mu    sync.Mutex
	warm  bool
	gate  chan struct{}
	wg    sync.WaitGroup
	loads []string
}

func (f *fakeIcons) Cached(name string) (icons.Icon, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.warm {
		return icons.Icon{Name: name}, true
	}
	return icons.Icon{}, false
}

func (f *fakeIcons) Load(name string, onResolved func(icons.Icon, error)) {
	f.mu.Lock()
	f.loads = append(f.loads, name)
	gate := f.gate
	f.mu.Unlock()

	if gate == nil {
		onResolved(icons.Icon{Name: name}, nil)
		return
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		<-gate
		onResolved(icons.Icon{Name: name}, nil)
	}()
}

type engineCall struct {
	op       string
	fileName string
	ownerKey string
}

type fakeEngine struct {
	mu     sync.Mutex
	calls  []engineCall
	reject map[string]bool
}

func (e *fakeEngine) StopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, engineCall{op: "stop"})
}

func (e *fakeEngine) Play(fileName, ownerKey, dir string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, engineCall{op: "play", fileName: fileName, ownerKey: ownerKey})
	return !e.reject[fileName]
}

func (e *fakeEngine) Calls() []engineCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]engineCall(nil), e.calls...)
}

func (e *fakeEngine) Last() engineCall {
	calls := e.Calls()
	if len(calls) == 0 {
		return engineCall{}
	}
	return calls[len(calls)-1]
}

type fakeAlerter struct {
	mu   sync.Mutex
	errs []error
}

func (a *fakeAlerter) Alert(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errs = append(a.errs, err)
}

func (a *fakeAlerter) Errs() []error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]error(nil), a.errs...)
}

type fixture struct {
	c       *Coordinator
	repo    *sound.Repository
	engine  *fakeEngine
	icons   *fakeIcons
	alerter *fakeAlerter
	items   []*sound.Item
	slots   []*fakeSlot
}

func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()
	f := &fixture{
		repo:    sound.NewRepository(),
		engine:  &fakeEngine{reject: map[string]bool{}},
		icons:   &fakeIcons{warm: true},
		alerter: &fakeAlerter{},
	}
	for i, n := range names {
		it := sound.NewItem(n, n+".wav")
		require.NoError(t, f.repo.Add(it))
		f.items = append(f.items, it)
		f.slots = append(f.slots, newSlot(i, it))
	}
	f.c = New(Config{
		Repo:    f.repo,
		Engine:  f.engine,
		Icons:   f.icons,
		Alerter: f.alerter,
		Owner:   "test",
		Dir:     "/sounds",
		Log:     zerolog.Nop(),
	})
	t.Cleanup(f.c.Close)
	return f
}

func (f *fixture) toggle(i int) {
	f.c.Toggle(f.items[i], NewHandle(f.slots[i]))
}

func (f *fixture) liveKey() string {
	f.c.mu.Lock()
	defer f.c.mu.Unlock()
	return f.c.liveKey
}

// invariantHolds checks, under the playback lock, that at most one item is
// flagged playing and that it is the active one.
func invariantHolds(c *Coordinator, repo *sound.Repository) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	var playing []*sound.Item
	for _, it := range repo.Items() {
		if it.Playing() {
			playing = append(playing, it)
		}
	}
	if c.active == nil {
		return len(playing) == 0
	}
	return len(playing) == 1 && playing[0] == c.active
}

func requireInvariant(t *testing.T, c *Coordinator, repo *sound.Repository) {
	t.Helper()
	require.True(t, invariantHolds(c, repo), "more than one sound flagged playing")
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

// ------------------------------------------------------
// Toggle
// ------------------------------------------------------

func TestToggleStartsPlayback(t *testing.T) {
	f := newFixture(t, "bell", "horn")

	f.toggle(0)

	snap := f.c.Snapshot()
	require.Equal(t, Playing, snap.State)
	require.Same(t, f.items[0], snap.Active)
	require.True(t, f.items[0].Playing())
	require.Equal(t, spec.IconPause, f.slots[0].Icon())

	eventually(t, func() bool { return f.engine.Last().op == "play" })
	calls := f.engine.Calls()
	require.Equal(t, "stop", calls[len(calls)-2].op)
	last := calls[len(calls)-1]
	assert.Equal(t, "bell.wav", last.fileName)
	assert.Equal(t, "test#1", last.ownerKey)
	requireInvariant(t, f.c, f.repo)
}

func TestToggleTwiceRoundTrip(t *testing.T) {
	f := newFixture(t, "bell")

	f.toggle(0)
	f.toggle(0)

	snap := f.c.Snapshot()
	require.Equal(t, Idle, snap.State)
	require.Nil(t, snap.Active)
	require.Nil(t, snap.Handle)
	require.False(t, f.items[0].Playing())
	require.Equal(t, spec.IconPlay, f.slots[0].Icon())

	eventually(t, func() bool { return f.engine.Last().op == "stop" })
	requireInvariant(t, f.c, f.repo)
}

func TestToggleSwitchesSound(t *testing.T) {
	f := newFixture(t, "bell", "horn")

	f.toggle(0)
	f.toggle(1)

	require.False(t, f.items[0].Playing())
	require.Equal(t, spec.IconPlay, f.slots[0].Icon())
	require.True(t, f.items[1].Playing())
	require.Equal(t, spec.IconPause, f.slots[1].Icon())
	require.Same(t, f.items[1], f.c.Snapshot().Active)

	eventually(t, func() bool {
		last := f.engine.Last()
		return last.op == "play" && last.fileName == "horn.wav"
	})
	requireInvariant(t, f.c, f.repo)
}

func TestToggleRemovedItemIsNoop(t *testing.T) {
	f := newFixture(t, "bell", "horn")
	require.NoError(t, f.repo.Remove(f.items[0]))

	f.toggle(0)

	require.Equal(t, Idle, f.c.Snapshot().State)
	require.False(t, f.items[0].Playing())
	require.Equal(t, 0, f.slots[0].Sets())
}

func TestToggleStaleHandleIsNoop(t *testing.T) {
	f := newFixture(t, "bell", "horn")
	h := NewHandle(f.slots[0])
	f.slots[0].rebind(0, f.items[1])

	f.c.Toggle(f.items[0], h)

	require.Equal(t, Idle, f.c.Snapshot().State)
	require.False(t, f.items[0].Playing())
}

func TestToggleHandleForOtherItemIsNoop(t *testing.T) {
	f := newFixture(t, "bell", "horn")

	f.c.Toggle(f.items[0], NewHandle(f.slots[1]))

	require.Equal(t, Idle, f.c.Snapshot().State)
	require.False(t, f.items[0].Playing())
	require.Equal(t, 0, f.slots[1].Sets())
	requireInvariant(t, f.c, f.repo)

	f.toggle(0)
	f.c.Bind(f.items[0], NewHandle(f.slots[1]))
	require.Equal(t, spec.IconPlay, f.slots[1].Icon())
	require.Same(t, f.slots[0], f.c.Snapshot().Handle.slot)
}

func TestToggleWithoutHandle(t *testing.T) {
	f := newFixture(t, "bell")

	f.c.Toggle(f.items[0], nil)

	require.Equal(t, Playing, f.c.Snapshot().State)
	require.True(t, f.items[0].Playing())
	eventually(t, func() bool { return f.engine.Last().op == "play" })
}

func TestSwitchLeavesRecycledRowAlone(t *testing.T) {
	f := newFixture(t, "bell", "horn", "drum")

	f.toggle(0)
	// row 0 scrolls away and is reused for "drum"
	f.slots[0].rebind(2, f.items[2])
	sets := f.slots[0].Sets()

	f.toggle(1)

	require.False(t, f.items[0].Playing())
	require.Equal(t, sets, f.slots[0].Sets())
	require.True(t, f.items[1].Playing())
	requireInvariant(t, f.c, f.repo)
}

// ------------------------------------------------------
// Completion
// ------------------------------------------------------

func TestCompletionReturnsToIdle(t *testing.T) {
	f := newFixture(t, "bell")
	f.toggle(0)
	key := f.liveKey()

	f.c.OnCompletion(Completion{FileName: "bell.wav", OwnerKey: key})

	require.Equal(t, Idle, f.c.Snapshot().State)
	require.False(t, f.items[0].Playing())
	require.Equal(t, spec.IconPlay, f.slots[0].Icon())
	requireInvariant(t, f.c, f.repo)
}

func TestCompletionForOtherSoundIgnored(t *testing.T) {
	f := newFixture(t, "bell", "horn")
	f.toggle(0)
	keyA := f.liveKey()
	f.toggle(1)
	sets := f.slots[1].Sets()

	f.c.OnCompletion(Completion{FileName: "bell.wav", OwnerKey: keyA, Interrupted: true})

	snap := f.c.Snapshot()
	require.Equal(t, Playing, snap.State)
	require.Same(t, f.items[1], snap.Active)
	require.True(t, f.items[1].Playing())
	require.Equal(t, spec.IconPause, f.slots[1].Icon())
	require.Equal(t, sets, f.slots[1].Sets())
}

func TestCompletionFromEarlierReplayIgnored(t *testing.T) {
	f := newFixture(t, "bell")
	f.toggle(0)
	first := f.liveKey()
	f.toggle(0)
	f.toggle(0)
	require.NotEqual(t, first, f.liveKey())

	f.c.OnCompletion(Completion{FileName: "bell.wav", OwnerKey: first, Interrupted: true})

	require.Equal(t, Playing, f.c.Snapshot().State)
	require.True(t, f.items[0].Playing())
	require.Equal(t, spec.IconPause, f.slots[0].Icon())
}

func TestCompletionWhileIdleIgnored(t *testing.T) {
	f := newFixture(t, "bell")

	f.c.OnCompletion(Completion{FileName: "bell.wav", OwnerKey: "test#0"})

	require.Equal(t, Idle, f.c.Snapshot().State)
	require.Equal(t, 0, f.slots[0].Sets())
}

func TestScenarioTwoSounds(t *testing.T) {
	f := newFixture(t, "A", "B")

	f.toggle(0)
	require.True(t, f.items[0].Playing())
	require.Equal(t, spec.IconPause, f.slots[0].Icon())
	keyA := f.liveKey()

	f.toggle(1)
	require.False(t, f.items[0].Playing())
	require.Equal(t, spec.IconPlay, f.slots[0].Icon())
	require.True(t, f.items[1].Playing())
	require.Equal(t, spec.IconPause, f.slots[1].Icon())

	f.c.OnCompletion(Completion{FileName: "A.wav", OwnerKey: keyA})
	require.Same(t, f.items[1], f.c.Snapshot().Active)
	require.True(t, f.items[1].Playing())
	require.Equal(t, spec.IconPause, f.slots[1].Icon())

	f.c.StopAll()
	require.Equal(t, Idle, f.c.Snapshot().State)
	require.False(t, f.items[1].Playing())
	require.Equal(t, spec.IconPlay, f.slots[1].Icon())
	eventually(t, func() bool { return f.engine.Last().op == "stop" })
	requireInvariant(t, f.c, f.repo)
}

// ------------------------------------------------------
// Engine rejection
// ------------------------------------------------------

func TestEngineRejectionReverts(t *testing.T) {
	f := newFixture(t, "broken")
	f.engine.reject["broken.wav"] = true

	f.toggle(0)

	eventually(t, func() bool { return len(f.alerter.Errs()) == 1 })
	require.Equal(t, Idle, f.c.Snapshot().State)
	require.False(t, f.items[0].Playing())
	require.Equal(t, spec.IconPlay, f.slots[0].Icon())

	err := f.alerter.Errs()[0]
	require.True(t, errors.Is(err, ErrUnplayable))
	require.Contains(t, err.Error(), "broken")
	requireInvariant(t, f.c, f.repo)
}

func TestRejectionOfSupersededRequestKeepsNewState(t *testing.T) {
	f := newFixture(t, "broken", "horn")
	f.engine.reject["broken.wav"] = true
	in := &intent{seq: 1, play: true, item: f.items[0], fileName: "broken.wav", ownerKey: "test#1"}

	f.toggle(1)
	reqs, reverted := f.c.reject(in)

	require.False(t, reverted)
	require.Empty(t, reqs)
	require.True(t, f.items[1].Playing())
	require.Empty(t, f.alerter.Errs())
}

// ------------------------------------------------------
// Repository mutation
// ------------------------------------------------------

func TestRemovingActiveSoundStopsFirst(t *testing.T) {
	f := newFixture(t, "bell", "horn")
	f.toggle(0)

	err := f.c.OnRepositoryMutated(f.items[0], func() error {
		// still under the playback lock: Idle is already visible
		require.Nil(t, f.c.active)
		require.False(t, f.items[0].Playing())
		require.Equal(t, spec.IconPlay, f.slots[0].Icon())
		return f.repo.Remove(f.items[0])
	})
	require.NoError(t, err)

	require.Equal(t, Idle, f.c.Snapshot().State)
	require.Equal(t, -1, f.repo.IndexOf(f.items[0]))
	eventually(t, func() bool { return f.engine.Last().op == "stop" })

	f.toggle(0)
	require.Equal(t, Idle, f.c.Snapshot().State)
}

func TestMutatingOtherSoundKeepsPlaying(t *testing.T) {
	f := newFixture(t, "bell", "horn")
	f.toggle(0)

	err := f.c.OnRepositoryMutated(f.items[1], func() error {
		return f.repo.Move(1, 0)
	})
	require.NoError(t, err)

	require.Same(t, f.items[0], f.c.Snapshot().Active)
	require.True(t, f.items[0].Playing())
}

func TestMutationErrorReturned(t *testing.T) {
	f := newFixture(t, "bell")
	require.NoError(t, f.repo.Remove(f.items[0]))

	err := f.c.OnRepositoryMutated(f.items[0], func() error {
		return f.repo.Remove(f.items[0])
	})
	require.ErrorIs(t, err, sound.ErrNotFound)
}

// ------------------------------------------------------
// Icons
// ------------------------------------------------------

func TestIconCacheMissResolvedAfterUnlock(t *testing.T) {
	f := newFixture(t, "bell")
	f.icons.warm = false

	f.toggle(0)

	require.Equal(t, spec.IconPause, f.slots[0].Icon())
	require.Equal(t, []string{spec.IconPause}, f.icons.loads)
}

func TestIconMissSkippedForRecycledRow(t *testing.T) {
	f := newFixture(t, "bell", "horn")
	f.icons.warm = false
	f.icons.gate = make(chan struct{})

	f.toggle(0)
	f.slots[0].rebind(1, f.items[1])
	close(f.icons.gate)
	f.icons.wg.Wait()

	require.Equal(t, 0, f.slots[0].Sets())
	require.Equal(t, spec.IconPlay, f.slots[0].Icon())
}

func TestIconMissAppliesOnlyWantedIcon(t *testing.T) {
	f := newFixture(t, "bell")
	f.icons.warm = false
	f.icons.gate = make(chan struct{})

	f.toggle(0)
	f.toggle(0)
	close(f.icons.gate)
	f.icons.wg.Wait()

	require.Equal(t, spec.IconPlay, f.slots[0].Icon())
	require.LessOrEqual(t, f.slots[0].Sets(), 1)
}

func TestBindAdoptsActiveRow(t *testing.T) {
	f := newFixture(t, "bell", "horn")
	f.toggle(0)

	// bell scrolls out of row 0 and back in on row 1
	f.slots[0].rebind(0, f.items[1])
	f.slots[1].rebind(0, f.items[0])
	f.c.Bind(f.items[1], NewHandle(f.slots[0]))
	f.c.Bind(f.items[0], NewHandle(f.slots[1]))
	require.Equal(t, spec.IconPlay, f.slots[0].Icon())
	require.Equal(t, spec.IconPause, f.slots[1].Icon())

	f.c.OnCompletion(Completion{FileName: "bell.wav", OwnerKey: f.liveKey()})
	require.Equal(t, spec.IconPlay, f.slots[1].Icon())
	require.False(t, f.items[0].Playing())
}

func TestBindStaleHandleIgnored(t *testing.T) {
	f := newFixture(t, "bell")
	h := NewHandle(f.slots[0])
	f.slots[0].rebind(0, f.items[0])

	f.c.Bind(f.items[0], h)

	require.Equal(t, 0, f.slots[0].Sets())
}

// ------------------------------------------------------
// Concurrency and teardown
// ------------------------------------------------------

func TestConcurrentTogglesKeepSingleSlot(t *testing.T) {
	f := newFixture(t, "bell", "horn", "drum")
	const rounds = 200

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(row int) {
			defer wg.Done()
			for n := 0; n < rounds; n++ {
				f.toggle(row)
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for n := 0; n < rounds; n++ {
			key := f.liveKey()
			f.c.OnCompletion(Completion{FileName: "bell.wav", OwnerKey: key})
		}
	}()

	var violations atomic.Int32
	stop := make(chan struct{})
	checked := make(chan struct{})
	go func() {
		defer close(checked)
		for {
			select {
			case <-stop:
				return
			default:
				if !invariantHolds(f.c, f.repo) {
					violations.Add(1)
				}
			}
		}
	}()

	wg.Wait()
	close(stop)
	<-checked
	require.Zero(t, violations.Load())
	requireInvariant(t, f.c, f.repo)

	snap := f.c.Snapshot()
	if snap.State == Playing {
		i := f.repo.IndexOf(snap.Active)
		require.Equal(t, spec.IconPause, f.slots[i].Icon())
	}
}

func TestCloseStopsEngine(t *testing.T) {
	f := newFixture(t, "bell")
	f.toggle(0)

	f.c.Close()
	f.c.Close()

	require.Equal(t, Idle, f.c.Snapshot().State)
	require.False(t, f.items[0].Playing())
	require.Equal(t, "stop", f.engine.Last().op)
}
