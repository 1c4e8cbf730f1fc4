package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pinfall/backend/internal/input"
	"github.com/pinfall/backend/internal/models"
	"github.com/pinfall/backend/internal/physics"
	"github.com/pinfall/backend/internal/scene"
)

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages []map[string]interface{}
	closed   []string
}

func (f *fakeBroadcaster) BroadcastToSession(sessionID string, message interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message.(map[string]interface{}))
}

func (f *fakeBroadcaster) CloseRoom(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, sessionID)
}

func (f *fakeBroadcaster) count(msgType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, m := range f.messages {
		if m["type"] == msgType {
			n++
		}
	}
	return n
}

func (f *fakeBroadcaster) roomsClosed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.closed)
}

type fakeRecorder struct {
	mu    sync.Mutex
	drops []models.Drop
}

func (f *fakeRecorder) RecordDrop(d models.Drop) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drops = append(f.drops, d)
}

func newTestSession(t *testing.T, sceneName string, opts SessionOptions) (*Session, *fakeBroadcaster, *fakeRecorder) {
	t.Helper()
	sc, err := scene.Build(sceneName)
	if err != nil {
		t.Fatalf("Build(%q): %v", sceneName, err)
	}
	b := &fakeBroadcaster{}
	r := &fakeRecorder{}
	opts.Broadcaster = b
	opts.Recorder = r
	opts.Seed = 42
	s, err := NewSession("sess_test", sc, opts)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s, b, r
}

func keyUp(key string) input.DeviceEvent {
	return input.DeviceEvent{Device: input.DeviceKeyboard, Kind: input.KindUp, Key: key}
}

// settle steps until nothing is live or the step budget runs out
func settle(s *Session, maxSteps int) {
	for i := 0; i < maxSteps && s.bodies.Live() > 0; i++ {
		s.step()
	}
}

func TestKeyReleaseSpawnsInTriggerColumn(t *testing.T) {
	s, b, _ := newTestSession(t, "classic", SessionOptions{})

	s.feed.Emit(keyUp("d"))

	if s.bodies.Live() != 1 {
		t.Fatalf("expected 1 live body, got %d", s.bodies.Live())
	}
	body := s.bodies.Bodies()[0]
	want := s.Scene.SpawnPosition(input.TriggerRight)
	if body.Origin != want {
		t.Errorf("spawned at %+v, want %+v", body.Origin, want)
	}
	if s.triggers[body.ID] != input.TriggerRight {
		t.Errorf("trigger for body %d = %s, want right", body.ID, s.triggers[body.ID])
	}
	if b.count(MsgSpawned) != 1 {
		t.Errorf("expected 1 spawned message, got %d", b.count(MsgSpawned))
	}
}

func TestIgnoredEventsSpawnNothing(t *testing.T) {
	s, b, _ := newTestSession(t, "classic", SessionOptions{PointerUp: false})

	s.feed.Emit(input.DeviceEvent{Device: input.DeviceKeyboard, Kind: input.KindDown, Key: "A"})
	s.feed.Emit(input.DeviceEvent{Device: input.DeviceTouch, Kind: input.KindUp})
	s.feed.Emit(input.DeviceEvent{Device: input.DevicePointer, Kind: input.KindUp})
	s.feed.Emit(keyUp("Q"))

	if s.bodies.Live() != 0 {
		t.Errorf("expected no bodies, got %d", s.bodies.Live())
	}
	if b.count(MsgSpawned) != 0 {
		t.Errorf("expected no spawned messages, got %d", b.count(MsgSpawned))
	}
}

func TestDropIsRecordedOnce(t *testing.T) {
	for _, name := range scene.Names() {
		s, b, r := newTestSession(t, name, SessionOptions{})

		s.feed.Emit(keyUp("A"))
		s.feed.Emit(keyUp("S"))
		settle(s, 60*120)

		if s.bodies.Live() != 0 {
			t.Fatalf("%s: %d bodies still live", name, s.bodies.Live())
		}
		if len(r.drops) != 2 {
			t.Fatalf("%s: expected 2 recorded drops, got %d", name, len(r.drops))
		}
		if b.count(MsgDrop) != 2 {
			t.Errorf("%s: expected 2 drop messages, got %d", name, b.count(MsgDrop))
		}

		seen := map[string]bool{}
		for _, d := range r.drops {
			seen[d.Trigger] = true
			if d.Scene != name || d.SessionID != "sess_test" {
				t.Errorf("%s: drop has scene=%q session=%q", name, d.Scene, d.SessionID)
			}
			if d.Slot < 0 || d.Slot >= len(s.Scene.Slots) {
				t.Errorf("%s: slot %d out of range", name, d.Slot)
			}
			if d.Frames <= 0 {
				t.Errorf("%s: expected positive frame count, got %d", name, d.Frames)
			}
		}
		if !seen["left"] || !seen["center"] {
			t.Errorf("%s: expected left and center drops, got %v", name, seen)
		}
		if s.engine.HookCount() != 0 {
			t.Errorf("%s: %d hooks left registered", name, s.engine.HookCount())
		}
		if len(s.triggers) != 0 {
			t.Errorf("%s: %d trigger entries left", name, len(s.triggers))
		}

		// stepping an empty board records nothing new
		for i := 0; i < 10; i++ {
			s.step()
		}
		if len(r.drops) != 2 {
			t.Errorf("%s: drops changed to %d after settling", name, len(r.drops))
		}
	}
}

func TestBodyLimit(t *testing.T) {
	s, b, _ := newTestSession(t, "classic", SessionOptions{MaxBodies: 2})

	s.feed.Emit(keyUp("A"))
	s.feed.Emit(keyUp("S"))
	s.feed.Emit(keyUp("D"))

	if s.bodies.Live() != 2 {
		t.Errorf("expected 2 live bodies, got %d", s.bodies.Live())
	}
	if b.count(MsgError) != 1 {
		t.Errorf("expected 1 error message, got %d", b.count(MsgError))
	}
}

func TestInputDropsWhenInboxFull(t *testing.T) {
	s, _, _ := newTestSession(t, "classic", SessionOptions{InboxSize: 1})

	if !s.Input(keyUp("A")) {
		t.Fatal("first event should be queued")
	}
	if s.Input(keyUp("A")) {
		t.Error("second event should be dropped while the inbox is full")
	}
}

func TestShutdownReleasesEverything(t *testing.T) {
	s, b, _ := newTestSession(t, "classic", SessionOptions{})
	s.feed.Emit(keyUp("A"))
	s.feed.Emit(keyUp("D"))

	s.Close()
	s.Close()
	s.shutdown()
	s.shutdown()

	if s.bodies.Live() != 0 {
		t.Errorf("expected no live bodies, got %d", s.bodies.Live())
	}
	if s.router.Attached() {
		t.Error("router still attached after shutdown")
	}
	if s.feed.Listeners() != 0 {
		t.Errorf("feed still has %d listeners", s.feed.Listeners())
	}
	if b.count(MsgSessionClosed) != 1 || b.roomsClosed() != 1 {
		t.Errorf("expected one session_closed and one room close, got %d and %d", b.count(MsgSessionClosed), b.roomsClosed())
	}
	if s.Input(keyUp("A")) {
		t.Error("Input accepted after Close")
	}
}

func TestRunProcessesInputUntilCancelled(t *testing.T) {
	s, b, r := newTestSession(t, "classic", SessionOptions{TickRate: 240})
	ctx, cancel := context.WithCancel(context.Background())

	finished := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(finished)
	}()

	s.Input(keyUp("ArrowUp"))

	deadline := time.After(10 * time.Second)
	for {
		r.mu.Lock()
		n := len(r.drops)
		r.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the drop")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if !s.Closed() {
		t.Error("session should be closed after its context is cancelled")
	}
	if b.count(MsgFrame) == 0 {
		t.Error("expected frame messages while the sphere was falling")
	}
}

func TestFramesCarryContacts(t *testing.T) {
	s, b, _ := newTestSession(t, "classic", SessionOptions{})

	s.feed.Emit(keyUp("S"))
	settle(s, 60*120)

	b.mu.Lock()
	defer b.mu.Unlock()
	hits := 0
	for _, m := range b.messages {
		if m["type"] != MsgFrame {
			continue
		}
		data := m["data"].(map[string]interface{})
		contacts, ok := data["contacts"].([]physics.CollisionEvent)
		if !ok {
			t.Fatalf("frame contacts have type %T", data["contacts"])
		}
		for _, c := range contacts {
			if c.Speed < minContactSpeed {
				t.Errorf("contact below %.1f reported: %+v", minContactSpeed, c)
			}
			hits++
		}
	}
	if hits == 0 {
		t.Error("a sphere falling through the pins produced no contacts")
	}
}
