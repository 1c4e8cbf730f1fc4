package input

// Device is the kind of hardware an event came from
type Device string

const (
	DeviceKeyboard Device = "keyboard"
	DevicePointer  Device = "pointer"
	DeviceTouch    Device = "touch"
	DeviceGamepad  Device = "gamepad"
)

// EventKind distinguishes press from release
type EventKind string

const (
	KindDown EventKind = "down"
	KindUp   EventKind = "up"
)

// DeviceEvent is one raw input event as reported by the browser
type DeviceEvent struct {
	Device Device    `json:"device"`
	Kind   EventKind `json:"event"`
	Key    string    `json:"key,omitempty"`
	Button int       `json:"button,omitempty"`
	Meta   bool      `json:"meta,omitempty"`
}

// Source delivers device events to a listener until the returned cancel
// func is called
type Source interface {
	Listen(fn func(DeviceEvent)) (cancel func())
}

type listener struct {
	id uint64
	fn func(DeviceEvent)
}

// Feed is an in-process Source. Emit is called by whoever owns the event
// loop; Feed does no locking
type Feed struct {
	listeners []listener
	nextID    uint64
}

// NewFeed creates a Feed with no listeners
func NewFeed() *Feed {
	return &Feed{}
}

func (f *Feed) Listen(fn func(DeviceEvent)) func() {
	f.nextID++
	id := f.nextID
	f.listeners = append(f.listeners, listener{id: id, fn: fn})
	return func() { f.remove(id) }
}

func (f *Feed) remove(id uint64) {
	for i, l := range f.listeners {
		if l.id == id {
			f.listeners = append(f.listeners[:i:i], f.listeners[i+1:]...)
			return
		}
	}
}

// Emit delivers ev to every current listener in registration order
func (f *Feed) Emit(ev DeviceEvent) {
	ls := make([]listener, len(f.listeners))
	copy(ls, f.listeners)
	for _, l := range ls {
		l.fn(ev)
	}
}

// Listeners returns the number of attached listeners
func (f *Feed) Listeners() int {
	return len(f.listeners)
}
