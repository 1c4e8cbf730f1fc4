package input

// Callback is invoked with the trigger that fired. It runs on the
// dispatching goroutine and should return quickly
type Callback func(Trigger)

type registration struct {
	id uint64
	fn Callback
}

// Router translates device events into triggers and fans them out to
// subscribers. A Router is not safe for concurrent use; it is driven from
// one event loop
type Router struct {
	bindings  *Bindings
	pointerUp bool
	subs      map[Trigger][]registration
	nextID    uint64
	cancel    func()
}

// Option configures a Router
type Option func(*Router)

// WithBindings replaces the default key table
func WithBindings(b *Bindings) Option {
	return func(r *Router) { r.bindings = b }
}

// WithPointerUp makes a pointer release fire TriggerCenter
func WithPointerUp(enabled bool) Option {
	return func(r *Router) { r.pointerUp = enabled }
}

// NewRouter creates a Router with the default key table
func NewRouter(opts ...Option) *Router {
	r := &Router{
		bindings: DefaultBindings(),
		subs:     make(map[Trigger][]registration),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscription is the handle returned by Subscribe
type Subscription struct {
	router  *Router
	trigger Trigger
	id      uint64
}

// Trigger returns the trigger this subscription listens to
func (s Subscription) Trigger() Trigger {
	return s.trigger
}

// Unsubscribe removes this registration. Calling it more than once, or after
// the router dropped all subscribers, does nothing
func (s Subscription) Unsubscribe() {
	if s.router == nil {
		return
	}
	regs := s.router.subs[s.trigger]
	for i, reg := range regs {
		if reg.id == s.id {
			s.router.subs[s.trigger] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

// Subscribe registers fn for t. The same fn may be registered several times
// and then fires once per registration
func (r *Router) Subscribe(t Trigger, fn Callback) Subscription {
	r.nextID++
	r.subs[t] = append(r.subs[t], registration{id: r.nextID, fn: fn})
	return Subscription{router: r, trigger: t, id: r.nextID}
}

// UnsubscribeAll drops every subscriber of t
func (r *Router) UnsubscribeAll(t Trigger) {
	delete(r.subs, t)
}

// DisposeAll drops every subscriber and releases the device subscription
func (r *Router) DisposeAll() {
	r.subs = make(map[Trigger][]registration)
	r.detach()
}

// Attach starts listening to src, releasing any previous source first
func (r *Router) Attach(src Source) {
	r.detach()
	r.cancel = src.Listen(func(ev DeviceEvent) { r.Dispatch(ev) })
}

// Attached reports whether the router holds a device subscription
func (r *Router) Attached() bool {
	return r.cancel != nil
}

func (r *Router) detach() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Count returns the number of registrations for t
func (r *Router) Count(t Trigger) int {
	return len(r.subs[t])
}

// Translate classifies ev. Only releases produce a trigger: key presses are
// ignored so a held key does not repeat-fire, and a held meta key
// suppresses the event entirely
func (r *Router) Translate(ev DeviceEvent) (Trigger, bool) {
	if ev.Kind != KindUp {
		return TriggerNone, false
	}

	switch ev.Device {
	case DeviceKeyboard:
		if ev.Meta {
			return TriggerNone, false
		}
		t := r.bindings.Lookup(ev.Key)
		return t, t != TriggerNone
	case DevicePointer:
		if r.pointerUp {
			return TriggerCenter, true
		}
	}

	// touch, gamepad and anything unknown
	return TriggerNone, false
}

// Dispatch translates ev and synchronously notifies the matching
// subscribers in registration order. It returns the trigger that fired, or
// TriggerNone
func (r *Router) Dispatch(ev DeviceEvent) Trigger {
	t, ok := r.Translate(ev)
	if !ok {
		return TriggerNone
	}
	r.notify(t)
	return t
}

// Fire notifies the subscribers of t directly, bypassing translation
func (r *Router) Fire(t Trigger) {
	r.notify(t)
}

func (r *Router) notify(t Trigger) {
	regs := r.subs[t]
	if len(regs) == 0 {
		return
	}
	snapshot := make([]registration, len(regs))
	copy(snapshot, regs)
	for _, reg := range snapshot {
		reg.fn(t)
	}
}
