package core

// EventContext carries a small fixed payload alongside a fired event.
type EventContext struct {
	Data struct {
		U64 [2]uint64
		U32 [4]uint32
		F32 [4]float32
		Str string
	}
}

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Native GPU state was mutated outside the backend (context loss,
	// capability re-detection). Listeners must drop every cached binding.
	/* Context usage:
	 * str reason = data.data.Str
	 */
	EVENT_CODE_DEVICE_STATE_CHANGED SystemEventCode = 0x02

	// A frame was submitted.
	/* Context usage:
	 * u64 frame_counter = data.data.u64[0];
	 */
	EVENT_CODE_FRAME_SUBMITTED SystemEventCode = 0x03

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

const maxMessageCodes = 256

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listenerInst interface{}, data EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventBus routes fired events to registered listeners. One bus is owned by
// the engine instance and handed to every subsystem; there is no package-wide
// bus.
type EventBus struct {
	registered [maxMessageCodes][]*registeredEvent
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

// Register listens for events sent with the provided code. Duplicate
// listener registrations for the same code are rejected.
func (b *EventBus) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if code < 0 || int(code) >= maxMessageCodes {
		return false
	}
	for _, e := range b.registered[code] {
		if e.listener == listener {
			LogWarn("event listener already registered for code %d", code)
			return false
		}
	}
	b.registered[code] = append(b.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

// Unregister stops listening for the provided code. Returns false when no
// matching registration exists.
func (b *EventBus) Unregister(code SystemEventCode, listener interface{}) bool {
	if code < 0 || int(code) >= maxMessageCodes {
		return false
	}
	events := b.registered[code]
	for i, e := range events {
		if e.listener == listener {
			b.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// Fire sends an event to listeners of the given code. If a handler returns
// true the event is considered handled and not passed on.
func (b *EventBus) Fire(code SystemEventCode, sender interface{}, context EventContext) bool {
	if code < 0 || int(code) >= maxMessageCodes {
		return false
	}
	for _, e := range b.registered[code] {
		if e.callback(code, sender, e.listener, context) {
			return true
		}
	}
	return false
}
