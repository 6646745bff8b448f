package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBusRegisterAndFire(t *testing.T) {
	bus := NewEventBus()
	listener := &struct{ hits int }{}

	ok := bus.Register(EVENT_CODE_DEVICE_STATE_CHANGED, listener,
		func(code SystemEventCode, sender, inst interface{}, data EventContext) bool {
			listener.hits++
			return true
		})
	assert.True(t, ok)

	assert.True(t, bus.Fire(EVENT_CODE_DEVICE_STATE_CHANGED, nil, EventContext{}))
	assert.Equal(t, 1, listener.hits)

	// Unrelated codes do not reach the listener.
	bus.Fire(EVENT_CODE_FRAME_SUBMITTED, nil, EventContext{})
	assert.Equal(t, 1, listener.hits)
}

func TestEventBusDuplicateRegistrationRejected(t *testing.T) {
	bus := NewEventBus()
	listener := &struct{}{}
	handler := func(code SystemEventCode, sender, inst interface{}, data EventContext) bool { return false }

	assert.True(t, bus.Register(EVENT_CODE_APPLICATION_QUIT, listener, handler))
	assert.False(t, bus.Register(EVENT_CODE_APPLICATION_QUIT, listener, handler))
}

func TestEventBusUnregister(t *testing.T) {
	bus := NewEventBus()
	listener := &struct{ hits int }{}

	bus.Register(EVENT_CODE_FRAME_SUBMITTED, listener,
		func(code SystemEventCode, sender, inst interface{}, data EventContext) bool {
			listener.hits++
			return true
		})
	assert.True(t, bus.Unregister(EVENT_CODE_FRAME_SUBMITTED, listener))
	assert.False(t, bus.Unregister(EVENT_CODE_FRAME_SUBMITTED, listener))

	bus.Fire(EVENT_CODE_FRAME_SUBMITTED, nil, EventContext{})
	assert.Zero(t, listener.hits)
}

func TestEventBusHandledEventStopsPropagation(t *testing.T) {
	bus := NewEventBus()
	first := &struct{}{}
	second := &struct{ hits int }{}

	bus.Register(EVENT_CODE_DEVICE_STATE_CHANGED, first,
		func(code SystemEventCode, sender, inst interface{}, data EventContext) bool {
			return true // handled
		})
	bus.Register(EVENT_CODE_DEVICE_STATE_CHANGED, second,
		func(code SystemEventCode, sender, inst interface{}, data EventContext) bool {
			second.hits++
			return true
		})

	bus.Fire(EVENT_CODE_DEVICE_STATE_CHANGED, nil, EventContext{})
	assert.Zero(t, second.hits)
}

func TestEventContextCarriesPayload(t *testing.T) {
	bus := NewEventBus()
	listener := &struct{ got uint64 }{}

	bus.Register(EVENT_CODE_FRAME_SUBMITTED, listener,
		func(code SystemEventCode, sender, inst interface{}, data EventContext) bool {
			listener.got = data.Data.U64[0]
			return true
		})

	var ctx EventContext
	ctx.Data.U64[0] = 42
	bus.Fire(EVENT_CODE_FRAME_SUBMITTED, nil, ctx)
	assert.Equal(t, uint64(42), listener.got)
}
