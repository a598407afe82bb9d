package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateTimeStamp(t *testing.T) {
	ts := time.Date(2024, time.March, 9, 17, 5, 42, 0, time.UTC)
	assert.Equal(t, uint64(20240309170542), DateTimeStamp(ts))
	assert.Greater(t, DateTimeStamp(ts.Add(time.Second)), DateTimeStamp(ts))
}

func TestNewUUIDIsNonZero(t *testing.T) {
	seen := map[uint64]struct{}{}
	for i := 0; i < 100; i++ {
		id := NewUUID()
		assert.NotZero(t, id)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 100)
}

func TestParseLogLevel(t *testing.T) {
	l, err := ParseLogLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, WarnLevel, l)
	_, err = ParseLogLevel("loud")
	assert.Error(t, err)
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	var calls []string
	first, second := "first", "second"

	require.True(t, bus.Register(EVENT_CODE_SCENE_LOADED, first, func(code SystemEventCode, sender, listener any, data EventContext) bool {
		calls = append(calls, listener.(string))
		return data.Data == "stop"
	}))
	require.True(t, bus.Register(EVENT_CODE_SCENE_LOADED, second, func(code SystemEventCode, sender, listener any, data EventContext) bool {
		calls = append(calls, listener.(string))
		return false
	}))
	assert.False(t, bus.Register(EVENT_CODE_SCENE_LOADED, first, func(SystemEventCode, any, any, EventContext) bool { return false }))

	assert.False(t, bus.Fire(EVENT_CODE_SCENE_LOADED, nil, EventContext{Data: "go"}))
	assert.Equal(t, []string{"first", "second"}, calls)

	calls = nil
	assert.True(t, bus.Fire(EVENT_CODE_SCENE_LOADED, nil, EventContext{Data: "stop"}))
	assert.Equal(t, []string{"first"}, calls)

	assert.True(t, bus.Unregister(EVENT_CODE_SCENE_LOADED, first))
	assert.False(t, bus.Unregister(EVENT_CODE_SCENE_LOADED, first))
	calls = nil
	bus.Fire(EVENT_CODE_SCENE_LOADED, nil, EventContext{Data: "stop"})
	assert.Equal(t, []string{"second"}, calls)

	assert.False(t, bus.Fire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{}))
}

func TestFrameMetrics(t *testing.T) {
	m := NewFrameMetrics()
	for i := 0; i < int(AVG_COUNT); i++ {
		m.Update(0.02)
	}
	assert.InDelta(t, 20, m.FrameTime(), 1e-9)
	assert.Zero(t, m.FPS())

	for i := 0; i < 21; i++ {
		m.Update(0.02)
	}
	assert.Equal(t, float64(51), m.FPS())
	assert.Equal(t, uint64(51), m.Frames())
}

func TestClock(t *testing.T) {
	c := NewClock()
	c.Update()
	assert.Zero(t, c.Elapsed())
	c.Start()
	time.Sleep(time.Millisecond)
	c.Update()
	assert.GreaterOrEqual(t, c.ElapsedDuration(), time.Millisecond)
}
