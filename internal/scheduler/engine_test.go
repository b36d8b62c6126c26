package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineEmitsInTriggerOrder(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	now := time.Now().UTC()
	_, err := engine.Schedule(Reminder{Key: "later", TriggerAt: now.Add(80 * time.Millisecond)})
	require.NoError(t, err)
	_, err = engine.Schedule(Reminder{Key: "sooner", TriggerAt: now.Add(20 * time.Millisecond)})
	require.NoError(t, err)

	first := waitReminder(t, engine.C(), time.Second)
	second := waitReminder(t, engine.C(), time.Second)
	assert.Equal(t, "sooner", first.Key)
	assert.Equal(t, "later", second.Key)
}

func TestEngineIgnoresDuplicateKeys(t *testing.T) {
	engine := NewEngine(4)
	starts := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	r := Reminder{EventID: "evt-1", StartsAt: starts, TriggerAt: starts.Add(-15 * time.Minute)}

	ok, err := engine.Schedule(r)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = engine.Schedule(r)
	require.NoError(t, err)
	assert.False(t, ok, "same occurrence scheduled twice")
	assert.Equal(t, 1, engine.Pending())
}

func TestEngineForgetKeepsQueuedKeys(t *testing.T) {
	engine := NewEngine(4)
	old := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	_, err := engine.Schedule(Reminder{EventID: "evt-queued", StartsAt: old, TriggerAt: old})
	require.NoError(t, err)
	assert.Zero(t, engine.Forget(old.Add(time.Hour)), "queued key must not be forgotten")

	engine.popDue(old)
	assert.Equal(t, 1, engine.Forget(old.Add(time.Hour)))

	ok, err := engine.Schedule(Reminder{EventID: "evt-queued", StartsAt: old, TriggerAt: old})
	require.NoError(t, err)
	assert.True(t, ok, "forgotten key should be accepted again")
}

func TestEngineNonBlockingDropsWhenConsumerIsSlow(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	defer engine.Stop()

	at := time.Now().UTC().Add(20 * time.Millisecond)
	for i := 0; i < 25; i++ {
		_, err := engine.Schedule(Reminder{
			Key:       ReminderKey("evt", at.Add(time.Duration(i)*time.Second)),
			TriggerAt: at,
		})
		require.NoError(t, err)
	}

	time.Sleep(120 * time.Millisecond)
	assert.NotZero(t, engine.Dropped())
}

func TestScheduleValidatesTriggerTime(t *testing.T) {
	engine := NewEngine(1)
	_, err := engine.Schedule(Reminder{Key: "bad"})
	assert.ErrorIs(t, err, ErrInvalidTriggerTime)
}

func TestScheduleAfterStop(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	engine.Stop()
	_, err := engine.Schedule(Reminder{Key: "late", TriggerAt: time.Now()})
	assert.ErrorIs(t, err, ErrEngineStopped)
}

func waitReminder(t *testing.T, ch <-chan Reminder, timeout time.Duration) Reminder {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(timeout):
		require.FailNow(t, "timed out waiting for reminder")
		return Reminder{}
	}
}
