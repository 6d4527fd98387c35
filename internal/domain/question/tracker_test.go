package question

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTracker_SweepDropsIdleSessions(t *testing.T) {
	now := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)
	tr := NewTracker(nil)
	tr.SetIdle(30 * time.Minute)
	tr.SetClock(func() time.Time { return now })
	ctx := context.Background()

	res, _ := evaluate(t, "Fever", tuesday, Answers{"temperature": 38.5})
	tr.Observe(ctx, "kiosk-1", 11, res)
	tr.Observe(ctx, "kiosk-1", 12, nil)
	now = now.Add(20 * time.Minute)
	tr.Observe(ctx, "kiosk-2", 11, res)

	if n := tr.Sweep(); n != 0 {
		t.Fatalf("nothing is idle yet, swept %d", n)
	}

	now = now.Add(15 * time.Minute)
	if n := tr.Sweep(); n != 1 {
		t.Fatalf("expected kiosk-1 swept, got %d", n)
	}
	if tr.Sessions() != 1 {
		t.Errorf("expected 1 session left, got %d", tr.Sessions())
	}

	// A swept session starts fresh; the live one still suppresses repeats.
	if changed, _ := tr.Observe(ctx, "kiosk-1", 11, res); !changed {
		t.Error("swept session should report a change")
	}
	if changed, _ := tr.Observe(ctx, "kiosk-2", 11, res); changed {
		t.Error("live session lost its state")
	}
}

func TestTracker_ActivityKeepsSessionAlive(t *testing.T) {
	now := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)
	tr := NewTracker(nil)
	tr.SetIdle(time.Hour)
	tr.SetClock(func() time.Time { return now })

	for i := 0; i < 4; i++ {
		tr.Observe(context.Background(), "kiosk-1", 11, nil)
		now = now.Add(45 * time.Minute)
		if n := tr.Sweep(); n != 0 {
			t.Fatalf("active session swept at step %d", i)
		}
	}
}

func TestTracker_StartCleanup(t *testing.T) {
	tr := NewTracker(nil)
	tr.SetIdle(time.Nanosecond)
	tr.SetClock(func() time.Time { return time.Now().Add(-time.Hour) })
	tr.Observe(context.Background(), "kiosk-1", 11, nil)
	tr.SetClock(time.Now)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.StartCleanup(ctx, 5*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for tr.Sessions() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("idle session was not swept")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTracker_FailedNotifyIsRetried(t *testing.T) {
	fail := true
	var delivered []Change
	tr := NewTracker(NotifierFunc(func(_ context.Context, c Change) error {
		if fail {
			return errors.New("broker down")
		}
		delivered = append(delivered, c)
		return nil
	}))
	ctx := context.Background()

	res, _ := evaluate(t, "Fever", tuesday, Answers{"temperature": 39.5})
	changed, err := tr.Observe(ctx, "s1", 11, res)
	if !changed || err == nil {
		t.Fatalf("expected reported change with error, got changed=%v err=%v", changed, err)
	}

	fail = false
	changed, err = tr.Observe(ctx, "s1", 11, res)
	if !changed || err != nil {
		t.Fatalf("undelivered change should be sent again, got changed=%v err=%v", changed, err)
	}
	if len(delivered) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(delivered))
	}
	if changed, _ := tr.Observe(ctx, "s1", 11, res); changed {
		t.Error("delivered change should now be suppressed")
	}
}
