package question

import (
	"context"
	"sync"
	"time"
)

// Change is emitted when the result of a question within a session differs
// from the previously observed one. A nil Result means the question went
// back to incomplete.
type Change struct {
	SessionID   string  `json:"session_id"`
	Code        int     `json:"question_code"`
	Result      *Result `json:"result"`
	Fingerprint string  `json:"fingerprint"`
}

// Notifier receives result changes.
type Notifier interface {
	Notify(ctx context.Context, c Change) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, c Change) error

func (f NotifierFunc) Notify(ctx context.Context, c Change) error {
	return f(ctx, c)
}

// DefaultSessionIdle is how long a session may go without an evaluation
// before Sweep drops its state.
const DefaultSessionIdle = 2 * time.Hour

type session struct {
	results  map[int]string
	lastSeen time.Time
}

// Tracker remembers the last result fingerprint per session and question,
// and only notifies when a new evaluation differs from it. Sessions idle for
// longer than the idle window are dropped by Sweep.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*session
	notifier Notifier
	idle     time.Duration
	now      func() time.Time
}

// NewTracker creates a tracker. A nil notifier only records state.
func NewTracker(n Notifier) *Tracker {
	return &Tracker{
		sessions: make(map[string]*session),
		notifier: n,
		idle:     DefaultSessionIdle,
		now:      time.Now,
	}
}

// SetIdle changes the idle window. Non-positive values are ignored.
func (t *Tracker) SetIdle(d time.Duration) {
	if d > 0 {
		t.idle = d
	}
}

func (t *Tracker) SetClock(fn func() time.Time) {
	t.now = fn
}

// Observe records res for the session's question and reports whether it
// changed. The notifier is only called on change. When it fails the previous
// fingerprint is restored so the same change is delivered on the next
// evaluation.
func (t *Tracker) Observe(ctx context.Context, sessionID string, code int, res *Result) (bool, error) {
	fp := res.Fingerprint()

	t.mu.Lock()
	sess, ok := t.sessions[sessionID]
	if !ok {
		sess = &session{results: make(map[int]string)}
		t.sessions[sessionID] = sess
	}
	sess.lastSeen = t.now()
	prev, seen := sess.results[code]
	if seen && prev == fp {
		t.mu.Unlock()
		return false, nil
	}
	sess.results[code] = fp
	t.mu.Unlock()

	// The first observation of an incomplete question is not a change.
	if !seen && res == nil {
		return false, nil
	}
	if t.notifier == nil {
		return true, nil
	}
	if err := t.notifier.Notify(ctx, Change{SessionID: sessionID, Code: code, Result: res, Fingerprint: fp}); err != nil {
		t.restore(sessionID, code, fp, prev, seen)
		return true, err
	}
	return true, nil
}

// restore rolls a fingerprint back unless a newer evaluation replaced it.
func (t *Tracker) restore(sessionID string, code int, fp, prev string, seen bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, ok := t.sessions[sessionID]
	if !ok || sess.results[code] != fp {
		return
	}
	if seen {
		sess.results[code] = prev
	} else {
		delete(sess.results, code)
	}
}

// Forget drops all state held for a session.
func (t *Tracker) Forget(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, sessionID)
}

// Sessions returns how many sessions hold state.
func (t *Tracker) Sessions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// Sweep drops sessions idle for longer than the idle window and returns how
// many were dropped.
func (t *Tracker) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-t.idle)
	n := 0
	for id, sess := range t.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(t.sessions, id)
			n++
		}
	}
	return n
}

// StartCleanup sweeps idle sessions every interval until ctx is done.
func (t *Tracker) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				t.Sweep()
			}
		}
	}()
}
