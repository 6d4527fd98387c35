package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryStore_SetAndGet(t *testing.T) {
	s := NewMemoryStore()
	s.Set("k", []byte("v"), time.Minute)

	got, ok := s.Get("k")
	if !ok || string(got) != "v" {
		t.Fatalf("expected hit with v, got %q %v", got, ok)
	}
}

func TestMemoryStore_Expiration(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2024, 3, 12, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Set("k", []byte("v"), time.Minute)
	now = now.Add(2 * time.Minute)

	if _, ok := s.Get("k"); ok {
		t.Fatal("expected expired entry to miss")
	}
	if s.Len() != 0 {
		t.Errorf("expected expired entry removed, len=%d", s.Len())
	}
}

func TestMemoryStore_NonPositiveTTL(t *testing.T) {
	s := NewMemoryStore()
	s.Set("k", []byte("v"), time.Minute)
	s.Set("k", []byte("w"), 0)
	if _, ok := s.Get("k"); ok {
		t.Fatal("expected zero ttl to drop the key")
	}
}

func TestMemoryStore_DeletePrefix(t *testing.T) {
	s := NewMemoryStore()
	s.Set("symptom_summary:form", []byte("1"), time.Minute)
	s.Set("symptom_summary:total", []byte("2"), time.Minute)
	s.Set("clinic_summary:form", []byte("3"), time.Minute)

	if n := s.DeletePrefix("symptom_summary:"); n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
	if _, ok := s.Get("clinic_summary:form"); !ok {
		t.Error("unrelated key removed")
	}
}

func TestMemoryStore_Clear(t *testing.T) {
	s := NewMemoryStore()
	s.Set("a", []byte("1"), time.Minute)
	s.Set("b", []byte("2"), time.Minute)
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("expected empty store, len=%d", s.Len())
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%26))
			s.Set(key, []byte{byte(i)}, time.Minute)
			s.Get(key)
			if i%10 == 0 {
				s.DeletePrefix(key)
			}
		}(i)
	}
	wg.Wait()
}

func TestMemoryStore_StartCleanup(t *testing.T) {
	s := NewMemoryStore()
	s.Set("k", []byte("v"), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartCleanup(ctx, 5*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for s.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Len() != 0 {
		t.Error("expected cleanup to sweep expired entry")
	}
}

type summary struct {
	Label string `json:"label"`
	Total int    `json:"total"`
}

func TestRemember_ComputesOnceThenHits(t *testing.T) {
	s := NewMemoryStore()
	calls := 0
	compute := func() ([]summary, error) {
		calls++
		return []summary{{Label: "ไข้", Total: 3}}, nil
	}

	v, hit, err := Remember(s, "symptom_summary:form", time.Minute, compute)
	if err != nil || hit {
		t.Fatalf("first call: hit=%v err=%v", hit, err)
	}
	if len(v) != 1 || v[0].Total != 3 {
		t.Fatalf("unexpected value %+v", v)
	}

	v, hit, err = Remember(s, "symptom_summary:form", time.Minute, compute)
	if err != nil || !hit {
		t.Fatalf("second call: hit=%v err=%v", hit, err)
	}
	if v[0].Label != "ไข้" {
		t.Errorf("cached value mismatch %+v", v)
	}
	if calls != 1 {
		t.Errorf("expected 1 compute, got %d", calls)
	}
}

func TestRemember_ErrorNotCached(t *testing.T) {
	s := NewMemoryStore()
	boom := errors.New("store down")

	_, _, err := Remember(s, "k", time.Minute, func() (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected compute error, got %v", err)
	}
	if s.Len() != 0 {
		t.Error("failed compute must not be cached")
	}
}

func TestRemember_CorruptEntryRecomputed(t *testing.T) {
	s := NewMemoryStore()
	s.Set("k", []byte("{not json"), time.Minute)

	v, hit, err := Remember(s, "k", time.Minute, func() (int, error) { return 7, nil })
	if err != nil || hit || v != 7 {
		t.Fatalf("expected recompute to 7, got v=%d hit=%v err=%v", v, hit, err)
	}
}

func TestRememberAt_InvalidatedDuringCompute(t *testing.T) {
	s := NewMemoryStore()
	var gen Generation

	v, hit, err := RememberAt(s, &gen, "symptom_summary:total", time.Minute, func() (int, error) {
		gen.Invalidate(func() { s.DeletePrefix("symptom_summary:") })
		return 1, nil
	})
	if err != nil || hit || v != 1 {
		t.Fatalf("v=%d hit=%v err=%v", v, hit, err)
	}
	if s.Len() != 0 {
		t.Fatal("value computed before invalidation was stored")
	}

	v, hit, err = RememberAt(s, &gen, "symptom_summary:total", time.Minute, func() (int, error) { return 2, nil })
	if err != nil || hit || v != 2 {
		t.Fatalf("v=%d hit=%v err=%v", v, hit, err)
	}
	if _, ok := s.Get("symptom_summary:total"); !ok {
		t.Error("value computed under the current generation was not stored")
	}
}
