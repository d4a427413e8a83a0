package cache

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func counting(ttl time.Duration) (*TTLCache[int], *fakeClock) {
	n := 0
	c := New(ttl, func() (int, error) {
		n++
		return n, nil
	})
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.now = clock.Now
	return c, clock
}

func TestNew(t *testing.T) {
	c, _ := counting(time.Minute)
	if !c.IsExpired() {
		t.Error("new cache should be expired")
	}
}

func TestGetCachesWithinTTL(t *testing.T) {
	c, clock := counting(time.Minute)

	first, err := c.Get()
	if err != nil {
		t.Fatal(err)
	}
	clock.Advance(30 * time.Second)
	second, _ := c.Get()
	if first != second {
		t.Errorf("value reloaded inside TTL: %d -> %d", first, second)
	}

	clock.Advance(30 * time.Second)
	third, _ := c.Get()
	if third == second {
		t.Error("value should reload once the TTL has passed")
	}
	if c.Loads() != 2 {
		t.Errorf("Loads() = %d, want 2", c.Loads())
	}
}

func TestZeroTTLAlwaysLoads(t *testing.T) {
	c, _ := counting(0)
	for i := 1; i <= 3; i++ {
		v, _ := c.Get()
		if v != i {
			t.Errorf("Get() #%d = %d", i, v)
		}
	}
	if !c.IsExpired() {
		t.Error("zero TTL should never hold a value")
	}
}

func TestNoExpiryUntilInvalidate(t *testing.T) {
	c, clock := counting(NoExpiry)
	v1, _ := c.Get()
	clock.Advance(24 * time.Hour)
	v2, _ := c.Get()
	if v1 != v2 {
		t.Error("NoExpiry value should not reload over time")
	}

	c.Invalidate()
	if !c.IsExpired() {
		t.Error("Invalidate should expire the cache")
	}
	v3, _ := c.Get()
	if v3 == v2 {
		t.Error("value should reload after Invalidate")
	}
}

func TestLoaderErrorIsNotCached(t *testing.T) {
	fail := true
	c := New(NoExpiry, func() (string, error) {
		if fail {
			return "", errors.New("corpus missing")
		}
		return "ok", nil
	})

	if _, err := c.Get(); err == nil {
		t.Fatal("expected loader error")
	}
	fail = false
	v, err := c.Get()
	if err != nil || v != "ok" {
		t.Errorf("Get() = %q, %v", v, err)
	}
}

func TestConcurrentGetLoadsOnce(t *testing.T) {
	var mu sync.Mutex
	loads := 0
	c := New(NoExpiry, func() (int, error) {
		mu.Lock()
		loads++
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		return 7, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v, err := c.Get(); err != nil || v != 7 {
				t.Errorf("Get() = %d, %v", v, err)
			}
		}()
	}
	wg.Wait()

	if loads != 1 {
		t.Errorf("loader called %d times, want 1", loads)
	}
}

func TestConcurrentInvalidate(t *testing.T) {
	c, _ := counting(NoExpiry)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Get()
		}()
		go func() {
			defer wg.Done()
			c.Invalidate()
		}()
	}
	wg.Wait()
}
