package memory

import (
	"testing"
	"time"
)

func TestWaitIfPausedWithoutLimit(t *testing.T) {
	t.Setenv("GOMEMLIMIT", "")
	m := NewMonitor(Config{CheckInterval: time.Millisecond})
	m.Start()
	defer m.Stop()

	// No limit: the gate must never block.
	done := make(chan struct{})
	go func() {
		m.WaitIfPaused()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitIfPaused blocked without a configured limit")
	}
}

func TestSamplePausesAndResumes(t *testing.T) {
	m := NewMonitor(Config{
		// 1 byte limit: any heap usage is critical.
		LimitBytes:        1,
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     time.Hour,
	})

	m.sample()
	if !m.IsPaused() {
		t.Fatal("monitor not paused with usage far above critical mark")
	}
	if m.Usage() <= 1 {
		t.Errorf("Usage() = %v, want > 1 with a 1-byte limit", m.Usage())
	}

	// Raising the limit far above any plausible heap lets it recover.
	m.mu.Lock()
	m.limit = 1 << 50
	m.mu.Unlock()

	m.sample()
	if m.IsPaused() {
		t.Fatal("monitor still paused after usage dropped below the high-water mark")
	}
}

func TestStopReleasesWaiters(t *testing.T) {
	m := NewMonitor(Config{
		LimitBytes:        1,
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     time.Hour,
	})
	m.sample()
	if !m.IsPaused() {
		t.Fatal("expected paused monitor")
	}

	result := make(chan bool, 1)
	go func() { result <- m.WaitIfPaused() }()

	m.Stop()

	select {
	case ok := <-result:
		if ok {
			t.Error("WaitIfPaused() = true after Stop, want false")
		}
	case <-time.After(time.Second):
		t.Fatal("WaitIfPaused did not return after Stop")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	m := NewMonitor(DefaultConfig())
	m.Stop()
	m.Stop()
}
