package watchdog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeRegistrar struct {
	registered bool
	err        error
	queries    int
}

func (f *fakeRegistrar) IsRegistered(ctx context.Context, app string) (bool, error) {
	f.queries++
	return f.registered, f.err
}

type fakeProcess struct {
	kills    int
	starts   int
	startErr error
	dead     bool
}

func (f *fakeProcess) Kill(ctx context.Context) error {
	f.kills++
	return nil
}

func (f *fakeProcess) Start(ctx context.Context) error {
	f.starts++
	return f.startErr
}

func (f *fakeProcess) Alive() bool { return !f.dead }

func newTestWatchdog(reg Registrar, proc Process) (*Watchdog, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	w := New(Config{Application: "voice-agent"}, reg, proc)
	w.budget.now = clock.now
	w.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return w, clock
}

func TestRestartBudget(t *testing.T) {
	reg := &fakeRegistrar{}
	proc := &fakeProcess{}
	w, clock := newTestWatchdog(reg, proc)
	ctx := context.Background()

	want := []Outcome{OutcomeRestarted, OutcomeRestarted, OutcomeRestarted, OutcomeSuppressed}
	for i, o := range want {
		if got := w.CheckOnce(ctx); got != o {
			t.Fatalf("detection %d: outcome = %s, want %s", i+1, got, o)
		}
		clock.advance(time.Minute)
	}
	if proc.starts != 3 || proc.kills != 3 {
		t.Fatalf("starts = %d kills = %d, want 3 each", proc.starts, proc.kills)
	}

	// first restart was 4 minutes ago
	if got := w.CheckOnce(ctx); got != OutcomeSuppressed {
		t.Fatalf("outcome = %s before the window cleared", got)
	}
	clock.advance(time.Minute)
	if got := w.CheckOnce(ctx); got != OutcomeRestarted {
		t.Fatalf("outcome = %s after the window cleared", got)
	}
	if proc.starts != 4 {
		t.Errorf("starts = %d, want 4", proc.starts)
	}
}

func TestCheckOnce(t *testing.T) {
	tests := []struct {
		name   string
		reg    *fakeRegistrar
		proc   *fakeProcess
		want   Outcome
		starts int
	}{
		{"registered", &fakeRegistrar{registered: true}, &fakeProcess{}, OutcomeRegistered, 0},
		{"not registered", &fakeRegistrar{}, &fakeProcess{}, OutcomeRestarted, 1},
		{"query fails", &fakeRegistrar{err: errors.New("connection refused")}, &fakeProcess{}, OutcomeRestarted, 1},
		{"start fails", &fakeRegistrar{}, &fakeProcess{startErr: errors.New("no such file")}, OutcomeRestartFailed, 1},
		{"client dies", &fakeRegistrar{}, &fakeProcess{dead: true}, OutcomeRestartFailed, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := newTestWatchdog(tt.reg, tt.proc)
			if got := w.CheckOnce(context.Background()); got != tt.want {
				t.Errorf("outcome = %s, want %s", got, tt.want)
			}
			if tt.proc.starts != tt.starts {
				t.Errorf("starts = %d, want %d", tt.proc.starts, tt.starts)
			}
		})
	}
}

func TestRecheckAfterRestart(t *testing.T) {
	reg := &fakeRegistrar{}
	w, _ := newTestWatchdog(reg, &fakeProcess{})
	w.CheckOnce(context.Background())
	if reg.queries != 2 {
		t.Errorf("queries = %d, want the check and the recheck", reg.queries)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	reg := &fakeRegistrar{registered: true}
	w, _ := newTestWatchdog(reg, &fakeProcess{})
	w.conf.CheckInterval = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestExecProcess(t *testing.T) {
	p := NewExecProcess([]string{"sleep", "30"}, "", "")
	if p.Alive() {
		t.Fatal("alive before start")
	}
	if err := p.Start(context.Background()); err != nil {
		t.Skipf("sleep not available: %v", err)
	}
	if !p.Alive() {
		t.Fatal("not alive after start")
	}
	if err := p.Kill(context.Background()); err != nil {
		t.Fatalf("Kill: %v", err)
	}
	if p.Alive() {
		t.Error("alive after kill")
	}
	if err := p.Kill(context.Background()); err != nil {
		t.Errorf("second Kill: %v", err)
	}

	if err := NewExecProcess(nil, "", "").Start(context.Background()); err == nil {
		t.Error("expected error for an empty command")
	}
}
