package tracker

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/attention/internal/metrics"
	"github.com/ayusman/attention/internal/skeleton"
)

func TestClosestBody(t *testing.T) {
	tests := []struct {
		name    string
		depths  []float64
		want    int
		wantHit bool
	}{
		{"no bodies", nil, 0, false},
		{"single body", []float64{1500}, 0, true},
		{"middle is closest", []float64{800, 300, 300}, 1, true},
		{"last is closest", []float64{2000, 1800, 900}, 2, true},
		{"tie goes to first", []float64{1200, 1200}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bodies := make([]Body, len(tt.depths))
			for i, d := range tt.depths {
				bodies[i] = StandingBody(uint32(i+1), d)
			}

			got, ok := ClosestBody(bodies)
			if ok != tt.wantHit {
				t.Fatalf("ok = %v, want %v", ok, tt.wantHit)
			}
			if ok && got != tt.want {
				t.Errorf("ClosestBody() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAcquirer_Poll(t *testing.T) {
	t.Run("publishes the closest body", func(t *testing.T) {
		mock := NewMockProvider()
		mock.SetBodies([]Body{
			StandingBody(7, 800),
			StandingBody(8, 300),
			StandingBody(9, 300),
		})

		cell := skeleton.NewCell()
		a := NewAcquirer(mock, cell, 0)
		a.step(context.Background())

		snap := cell.Load()
		if snap == nil {
			t.Fatal("expected snapshot, got nil")
		}
		if snap.BodyID != 8 {
			t.Errorf("BodyID = %d, want 8", snap.BodyID)
		}
		if snap.At(skeleton.Pelvis).Z != 300 {
			t.Errorf("pelvis depth = %v, want 300", snap.At(skeleton.Pelvis).Z)
		}
	})

	t.Run("no bodies publishes nil", func(t *testing.T) {
		mock := NewMockProvider()
		cell := skeleton.NewCell()
		cell.Publish(&skeleton.Snapshot{BodyID: 1})

		a := NewAcquirer(mock, cell, 0)
		a.step(context.Background())

		if cell.Load() != nil {
			t.Error("expected nil snapshot with no bodies in view")
		}
	})

	t.Run("provider error publishes nil and returns error", func(t *testing.T) {
		mock := NewMockProvider()
		mock.SetBodies([]Body{StandingBody(1, 1000)})
		cell := skeleton.NewCell()
		m := metrics.New()
		a := NewAcquirer(mock, cell, 0, WithMetrics(m))

		a.step(context.Background())
		if cell.Load() == nil {
			t.Fatal("expected snapshot before the error")
		}

		sensorErr := errors.New("capture timeout")
		mock.SetError(sensorErr)

		snap, err := a.Poll(context.Background())
		if !errors.Is(err, sensorErr) {
			t.Errorf("Poll() error = %v, want %v", err, sensorErr)
		}
		if snap != nil {
			t.Error("expected nil snapshot on error")
		}

		a.step(context.Background())
		if cell.Load() != nil {
			t.Error("expected nil snapshot after provider error")
		}
		if a.errStreak != 1 {
			t.Errorf("errStreak = %d, want 1", a.errStreak)
		}

		mock.SetError(nil)
		a.step(context.Background())
		if cell.Load() == nil {
			t.Error("expected snapshot after recovery")
		}
		if a.errStreak != 0 {
			t.Errorf("errStreak = %d, want 0 after recovery", a.errStreak)
		}
	})
}

func TestAcquirer_SetEnabled(t *testing.T) {
	mock := NewMockProvider()
	mock.SetBodies([]Body{StandingBody(1, 1000)})
	cell := skeleton.NewCell()
	a := NewAcquirer(mock, cell, 0)

	a.step(context.Background())
	if cell.Load() == nil {
		t.Fatal("expected snapshot while enabled")
	}

	a.SetEnabled(false)
	if a.IsEnabled() {
		t.Error("expected acquirer to be disabled")
	}
	if cell.Load() != nil {
		t.Error("expected cell cleared when disabled")
	}

	calls := mock.Calls()
	a.step(context.Background())
	if mock.Calls() != calls {
		t.Error("provider should not be polled while disabled")
	}

	a.SetEnabled(true)
	a.step(context.Background())
	if cell.Load() == nil {
		t.Error("expected snapshot after re-enabling")
	}
}

func TestAcquirer_Run(t *testing.T) {
	mock := NewMockProvider()
	mock.SetBodies([]Body{StandingBody(3, 900)})
	cell := skeleton.NewCell()
	a := NewAcquirer(mock, cell, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for cell.Load() == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if cell.Load() == nil {
		t.Fatal("acquirer never published a snapshot")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}

	if cell.Load() != nil {
		t.Error("expected cell cleared after Run returns")
	}
}

func TestParseFrame(t *testing.T) {
	joints := make([]string, skeleton.NumJoints)
	for i := range joints {
		joints[i] = "[1,2,3]"
	}
	joints[skeleton.Pelvis] = "[10,-20,1500]"
	body := `{"id":4,"joints":[` + strings.Join(joints, ",") + `]}`

	t.Run("valid frame", func(t *testing.T) {
		frame, err := parseFrame([]byte(`{"timestamp_us":1000000,"bodies":[` + body + `]}`))
		if err != nil {
			t.Fatalf("parseFrame() error = %v", err)
		}
		if len(frame.Bodies) != 1 {
			t.Fatalf("got %d bodies, want 1", len(frame.Bodies))
		}
		b := frame.Bodies[0]
		if b.ID != 4 {
			t.Errorf("ID = %d, want 4", b.ID)
		}
		p := b.Joints[skeleton.Pelvis]
		if p.X != 10 || p.Y != -20 || p.Z != 1500 {
			t.Errorf("pelvis = %v, want (10,-20,1500)", p)
		}
		if !frame.Timestamp.Equal(time.UnixMicro(1000000)) {
			t.Errorf("timestamp = %v", frame.Timestamp)
		}
	})

	t.Run("empty frame", func(t *testing.T) {
		frame, err := parseFrame([]byte(`{"bodies":[]}`))
		if err != nil {
			t.Fatalf("parseFrame() error = %v", err)
		}
		if len(frame.Bodies) != 0 {
			t.Errorf("got %d bodies, want 0", len(frame.Bodies))
		}
	})

	t.Run("bridge error", func(t *testing.T) {
		_, err := parseFrame([]byte(`{"error":"device not opened"}`))
		if err == nil || !strings.Contains(err.Error(), "device not opened") {
			t.Errorf("parseFrame() error = %v", err)
		}
	})

	t.Run("short joint list", func(t *testing.T) {
		_, err := parseFrame([]byte(`{"bodies":[{"id":1,"joints":[[0,0,0]]}]}`))
		if err == nil {
			t.Error("expected error for short joint list")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := parseFrame([]byte(`not json`))
		if err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestNewBridgeProvider_NotFound(t *testing.T) {
	_, err := NewBridgeProvider(BridgeConfig{Command: "attention-no-such-bridge-binary"})
	if !errors.Is(err, ErrBridgeNotFound) {
		t.Errorf("error = %v, want ErrBridgeNotFound", err)
	}

	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	_, err = NewBridgeProvider(BridgeConfig{Command: "sh", Args: []string{"no/such/bridge.py"}})
	if !errors.Is(err, ErrBridgeNotFound) {
		t.Errorf("error = %v, want ErrBridgeNotFound for missing script", err)
	}
}

func TestBridgeProvider_Update(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	joints := make([]string, skeleton.NumJoints)
	for i := range joints {
		joints[i] = "[0,0,1000]"
	}
	line := `{"bodies":[{"id":2,"joints":[` + strings.Join(joints, ",") + `]}]}`
	script := `while read req; do echo '` + line + `'; done`

	p, err := NewBridgeProvider(BridgeConfig{Command: "sh", Args: []string{"-c", script}})
	if err != nil {
		t.Fatalf("NewBridgeProvider() error = %v", err)
	}
	defer p.Close()

	for i := 0; i < 2; i++ {
		frame, err := p.Update(context.Background())
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if len(frame.Bodies) != 1 || frame.Bodies[0].ID != 2 {
			t.Errorf("unexpected frame: %+v", frame.Bodies)
		}
	}
}

func TestBridgeProvider_UnresponsiveHelper(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	t.Run("context deadline", func(t *testing.T) {
		p, err := NewBridgeProvider(BridgeConfig{Command: "sleep", Args: []string{"30"}})
		if err != nil {
			t.Fatalf("NewBridgeProvider() error = %v", err)
		}
		defer p.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err = p.Update(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Update() error = %v, want context.DeadlineExceeded", err)
		}
		if elapsed := time.Since(start); elapsed > 2*time.Second {
			t.Errorf("Update() returned %s after a 200ms deadline", elapsed)
		}
	})

	t.Run("request timeout", func(t *testing.T) {
		p, err := NewBridgeProvider(BridgeConfig{
			Command:        "sleep",
			Args:           []string{"30"},
			RequestTimeout: 100 * time.Millisecond,
			StartTimeout:   100 * time.Millisecond,
		})
		if err != nil {
			t.Fatalf("NewBridgeProvider() error = %v", err)
		}
		defer p.Close()

		start := time.Now()
		_, err = p.Update(context.Background())
		if !errors.Is(err, ErrBridgeTimeout) {
			t.Errorf("Update() error = %v, want ErrBridgeTimeout", err)
		}
		if elapsed := time.Since(start); elapsed > 2*time.Second {
			t.Errorf("Update() returned after %s", elapsed)
		}

		p.mu.Lock()
		started := p.started
		p.mu.Unlock()
		if started {
			t.Error("timed out helper should be stopped")
		}
	})
}

func TestBridgeProvider_CloseKillsStubbornHelper(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	// Answers once, then ignores stdin EOF.
	script := `read req; echo '{"bodies":[]}'; exec sleep 30`
	p, err := NewBridgeProvider(BridgeConfig{
		Command:     "sh",
		Args:        []string{"-c", script},
		StopTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewBridgeProvider() error = %v", err)
	}

	frame, err := p.Update(context.Background())
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if len(frame.Bodies) != 0 {
		t.Errorf("bodies = %d, want 0", len(frame.Bodies))
	}

	done := make(chan struct{})
	go func() {
		p.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Close() blocked on a helper that ignores stdin close")
	}
}

func TestAcquirer_UnresponsiveBridgeStops(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}

	p, err := NewBridgeProvider(BridgeConfig{Command: "sleep", Args: []string{"30"}})
	if err != nil {
		t.Fatalf("NewBridgeProvider() error = %v", err)
	}
	defer p.Close()

	cell := skeleton.NewCell()
	acq := NewAcquirer(p, cell, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		acq.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel while the bridge was silent")
	}
	if cell.Load() != nil {
		t.Error("snapshot should be cleared")
	}
}
