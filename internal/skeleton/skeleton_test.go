package skeleton

import (
	"sync"
	"testing"

	"github.com/golang/geo/r3"
)

func TestJoint_String(t *testing.T) {
	tests := []struct {
		joint Joint
		want  string
	}{
		{Pelvis, "pelvis"},
		{HandLeft, "hand_left"},
		{AnkleRight, "ankle_right"},
		{Head, "head"},
		{EarRight, "ear_right"},
		{NumJoints, "unknown"},
		{Joint(-1), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.joint.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJoint_Count(t *testing.T) {
	if NumJoints != 32 {
		t.Errorf("NumJoints = %d, want 32", NumJoints)
	}
}

func TestCell_StartsEmpty(t *testing.T) {
	c := NewCell()
	if got := c.Load(); got != nil {
		t.Errorf("Load() = %v, want nil", got)
	}
}

func TestCell_PublishReplaces(t *testing.T) {
	c := NewCell()

	first := &Snapshot{BodyID: 1}
	first.Joints[Head] = r3.Vector{X: 0, Y: -500, Z: 2000}
	c.Publish(first)

	if got := c.Load(); got != first {
		t.Fatalf("Load() = %v, want first snapshot", got)
	}

	second := &Snapshot{BodyID: 2}
	c.Publish(second)
	if got := c.Load(); got.BodyID != 2 {
		t.Errorf("BodyID = %d, want 2", got.BodyID)
	}

	c.Publish(nil)
	if got := c.Load(); got != nil {
		t.Errorf("Load() after nil publish = %v, want nil", got)
	}
}

func TestCell_ConcurrentReaders(t *testing.T) {
	c := NewCell()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s := &Snapshot{BodyID: uint32(i)}
			for j := range s.Joints {
				s.Joints[j] = r3.Vector{X: float64(i), Y: float64(i), Z: float64(i)}
			}
			c.Publish(s)
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				s := c.Load()
				if s == nil {
					continue
				}
				want := float64(s.BodyID)
				for j := range s.Joints {
					if s.Joints[j].X != want {
						t.Errorf("torn snapshot: joint %d X = %f, want %f", j, s.Joints[j].X, want)
						return
					}
				}
			}
		}()
	}

	wg.Wait()
}
