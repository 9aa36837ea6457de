package physics

import (
	"math"
	"testing"
)

func TestCirclesOverlapBoundary(t *testing.T) {
	tests := []struct {
		name string
		x2   float64
		want bool
	}{
		{"overlapping", 9.99, true},
		{"touching is not a hit", 10, false},
		{"apart", 10.01, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CirclesOverlap(0, 0, 4, tt.x2, 0, 6); got != tt.want {
				t.Errorf("CirclesOverlap at dx=%v = %v, want %v", tt.x2, got, tt.want)
			}
		})
	}
}

func TestCircleBoxOverlap(t *testing.T) {
	tests := []struct {
		name   string
		cx, cy float64
		want   bool
	}{
		{"center inside", 0, 0, true},
		{"near right edge", 54, 0, true},
		{"touching right edge", 55, 0, false},
		{"corner gap", 54, 34, false},
		{"corner overlap", 52, 32, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CircleBoxOverlap(tt.cx, tt.cy, 5, 0, 0, 50, 30)
			if got != tt.want {
				t.Errorf("CircleBoxOverlap(%v,%v) = %v, want %v", tt.cx, tt.cy, got, tt.want)
			}
		})
	}
}

func TestMoveToward(t *testing.T) {
	tests := []struct {
		name                  string
		cur, target, step, ep float64
		want                  float64
	}{
		{"step right", 0, 100, 10, 2, 10},
		{"step left", 100, 0, 10, 2, 90},
		{"snap within epsilon", 99, 100, 0.5, 2, 100},
		{"no overshoot", 95, 100, 10, 2, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MoveToward(tt.cur, tt.target, tt.step, tt.ep); got != tt.want {
				t.Errorf("MoveToward = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	x, y := Normalize(3, 4)
	if math.Abs(x-0.6) > 1e-9 || math.Abs(y-0.8) > 1e-9 {
		t.Errorf("Normalize(3,4) = (%v,%v), want (0.6,0.8)", x, y)
	}
	x, y = Normalize(0, 0)
	if x != 0 || y != 0 {
		t.Errorf("Normalize(0,0) = (%v,%v), want (0,0)", x, y)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(-5, 0, 10); got != 0 {
		t.Errorf("Clamp low = %v, want 0", got)
	}
	if got := Clamp(15, 0, 10); got != 10 {
		t.Errorf("Clamp high = %v, want 10", got)
	}
	if got := Clamp(5, 10, 0); got != 5 {
		t.Errorf("Clamp inverted = %v, want midpoint 5", got)
	}
}
