// Package physics provides the distance and overlap tests used by the collision resolver.
package physics

import "math"

// Distance calculates the Euclidean distance between two points.
func Distance(x1, y1, x2, y2 float64) float64 {
	return math.Sqrt(DistanceSquared(x1, y1, x2, y2))
}

// DistanceSquared calculates the squared distance between two points.
// Use this when comparing distances to avoid the sqrt cost.
func DistanceSquared(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return dx*dx + dy*dy
}

// CirclesOverlap reports whether two circles overlap.
// Touching circles (distance == r1+r2) do not overlap.
func CirclesOverlap(x1, y1, r1, x2, y2, r2 float64) bool {
	minDist := r1 + r2
	return DistanceSquared(x1, y1, x2, y2) < minDist*minDist
}

// CircleBoxOverlap reports whether a circle overlaps an axis-aligned box given by its
// center and half extents. The test uses the closest point of the box to the circle
// center, with the same strict boundary rule as CirclesOverlap.
func CircleBoxOverlap(cx, cy, r, bx, by, halfW, halfH float64) bool {
	nx := Clamp(cx, bx-halfW, bx+halfW)
	ny := Clamp(cy, by-halfH, by+halfH)
	return DistanceSquared(cx, cy, nx, ny) < r*r
}

// Clamp limits v to [lo, hi]. If lo > hi the midpoint is returned.
func Clamp(v, lo, hi float64) float64 {
	if lo > hi {
		return (lo + hi) / 2
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Normalize returns the unit vector of (x, y), or (0, 0) for the zero vector.
func Normalize(x, y float64) (float64, float64) {
	l := math.Hypot(x, y)
	if l == 0 {
		return 0, 0
	}
	return x / l, y / l
}

// MoveToward steps current toward target by at most maxStep. When the remaining gap
// is within snap (or the step would overshoot) it lands exactly on target.
func MoveToward(current, target, maxStep, snap float64) float64 {
	gap := target - current
	if math.Abs(gap) <= snap || math.Abs(gap) <= maxStep {
		return target
	}
	if gap > 0 {
		return current + maxStep
	}
	return current - maxStep
}
