package object

import (
	"math"

	"github.com/tomz197/starfall/internal/physics"
)

// FormationKind is the shape of a coordinated enemy group.
type FormationKind int

const (
	FormationHorizontal FormationKind = iota
	FormationCircle
	FormationDiagonal
	FormationVShape
)

// FormationKinds lists every formation kind, in selection order.
var FormationKinds = []FormationKind{FormationHorizontal, FormationCircle, FormationDiagonal, FormationVShape}

func (k FormationKind) String() string {
	switch k {
	case FormationHorizontal:
		return "horizontal"
	case FormationCircle:
		return "circle"
	case FormationDiagonal:
		return "diagonal"
	case FormationVShape:
		return "vshape"
	default:
		return "unknown"
	}
}

// Size is the number of members spawned for the formation kind.
func (k FormationKind) Size() int {
	if k == FormationCircle {
		return 6
	}
	return 5
}

// Layout constants.
const (
	formationSpacing     = 50.0
	formationCircleR     = 70.0
	formationDiagonalDY  = 25.0
	formationVShapeDepth = 30.0
)

// Formation is the shared state of a group of enemies. Members hold a pointer to it
// and derive their position from CenterX plus their slot offset.
type Formation struct {
	alive
	ID      int
	Kind    FormationKind
	Size    int
	CenterX float64
	StopY   float64
}

// NewFormation creates a formation centered at centerX that stops at stopY.
func NewFormation(id int, kind FormationKind, centerX, stopY float64) *Formation {
	return &Formation{
		ID:      id,
		Kind:    kind,
		Size:    kind.Size(),
		CenterX: centerX,
		StopY:   stopY,
	}
}

// Track eases the center toward targetX by at most speed*dt, snapping within eps.
func (f *Formation) Track(targetX, speed, eps, dt float64) {
	f.CenterX = physics.MoveToward(f.CenterX, targetX, speed*dt, eps)
}

// Slot returns the target position of member index.
func (f *Formation) Slot(index int, b Bounds, radius float64) (float64, float64) {
	return FormationSlot(f.Kind, f.Size, f.CenterX, f.StopY, index, b, radius)
}

// SlotOffset is the (dx, dy) offset of member index from (centerX, stopY).
func SlotOffset(kind FormationKind, size, index int) (float64, float64) {
	mid := float64(size-1) / 2
	i := float64(index)
	switch kind {
	case FormationHorizontal:
		return (i - mid) * formationSpacing, 0
	case FormationCircle:
		angle := 2 * math.Pi * i / float64(size)
		return math.Cos(angle) * formationCircleR, math.Sin(angle) * formationCircleR
	case FormationDiagonal:
		return (i - mid) * formationSpacing, i * formationDiagonalDY
	case FormationVShape:
		return (i - mid) * formationSpacing, -math.Abs(i-mid) * formationVShapeDepth
	default:
		return 0, 0
	}
}

// FormationSlot computes the target position of a member. X is clamped so the member
// stays fully inside the play area.
func FormationSlot(kind FormationKind, size int, centerX, stopY float64, index int, b Bounds, radius float64) (float64, float64) {
	dx, dy := SlotOffset(kind, size, index)
	return physics.Clamp(centerX+dx, radius, b.Width-radius), stopY + dy
}
