// Package object holds the plain entity records of a run and their per-frame updates.
package object

import (
	"math/rand/v2"
	"time"

	"github.com/tomz197/starfall/internal/loop/config"
)

// Emitter receives entities created by other entities during update.
type Emitter interface {
	EmitEnemyBullet(b *EnemyBullet)
	EmitParticle(p *Particle)
}

// Target is the position entities aim at and follow (the player).
type Target struct {
	X, Y float64
}

// UpdateContext provides all the information an entity needs during update.
type UpdateContext struct {
	Delta   time.Duration
	Bounds  Bounds
	Tuning  *config.Tuning
	Target  Target
	Emitter Emitter
	Rand    *rand.Rand
}

// Bounds is the fixed-size play area [0,Width]x[0,Height].
type Bounds struct {
	Width  float64
	Height float64
}

// DefaultBounds returns the standard play area.
func DefaultBounds() Bounds {
	return Bounds{Width: config.PlayWidth, Height: config.PlayHeight}
}

// Contains reports whether (x, y) lies inside the area expanded by margin on every side.
func (b Bounds) Contains(x, y, margin float64) bool {
	return x >= -margin && x <= b.Width+margin && y >= -margin && y <= b.Height+margin
}

// Destructible is implemented by entities that can be marked for removal.
type Destructible interface {
	// MarkDestroyed marks the entity for removal at the end of the current phase.
	// It returns false if the entity was already marked.
	MarkDestroyed() bool
	// IsDestroyed returns true if the entity is marked for destruction.
	IsDestroyed() bool
}

// Releasable is implemented by pooled entities that can be returned to a pool.
type Releasable interface {
	Release()
}

// alive is embedded by every entity to implement Destructible.
type alive struct {
	destroyed bool
}

func (a *alive) MarkDestroyed() bool {
	if a.destroyed {
		return false
	}
	a.destroyed = true
	return true
}

func (a *alive) IsDestroyed() bool {
	return a.destroyed
}

// Compact removes destroyed entities in place, keeping the order of the survivors.
// Removed pooled entities are released. Removal is by identity: two entities at the
// same position are never confused because only the marked pointer is dropped.
func Compact[T Destructible](items []T) []T {
	kept := items[:0]
	for _, it := range items {
		if it.IsDestroyed() {
			if r, ok := any(it).(Releasable); ok {
				r.Release()
			}
			continue
		}
		kept = append(kept, it)
	}
	var zero T
	for i := len(kept); i < len(items); i++ {
		items[i] = zero
	}
	return kept
}

// Color is an index into the terminal's 256-colour palette.
type Color uint8

const (
	ColorNone    Color = 0
	ColorRed     Color = 196
	ColorOrange  Color = 208
	ColorYellow  Color = 226
	ColorGreen   Color = 46
	ColorCyan    Color = 51
	ColorBlue    Color = 33
	ColorMagenta Color = 201
	ColorWhite   Color = 15
	ColorGray    Color = 245
	ColorBrown   Color = 130
)

// DisplayHealth is the value shown to the player: never negative, rounded.
func DisplayHealth(h float64) int {
	if h <= 0 {
		return 0
	}
	return int(h + 0.5)
}
