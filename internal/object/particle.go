package object

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// particlePool is a sync.Pool for reusing Particle objects to reduce allocations.
var particlePool = sync.Pool{
	New: func() any {
		return &Particle{}
	},
}

// Particle is a short-lived visual effect.
type Particle struct {
	alive
	X, Y    float64       // Position
	VX, VY  float64       // Velocity (units/s)
	Life    time.Duration // Remaining
	MaxLife time.Duration // Initial life (for fade calculation)
	Radius  float64
	Symbol  rune
	Color   Color
}

// NewParticle creates a single particle from the pool.
func NewParticle(x, y, vx, vy float64, life time.Duration, symbol rune, color Color) *Particle {
	p := particlePool.Get().(*Particle)
	*p = Particle{
		X:       x,
		Y:       y,
		VX:      vx,
		VY:      vy,
		Life:    life,
		MaxLife: life,
		Radius:  1,
		Symbol:  symbol,
		Color:   color,
	}
	return p
}

// Release returns the particle to the pool for reuse.
// Should be called when the particle is removed from the game.
func (p *Particle) Release() {
	particlePool.Put(p)
}

// Alpha is the remaining life fraction in [0,1].
func (p *Particle) Alpha() float64 {
	if p.MaxLife <= 0 || p.Life <= 0 {
		return 0
	}
	a := float64(p.Life) / float64(p.MaxLife)
	if a > 1 {
		return 1
	}
	return a
}

// Burst describes a radial spray of particles.
type Burst struct {
	Count   int
	Speed   float64
	Life    time.Duration
	Color   Color
	Symbols []rune
}

var (
	ExplosionBurst = Burst{Count: 14, Speed: 90, Life: 600 * time.Millisecond, Color: ColorOrange, Symbols: []rune{'#', '@', '*', '%', '+'}}
	DebrisBurst    = Burst{Count: 10, Speed: 60, Life: 700 * time.Millisecond, Color: ColorBrown, Symbols: []rune{'.', ',', '*', 'o'}}
	SparkBurst     = Burst{Count: 4, Speed: 70, Life: 250 * time.Millisecond, Color: ColorYellow, Symbols: []rune{'.', '\''}}
	PickupBurst    = Burst{Count: 8, Speed: 50, Life: 500 * time.Millisecond, Color: ColorCyan, Symbols: []rune{'+', '*'}}
	BossBurst      = Burst{Count: 60, Speed: 160, Life: 1500 * time.Millisecond, Color: ColorRed, Symbols: []rune{'#', '@', '*', '%', 'X', 'O'}}
)

// SpawnBurst creates particles in a circular burst pattern around (x, y).
// density scales the particle count; 0 disables particles.
func SpawnBurst(x, y float64, b Burst, density float64, rng *rand.Rand, emitter Emitter) {
	if emitter == nil || rng == nil {
		return
	}
	count := int(float64(b.Count)*density + 0.5)
	for i := 0; i < count; i++ {
		// Random direction
		angle := rng.Float64() * 2 * math.Pi
		// Random speed variation (50% to 150%)
		spd := b.Speed * (0.5 + rng.Float64())
		// Random lifetime variation (50% to 100%)
		life := time.Duration(float64(b.Life) * (0.5 + rng.Float64()*0.5))

		symbol := '*'
		if len(b.Symbols) > 0 {
			symbol = b.Symbols[rng.IntN(len(b.Symbols))]
		}
		emitter.EmitParticle(NewParticle(x, y, math.Cos(angle)*spd, math.Sin(angle)*spd, life, symbol, b.Color))
	}
}

// SpawnThrust creates exhaust particles below the player ship.
func SpawnThrust(x, y float64, rng *rand.Rand, emitter Emitter) {
	if emitter == nil || rng == nil {
		return
	}
	symbols := []rune{'*', '+', '\'', '.'}
	count := 1 + rng.IntN(2)
	for i := 0; i < count; i++ {
		vx := (rng.Float64() - 0.5) * 30
		vy := 60 + rng.Float64()*40
		life := time.Duration(100+rng.IntN(150)) * time.Millisecond
		p := NewParticle(x, y, vx, vy, life, symbols[rng.IntN(len(symbols))], ColorOrange)
		p.Drag = 0.85
		emitter.EmitParticle(p)
	}
}

// Update moves the particle and checks lifetime.
func (p *Particle) Update(ctx UpdateContext) {
	p.Life -= ctx.Delta
	if p.Life <= 0 {
		p.MarkDestroyed()
		return
	}

	dt := ctx.Delta.Seconds()
	p.X += p.VX * dt
	p.Y += p.VY * dt
}
