package object

import "time"

// BuffKind is the closed set of temporary effects a comet can grant.
type BuffKind int

const (
	// BuffAttackSpeed multiplies the fire cooldown by its magnitude.
	BuffAttackSpeed BuffKind = iota
	// BuffMagnet extends the comet pickup radius by its magnitude.
	BuffMagnet
	// BuffInvincible makes the player ignore all damage.
	BuffInvincible
	// BuffSpeed multiplies movement speed by its magnitude.
	BuffSpeed
	// BuffNextShot multiplies the damage of the next bullet and is then consumed.
	BuffNextShot
)

func (k BuffKind) String() string {
	switch k {
	case BuffAttackSpeed:
		return "attack_speed"
	case BuffMagnet:
		return "magnet"
	case BuffInvincible:
		return "invincible"
	case BuffSpeed:
		return "speed"
	case BuffNextShot:
		return "next_shot"
	default:
		return "unknown"
	}
}

// BuffSpec is a catalog entry. A zero Duration never expires on its own.
type BuffSpec struct {
	Name      string
	Kind      BuffKind
	Magnitude float64
	Duration  time.Duration
	Color     Color
}

// BuffCatalog is the table comets draw from, uniformly.
var BuffCatalog = []BuffSpec{
	{Name: "Rapid Fire", Kind: BuffAttackSpeed, Magnitude: 0.5, Duration: 8 * time.Second, Color: ColorYellow},
	{Name: "Magnet", Kind: BuffMagnet, Magnitude: 150, Duration: 10 * time.Second, Color: ColorMagenta},
	{Name: "Shield", Kind: BuffInvincible, Magnitude: 1, Duration: 5 * time.Second, Color: ColorCyan},
	{Name: "Afterburner", Kind: BuffSpeed, Magnitude: 1.5, Duration: 6 * time.Second, Color: ColorGreen},
	{Name: "Heavy Round", Kind: BuffNextShot, Magnitude: 3, Color: ColorRed},
}

// Buff is an active effect started at Start (run elapsed time).
type Buff struct {
	BuffSpec
	Start time.Duration
}

// Expired reports whether the buff has run out at now.
func (b Buff) Expired(now time.Duration) bool {
	return b.Duration > 0 && now-b.Start >= b.Duration
}

// Remaining is the time left at now, or 0 for buffs without a duration.
func (b Buff) Remaining(now time.Duration) time.Duration {
	if b.Duration <= 0 {
		return 0
	}
	if r := b.Duration - (now - b.Start); r > 0 {
		return r
	}
	return 0
}

// Buffs is the set of active buffs, at most one per kind.
type Buffs []Buff

// Add activates spec at now. Collecting a kind that is already active restarts it.
func (bs *Buffs) Add(spec BuffSpec, now time.Duration) {
	for i := range *bs {
		if (*bs)[i].Kind == spec.Kind {
			(*bs)[i] = Buff{BuffSpec: spec, Start: now}
			return
		}
	}
	*bs = append(*bs, Buff{BuffSpec: spec, Start: now})
}

// Expire drops every buff that has run out at now and returns how many were removed.
func (bs *Buffs) Expire(now time.Duration) int {
	kept := (*bs)[:0]
	for _, b := range *bs {
		if !b.Expired(now) {
			kept = append(kept, b)
		}
	}
	removed := len(*bs) - len(kept)
	*bs = kept
	return removed
}

// Active returns the active buff of the given kind.
func (bs Buffs) Active(kind BuffKind) (Buff, bool) {
	for _, b := range bs {
		if b.Kind == kind {
			return b, true
		}
	}
	return Buff{}, false
}

// Has reports whether a buff of the given kind is active.
func (bs Buffs) Has(kind BuffKind) bool {
	_, ok := bs.Active(kind)
	return ok
}

// Magnitude returns the magnitude of the active buff of kind, or fallback.
func (bs Buffs) Magnitude(kind BuffKind, fallback float64) float64 {
	if b, ok := bs.Active(kind); ok {
		return b.Magnitude
	}
	return fallback
}

// Consume removes the buff of the given kind and returns it.
func (bs *Buffs) Consume(kind BuffKind) (Buff, bool) {
	for i, b := range *bs {
		if b.Kind == kind {
			*bs = append((*bs)[:i], (*bs)[i+1:]...)
			return b, true
		}
	}
	return Buff{}, false
}
