// Package progression holds the persistent profile of a player: currency,
// unlocked levels, purchased upgrades, the selected run loadout and achievements.
package progression

import (
	"errors"
	"slices"
	"time"

	"github.com/tomz197/starfall/internal/loop/config"
)

var (
	ErrInsufficientFunds = errors.New("not enough currency")
	ErrMaxLevel          = errors.New("upgrade already at max level")
	ErrUnknownUpgrade    = errors.New("unknown upgrade")
	ErrUnknownModifier   = errors.New("unknown modifier")
	ErrTooManyModifiers  = errors.New("too many modifiers selected")
	ErrLevelLocked       = errors.New("level is locked")
	ErrUnknownLevel      = errors.New("unknown level")
)

// Upgrade is a permanent ship improvement bought in the shop.
type Upgrade string

const (
	UpgradeHealth   Upgrade = "health"
	UpgradeSpeed    Upgrade = "speed"
	UpgradeDamage   Upgrade = "damage"
	UpgradeFireRate Upgrade = "fire_rate"
)

// Upgrades lists the shop inventory in display order.
var Upgrades = []Upgrade{UpgradeHealth, UpgradeSpeed, UpgradeDamage, UpgradeFireRate}

// MaxUpgradeLevel is the highest level an upgrade can reach.
const MaxUpgradeLevel = 10

func (u Upgrade) Valid() bool {
	return slices.Contains(Upgrades, u)
}

// Label is the shop display name.
func (u Upgrade) Label() string {
	switch u {
	case UpgradeHealth:
		return "Hull Plating"
	case UpgradeSpeed:
		return "Thrusters"
	case UpgradeDamage:
		return "Cannon Power"
	case UpgradeFireRate:
		return "Autoloader"
	default:
		return string(u)
	}
}

// UpgradeCost is the price of buying the level after current.
func UpgradeCost(current int) int {
	return 10 + 10*current
}

// Modifier is a per-run loadout option.
type Modifier string

const (
	// ModOvercharge gives each shot a chance to deal double damage.
	ModOvercharge Modifier = "overcharge"
	// ModRapidFire shortens the fire cooldown.
	ModRapidFire Modifier = "rapid_fire"
	// ModAutoRepair slowly regenerates health.
	ModAutoRepair Modifier = "auto_repair"
)

// Modifiers lists every loadout option in display order.
var Modifiers = []Modifier{ModOvercharge, ModRapidFire, ModAutoRepair}

// MaxModifiers is how many modifiers a loadout may hold.
const MaxModifiers = 3

func (m Modifier) Valid() bool {
	return slices.Contains(Modifiers, m)
}

// Label is the loadout display name.
func (m Modifier) Label() string {
	switch m {
	case ModOvercharge:
		return "Overcharge"
	case ModRapidFire:
		return "Rapid Fire"
	case ModAutoRepair:
		return "Auto Repair"
	default:
		return string(m)
	}
}

// Achievements are lifetime counters of a profile.
type Achievements struct {
	Runs           int           `json:"runs"`
	Victories      int           `json:"victories"`
	Kills          int           `json:"kills"`
	Meteorites     int           `json:"meteorites"`
	Comets         int           `json:"comets"`
	BossesDefeated int           `json:"bosses_defeated"`
	BestTime       time.Duration `json:"best_time"`
}

// State is the persisted profile.
type State struct {
	Currency     int              `json:"currency"`
	Unlocked     []config.LevelID `json:"unlocked"`
	Upgrades     map[Upgrade]int  `json:"upgrades"`
	Loadout      []Modifier       `json:"loadout"`
	Facts        []string         `json:"facts"`
	Achievements Achievements     `json:"achievements"`
}

// Default returns the profile of a new player.
func Default() State {
	return State{
		Unlocked: []config.LevelID{config.FirstLevel},
		Upgrades: make(map[Upgrade]int),
	}
}

// Normalize repairs a loaded profile: negative or unknown values are dropped and
// the first level is always unlocked.
func (s *State) Normalize() {
	if s.Currency < 0 {
		s.Currency = 0
	}

	unlocked := []config.LevelID{config.FirstLevel}
	for _, id := range s.Unlocked {
		if _, ok := config.LevelByID(id); ok && !slices.Contains(unlocked, id) {
			unlocked = append(unlocked, id)
		}
	}
	s.Unlocked = unlocked

	upgrades := make(map[Upgrade]int, len(s.Upgrades))
	for u, lvl := range s.Upgrades {
		if !u.Valid() || lvl <= 0 {
			continue
		}
		upgrades[u] = min(lvl, MaxUpgradeLevel)
	}
	s.Upgrades = upgrades

	var loadout []Modifier
	for _, m := range s.Loadout {
		if m.Valid() && !slices.Contains(loadout, m) && len(loadout) < MaxModifiers {
			loadout = append(loadout, m)
		}
	}
	s.Loadout = loadout

	var facts []string
	for _, f := range s.Facts {
		if f != "" && !slices.Contains(facts, f) {
			facts = append(facts, f)
		}
	}
	s.Facts = facts
}

// Clone returns a deep copy so the saver never shares slices or maps with the game.
func (s State) Clone() State {
	c := s
	c.Unlocked = slices.Clone(s.Unlocked)
	c.Loadout = slices.Clone(s.Loadout)
	c.Facts = slices.Clone(s.Facts)
	c.Upgrades = make(map[Upgrade]int, len(s.Upgrades))
	for u, lvl := range s.Upgrades {
		c.Upgrades[u] = lvl
	}
	return c
}

// Level returns the purchased level of u.
func (s State) Level(u Upgrade) int {
	return s.Upgrades[u]
}

// Buy purchases the next level of u.
func (s *State) Buy(u Upgrade) error {
	if !u.Valid() {
		return ErrUnknownUpgrade
	}
	lvl := s.Upgrades[u]
	if lvl >= MaxUpgradeLevel {
		return ErrMaxLevel
	}
	cost := UpgradeCost(lvl)
	if s.Currency < cost {
		return ErrInsufficientFunds
	}
	if s.Upgrades == nil {
		s.Upgrades = make(map[Upgrade]int)
	}
	s.Currency -= cost
	s.Upgrades[u] = lvl + 1
	return nil
}

// HasModifier reports whether m is in the loadout.
func (s State) HasModifier(m Modifier) bool {
	return slices.Contains(s.Loadout, m)
}

// ToggleModifier adds m to the loadout, or removes it if already selected.
func (s *State) ToggleModifier(m Modifier) error {
	if !m.Valid() {
		return ErrUnknownModifier
	}
	if i := slices.Index(s.Loadout, m); i >= 0 {
		s.Loadout = slices.Delete(s.Loadout, i, i+1)
		return nil
	}
	if len(s.Loadout) >= MaxModifiers {
		return ErrTooManyModifiers
	}
	s.Loadout = append(s.Loadout, m)
	return nil
}

// IsUnlocked reports whether the level can be played.
func (s State) IsUnlocked(id config.LevelID) bool {
	return slices.Contains(s.Unlocked, id)
}

// CheckPlayable returns an error if the level is unknown or locked.
func (s State) CheckPlayable(id config.LevelID) error {
	if _, ok := config.LevelByID(id); !ok {
		return ErrUnknownLevel
	}
	if !s.IsUnlocked(id) {
		return ErrLevelLocked
	}
	return nil
}

// Unlock marks id as playable. It returns false if it already was.
func (s *State) Unlock(id config.LevelID) bool {
	if s.IsUnlocked(id) {
		return false
	}
	s.Unlocked = append(s.Unlocked, id)
	return true
}

// CollectFact records a level fact. It returns false if it was already known.
func (s *State) CollectFact(fact string) bool {
	if fact == "" || slices.Contains(s.Facts, fact) {
		return false
	}
	s.Facts = append(s.Facts, fact)
	return true
}
