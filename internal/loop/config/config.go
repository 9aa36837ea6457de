// Package config centralizes all tunable game parameters.
package config

import "time"

// Play area in logical units. Rendering scales to fit the terminal.
const (
	PlayWidth  = 800.0
	PlayHeight = 600.0
)

// Client rendering and terminal limits.
const (
	ClientTargetFPS       = 60
	ClientTargetFrameTime = time.Second / ClientTargetFPS
	MaxTermWidth          = 200
	MaxTermHeight         = 60
	PlayerBlinkFrequency  = 10.0 // Hz
)

// Inactivity
const (
	InactivityWarnUser       = 90 * time.Second
	InactivityDisconnectUser = 120 * time.Second
)

// Tuning is the numeric table used by the simulation. Every value that drives
// gameplay lives here so a run can be configured (and tested) without globals.
type Tuning struct {
	// Frame
	MaxFrameDelta time.Duration `mapstructure:"max_frame_delta"`

	// Player
	PlayerRadius       float64       `mapstructure:"player_radius"`
	PlayerBaseSpeed    float64       `mapstructure:"player_base_speed"`
	PlayerBaseHealth   float64       `mapstructure:"player_base_health"`
	HealthPerUpgrade   float64       `mapstructure:"health_per_upgrade"`
	SpeedPerUpgrade    float64       `mapstructure:"speed_per_upgrade"`
	DamagePerUpgrade   float64       `mapstructure:"damage_per_upgrade"`
	FireRatePerUpgrade float64       `mapstructure:"fire_rate_per_upgrade"`
	MinFireRateFactor  float64       `mapstructure:"min_fire_rate_factor"`
	FireCooldown       time.Duration `mapstructure:"fire_cooldown"`
	GraceWindow        time.Duration `mapstructure:"grace_window"`

	// Player bullets
	BulletSpeed  float64       `mapstructure:"bullet_speed"`
	BulletRadius float64       `mapstructure:"bullet_radius"`
	BulletDamage float64       `mapstructure:"bullet_damage"`
	BulletTTL    time.Duration `mapstructure:"bullet_ttl"`
	BoundsMargin float64       `mapstructure:"bounds_margin"`

	// Enemies
	EnemyRadius         float64       `mapstructure:"enemy_radius"`
	EnemyHealth         float64       `mapstructure:"enemy_health"`
	EnemyFallSpeed      float64       `mapstructure:"enemy_fall_speed"`
	EnemyHoverSpeed     float64       `mapstructure:"enemy_hover_speed"`
	SnapEpsilon         float64       `mapstructure:"snap_epsilon"`
	EnemyMinFireY       float64       `mapstructure:"enemy_min_fire_y"`
	EnemyFireCooldown   time.Duration `mapstructure:"enemy_fire_cooldown"`
	EnemyBulletSpeed    float64       `mapstructure:"enemy_bullet_speed"`
	EnemyBulletRadius   float64       `mapstructure:"enemy_bullet_radius"`
	EnemyBulletDamage   float64       `mapstructure:"enemy_bullet_damage"`
	EnemyContactDamage  float64       `mapstructure:"enemy_contact_damage"`
	EnemyKillReward     int           `mapstructure:"enemy_kill_reward"`
	FormationChance     float64       `mapstructure:"formation_chance"`
	FormationTrackSpeed float64       `mapstructure:"formation_track_speed"`
	FormationMinStopY   float64       `mapstructure:"formation_min_stop_y"`
	FormationMaxStopY   float64       `mapstructure:"formation_max_stop_y"`

	// Meteorites
	MeteoriteMinRadius     float64 `mapstructure:"meteorite_min_radius"`
	MeteoriteMaxRadius     float64 `mapstructure:"meteorite_max_radius"`
	MeteoriteHealthPerUnit float64 `mapstructure:"meteorite_health_per_unit"`
	MeteoriteMinSpeed      float64 `mapstructure:"meteorite_min_speed"`
	MeteoriteMaxSpeed      float64 `mapstructure:"meteorite_max_speed"`
	MeteoriteDrift         float64 `mapstructure:"meteorite_drift"`
	MeteoriteContactDamage float64 `mapstructure:"meteorite_contact_damage"`
	MeteoriteRamDamage     float64 `mapstructure:"meteorite_ram_damage"`
	MeteoriteRewardDivisor float64 `mapstructure:"meteorite_reward_divisor"`

	// Comets
	CometChance float64 `mapstructure:"comet_chance"`
	CometRadius float64 `mapstructure:"comet_radius"`
	CometSpeed  float64 `mapstructure:"comet_speed"`

	// Spawning
	SpawnInterval   time.Duration `mapstructure:"spawn_interval"`
	DifficultyRamp  time.Duration `mapstructure:"difficulty_ramp"`
	WaveDifficulty  float64       `mapstructure:"wave_difficulty"`
	BossTime        time.Duration `mapstructure:"boss_time"`
	SaveInterval    time.Duration `mapstructure:"save_interval"`
	ParticleDensity float64       `mapstructure:"particle_density"`

	// Boss
	BossHalfWidth    float64       `mapstructure:"boss_half_width"`
	BossHalfHeight   float64       `mapstructure:"boss_half_height"`
	BossHealth       float64       `mapstructure:"boss_health"`
	BossSpeed        float64       `mapstructure:"boss_speed"`
	BossFireInterval time.Duration `mapstructure:"boss_fire_interval"`
	BossOrbSpeed     float64       `mapstructure:"boss_orb_speed"`
	BossOrbRadius    float64       `mapstructure:"boss_orb_radius"`
	BossOrbDamage    float64       `mapstructure:"boss_orb_damage"`
	BossStopY        float64       `mapstructure:"boss_stop_y"`
	BossReward       int           `mapstructure:"boss_reward"`

	// Run modifiers
	OverchargeChance     float64 `mapstructure:"overcharge_chance"`
	RapidFireFactor      float64 `mapstructure:"rapid_fire_factor"`
	AutoRepairPerSecond  float64 `mapstructure:"auto_repair_per_second"`
	OverchargeMultiplier float64 `mapstructure:"overcharge_multiplier"`
}

// Default returns the reference tuning table.
func Default() Tuning {
	return Tuning{
		MaxFrameDelta: 50 * time.Millisecond,

		PlayerRadius:       14,
		PlayerBaseSpeed:    180,
		PlayerBaseHealth:   100,
		HealthPerUpgrade:   15,
		SpeedPerUpgrade:    0.10,
		DamagePerUpgrade:   2,
		FireRatePerUpgrade: 0.05,
		MinFireRateFactor:  0.5,
		FireCooldown:       time.Second / 6,
		GraceWindow:        time.Second,

		BulletSpeed:  420,
		BulletRadius: 4,
		BulletDamage: 10,
		BulletTTL:    2 * time.Second,
		BoundsMargin: 50,

		EnemyRadius:         16,
		EnemyHealth:         20,
		EnemyFallSpeed:      60,
		EnemyHoverSpeed:     90,
		SnapEpsilon:         2,
		EnemyMinFireY:       40,
		EnemyFireCooldown:   1800 * time.Millisecond,
		EnemyBulletSpeed:    220,
		EnemyBulletRadius:   5,
		EnemyBulletDamage:   10,
		EnemyContactDamage:  20,
		EnemyKillReward:     2,
		FormationChance:     0.30,
		FormationTrackSpeed: 120,
		FormationMinStopY:   80,
		FormationMaxStopY:   200,

		MeteoriteMinRadius:     15,
		MeteoriteMaxRadius:     45,
		MeteoriteHealthPerUnit: 2,
		MeteoriteMinSpeed:      40,
		MeteoriteMaxSpeed:      80,
		MeteoriteDrift:         20,
		MeteoriteContactDamage: 15,
		MeteoriteRamDamage:     50,
		MeteoriteRewardDivisor: 10,

		CometChance: 0.08,
		CometRadius: 10,
		CometSpeed:  200,

		SpawnInterval:   2 * time.Second,
		DifficultyRamp:  10 * time.Minute,
		WaveDifficulty:  0.05,
		BossTime:        10 * time.Minute,
		SaveInterval:    5 * time.Second,
		ParticleDensity: 1,

		BossHalfWidth:    60,
		BossHalfHeight:   40,
		BossHealth:       2000,
		BossSpeed:        120,
		BossFireInterval: 1500 * time.Millisecond,
		BossOrbSpeed:     180,
		BossOrbRadius:    8,
		BossOrbDamage:    20,
		BossStopY:        110,
		BossReward:       50,

		OverchargeChance:     0.22,
		RapidFireFactor:      0.6,
		AutoRepairPerSecond:  6,
		OverchargeMultiplier: 2,
	}
}

// SpawnCount returns how many obstacles a wave spawns after the given elapsed time.
func SpawnCount(elapsed time.Duration) int {
	switch minutes := elapsed.Minutes(); {
	case minutes < 1:
		return 1
	case minutes < 3:
		return 2
	case minutes < 5:
		return 3
	case minutes < 7:
		return 4
	default:
		return 5
	}
}
