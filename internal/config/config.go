// Package config loads the process configuration shared by the starfall binaries.
//
// Values come from, in order of precedence: environment variables prefixed with
// STARFALL_ (dots become underscores, e.g. STARFALL_SSH_PORT), an optional YAML
// file, and the defaults below.
package config

import (
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
	loopcfg "github.com/tomz197/starfall/internal/loop/config"
	"github.com/tomz197/starfall/internal/progression"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "STARFALL"

// Config is the full process configuration.
type Config struct {
	Log      LogConfig               `mapstructure:"log"`
	SSH      SSHConfig               `mapstructure:"ssh"`
	Web      WebConfig               `mapstructure:"web"`
	Spectate SpectateConfig          `mapstructure:"spectate"`
	Store    progression.StoreConfig `mapstructure:"store"`
	Game     GameConfig              `mapstructure:"game"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SSHConfig configures the SSH game server.
type SSHConfig struct {
	Host        string `mapstructure:"host"`
	Port        string `mapstructure:"port"`
	HostKeyPath string `mapstructure:"host_key_path"`
	// MaxSessions limits concurrent players. Zero means unlimited.
	MaxSessions int `mapstructure:"max_sessions"`
}

// Addr returns host:port.
func (c SSHConfig) Addr() string { return net.JoinHostPort(c.Host, c.Port) }

// WebConfig configures the landing page.
type WebConfig struct {
	Host        string `mapstructure:"host"`
	Port        string `mapstructure:"port"`
	DisplayHost string `mapstructure:"display_host"`
	// SpectateURL is where browsers connect to watch live runs. Empty hides the
	// spectator view.
	SpectateURL string `mapstructure:"spectate_url"`
}

// Addr returns host:port.
func (c WebConfig) Addr() string { return net.JoinHostPort(c.Host, c.Port) }

// SpectateConfig configures the spectator feed served by the SSH process.
type SpectateConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	// MaxViewers limits concurrent WebSocket viewers. Zero means unlimited.
	MaxViewers int `mapstructure:"max_viewers"`
}

// GameConfig overrides selected tuning values. Zero values keep the defaults.
type GameConfig struct {
	BossTime      time.Duration `mapstructure:"boss_time"`
	SpawnInterval time.Duration `mapstructure:"spawn_interval"`
	MaxFrameDelta time.Duration `mapstructure:"max_frame_delta"`
	FPS           int           `mapstructure:"fps"`
	// Seed fixes the RNG of every run. Zero seeds from the clock.
	Seed uint64 `mapstructure:"seed"`
}

// Tuning returns the default tuning table with the configured overrides applied.
func (c GameConfig) Tuning() loopcfg.Tuning {
	t := loopcfg.Default()
	if c.BossTime > 0 {
		t.BossTime = c.BossTime
	}
	if c.SpawnInterval > 0 {
		t.SpawnInterval = c.SpawnInterval
	}
	if c.MaxFrameDelta > 0 {
		t.MaxFrameDelta = c.MaxFrameDelta
	}
	return t
}

// FrameTime is the target duration of one client frame.
func (c GameConfig) FrameTime() time.Duration {
	if c.FPS <= 0 {
		return loopcfg.ClientTargetFrameTime
	}
	return time.Second / time.Duration(c.FPS)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("ssh.host", "::")
	v.SetDefault("ssh.port", "2222")
	v.SetDefault("ssh.host_key_path", "/app/keys/host_key")
	v.SetDefault("ssh.max_sessions", 0)

	v.SetDefault("web.host", "0.0.0.0")
	v.SetDefault("web.port", "8080")
	v.SetDefault("web.display_host", "your-server.com")
	v.SetDefault("web.spectate_url", "")

	v.SetDefault("spectate.enabled", false)
	v.SetDefault("spectate.addr", ":8081")
	v.SetDefault("spectate.max_viewers", 0)

	v.SetDefault("store.backend", "file")
	v.SetDefault("store.dir", ".starfall")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.postgres.dsn", "")

	v.SetDefault("game.boss_time", 0)
	v.SetDefault("game.spawn_interval", 0)
	v.SetDefault("game.max_frame_delta", 0)
	v.SetDefault("game.fps", loopcfg.ClientTargetFPS)
	v.SetDefault("game.seed", 0)
}

// Load reads the configuration. An empty path skips the file.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// NewLogger creates the process logger. Unknown levels fall back to info.
func NewLogger(w io.Writer, level string) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", level)
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}
