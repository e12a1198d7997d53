package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config is the game server configuration. The YAML file supplies game rules
// and timers; the environment supplies addresses and secrets and overrides
// the timers.
type Config struct {
	Game struct {
		MaxRounds   int `yaml:"max_rounds"`
		TargetScore int `yaml:"target_score"`
	} `yaml:"game"`

	Timers struct {
		TurnTimeout    time.Duration `yaml:"turn_timeout"`
		ReconnectGrace time.Duration `yaml:"reconnect_grace"`
		RoomIdleTTL    time.Duration `yaml:"room_idle_ttl"`
		RoundBreak     time.Duration `yaml:"round_break"`
	} `yaml:"timers"`

	Gateway struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"gateway"`

	Port        string `yaml:"-"`
	JWTSecret   string `yaml:"-"`
	NATSURL     string `yaml:"-"`
	InstanceID  string `yaml:"-"`
	Persistence bool   `yaml:"-"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.Timers.TurnTimeout = 30 * time.Second
	c.Timers.ReconnectGrace = 60 * time.Second
	c.Timers.RoomIdleTTL = 24 * time.Hour
	c.Timers.RoundBreak = 10 * time.Second
	c.Gateway.AllowedOrigins = []string{"*"}
	c.Port = "8080"
	return c
}

// Load reads .env, then the YAML file at path (a missing file is not an
// error), then environment overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	c := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Info().Str("path", path).Msg("no config file, using defaults")
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.NATSURL = getEnv("NATS_URL", c.NATSURL)
	c.InstanceID = getEnv("INSTANCE_ID", c.InstanceID)
	c.Persistence = getEnvAsBool("PERSISTENCE_ENABLED", c.Persistence)

	c.Game.MaxRounds = getEnvAsInt("WHIST_MAX_ROUNDS", c.Game.MaxRounds)
	c.Game.TargetScore = getEnvAsInt("WHIST_TARGET_SCORE", c.Game.TargetScore)
	c.Timers.TurnTimeout = getEnvAsDuration("WHIST_TURN_TIMEOUT", c.Timers.TurnTimeout)
	c.Timers.ReconnectGrace = getEnvAsDuration("WHIST_RECONNECT_GRACE", c.Timers.ReconnectGrace)
	c.Timers.RoomIdleTTL = getEnvAsDuration("WHIST_ROOM_IDLE_TTL", c.Timers.RoomIdleTTL)
	c.Timers.RoundBreak = getEnvAsDuration("WHIST_ROUND_BREAK", c.Timers.RoundBreak)

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.Gateway.AllowedOrigins = splitList(origins)
	}
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Game.MaxRounds < 0 {
		errs = append(errs, errors.New("game.max_rounds must not be negative"))
	}
	if c.Game.TargetScore < 0 {
		errs = append(errs, errors.New("game.target_score must not be negative"))
	}
	if c.Timers.TurnTimeout < 0 || c.Timers.ReconnectGrace < 0 || c.Timers.RoomIdleTTL < 0 || c.Timers.RoundBreak < 0 {
		errs = append(errs, errors.New("timers must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("ignoring non-integer env value")
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Warn().Str("key", key).Str("value", value).Msg("ignoring non-boolean env value")
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Warn().Str("key", key).Str("value", value).Msg("ignoring invalid duration env value")
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
