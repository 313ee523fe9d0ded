package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxBodies             = 65536
	DefaultMaxBodyPairs          = 65536
	DefaultMaxContactConstraints = 10240
	DefaultTimeScale             = 1.0
	DefaultFPS                   = 60
	DefaultDuration              = 10.0
	DefaultDebugAddr             = "localhost:8765"
	DefaultDebugRate             = 30
)

type Config struct {
	Physics Physics `yaml:"physics"`
	Scene   Scene   `yaml:"scene"`
	Session Session `yaml:"session"`
	Log     Log     `yaml:"log"`
	Debug   Debug   `yaml:"debug"`
}

// Physics is consumed once, when the simulation is initialized.
type Physics struct {
	MaxBodies             int           `yaml:"max_bodies"`
	MaxBodyPairs          int           `yaml:"max_body_pairs"`
	MaxContactConstraints int           `yaml:"max_contact_constraints"`
	Workers               int           `yaml:"workers"` // 0 picks max(NumCPU-4, 2)
	TimeScale             float64       `yaml:"time_scale"`
	Gravity               mgl64.Vec3    `yaml:"gravity"`
	Integrator            string        `yaml:"integrator"`
	IdleSleep             time.Duration `yaml:"idle_sleep"`
	SleepVelocity         float64       `yaml:"sleep_velocity"`
	SleepTime             float64       `yaml:"sleep_time"`
}

type Session struct {
	FPS      int     `yaml:"fps"`
	Duration float64 `yaml:"duration"`
	Script   string  `yaml:"script"`
}

type Log struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	SentryDSN string `yaml:"sentry_dsn"`
}

type Debug struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Rate    int    `yaml:"rate"`
}

func DefaultPhysics() Physics {
	return Physics{
		MaxBodies:             DefaultMaxBodies,
		MaxBodyPairs:          DefaultMaxBodyPairs,
		MaxContactConstraints: DefaultMaxContactConstraints,
		TimeScale:             DefaultTimeScale,
		Gravity:               mgl64.Vec3{0, -9.81, 0},
		Integrator:            "symplectic",
		IdleSleep:             time.Millisecond,
		SleepVelocity:         0.05,
		SleepTime:             0.5,
	}
}

func DefaultConfig() *Config {
	scene := *GetPreset("drop")
	return &Config{
		Physics: DefaultPhysics(),
		Scene:   scene,
		Session: Session{
			FPS:      DefaultFPS,
			Duration: DefaultDuration,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Debug: Debug{
			Addr: DefaultDebugAddr,
			Rate: DefaultDebugRate,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Encode writes cfg as YAML.
func Encode(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

func (c *Config) Validate() error {
	if err := c.Physics.Validate(); err != nil {
		return err
	}
	if err := c.Scene.Validate(); err != nil {
		return err
	}
	if c.Session.FPS <= 0 {
		return fmt.Errorf("config: fps must be positive, got %d", c.Session.FPS)
	}
	if c.Session.Duration <= 0 {
		return fmt.Errorf("config: duration must be positive, got %f", c.Session.Duration)
	}
	if c.Debug.Enabled && c.Debug.Rate <= 0 {
		return fmt.Errorf("config: debug rate must be positive, got %d", c.Debug.Rate)
	}
	return nil
}

func (p Physics) Validate() error {
	switch {
	case p.MaxBodies <= 0:
		return fmt.Errorf("config: max_bodies must be positive, got %d", p.MaxBodies)
	case p.MaxBodyPairs <= 0:
		return fmt.Errorf("config: max_body_pairs must be positive, got %d", p.MaxBodyPairs)
	case p.MaxContactConstraints <= 0:
		return fmt.Errorf("config: max_contact_constraints must be positive, got %d", p.MaxContactConstraints)
	case p.Workers < 0:
		return fmt.Errorf("config: workers must not be negative, got %d", p.Workers)
	case p.IdleSleep < 0:
		return fmt.Errorf("config: idle_sleep must not be negative, got %s", p.IdleSleep)
	}
	return nil
}
