package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Pacing struct {
		CharsPerSecond float64 `yaml:"chars_per_second"`
		MinSeconds     float64 `yaml:"min_seconds"`
		MaxSeconds     float64 `yaml:"max_seconds"`
	} `yaml:"pacing"`
	Session struct {
		TTLMinutes           float64 `yaml:"ttl_minutes"`
		EvictionSweepMinutes float64 `yaml:"eviction_sweep_minutes"`
	} `yaml:"session"`
	Events struct {
		TickIntervalHours  float64 `yaml:"tick_interval_hours"`
		YearlyCooldownDays int     `yaml:"yearly_cooldown_days"`
		RandomCooldownDays int     `yaml:"random_cooldown_days"`
		RareCooldownDays   int     `yaml:"rare_cooldown_days"`
		RandomChance       float64 `yaml:"random_chance"`
		RareChance         float64 `yaml:"rare_chance"`
	} `yaml:"events"`
	Cache struct {
		ProgressTTLHours float64 `yaml:"progress_ttl_hours"`
	} `yaml:"cache"`
}

func LoadConfig(path string) (*Config, error) {
	config := &Config{}

	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		setDefaults(config)
		return config, nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(file, config)
	if err != nil {
		return nil, err
	}

	setDefaults(config)
	return config, nil
}

// setDefaults fills in any zero-valued setting so a partial config.yml
// still yields a runnable configuration.
func setDefaults(c *Config) {
	if c.Pacing.CharsPerSecond == 0 {
		c.Pacing.CharsPerSecond = 25.0
	}
	if c.Pacing.MinSeconds == 0 {
		c.Pacing.MinSeconds = 0.8
	}
	if c.Pacing.MaxSeconds == 0 {
		c.Pacing.MaxSeconds = 4.0
	}
	if c.Session.TTLMinutes == 0 {
		c.Session.TTLMinutes = 15
	}
	if c.Session.EvictionSweepMinutes == 0 {
		c.Session.EvictionSweepMinutes = 5
	}
	if c.Events.TickIntervalHours == 0 {
		c.Events.TickIntervalHours = 1
	}
	if c.Events.YearlyCooldownDays == 0 {
		c.Events.YearlyCooldownDays = 30
	}
	if c.Events.RandomCooldownDays == 0 {
		c.Events.RandomCooldownDays = 7
	}
	if c.Events.RareCooldownDays == 0 {
		c.Events.RareCooldownDays = 90
	}
	if c.Events.RandomChance == 0 {
		c.Events.RandomChance = 0.10
	}
	if c.Events.RareChance == 0 {
		c.Events.RareChance = 0.02
	}
	if c.Cache.ProgressTTLHours == 0 {
		c.Cache.ProgressTTLHours = 24
	}
}
