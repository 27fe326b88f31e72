package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

type BetTier struct {
	ID      string `json:"id"`
	BaseBet int64  `json:"base_bet"`
}

type GameConfig struct {
	DefaultTier string    `json:"default_tier"`
	Tiers       []BetTier `json:"tiers"`
	// MaxBet caps bet adjustments made from the table; 0 means no cap.
	MaxBet              int64 `json:"max_bet"`
	TurnDurationSeconds int   `json:"turn_duration_seconds"`
	// BotAutoFillDelaySeconds configures how many seconds to wait before adding a bot to a solo human lobby.
	BotAutoFillDelaySeconds int `json:"bot_auto_fill_delay_seconds"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		if err := validate(&c); err != nil {
			loadErr = fmt.Errorf("invalid game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

func validate(c *GameConfig) error {
	for _, tier := range c.Tiers {
		if tier.BaseBet <= 0 || tier.BaseBet%2 != 0 {
			return fmt.Errorf("tier %s: base bet must be a positive even amount, got %d", tier.ID, tier.BaseBet)
		}
	}
	if c.MaxBet < 0 {
		return fmt.Errorf("max bet must not be negative, got %d", c.MaxBet)
	}
	return nil
}

// GetGameConfig returns the global game configuration.
func GetGameConfig() *GameConfig {
	return cfg
}

// GetBaseBet returns the base bet for a given tier ID, or the default if not found.
func GetBaseBet(tierID string) int64 {
	if cfg == nil {
		return 100 // Safe default
	}

	target := tierID
	if target == "" {
		target = cfg.DefaultTier
	}

	for _, tier := range cfg.Tiers {
		if tier.ID == target {
			return tier.BaseBet
		}
	}

	// Fallback to default tier if specific ID not found
	for _, tier := range cfg.Tiers {
		if tier.ID == cfg.DefaultTier {
			return tier.BaseBet
		}
	}

	return 100
}

// GetMaxBet returns the configured bet ceiling, or 0 when bets are
// uncapped.
func GetMaxBet() int64 {
	if cfg == nil {
		return 0
	}
	return cfg.MaxBet
}
