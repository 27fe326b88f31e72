package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadGameConfig(t *testing.T) {
	raw := `{
		"default_tier": "casual",
		"tiers": [
			{"id": "casual", "base_bet": 100},
			{"id": "high", "base_bet": 1000}
		],
		"max_bet": 5000,
		"turn_duration_seconds": 20,
		"bot_auto_fill_delay_seconds": 10
	}`
	path := filepath.Join(t.TempDir(), "game_config.json")
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if err := LoadGameConfig(path); err != nil {
		t.Fatalf("LoadGameConfig: %v", err)
	}

	if got := GetBaseBet("high"); got != 1000 {
		t.Errorf("GetBaseBet(high) = %d, want 1000", got)
	}
	if got := GetBaseBet(""); got != 100 {
		t.Errorf("GetBaseBet(default) = %d, want 100", got)
	}
	if got := GetBaseBet("missing"); got != 100 {
		t.Errorf("GetBaseBet(missing) = %d, want default tier 100", got)
	}
	if got := GetMaxBet(); got != 5000 {
		t.Errorf("GetMaxBet = %d, want 5000", got)
	}
}

func TestValidateRejectsBadTiers(t *testing.T) {
	tests := []struct {
		name string
		cfg  GameConfig
	}{
		{"odd base bet", GameConfig{Tiers: []BetTier{{ID: "x", BaseBet: 101}}}},
		{"zero base bet", GameConfig{Tiers: []BetTier{{ID: "x", BaseBet: 0}}}},
		{"negative max bet", GameConfig{MaxBet: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validate(&tt.cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
