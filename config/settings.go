package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"sweeps-settlement-system/money"
)

// Settings are the operator-tunable values. Only the keys in settingKeys are
// recognized; anything else is rejected.
type Settings struct {
	RedemptionFeeSC money.Amount `json:"redemption_fee_sc"`
	MinRedemptionSC money.Amount `json:"min_redemption_sc"`
	SignupBonusGC   money.Amount `json:"signup_bonus_gc"`
	SignupBonusSC   money.Amount `json:"signup_bonus_sc"`
	ReferralBonusGC money.Amount `json:"referral_bonus_gc"`
	ReferralBonusSC money.Amount `json:"referral_bonus_sc"`
	MaxBetGC        money.Amount `json:"max_bet_gc"`
	MaxBetSC        money.Amount `json:"max_bet_sc"`
}

var settingKeys = map[string]func(*Settings) *money.Amount{
	"redemption_fee_sc": func(s *Settings) *money.Amount { return &s.RedemptionFeeSC },
	"min_redemption_sc": func(s *Settings) *money.Amount { return &s.MinRedemptionSC },
	"signup_bonus_gc":   func(s *Settings) *money.Amount { return &s.SignupBonusGC },
	"signup_bonus_sc":   func(s *Settings) *money.Amount { return &s.SignupBonusSC },
	"referral_bonus_gc": func(s *Settings) *money.Amount { return &s.ReferralBonusGC },
	"referral_bonus_sc": func(s *Settings) *money.Amount { return &s.ReferralBonusSC },
	"max_bet_gc":        func(s *Settings) *money.Amount { return &s.MaxBetGC },
	"max_bet_sc":        func(s *Settings) *money.Amount { return &s.MaxBetSC },
}

// UnknownSettingError is returned for keys outside the recognized set.
type UnknownSettingError struct{ Key string }

func (e *UnknownSettingError) Error() string {
	return fmt.Sprintf("unknown setting %q", e.Key)
}

func DefaultSettings() Settings {
	return Settings{
		RedemptionFeeSC: money.Units(5),
		MinRedemptionSC: money.Units(100),
		SignupBonusGC:   money.Units(10000),
		SignupBonusSC:   money.Units(2),
		ReferralBonusGC: money.Units(5000),
		ReferralBonusSC: money.Units(1),
		MaxBetGC:        money.Units(10000),
		MaxBetSC:        money.Units(100),
	}
}

// SettingKeys lists the recognized keys in stable order.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set parses value into the field named by key.
func (s *Settings) Set(key, value string) error {
	field, ok := settingKeys[key]
	if !ok {
		return &UnknownSettingError{Key: key}
	}
	amt, err := money.Parse(value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	if amt < 0 {
		return fmt.Errorf("setting %s: must not be negative", key)
	}
	*field(s) = amt
	return nil
}

// Apply overlays every pair, stopping at the first bad one.
func (s *Settings) Apply(values map[string]string) error {
	for _, k := range sortedKeys(values) {
		if err := s.Set(k, values[k]); err != nil {
			return err
		}
	}
	return nil
}

// SettingsFromEnv reads SETTING_<KEY> overrides on top of the defaults,
// e.g. SETTING_REDEMPTION_FEE_SC=5.
func SettingsFromEnv() (Settings, error) {
	s := DefaultSettings()
	for _, k := range SettingKeys() {
		if v := os.Getenv("SETTING_" + strings.ToUpper(k)); v != "" {
			if err := s.Set(k, v); err != nil {
				return s, err
			}
		}
	}
	return s, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
