package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateIdentity(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateTrust(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateIdentity() error {
	if c.Identity.Secret != "" && len(c.Identity.Secret) < 16 {
		return errors.New("identity.secret must be at least 16 characters")
	}
	if c.Identity.TokenMaxAgeDays < 1 {
		return errors.New("identity.token_max_age_days must be at least 1")
	}
	return nil
}

// RequireSecret reports an error when no signing secret is configured. The
// daemon and the token commands need one; read-only commands do not.
func (c *Config) RequireSecret() error {
	if c.Identity.Secret != "" {
		return nil
	}
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/whorl/config.toml"
	}
	return fmt.Errorf("identity.secret is required. Set WHORL_SECRET env var or edit %s (create with 'whorl config init')", defaultPath)
}

func (c *Config) validateMatching() error {
	if err := ensurePositiveMap(map[string]int{
		"matching.fuzzy_scan_limit":  c.Matching.FuzzyScanLimit,
		"matching.stable_scan_limit": c.Matching.StableScanLimit,
	}); err != nil {
		return err
	}
	if c.Matching.FuzzyThreshold < 0 || c.Matching.FuzzyThreshold > 64 {
		return errors.New("matching.fuzzy_threshold must be between 0 and 64")
	}
	if c.Matching.StableFuzzyThreshold < 0 || c.Matching.StableFuzzyThreshold > 64 {
		return errors.New("matching.stable_fuzzy_threshold must be between 0 and 64")
	}
	if c.Matching.GPUScoreMin < 0 || c.Matching.GPUScoreMin > 1 {
		return errors.New("matching.gpu_score_min must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateTrust() error {
	if c.Trust.WindowDays < 1 {
		return errors.New("trust.window_days must be at least 1")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
