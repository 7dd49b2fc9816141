// ABOUTME: User-facing settings persisted as preferences
// ABOUTME: Language and theme survive restarts independently of conversations

package controller

import (
	"context"
	"errors"

	"github.com/nosta/ragchat/internal/store"
)

// Settings are the user-facing display preferences.
type Settings struct {
	Language string `json:"language"`
	Theme    string `json:"theme"`
}

// Settings returns the persisted display preferences. Unset values are
// empty; the UI applies its own defaults.
func (c *Controller) Settings(ctx context.Context) Settings {
	var s Settings
	if v, err := c.store.GetPreference(ctx, store.PrefLanguage); err == nil {
		s.Language = v
	}
	if v, err := c.store.GetPreference(ctx, store.PrefTheme); err == nil {
		s.Theme = v
	}
	return s
}

// UpdateSettings persists the given display preferences. Empty fields are
// left untouched.
func (c *Controller) UpdateSettings(ctx context.Context, s Settings) error {
	var errs []error
	if s.Language != "" {
		errs = append(errs, c.store.SetPreference(ctx, store.PrefLanguage, s.Language))
	}
	if s.Theme != "" {
		errs = append(errs, c.store.SetPreference(ctx, store.PrefTheme, s.Theme))
	}
	return errors.Join(errs...)
}
