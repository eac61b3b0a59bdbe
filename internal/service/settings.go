package service

import (
	"fmt"
	"strings"

	"github.com/sakif/business-cards/internal/apperror"
	"github.com/sakif/business-cards/internal/settings"
)

// ConfigUpdate is a set-config request body.
type ConfigUpdate struct {
	Config string `json:"config"`
	Key    string `json:"key"`
	Value  string `json:"val"`
}

// SettingsService applies runtime configuration updates.
type SettingsService struct {
	store *settings.Store
}

// NewSettingsService wraps store. Reads never block writers; see settings.Store.
func NewSettingsService(store *settings.Store) *SettingsService {
	return &SettingsService{store: store}
}

// Current returns the settings every page is rendered with.
func (s *SettingsService) Current() settings.Snapshot {
	return s.store.Snapshot()
}

// Update validates u and stores it, returning the confirmation message.
// Every missing field is reported, not just the first.
func (s *SettingsService) Update(u ConfigUpdate) (string, error) {
	u.Config = strings.TrimSpace(u.Config)
	u.Key = strings.TrimSpace(u.Key)
	u.Value = strings.TrimSpace(u.Value)

	var verrs apperror.ValidationErrors
	if u.Config == "" {
		verrs.Add("config", "Config is required", "")
	}
	if u.Key == "" {
		verrs.Add("key", "Key is required", "")
	}
	if u.Value == "" {
		verrs.Add("val", "Value is required", "")
	}
	if err := verrs.OrNil(); err != nil {
		return "", err
	}

	if err := s.store.Set(u.Config, u.Key, u.Value); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s set to %s", u.Config, u.Key, u.Value), nil
}
