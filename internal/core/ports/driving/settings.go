package driving

import "github.com/custodia-labs/lexrag/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings with defaults applied.
	Get() (*domain.AppSettings, error)

	// Set validates and stores a single setting from its string form.
	Set(key, value string) error

	// Unset removes a stored setting so its default applies again.
	Unset(key string) error

	// Keys returns every supported setting key.
	Keys() []string

	// Validate checks that the stored settings are usable.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings

	// Path returns where settings are persisted.
	Path() string
}
