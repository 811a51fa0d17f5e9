// Package translatable is a model-translation overlay for bun-backed
// persistence. A primary record keeps locale-specific attribute values in a
// side translation table, one row per (entity, locale) pair. Reads merge the
// active locale's values into the base row through an automatic outer join,
// and saves intercept the translatable attributes so they are persisted as a
// translation row after the primary write commits. Loaded instances can be
// re-pointed at another locale in place without rebuilding them.
package translatable

import (
	"github.com/goliatone/go-translatable/internal/logging"
	"github.com/goliatone/go-translatable/locales"
	"github.com/goliatone/go-translatable/translations"
)

// Translation is one locale's persisted attribute set for an entity.
type Translation = translations.Row

// TranslationSet pairs a locale with the attributes to store for it; batch
// stores take an ordered slice so caller-supplied order is preserved.
type TranslationSet = translations.Set

// NewLocaleRegistry builds the locale registry over the configured database,
// sharing the overlay's logging wiring.
func NewLocaleRegistry(cfg Config) (*locales.Registry, error) {
	if cfg.DB == nil {
		return nil, ErrDatabaseRequired
	}
	provider, err := cfg.loggerProvider()
	if err != nil {
		return nil, err
	}
	return locales.NewRegistry(cfg.DB).WithLogger(logging.LocalesLogger(provider)), nil
}
