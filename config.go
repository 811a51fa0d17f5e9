package translatable

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-translatable/internal/logging/gologger"
	"github.com/goliatone/go-translatable/locales"
	"github.com/goliatone/go-translatable/pkg/interfaces"
	"github.com/uptrace/bun"
)

// Config wires the translation overlay. Fields use simple types so host
// applications can extend them later.
type Config struct {
	// DB is the bun database every operation runs against.
	DB *bun.DB

	// UseSavingService intercepts saves so translatable attributes are
	// persisted as translation rows after the primary write commits. When
	// false the overlay degrades to legacy mode: translatable columns are
	// written straight into the primary table and no join or buffer
	// machinery activates.
	UseSavingService bool

	// LocaleKeyName is the locale discriminator column on translation tables.
	LocaleKeyName string

	// DefaultLocale is the fallback when no ambient locale is resolvable.
	DefaultLocale string

	// LocaleResolver resolves the ambient locale for a request context. When
	// nil (or when it returns ""), the locales context carrier is consulted
	// before falling back to DefaultLocale.
	LocaleResolver func(ctx context.Context) string

	// Logging supplies module loggers directly. When nil, Logger selects a
	// built-in provider; leaving both empty keeps logging disabled.
	Logging interfaces.LoggerProvider

	// Logger selects and tunes the built-in logging provider.
	Logger LoggerConfig
}

// LoggerConfig configures the built-in go-logger provider. It only applies
// when Config.Logging is nil.
type LoggerConfig struct {
	// Provider names the implementation; "gologger" enables the go-logger
	// adapter, empty disables logging.
	Provider string
	// Level is the minimum level emitted (trace..fatal). Empty uses the
	// provider default.
	Level string
	// Format is the output encoding: json, console, or pretty.
	Format string
	// AddSource attaches source locations to entries.
	AddSource bool
}

// DefaultConfig returns the baseline configuration hosts override per field.
func DefaultConfig() Config {
	return Config{
		UseSavingService: true,
		LocaleKeyName:    "locale",
		DefaultLocale:    "en",
	}
}

// Validate checks the configuration before the service is built.
func (c Config) Validate() error {
	if c.DB == nil {
		return ErrDatabaseRequired
	}
	if strings.TrimSpace(c.LocaleKeyName) == "" {
		return ErrLocaleKeyRequired
	}
	if strings.TrimSpace(c.DefaultLocale) == "" {
		return ErrDefaultLocaleRequired
	}
	switch normalizeProvider(c.Logger.Provider) {
	case "", "gologger":
	default:
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, c.Logger.Provider)
	}
	return nil
}

// loggerProvider resolves the logging provider: an explicit Logging provider
// wins, otherwise the built-in provider named by Logger is constructed.
func (c Config) loggerProvider() (interfaces.LoggerProvider, error) {
	if c.Logging != nil {
		return c.Logging, nil
	}
	if normalizeProvider(c.Logger.Provider) != "gologger" {
		return nil, nil
	}
	return gologger.NewProvider(gologger.Config{
		Level:     c.Logger.Level,
		Format:    c.Logger.Format,
		AddSource: c.Logger.AddSource,
	})
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func (c Config) resolveLocale(ctx context.Context) string {
	if c.LocaleResolver != nil {
		if locale := strings.TrimSpace(c.LocaleResolver(ctx)); locale != "" {
			return locale
		}
	}
	if locale := locales.FromContext(ctx); locale != "" {
		return locale
	}
	return c.DefaultLocale
}
