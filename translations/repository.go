// Package translations performs CRUD against translation tables. Rows are
// map-backed because each entity type brings its own translated column set.
package translations

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/goliatone/go-translatable/internal/logging"
	"github.com/goliatone/go-translatable/pkg/interfaces"
	"github.com/uptrace/bun"
)

// ErrLocaleRequired rejects operations without a locale code.
var ErrLocaleRequired = errors.New("translations: locale is required")

// Row is one locale's persisted attribute set for a primary entity.
type Row map[string]any

// Set pairs a locale with the attributes to store for it. Batch stores take
// an ordered slice so caller-supplied order is preserved deterministically.
type Set struct {
	Locale     string
	Attributes map[string]any
}

// Ref locates one entity's translation rows.
type Ref struct {
	// Table is the translation table name.
	Table string
	// ForeignKey is the column referencing the primary entity.
	ForeignKey string
	// LocaleKey is the locale discriminator column.
	LocaleKey string
	// Key is the primary entity's key value.
	Key any
}

// Repository reads and upserts translation rows through bun.
type Repository struct {
	db     *bun.DB
	logger interfaces.Logger
}

// NewRepository constructs a repository over db.
func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db, logger: logging.NoOp()}
}

// WithLogger sets the logger used for row writes and returns the repository.
func (r *Repository) WithLogger(logger interfaces.Logger) *Repository {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Query returns the one-to-many association from the entity to its
// translation rows as a filtered query builder.
func (r *Repository) Query(ref Ref) *bun.SelectQuery {
	return r.db.NewSelect().
		Table(ref.Table).
		Where("? = ?", bun.Ident(ref.ForeignKey), ref.Key)
}

// Exists reports whether a translation row exists for locale.
func (r *Repository) Exists(ctx context.Context, ref Ref, locale string) (bool, error) {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return false, ErrLocaleRequired
	}

	var count int
	err := r.db.NewSelect().
		Table(ref.Table).
		ColumnExpr("count(*)").
		Where("? = ?", bun.Ident(ref.ForeignKey), ref.Key).
		Where("? = ?", bun.Ident(ref.LocaleKey), locale).
		Scan(ctx, &count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Get returns the stored row for locale, or nil when the locale has no
// translation yet. Absence is a normal outcome, not an error.
func (r *Repository) Get(ctx context.Context, ref Ref, locale string) (Row, error) {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return nil, ErrLocaleRequired
	}

	var row map[string]any
	err := r.db.NewSelect().
		Model(&row).
		Table(ref.Table).
		Where("? = ?", bun.Ident(ref.ForeignKey), ref.Key).
		Where("? = ?", bun.Ident(ref.LocaleKey), locale).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return Row(row), nil
}

// Store upserts the row for locale: an existing row is updated with attrs,
// otherwise a new row carrying the foreign key and locale key is inserted,
// and the persisted row is returned. The check and the write are separate
// statements, so concurrent writers of the same (entity, locale) pair need
// the composite unique key the schema helper emits. Storage errors pass
// through unwrapped.
func (r *Repository) Store(ctx context.Context, ref Ref, locale string, attrs map[string]any) (Row, error) {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return nil, ErrLocaleRequired
	}

	existing, err := r.Get(ctx, ref, locale)
	if err != nil {
		return nil, err
	}

	values := make(map[string]any, len(attrs)+2)
	for k, v := range attrs {
		values[k] = v
	}

	if existing == nil {
		values[ref.ForeignKey] = ref.Key
		values[ref.LocaleKey] = locale
		if _, err := r.db.NewInsert().
			Model(&values).
			TableExpr("?", bun.Ident(ref.Table)).
			Exec(ctx); err != nil {
			return nil, err
		}
		r.logger.Debug("translation row inserted", "table", ref.Table, "locale", locale)
	} else if len(values) > 0 {
		if _, err := r.db.NewUpdate().
			Model(&values).
			TableExpr("?", bun.Ident(ref.Table)).
			Where("? = ?", bun.Ident(ref.ForeignKey), ref.Key).
			Where("? = ?", bun.Ident(ref.LocaleKey), locale).
			Exec(ctx); err != nil {
			return nil, err
		}
		r.logger.Debug("translation row updated", "table", ref.Table, "locale", locale)
	}

	return r.Get(ctx, ref, locale)
}

// StoreMany applies Store for each set in order, stopping at the first error.
func (r *Repository) StoreMany(ctx context.Context, ref Ref, sets []Set) error {
	for _, set := range sets {
		if _, err := r.Store(ctx, ref, set.Locale, set.Attributes); err != nil {
			return err
		}
	}
	return nil
}

// Locales lists the locale codes that currently have translation rows.
func (r *Repository) Locales(ctx context.Context, ref Ref) ([]string, error) {
	var codes []string
	err := r.db.NewSelect().
		Table(ref.Table).
		ColumnExpr("?", bun.Ident(ref.LocaleKey)).
		Where("? = ?", bun.Ident(ref.ForeignKey), ref.Key).
		OrderExpr("?", bun.Ident(ref.LocaleKey)).
		Scan(ctx, &codes)
	if err != nil {
		return nil, err
	}
	return codes, nil
}
