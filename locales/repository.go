package locales

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-translatable/internal/logging"
	"github.com/goliatone/go-translatable/pkg/interfaces"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NotFoundError reports a registry lookup that matched nothing.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

func newLocaleRepository(db *bun.DB) repository.Repository[*Locale] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Locale]{
		NewRecord: func() *Locale { return &Locale{} },
		GetID: func(l *Locale) uuid.UUID {
			return l.ID
		},
		SetID: func(l *Locale, id uuid.UUID) {
			l.ID = id
		},
		GetIdentifier: func() string {
			return "code"
		},
		GetIdentifierValue: func(l *Locale) string {
			return l.Code
		},
	})
}

// Registry exposes the locale registry backed by bun.
type Registry struct {
	db     *bun.DB
	repo   repository.Repository[*Locale]
	logger interfaces.Logger
}

// NewRegistry constructs the registry over db.
func NewRegistry(db *bun.DB) *Registry {
	return &Registry{db: db, repo: newLocaleRepository(db), logger: logging.NoOp()}
}

// WithLogger sets the registry logger and returns the registry.
func (r *Registry) WithLogger(logger interfaces.Logger) *Registry {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Register validates input and creates a locale entry.
func (r *Registry) Register(ctx context.Context, input Input) (*Locale, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	record := &Locale{
		ID:         uuid.New(),
		Code:       strings.TrimSpace(input.Code),
		Display:    strings.TrimSpace(input.Display),
		NativeName: input.NativeName,
		IsActive:   true,
		IsDefault:  input.IsDefault,
	}
	created, err := r.repo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	r.logger.Info("locale registered", "code", created.Code, "default", created.IsDefault)
	return created, nil
}

// GetByCode fetches a locale by its code.
func (r *Registry) GetByCode(ctx context.Context, code string) (*Locale, error) {
	result, err := r.repo.GetByIdentifier(ctx, code)
	if err != nil {
		return nil, mapRepositoryError(err, "locale", code)
	}
	return result, nil
}

// Default returns the locale flagged as the registry default.
func (r *Registry) Default(ctx context.Context) (*Locale, error) {
	locale := new(Locale)
	err := r.db.NewSelect().
		Model(locale).
		Where("is_default = ?", true).
		Where("is_active = ?", true).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{Resource: "locale", Key: "default"}
		}
		return nil, err
	}
	return locale, nil
}

// List returns active locales ordered by code.
func (r *Registry) List(ctx context.Context) ([]*Locale, error) {
	var out []*Locale
	err := r.db.NewSelect().
		Model(&out).
		Where("is_active = ?", true).
		Order("code ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func mapRepositoryError(err error, resource, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Resource: resource, Key: key}
	}
	return fmt.Errorf("%s repository error: %w", resource, err)
}
