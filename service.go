package translatable

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/goliatone/go-translatable/internal/joinplan"
	"github.com/goliatone/go-translatable/internal/logging"
	"github.com/goliatone/go-translatable/internal/metadata"
	"github.com/goliatone/go-translatable/internal/store"
	"github.com/goliatone/go-translatable/pkg/interfaces"
	"github.com/goliatone/go-translatable/translations"
	"github.com/uptrace/bun"
)

// Service orchestrates the translation overlay for translatable entities.
type Service interface {
	// Save persists the entity. With the saving service enabled the
	// translatable attributes are stripped from the primary write, stored as
	// a translation row for the active locale once the primary write
	// commits, and the instance is refreshed through the joined read path.
	Save(ctx context.Context, entity Translatable) error

	// Find loads the entity by primary key with the active locale's
	// translation merged into the row.
	Find(ctx context.Context, entity Translatable, pk any) error

	// NewSelect builds a query for the entity's type with the locale join
	// attached. The join is structural; every query built through the
	// service carries it.
	NewSelect(ctx context.Context, entity Translatable) (*bun.SelectQuery, error)

	// Translate re-points the in-memory instance at locale and refreshes its
	// translatable fields from storage. Returns ErrNotPersisted when the
	// entity has never been saved.
	Translate(ctx context.Context, entity Translatable, locale string) error

	// StoreTranslation upserts a translation row for locale outside the
	// save-interception path and returns the persisted row.
	StoreTranslation(ctx context.Context, entity Translatable, locale string, attrs map[string]any) (Translation, error)

	// StoreTranslations applies StoreTranslation for each set in order.
	StoreTranslations(ctx context.Context, entity Translatable, sets []TranslationSet) error

	// GetTranslation returns the stored row for locale, or nil when the
	// locale has no translation yet.
	GetTranslation(ctx context.Context, entity Translatable, locale string) (Translation, error)

	// TranslationExists reports whether a translation row exists for locale.
	TranslationExists(ctx context.Context, entity Translatable, locale string) (bool, error)

	// TranslationLocales lists the locales that have translation rows.
	TranslationLocales(ctx context.Context, entity Translatable) ([]string, error)

	// Translations returns the entity's translation rows as a query builder.
	Translations(entity Translatable) (*bun.SelectQuery, error)

	// CreateTranslationTable installs the entity's translation table,
	// including the composite key that closes the upsert race.
	CreateTranslationTable(ctx context.Context, entity Translatable) error
}

type service struct {
	cfg    Config
	db     *bun.DB
	buffer *store.Store
	repo   *translations.Repository
	logger interfaces.Logger

	mu    sync.RWMutex
	metas map[reflect.Type]*metadata.Meta
}

// New builds the overlay service from cfg.
func New(cfg Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	provider, err := cfg.loggerProvider()
	if err != nil {
		return nil, err
	}
	return &service{
		cfg:    cfg,
		db:     cfg.DB,
		buffer: store.New(),
		repo:   translations.NewRepository(cfg.DB).WithLogger(logging.TranslationsLogger(provider)),
		logger: logging.RootLogger(provider),
		metas:  make(map[reflect.Type]*metadata.Meta),
	}, nil
}

func (s *service) Save(ctx context.Context, entity Translatable) error {
	m, err := s.meta(entity)
	if err != nil {
		return err
	}

	if !s.cfg.UseSavingService {
		if err := s.savePrimary(ctx, entity, m, nil); err != nil {
			return err
		}
		entity.state().markPersisted()
		return nil
	}

	st := entity.state()
	token := st.instanceToken()
	locale := s.localeFor(ctx, entity)

	s.buffer.Remember(token, m.Attributes(entity))
	m.Clear(entity)

	if err := s.savePrimary(ctx, entity, m, m.Columns); err != nil {
		// restore the captured values so the instance is unchanged on failure
		attrs := s.buffer.Pull(token)
		if applyErr := m.Apply(entity, attrs); applyErr != nil {
			return errors.Join(err, applyErr)
		}
		return err
	}

	attrs := s.buffer.Pull(token)
	ref, err := s.refFor(m, entity)
	if err != nil {
		return err
	}
	if _, err := s.repo.Store(ctx, ref, locale, attrs); err != nil {
		return err
	}
	st.markPersisted()

	s.logger.Debug("translatable save", "table", m.Table, "locale", locale)
	return s.refresh(ctx, entity, m, locale)
}

func (s *service) Find(ctx context.Context, entity Translatable, pk any) error {
	m, err := s.meta(entity)
	if err != nil {
		return err
	}

	locale := s.localeFor(ctx, entity)
	q := s.db.NewSelect().
		Model(entity).
		Where("?.? = ?", bun.Ident(m.Alias), bun.Ident(m.PK), pk)
	if s.cfg.UseSavingService {
		q = s.plan(m).Merge(q, locale)
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotPersisted
		}
		return err
	}
	st := entity.state()
	st.markPersisted()
	if s.cfg.UseSavingService {
		st.setLocale(locale)
	}
	return nil
}

func (s *service) NewSelect(ctx context.Context, entity Translatable) (*bun.SelectQuery, error) {
	m, err := s.meta(entity)
	if err != nil {
		return nil, err
	}

	q := s.db.NewSelect().Model(entity)
	if !s.cfg.UseSavingService {
		return q, nil
	}

	locale := s.cfg.resolveLocale(ctx)
	if st := stateOf(entity); st != nil && st.CurrentLocale() != "" {
		locale = st.CurrentLocale()
	}
	return s.plan(m).Merge(q, locale), nil
}

func (s *service) Translate(ctx context.Context, entity Translatable, locale string) error {
	if !s.cfg.UseSavingService {
		return ErrSavingServiceDisabled
	}
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return ErrLocaleRequired
	}

	m, err := s.meta(entity)
	if err != nil {
		return err
	}
	if _, zero := m.PrimaryKey(entity); zero {
		return ErrNotPersisted
	}
	if err := s.refresh(ctx, entity, m, locale); err != nil {
		return err
	}
	entity.state().markPersisted()
	return nil
}

func (s *service) StoreTranslation(ctx context.Context, entity Translatable, locale string, attrs map[string]any) (Translation, error) {
	m, err := s.meta(entity)
	if err != nil {
		return nil, err
	}
	for name := range attrs {
		if !m.HasColumn(name) {
			return nil, &UnknownAttributeError{Entity: m.Table, Attribute: name}
		}
	}
	ref, err := s.refFor(m, entity)
	if err != nil {
		return nil, err
	}

	row, err := s.repo.Store(ctx, ref, locale, attrs)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("translation stored", "table", ref.Table, "locale", locale)
	return row, nil
}

func (s *service) StoreTranslations(ctx context.Context, entity Translatable, sets []TranslationSet) error {
	for _, set := range sets {
		if _, err := s.StoreTranslation(ctx, entity, set.Locale, set.Attributes); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) GetTranslation(ctx context.Context, entity Translatable, locale string) (Translation, error) {
	m, err := s.meta(entity)
	if err != nil {
		return nil, err
	}
	ref, err := s.refFor(m, entity)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, ref, locale)
}

func (s *service) TranslationExists(ctx context.Context, entity Translatable, locale string) (bool, error) {
	m, err := s.meta(entity)
	if err != nil {
		return false, err
	}
	ref, err := s.refFor(m, entity)
	if err != nil {
		return false, err
	}
	return s.repo.Exists(ctx, ref, locale)
}

func (s *service) TranslationLocales(ctx context.Context, entity Translatable) ([]string, error) {
	m, err := s.meta(entity)
	if err != nil {
		return nil, err
	}
	ref, err := s.refFor(m, entity)
	if err != nil {
		return nil, err
	}
	return s.repo.Locales(ctx, ref)
}

func (s *service) Translations(entity Translatable) (*bun.SelectQuery, error) {
	m, err := s.meta(entity)
	if err != nil {
		return nil, err
	}
	ref, err := s.refFor(m, entity)
	if err != nil {
		return nil, err
	}
	return s.repo.Query(ref), nil
}

func (s *service) CreateTranslationTable(ctx context.Context, entity Translatable) error {
	m, err := s.meta(entity)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, m.TranslationTableDDL())
	return err
}

// savePrimary writes the primary row, excluding the translatable columns when
// the saving service buffered them. Instances never persisted through the
// overlay are inserted, everything else is updated in place.
func (s *service) savePrimary(ctx context.Context, entity Translatable, m *metadata.Meta, exclude []string) error {
	if !entity.state().Persisted() {
		m.EnsureUUIDKey(entity)
		q := s.db.NewInsert().Model(entity)
		if len(exclude) > 0 {
			q = q.ExcludeColumn(exclude...)
		}
		_, err := q.Exec(ctx)
		return err
	}

	q := s.db.NewUpdate().Model(entity).WherePK()
	if len(exclude) > 0 {
		q = q.ExcludeColumn(exclude...)
	}
	_, err := q.Exec(ctx)
	return err
}

// refresh re-reads the translatable columns through the joined read path and
// overwrites the in-memory fields, leaving no pending local changes for them.
// A missing translation row resolves every translated column to its zero value.
func (s *service) refresh(ctx context.Context, entity Translatable, m *metadata.Meta, locale string) error {
	key, zero := m.PrimaryKey(entity)
	if zero {
		return ErrPrimaryKeyRequired
	}

	var row map[string]any
	q := s.db.NewSelect().
		Model(&row).
		TableExpr("? AS ?", bun.Ident(m.Table), bun.Ident(m.Alias)).
		Where("?.? = ?", bun.Ident(m.Alias), bun.Ident(m.PK), key)
	plan := s.plan(m)
	q = plan.Project(plan.Apply(q, locale))

	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotPersisted
		}
		return err
	}

	m.Clear(entity)
	if err := m.Apply(entity, row); err != nil {
		return err
	}
	entity.state().setLocale(locale)
	return nil
}

func (s *service) meta(entity Translatable) (*metadata.Meta, error) {
	typ := reflect.TypeOf(entity)

	s.mu.RLock()
	m, ok := s.metas[typ]
	s.mu.RUnlock()
	if ok {
		return m, nil
	}

	overrides := metadata.Overrides{}
	if namer, ok := entity.(TranslationTableNamer); ok {
		overrides.TranslationTable = namer.TranslationTable()
	}
	if namer, ok := entity.(TranslationForeignKeyNamer); ok {
		overrides.ForeignKey = namer.TranslationForeignKey()
	}
	if namer, ok := entity.(LocaleKeyNamer); ok {
		overrides.LocaleKey = namer.LocaleKeyName()
	}

	m, err := metadata.Resolve(s.db, entity, entity.TranslatableAttributes(), s.cfg.LocaleKeyName, overrides)
	if err != nil {
		return nil, wrapConfigurationError(err, fmt.Sprintf("%T", entity))
	}

	s.mu.Lock()
	s.metas[typ] = m
	s.mu.Unlock()
	return m, nil
}

func (s *service) plan(m *metadata.Meta) joinplan.Plan {
	return joinplan.Plan{
		BaseAlias:        m.Alias,
		PrimaryKey:       m.PK,
		TranslationTable: m.TranslationTable,
		TranslationAlias: m.TranslationAlias,
		ForeignKey:       m.ForeignKey,
		LocaleKey:        m.LocaleKey,
		Columns:          m.Columns,
	}
}

func (s *service) refFor(m *metadata.Meta, entity Translatable) (translations.Ref, error) {
	key, zero := m.PrimaryKey(entity)
	if zero {
		return translations.Ref{}, ErrNotPersisted
	}
	return translations.Ref{
		Table:      m.TranslationTable,
		ForeignKey: m.ForeignKey,
		LocaleKey:  m.LocaleKey,
		Key:        key,
	}, nil
}

func (s *service) localeFor(ctx context.Context, entity Translatable) string {
	if st := stateOf(entity); st != nil && st.CurrentLocale() != "" {
		return st.CurrentLocale()
	}
	return s.cfg.resolveLocale(ctx)
}
