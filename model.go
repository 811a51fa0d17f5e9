package translatable

import (
	"context"
	"reflect"
	"sync/atomic"

	"github.com/goliatone/go-translatable/locales"
	"github.com/uptrace/bun"
)

// Translatable is the contract a primary entity acquires by embedding Model
// and declaring which of its columns hold locale-specific values.
type Translatable interface {
	// TranslatableAttributes returns the column names whose values live in
	// the entity's translation table rather than the primary table.
	TranslatableAttributes() []string

	state() *Model
}

// TranslationTableNamer overrides the conventional translation table name
// (singular primary table + "_translations").
type TranslationTableNamer interface {
	TranslationTable() string
}

// TranslationForeignKeyNamer overrides the conventional foreign key column
// (singular primary table + "_id").
type TranslationForeignKeyNamer interface {
	TranslationForeignKey() string
}

// LocaleKeyNamer overrides the configured locale key column for one entity type.
type LocaleKeyNamer interface {
	LocaleKeyName() string
}

// tokenSeq hands out instance tokens. Tokens identify in-memory instances
// across a save cycle; the persisted primary key cannot serve because it may
// not exist yet during a create.
var tokenSeq atomic.Uint64

// Model carries the per-instance translation state for a translatable entity.
// Embed it alongside bun.BaseModel; it contributes no columns.
type Model struct {
	token     uint64
	locale    string
	persisted bool
}

func (m *Model) state() *Model { return m }

// CurrentLocale returns the locale currently merged into the instance, or ""
// while the instance still follows the ambient locale.
func (m *Model) CurrentLocale() string { return m.locale }

// Persisted reports whether this instance exists in storage: set when the
// overlay writes it and whenever bun hydrates it from a row.
func (m *Model) Persisted() bool { return m.persisted }

var _ bun.AfterScanRowHook = (*Model)(nil)

// AfterScanRow marks the instance persisted whenever bun hydrates it from
// storage, so the next save updates in place instead of re-inserting. When
// the scan context carries an ambient locale it is recorded as the merged
// locale.
func (m *Model) AfterScanRow(ctx context.Context) error {
	m.persisted = true
	if code := locales.FromContext(ctx); code != "" {
		m.locale = code
	}
	return nil
}

func (m *Model) instanceToken() uint64 {
	if m.token == 0 {
		m.token = tokenSeq.Add(1)
	}
	return m.token
}

func (m *Model) setLocale(locale string) { m.locale = locale }

func (m *Model) markPersisted() { m.persisted = true }

// stateOf tolerates typed-nil prototypes used for building list queries.
func stateOf(entity Translatable) *Model {
	v := reflect.ValueOf(entity)
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return nil
	}
	return entity.state()
}
