// Package metadata maps translatable entities onto their primary and
// translation tables using bun's schema introspection.
package metadata

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"
)

var (
	ErrNoTranslatableAttributes = errors.New("metadata: entity declares no translatable attributes")
	ErrUnknownAttribute         = errors.New("metadata: translatable attribute is not a column of the entity")
	ErrMissingPrimaryKey        = errors.New("metadata: entity does not define a primary key")
	ErrCompositePrimaryKey      = errors.New("metadata: composite primary keys are not supported")
)

// Overrides carries per-entity naming overrides; empty fields fall back to
// the conventional names.
type Overrides struct {
	TranslationTable string
	ForeignKey       string
	LocaleKey        string
}

// Meta describes how one translatable entity type maps onto storage.
type Meta struct {
	Table            string
	Alias            string
	PK               string
	TranslationTable string
	TranslationAlias string
	ForeignKey       string
	LocaleKey        string
	Columns          []string

	fields []*schema.Field
	pk     *schema.Field
}

// Resolve introspects entity through db's schema tables and derives the
// translation table layout. The declared attribute list must name existing
// columns and must not be empty: an empty list would silently route
// translatable values into the primary table, so it is a configuration error.
func Resolve(db *bun.DB, entity any, declared []string, localeKey string, o Overrides) (*Meta, error) {
	typ := reflect.TypeOf(entity)
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	table := db.Table(typ)

	if len(table.PKs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingPrimaryKey, table.TypeName)
	}
	if len(table.PKs) > 1 {
		return nil, fmt.Errorf("%w: %s", ErrCompositePrimaryKey, table.TypeName)
	}

	m := &Meta{
		Table:            table.Name,
		Alias:            table.Alias,
		PK:               table.PKs[0].Name,
		TranslationAlias: "tr",
		pk:               table.PKs[0],
	}
	if m.Alias == "" {
		m.Alias = table.Name
	}

	singular := inflection.Singular(table.Name)
	m.TranslationTable = strings.TrimSpace(o.TranslationTable)
	if m.TranslationTable == "" {
		m.TranslationTable = singular + "_translations"
	}
	m.ForeignKey = strings.TrimSpace(o.ForeignKey)
	if m.ForeignKey == "" {
		m.ForeignKey = singular + "_id"
	}
	m.LocaleKey = strings.TrimSpace(o.LocaleKey)
	if m.LocaleKey == "" {
		m.LocaleKey = localeKey
	}

	for _, name := range declared {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		field, ok := table.FieldMap[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, table.TypeName, name)
		}
		m.fields = append(m.fields, field)
		m.Columns = append(m.Columns, name)
	}
	if len(m.Columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoTranslatableAttributes, table.TypeName)
	}
	return m, nil
}

// HasColumn reports whether name is one of the translatable columns.
func (m *Meta) HasColumn(name string) bool {
	for _, column := range m.Columns {
		if column == name {
			return true
		}
	}
	return false
}

// Attributes snapshots the entity's current translatable values by column name.
func (m *Meta) Attributes(entity any) map[string]any {
	strct := structValue(entity)
	attrs := make(map[string]any, len(m.fields))
	for _, f := range m.fields {
		attrs[f.Name] = f.Value(strct).Interface()
	}
	return attrs
}

// Clear zeroes the translatable fields so an imminent primary-table write
// carries no translation values.
func (m *Meta) Clear(entity any) {
	strct := structValue(entity)
	for _, f := range m.fields {
		fv := f.Value(strct)
		fv.Set(reflect.Zero(fv.Type()))
	}
}

// Apply copies attrs onto the entity's translatable fields. Columns absent
// from attrs keep their current values; nil values zero the field.
func (m *Meta) Apply(entity any, attrs map[string]any) error {
	strct := structValue(entity)
	for _, f := range m.fields {
		value, ok := attrs[f.Name]
		if !ok {
			continue
		}
		fv := f.Value(strct)
		if err := assign(fv, value); err != nil {
			return fmt.Errorf("metadata: assign %s: %w", f.Name, err)
		}
	}
	return nil
}

// PrimaryKey returns the entity's primary key value and whether it is zero.
func (m *Meta) PrimaryKey(entity any) (any, bool) {
	fv := m.pk.Value(structValue(entity))
	return fv.Interface(), fv.IsZero()
}

var uuidType = reflect.TypeOf(uuid.UUID{})

// EnsureUUIDKey assigns a fresh key when the primary key column holds a zero
// uuid. Integer auto-increment keys are left for the storage engine to fill.
// Reports whether an assignment happened.
func (m *Meta) EnsureUUIDKey(entity any) bool {
	fv := m.pk.Value(structValue(entity))
	if fv.Type() != uuidType || !fv.IsZero() {
		return false
	}
	fv.Set(reflect.ValueOf(uuid.New()))
	return true
}

// TranslationTableDDL emits the CREATE TABLE statement for the entity's
// translation table. The composite primary key on (foreign key, locale key)
// is what closes the check-then-write upsert race, so it is always emitted.
func (m *Meta) TranslationTableDDL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %q (\n", m.TranslationTable)
	fmt.Fprintf(&b, "  %q %s NOT NULL,\n", m.ForeignKey, sqlTypeOf(m.pk))
	fmt.Fprintf(&b, "  %q VARCHAR NOT NULL,\n", m.LocaleKey)
	for _, f := range m.fields {
		fmt.Fprintf(&b, "  %q %s,\n", f.Name, sqlTypeOf(f))
	}
	fmt.Fprintf(&b, "  PRIMARY KEY (%q, %q)\n)", m.ForeignKey, m.LocaleKey)
	return b.String()
}

func sqlTypeOf(f *schema.Field) string {
	if f.UserSQLType != "" {
		return f.UserSQLType
	}
	if f.DiscoveredSQLType != "" {
		return f.DiscoveredSQLType
	}
	return "VARCHAR"
}

func structValue(entity any) reflect.Value {
	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	return v
}

func assign(dst reflect.Value, value any) error {
	if value == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	v := reflect.ValueOf(value)
	if v.Type() == dst.Type() {
		dst.Set(v)
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		elem := reflect.New(dst.Type().Elem())
		if err := assign(elem.Elem(), value); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		return assign(dst, v.Elem().Interface())
	}
	if v.Type().ConvertibleTo(dst.Type()) {
		dst.Set(v.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, dst.Type())
}
