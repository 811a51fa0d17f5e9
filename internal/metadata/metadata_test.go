package metadata

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type article struct {
	bun.BaseModel `bun:"table:articles,alias:a"`

	ID    uuid.UUID `bun:"id,pk,type:uuid"`
	Slug  string    `bun:"slug,notnull"`
	Title string    `bun:"title"`
	Body  *string   `bun:"body"`
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", "file:metadata_test?mode=memory&cache=shared&_fk=1")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqldb.Close() })

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func resolveArticle(t *testing.T, db *bun.DB, o Overrides) *Meta {
	t.Helper()

	m, err := Resolve(db, &article{}, []string{"title", "body"}, "locale", o)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	return m
}

func TestResolve_ConventionalNames(t *testing.T) {
	t.Parallel()

	m := resolveArticle(t, newTestDB(t), Overrides{})

	if m.Table != "articles" || m.Alias != "a" || m.PK != "id" {
		t.Fatalf("unexpected base mapping: %+v", m)
	}
	if m.TranslationTable != "article_translations" {
		t.Fatalf("expected article_translations, got %q", m.TranslationTable)
	}
	if m.ForeignKey != "article_id" {
		t.Fatalf("expected article_id, got %q", m.ForeignKey)
	}
	if m.LocaleKey != "locale" {
		t.Fatalf("expected locale, got %q", m.LocaleKey)
	}
	if len(m.Columns) != 2 || m.Columns[0] != "title" || m.Columns[1] != "body" {
		t.Fatalf("unexpected columns: %v", m.Columns)
	}
}

func TestResolve_Overrides(t *testing.T) {
	t.Parallel()

	m := resolveArticle(t, newTestDB(t), Overrides{
		TranslationTable: "article_i18n",
		ForeignKey:       "owner_id",
		LocaleKey:        "lang",
	})

	if m.TranslationTable != "article_i18n" || m.ForeignKey != "owner_id" || m.LocaleKey != "lang" {
		t.Fatalf("overrides not honored: %+v", m)
	}
}

func TestResolve_RequiresDeclaredAttributes(t *testing.T) {
	t.Parallel()

	_, err := Resolve(newTestDB(t), &article{}, nil, "locale", Overrides{})
	if !errors.Is(err, ErrNoTranslatableAttributes) {
		t.Fatalf("expected ErrNoTranslatableAttributes, got %v", err)
	}
}

func TestResolve_RejectsUnknownAttribute(t *testing.T) {
	t.Parallel()

	_, err := Resolve(newTestDB(t), &article{}, []string{"title", "missing"}, "locale", Overrides{})
	if !errors.Is(err, ErrUnknownAttribute) {
		t.Fatalf("expected ErrUnknownAttribute, got %v", err)
	}
}

func TestMeta_AttributesClearApply(t *testing.T) {
	t.Parallel()

	m := resolveArticle(t, newTestDB(t), Overrides{})

	body := "Hello"
	record := &article{Slug: "intro", Title: "Hi", Body: &body}

	attrs := m.Attributes(record)
	if attrs["title"] != "Hi" {
		t.Fatalf("Attributes() title = %v", attrs["title"])
	}
	if got, ok := attrs["body"].(*string); !ok || *got != "Hello" {
		t.Fatalf("Attributes() body = %v", attrs["body"])
	}

	m.Clear(record)
	if record.Title != "" || record.Body != nil {
		t.Fatalf("Clear() left values: %+v", record)
	}
	if record.Slug != "intro" {
		t.Fatalf("Clear() touched non-translatable column: %q", record.Slug)
	}

	if err := m.Apply(record, map[string]any{"title": "Salut", "body": "Bonjour"}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if record.Title != "Salut" || record.Body == nil || *record.Body != "Bonjour" {
		t.Fatalf("Apply() result: %+v", record)
	}

	// nil zeroes, absent keys keep current values
	if err := m.Apply(record, map[string]any{"body": nil}); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if record.Title != "Salut" || record.Body != nil {
		t.Fatalf("Apply() nil handling: %+v", record)
	}
}

func TestMeta_EnsureUUIDKey(t *testing.T) {
	t.Parallel()

	m := resolveArticle(t, newTestDB(t), Overrides{})

	record := &article{}
	if _, zero := m.PrimaryKey(record); !zero {
		t.Fatalf("expected zero primary key")
	}
	if !m.EnsureUUIDKey(record) {
		t.Fatalf("expected key assignment")
	}
	if record.ID == uuid.Nil {
		t.Fatalf("expected non-nil uuid")
	}
	if m.EnsureUUIDKey(record) {
		t.Fatalf("expected no reassignment for populated key")
	}
}

func TestMeta_TranslationTableDDL(t *testing.T) {
	t.Parallel()

	m := resolveArticle(t, newTestDB(t), Overrides{})
	ddl := m.TranslationTableDDL()

	for _, fragment := range []string{
		`CREATE TABLE IF NOT EXISTS "article_translations"`,
		`"article_id"`,
		`"locale" VARCHAR NOT NULL`,
		`"title"`,
		`"body"`,
		`PRIMARY KEY ("article_id", "locale")`,
	} {
		if !strings.Contains(ddl, fragment) {
			t.Fatalf("DDL missing %q:\n%s", fragment, ddl)
		}
	}
}
