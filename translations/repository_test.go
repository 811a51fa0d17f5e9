package translations

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", "file:translations_test_"+t.Name()+"?mode=memory&cache=shared&_fk=1")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqldb.Close() })

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ddl := `CREATE TABLE IF NOT EXISTS "article_translations" (
		"article_id" INTEGER NOT NULL,
		"locale" VARCHAR NOT NULL,
		"title" VARCHAR,
		"body" VARCHAR,
		PRIMARY KEY ("article_id", "locale")
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return NewRepository(db)
}

func articleRef(key int64) Ref {
	return Ref{
		Table:      "article_translations",
		ForeignKey: "article_id",
		LocaleKey:  "locale",
		Key:        key,
	}
}

func TestRepository_StoreInsertsThenUpdates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	ref := articleRef(1)

	exists, err := repo.Exists(ctx, ref, "en")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Fatalf("expected no translation before store")
	}

	row, err := repo.Store(ctx, ref, "en", map[string]any{"title": "Hi", "body": "Hello"})
	if err != nil {
		t.Fatalf("Store() insert error = %v", err)
	}
	if row["title"] != "Hi" || row["body"] != "Hello" {
		t.Fatalf("Store() returned %v", row)
	}

	row, err = repo.Store(ctx, ref, "en", map[string]any{"title": "Hey"})
	if err != nil {
		t.Fatalf("Store() update error = %v", err)
	}
	if row["title"] != "Hey" {
		t.Fatalf("expected updated title, got %v", row["title"])
	}
	if row["body"] != "Hello" {
		t.Fatalf("partial update clobbered body: %v", row["body"])
	}
}

func TestRepository_StoreIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	ref := articleRef(2)
	attrs := map[string]any{"title": "Hi", "body": "Hello"}

	if _, err := repo.Store(ctx, ref, "en", attrs); err != nil {
		t.Fatalf("Store() first call error = %v", err)
	}
	if _, err := repo.Store(ctx, ref, "en", attrs); err != nil {
		t.Fatalf("Store() second call error = %v", err)
	}

	var rows []map[string]any
	if err := repo.Query(ref).Scan(ctx, &rows); err != nil {
		t.Fatalf("Query() scan error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one logical row, got %d", len(rows))
	}
	if rows[0]["title"] != "Hi" {
		t.Fatalf("unexpected row: %v", rows[0])
	}
}

func TestRepository_GetReturnsNilWhenAbsent(t *testing.T) {
	repo := newTestRepo(t)

	row, err := repo.Get(context.Background(), articleRef(3), "de")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if row != nil {
		t.Fatalf("expected nil row for missing translation, got %v", row)
	}
}

func TestRepository_RequiresLocale(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	ref := articleRef(4)

	if _, err := repo.Get(ctx, ref, "  "); !errors.Is(err, ErrLocaleRequired) {
		t.Fatalf("Get() expected ErrLocaleRequired, got %v", err)
	}
	if _, err := repo.Store(ctx, ref, "", nil); !errors.Is(err, ErrLocaleRequired) {
		t.Fatalf("Store() expected ErrLocaleRequired, got %v", err)
	}
	if _, err := repo.Exists(ctx, ref, ""); !errors.Is(err, ErrLocaleRequired) {
		t.Fatalf("Exists() expected ErrLocaleRequired, got %v", err)
	}
}

func TestRepository_StoreManyAndLocales(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	ref := articleRef(5)

	err := repo.StoreMany(ctx, ref, []Set{
		{Locale: "en", Attributes: map[string]any{"title": "Hi"}},
		{Locale: "fr", Attributes: map[string]any{"title": "Salut"}},
		{Locale: "fr", Attributes: map[string]any{"body": "Bonjour"}},
	})
	if err != nil {
		t.Fatalf("StoreMany() error = %v", err)
	}

	locales, err := repo.Locales(ctx, ref)
	if err != nil {
		t.Fatalf("Locales() error = %v", err)
	}
	if len(locales) != 2 || locales[0] != "en" || locales[1] != "fr" {
		t.Fatalf("Locales() = %v", locales)
	}

	fr, err := repo.Get(ctx, ref, "fr")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if fr["title"] != "Salut" || fr["body"] != "Bonjour" {
		t.Fatalf("later set did not layer onto earlier one: %v", fr)
	}
}

func TestRepository_KeysStayIsolated(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if _, err := repo.Store(ctx, articleRef(10), "en", map[string]any{"title": "ten"}); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if _, err := repo.Store(ctx, articleRef(11), "en", map[string]any{"title": "eleven"}); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	row, err := repo.Get(ctx, articleRef(10), "en")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if row["title"] != "ten" {
		t.Fatalf("entity 10 row contaminated: %v", row)
	}
}
