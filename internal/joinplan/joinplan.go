// Package joinplan builds the structural locale join that merges translation
// rows into reads of a translatable entity.
package joinplan

import "github.com/uptrace/bun"

// Plan describes the locale join for one translatable entity type:
// LEFT JOIN translation_table AS alias
//
//	ON alias.fk = base.pk AND alias.locale_key = :locale.
type Plan struct {
	BaseAlias        string
	PrimaryKey       string
	TranslationTable string
	TranslationAlias string
	ForeignKey       string
	LocaleKey        string
	Columns          []string
}

// Apply attaches the locale-filtered translation join to q. The join is outer
// so entities without a translation for the locale still come back, with the
// translated columns resolving to NULL.
func (p Plan) Apply(q *bun.SelectQuery, locale string) *bun.SelectQuery {
	return q.
		Join("LEFT JOIN ? AS ?", bun.Ident(p.TranslationTable), bun.Ident(p.TranslationAlias)).
		JoinOn("?.? = ?.?",
			bun.Ident(p.TranslationAlias), bun.Ident(p.ForeignKey),
			bun.Ident(p.BaseAlias), bun.Ident(p.PrimaryKey)).
		JoinOn("?.? = ?", bun.Ident(p.TranslationAlias), bun.Ident(p.LocaleKey), locale)
}

// Project appends the translated columns to q's selection, aliased to their
// bare names so they scan back into the entity's own fields.
func (p Plan) Project(q *bun.SelectQuery) *bun.SelectQuery {
	for _, column := range p.Columns {
		q = q.ColumnExpr("?.? AS ?",
			bun.Ident(p.TranslationAlias), bun.Ident(column), bun.Ident(column))
	}
	return q
}

// Merge attaches the join and projects the full merged row: every primary
// table column plus the locale's translated columns. This is the read path
// for entity queries; it is applied at query construction and has no bypass.
func (p Plan) Merge(q *bun.SelectQuery, locale string) *bun.SelectQuery {
	q = q.ColumnExpr("?TableAlias.*")
	q = p.Apply(q, locale)
	return p.Project(q)
}
