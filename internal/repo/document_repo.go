package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"boardtex/internal/model"
	appErr "boardtex/internal/pkg/errors"
)

// DocumentRepo is the metadata index over saved documents. Artifact bytes
// live in the note store directory; this table only backs listing and
// reconciliation.
type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func (r *DocumentRepo) Upsert(ctx context.Context, doc *model.Document) error {
	if err := r.deleteRow(ctx, doc.Name); err != nil && err != appErr.ErrNotFound {
		return err
	}
	hasPDF := 0
	if doc.HasPDF() {
		hasPDF = 1
	}
	data := map[string]interface{}{
		"name":           doc.Name,
		"status":         string(doc.Status),
		"fragment_count": doc.FragmentCount,
		"photo_count":    doc.PhotoCount,
		"has_pdf":        hasPDF,
		"compile_detail": doc.CompileDetail,
		"ctime":          doc.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("documents", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *DocumentRepo) Get(ctx context.Context, name string) (*model.DocumentSummary, error) {
	where := map[string]interface{}{
		"name": name,
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, summaryColumns())
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	return scanSummary(rows)
}

func (r *DocumentRepo) List(ctx context.Context, limit, offset uint) ([]model.DocumentSummary, error) {
	where := map[string]interface{}{
		"_orderby": "ctime desc",
	}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect("documents", where, summaryColumns())
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.DocumentSummary, 0)
	for rows.Next() {
		doc, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) ListNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name FROM documents")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (r *DocumentRepo) Delete(ctx context.Context, name string) error {
	return r.deleteRow(ctx, name)
}

func (r *DocumentRepo) deleteRow(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM documents WHERE name = ?", name)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func summaryColumns() []string {
	return []string{"name", "status", "fragment_count", "photo_count", "has_pdf", "compile_detail", "ctime"}
}

func scanSummary(rows *sql.Rows) (*model.DocumentSummary, error) {
	var doc model.DocumentSummary
	var status string
	var hasPDF int
	if err := rows.Scan(&doc.Name, &status, &doc.FragmentCount, &doc.PhotoCount, &hasPDF, &doc.CompileDetail, &doc.Ctime); err != nil {
		return nil, err
	}
	doc.Status = model.DocumentStatus(status)
	doc.HasPDF = hasPDF == 1
	return &doc, nil
}
