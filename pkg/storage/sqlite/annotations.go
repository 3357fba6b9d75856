package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/absmach/roadlens/annotation"
	pkgerrors "github.com/absmach/roadlens/pkg/errors"
	"github.com/mattn/go-sqlite3"
)

var _ annotation.Repository = (*annotationRepo)(nil)

type annotationRepo struct {
	db *Database
}

func NewAnnotationRepository(db *Database) annotation.Repository {
	return &annotationRepo{db: db}
}

type dbAnnotation struct {
	ID        string    `db:"id"`
	Data      string    `db:"data"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *annotationRepo) Create(ctx context.Context, a annotation.Annotation) error {
	query := `INSERT INTO annotations (id, data, created_at) VALUES (?, ?, ?)`

	data, err := json.Marshal(a.Data)
	if err != nil {
		return fmt.Errorf("%w: %w", pkgerrors.ErrMalformedEntity, err)
	}

	if _, err := r.db.ExecContext(ctx, query, a.ID, string(data), a.CreatedAt.UTC()); err != nil {
		var se sqlite3.Error
		if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
			return pkgerrors.ErrEntityExists
		}

		return fmt.Errorf("%w: %w", ErrCreate, err)
	}

	return nil
}

func (r *annotationRepo) Get(ctx context.Context, id string) (annotation.Annotation, error) {
	query := `SELECT id, data, created_at FROM annotations WHERE id = ?`

	var dba dbAnnotation
	if err := r.db.GetContext(ctx, &dba, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return annotation.Annotation{}, fmt.Errorf("%w: annotation %s", pkgerrors.ErrNotFound, id)
		}

		return annotation.Annotation{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return toAnnotation(dba)
}

func (r *annotationRepo) List(ctx context.Context, offset, limit uint64) ([]annotation.Annotation, uint64, error) {
	var total uint64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM annotations`); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	query := `SELECT id, data, created_at FROM annotations ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	var rows []dbAnnotation
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	annotations := make([]annotation.Annotation, 0, len(rows))
	for _, row := range rows {
		a, err := toAnnotation(row)
		if err != nil {
			return nil, 0, err
		}
		annotations = append(annotations, a)
	}

	return annotations, total, nil
}

func (r *annotationRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM annotations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: annotation %s", pkgerrors.ErrNotFound, id)
	}

	return nil
}

func toAnnotation(dba dbAnnotation) (annotation.Annotation, error) {
	a := annotation.Annotation{
		ID:        dba.ID,
		CreatedAt: dba.CreatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(dba.Data), &a.Data); err != nil {
		return annotation.Annotation{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return a, nil
}
