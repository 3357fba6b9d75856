package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/absmach/roadlens/annotation"
	pkgerrors "github.com/absmach/roadlens/pkg/errors"
	"github.com/dgraph-io/badger/v4"
)

const (
	annotationPrefix = "annotation:"
	annotationIndex  = "annotation-id:"
)

var _ annotation.Repository = (*annotationRepo)(nil)

type annotationRepo struct {
	db *Database
}

func NewAnnotationRepository(db *Database) annotation.Repository {
	return &annotationRepo{db: db}
}

// primaryKey orders annotations by creation time, then id.
func primaryKey(a annotation.Annotation) []byte {
	return fmt.Appendf(nil, "%s%020d:%s", annotationPrefix, a.CreatedAt.UnixNano(), a.ID)
}

func indexKey(id string) []byte {
	return []byte(annotationIndex + id)
}

func (r *annotationRepo) Create(_ context.Context, a annotation.Annotation) error {
	val, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("%w: %w", pkgerrors.ErrMalformedEntity, err)
	}

	err = r.db.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(indexKey(a.ID)); err == nil {
			return pkgerrors.ErrEntityExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		key := primaryKey(a)
		if err := txn.Set(key, val); err != nil {
			return err
		}

		return txn.Set(indexKey(a.ID), key)
	})
	switch {
	case errors.Is(err, pkgerrors.ErrEntityExists):
		return err
	case err != nil:
		return fmt.Errorf("%w: %w", ErrUpdate, err)
	}

	return nil
}

func (r *annotationRepo) Get(_ context.Context, id string) (annotation.Annotation, error) {
	key, err := r.db.get(indexKey(id))
	if err != nil {
		return annotation.Annotation{}, notFound(err, id)
	}
	val, err := r.db.get(key)
	if err != nil {
		return annotation.Annotation{}, notFound(err, id)
	}

	var a annotation.Annotation
	if err := json.Unmarshal(val, &a); err != nil {
		return annotation.Annotation{}, fmt.Errorf("%w: %w", ErrDBQuery, err)
	}

	return a, nil
}

func (r *annotationRepo) List(_ context.Context, offset, limit uint64) ([]annotation.Annotation, uint64, error) {
	total, err := r.db.countWithPrefix([]byte(annotationPrefix))
	if err != nil {
		return nil, 0, err
	}
	vals, err := r.db.listWithPrefix([]byte(annotationPrefix), offset, limit)
	if err != nil {
		return nil, 0, err
	}

	annotations := make([]annotation.Annotation, 0, len(vals))
	for _, val := range vals {
		var a annotation.Annotation
		if err := json.Unmarshal(val, &a); err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrDBQuery, err)
		}
		annotations = append(annotations, a)
	}

	return annotations, total, nil
}

func (r *annotationRepo) Delete(_ context.Context, id string) error {
	err := r.db.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey(id))
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}

		return txn.Delete(indexKey(id))
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return fmt.Errorf("%w: annotation %s", pkgerrors.ErrNotFound, id)
	case err != nil:
		return fmt.Errorf("%w: %w", ErrDelete, err)
	}

	return nil
}

func notFound(err error, id string) error {
	if errors.Is(err, pkgerrors.ErrNotFound) {
		return fmt.Errorf("%w: annotation %s", pkgerrors.ErrNotFound, id)
	}

	return err
}
