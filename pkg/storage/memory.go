package storage

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/absmach/roadlens/annotation"
	"github.com/absmach/roadlens/pkg/errors"
)

var _ annotation.Repository = (*inMemoryRepository)(nil)

type inMemoryRepository struct {
	sync.Mutex

	data  map[string]annotation.Annotation
	order []string
}

func NewInMemoryRepository() annotation.Repository {
	return &inMemoryRepository{
		data: make(map[string]annotation.Annotation),
	}
}

func (r *inMemoryRepository) Create(_ context.Context, a annotation.Annotation) error {
	if a.ID == "" {
		return errors.ErrEmptyID
	}

	r.Lock()
	defer r.Unlock()

	if _, ok := r.data[a.ID]; ok {
		return errors.ErrEntityExists
	}
	a.Data = maps.Clone(a.Data)
	r.data[a.ID] = a
	r.order = append(r.order, a.ID)

	return nil
}

func (r *inMemoryRepository) Get(_ context.Context, id string) (annotation.Annotation, error) {
	if id == "" {
		return annotation.Annotation{}, errors.ErrEmptyID
	}

	r.Lock()
	defer r.Unlock()

	a, ok := r.data[id]
	if !ok {
		return annotation.Annotation{}, fmt.Errorf("%w: annotation %s", errors.ErrNotFound, id)
	}

	return a, nil
}

func (r *inMemoryRepository) List(_ context.Context, offset, limit uint64) ([]annotation.Annotation, uint64, error) {
	r.Lock()
	defer r.Unlock()

	total := uint64(len(r.order))
	if offset >= total {
		return nil, total, nil
	}
	end := min(offset+limit, total)

	newest := slices.Clone(r.order)
	slices.Reverse(newest)
	result := make([]annotation.Annotation, 0, end-offset)
	for _, id := range newest[offset:end] {
		result = append(result, r.data[id])
	}

	return result, total, nil
}

func (r *inMemoryRepository) Delete(_ context.Context, id string) error {
	if id == "" {
		return errors.ErrEmptyID
	}

	r.Lock()
	defer r.Unlock()

	if _, ok := r.data[id]; !ok {
		return fmt.Errorf("%w: annotation %s", errors.ErrNotFound, id)
	}
	delete(r.data, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })

	return nil
}
