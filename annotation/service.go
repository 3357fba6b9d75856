package annotation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pkgerrors "github.com/absmach/roadlens/pkg/errors"
	"github.com/google/uuid"
)

var _ Service = (*service)(nil)

type service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) Service {
	return &service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *service) Save(ctx context.Context, data map[string]any) (Annotation, error) {
	if len(data) == 0 {
		return Annotation{}, fmt.Errorf("%w: empty annotation", pkgerrors.ErrMalformedEntity)
	}

	a := Annotation{
		ID:        uuid.NewString(),
		Data:      data,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return Annotation{}, err
	}
	s.logger.Info("Annotation saved", slog.String("id", a.ID), slog.Int("fields", len(data)))

	return a, nil
}

func (s *service) View(ctx context.Context, id string) (Annotation, error) {
	if id == "" {
		return Annotation{}, pkgerrors.ErrEmptyID
	}

	return s.repo.Get(ctx, id)
}

func (s *service) List(ctx context.Context, offset, limit uint64) (Page, error) {
	annotations, total, err := s.repo.List(ctx, offset, limit)
	if err != nil {
		return Page{}, err
	}
	if annotations == nil {
		annotations = []Annotation{}
	}

	return Page{
		Offset:      offset,
		Limit:       limit,
		Total:       total,
		Annotations: annotations,
	}, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return pkgerrors.ErrEmptyID
	}

	return s.repo.Delete(ctx, id)
}
