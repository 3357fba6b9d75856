// Package annotation keeps user supplied image annotations, the records a
// labelling client saves next to the detector's suggestions.
package annotation

import (
	"context"
	"time"
)

type Annotation struct {
	ID        string         `json:"id"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

type Page struct {
	Offset      uint64       `json:"offset"`
	Limit       uint64       `json:"limit"`
	Total       uint64       `json:"total"`
	Annotations []Annotation `json:"annotations"`
}

// Repository persists annotations. List returns newest first.
type Repository interface {
	Create(ctx context.Context, a Annotation) error
	Get(ctx context.Context, id string) (Annotation, error)
	List(ctx context.Context, offset, limit uint64) ([]Annotation, uint64, error)
	Delete(ctx context.Context, id string) error
}

type Service interface {
	Save(ctx context.Context, data map[string]any) (Annotation, error)
	View(ctx context.Context, id string) (Annotation, error)
	List(ctx context.Context, offset, limit uint64) (Page, error)
	Delete(ctx context.Context, id string) error
}
