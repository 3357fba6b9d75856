package api

import (
	"io"

	"github.com/absmach/roadlens/inference"
	"github.com/absmach/roadlens/pkg/api"
	pkgerrors "github.com/absmach/roadlens/pkg/errors"
)

type inferenceReq struct {
	inference.Request
}

type aggregateReq struct {
	body io.Reader
}

func (req aggregateReq) validate() error {
	if req.body == nil {
		return pkgerrors.ErrMalformedEntity
	}

	return nil
}

type saveAnnotationReq struct {
	data map[string]any
}

func (req saveAnnotationReq) validate() error {
	if len(req.data) == 0 {
		return pkgerrors.ErrMalformedEntity
	}

	return nil
}

type entityReq struct {
	id string
}

func (req entityReq) validate() error {
	if req.id == "" {
		return pkgerrors.ErrEmptyID
	}

	return nil
}

type listEntityReq struct {
	offset uint64
	limit  uint64
}

func (req listEntityReq) validate() error {
	if req.limit > api.MaxLimitSize {
		return pkgerrors.ErrLimitSize
	}

	return nil
}
