package api

import (
	"context"
	"errors"

	"github.com/absmach/roadlens/annotation"
	"github.com/absmach/roadlens/inference"
	pkgerrors "github.com/absmach/roadlens/pkg/errors"
	"github.com/absmach/roadlens/telemetry"
	"github.com/go-kit/kit/endpoint"
)

func inferenceEndpoint(runner *inference.Runner) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(inferenceReq)
		if !ok {
			return inferenceResponse{}, pkgerrors.ErrMalformedEntity
		}

		return inferenceResponse{
			Response: runner.Run(ctx, req.Request),
		}, nil
	}
}

func aggregateEndpoint(svc telemetry.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(aggregateReq)
		if !ok {
			return aggregateResponse{}, pkgerrors.ErrMalformedEntity
		}
		if err := req.validate(); err != nil {
			return aggregateResponse{}, err
		}

		res, err := svc.Aggregate(ctx, req.body)
		if err != nil {
			return aggregateResponse{}, err
		}

		return aggregateResponse(res), nil
	}
}

func saveAnnotationEndpoint(svc annotation.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(saveAnnotationReq)
		if !ok {
			return annotationResponse{}, pkgerrors.ErrMalformedEntity
		}
		if err := req.validate(); err != nil {
			return annotationResponse{}, err
		}

		a, err := svc.Save(ctx, req.data)
		if err != nil {
			return annotationResponse{}, err
		}

		return annotationResponse{
			Annotation: a,
			created:    true,
		}, nil
	}
}

func viewAnnotationEndpoint(svc annotation.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return annotationResponse{}, pkgerrors.ErrMalformedEntity
		}
		if err := req.validate(); err != nil {
			return annotationResponse{}, err
		}

		a, err := svc.View(ctx, req.id)
		if err != nil {
			return annotationResponse{}, err
		}

		return annotationResponse{
			Annotation: a,
		}, nil
	}
}

func listAnnotationsEndpoint(svc annotation.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(listEntityReq)
		if !ok {
			return listAnnotationsResponse{}, pkgerrors.ErrMalformedEntity
		}
		if err := req.validate(); err != nil {
			return listAnnotationsResponse{}, errors.Join(pkgerrors.ErrMalformedEntity, err)
		}

		page, err := svc.List(ctx, req.offset, req.limit)
		if err != nil {
			return listAnnotationsResponse{}, err
		}

		return listAnnotationsResponse{
			Page: page,
		}, nil
	}
}

func deleteAnnotationEndpoint(svc annotation.Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(entityReq)
		if !ok {
			return annotationResponse{}, pkgerrors.ErrMalformedEntity
		}
		if err := req.validate(); err != nil {
			return annotationResponse{}, err
		}

		if err := svc.Delete(ctx, req.id); err != nil {
			return annotationResponse{}, err
		}

		return annotationResponse{
			deleted: true,
		}, nil
	}
}
