package ui

import (
	"context"

	"github.com/rovshanmuradov/launchlab/internal/curve"
	"github.com/rovshanmuradov/launchlab/internal/export"
)

// Source supplies the curve listing shown by the dashboard.
type Source interface {
	ListCurves(ctx context.Context) ([]export.CurveJSON, error)
}

// CurveLister is satisfied by storage.CurveStore.
type CurveLister interface {
	ListAll(ctx context.Context) ([]curve.Record, error)
}

type storeSource struct {
	curves CurveLister
}

// FromStore reads the listing straight from a curve store.
func FromStore(curves CurveLister) Source {
	return storeSource{curves: curves}
}

func (s storeSource) ListCurves(ctx context.Context) ([]export.CurveJSON, error) {
	records, err := s.curves.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]export.CurveJSON, 0, len(records))
	for _, rec := range records {
		out = append(out, export.NewCurveJSON(curve.Summarize(rec)))
	}
	return out, nil
}
