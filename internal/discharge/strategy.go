package discharge

import (
	"context"
	"time"

	"github.com/lox/qtwsa/internal/models"
)

// Request is one derivation call from the presentation layer.
type Request struct {
	SiteID    string
	Selection Selection
	Cutoff    time.Time // zero uses the strategy default
}

type Result struct {
	Strategy   string
	Site       SiteKey
	Records    []models.DischargeRecord
	Annotation *Annotation
}

// Strategy produces discharge records for a site. Implementations must be
// safe for concurrent use.
type Strategy interface {
	Name() string
	Derive(ctx context.Context, req Request) (*Result, error)
}

// TWSAStrategy derives discharge from GRACE TWSA using the regionalization
// coefficients of the parameter table.
type TWSAStrategy struct {
	resolver  *Resolver
	engine    *Engine
	annotator *Annotator
	cutoff    time.Time
}

func NewTWSAStrategy(resolver *Resolver, engine *Engine, cutoff time.Time) *TWSAStrategy {
	return &TWSAStrategy{
		resolver:  resolver,
		engine:    engine,
		annotator: NewAnnotator(engine),
		cutoff:    cutoff,
	}
}

func (s *TWSAStrategy) Name() string { return "twsa" }

func (s *TWSAStrategy) Derive(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := s.resolver.Resolve(req.SiteID)
	if err != nil {
		return nil, err
	}

	cutoff := req.Cutoff
	if cutoff.IsZero() {
		cutoff = s.cutoff
	}

	records, err := s.engine.Derive(key, req.Selection, cutoff)
	if err != nil {
		return nil, err
	}

	ann, err := s.annotator.Annotate(key.CorrelationID, req.Selection.Spatial, req.Selection.Temporal)
	if err != nil {
		return nil, err
	}

	return &Result{
		Strategy:   s.Name(),
		Site:       key,
		Records:    records,
		Annotation: &ann,
	}, nil
}
