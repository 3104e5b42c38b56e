// Package pipeline drives one uploaded file through decoding, field mapping,
// normalization, validation and persistence, and aggregates the row outcomes
// into an import report.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/erp-bulk-import-api/internal/decoder"
	"github.com/erp-bulk-import-api/internal/models"
	"github.com/erp-bulk-import-api/internal/repository"
	"github.com/erp-bulk-import-api/internal/schema"
	"github.com/erp-bulk-import-api/internal/validation"
	"github.com/pkg/errors"
)

// Gateway persists one normalized, validated record and returns its id
type Gateway interface {
	Create(ctx context.Context, module models.Module, rec models.NormalizedRecord) (string, error)
}

// Request is one submitted file
type Request struct {
	Module   models.Module
	FileName string
	Data     []byte
	DryRun   bool
}

// Processor runs import batches. It is safe for concurrent use; batches share
// only the read-only registry and validator.
type Processor struct {
	registry  *schema.Registry
	gateway   Gateway
	validator *validation.Validator
	observers []Observer
	now       func() time.Time
}

// Option configures a Processor
type Option func(*Processor)

// WithObserver adds a side-channel observer
func WithObserver(o Observer) Option {
	return func(p *Processor) {
		p.observers = append(p.observers, o)
	}
}

// WithClock overrides the batch clock used for date defaults
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		p.now = now
	}
}

// NewProcessor creates a processor over the given registry and gateway
func NewProcessor(registry *schema.Registry, gateway Gateway, validator *validation.Validator, opts ...Option) *Processor {
	p := &Processor{
		registry:  registry,
		gateway:   gateway,
		validator: validator,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run imports one file. It returns either a fatal error (unsupported module
// or a *decoder.Error) or a complete report with one outcome per decoded row.
// Once rows are being processed the batch is not cancelled by ctx.
func (p *Processor) Run(ctx context.Context, req Request) (*models.ImportReport, error) {
	started := time.Now()
	p.notify(func(o Observer) { o.BatchStarted(req.Module, req.FileName) })

	s, err := p.registry.Lookup(req.Module)
	if err != nil {
		p.abort(req, err)
		return nil, err
	}

	records, err := decoder.Decode(req.FileName, req.Data)
	if err != nil {
		p.abort(req, err)
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	batchTime := p.now()

	outcomes := make([]models.RowOutcome, 0, len(records))
	for _, rec := range records {
		outcome := p.processRow(ctx, s, rec, batchTime, req.DryRun)
		outcomes = append(outcomes, outcome)
		p.notify(func(o Observer) { o.RowCompleted(req.Module, outcome) })
	}

	report := models.NewImportReport(req.Module, req.FileName, outcomes)
	report.DryRun = req.DryRun

	elapsed := time.Since(started)
	p.notify(func(o Observer) { o.BatchCompleted(report, elapsed) })
	return report, nil
}

type stage int

const (
	stageNormalize stage = iota
	stagePersist
)

// processRow never panics; a panic in any stage becomes a failed outcome
func (p *Processor) processRow(ctx context.Context, s *schema.Schema, rec models.RawRecord, batchTime time.Time, dryRun bool) (outcome models.RowOutcome) {
	current := stageNormalize
	defer func() {
		if r := recover(); r != nil {
			kind := models.OutcomeValidationFailure
			if current == stagePersist {
				kind = models.OutcomePersistenceFailure
			}
			outcome = models.RowOutcome{
				Row:     rec.Row,
				Kind:    kind,
				Reasons: []string{fmt.Sprintf("internal error: %v", r)},
			}
		}
	}()

	normalized := s.Normalize(s.MapRow(rec), batchTime)
	if fields := p.validator.Validate(normalized, s); len(fields) > 0 {
		return models.RowOutcome{Row: rec.Row, Kind: models.OutcomeValidationFailure, Reasons: fields}
	}

	if dryRun {
		return models.RowOutcome{Row: rec.Row, Kind: models.OutcomeSuccess}
	}

	current = stagePersist
	id, err := p.gateway.Create(ctx, s.Module, normalized)
	if err != nil {
		return models.RowOutcome{Row: rec.Row, Kind: models.OutcomePersistenceFailure, Reasons: []string{persistenceReason(err)}}
	}
	return models.RowOutcome{Row: rec.Row, Kind: models.OutcomeSuccess, PersistedID: id}
}

// persistenceReason keeps the conflict description for duplicates and the
// error text otherwise
func persistenceReason(err error) string {
	var dup *repository.DuplicateError
	if errors.As(err, &dup) {
		return dup.Error()
	}
	return err.Error()
}

func (p *Processor) abort(req Request, err error) {
	p.notify(func(o Observer) { o.BatchAborted(req.Module, req.FileName, err) })
}

func (p *Processor) notify(fn func(Observer)) {
	for _, o := range p.observers {
		fn(o)
	}
}
