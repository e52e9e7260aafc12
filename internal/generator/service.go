// Package generator runs the validate, allocate, synthesize pipeline for a
// single creature and for whole catalogs.
package generator

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/miniworld/modgen/internal/allocator"
	"github.com/miniworld/modgen/internal/catalog"
	"github.com/miniworld/modgen/internal/eventbus"
	"github.com/miniworld/modgen/internal/models"
	"github.com/miniworld/modgen/internal/synth"
	"github.com/miniworld/modgen/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("github.com/miniworld/modgen/internal/generator")

// MaxAuthorLength bounds the author name, which ends up inside file names
// and link keys.
const MaxAuthorLength = 64

// Input is a single generation request as entered by a user.
type Input struct {
	ModID  int64  `json:"mod_id" form:"id_value"`
	CopyID int    `json:"copy_id" form:"creature_select"`
	Author string `json:"author" form:"author_value"`
}

type deps struct {
	alloc   allocator.Store
	synth   *synth.Synthesizer
	events  eventbus.Publisher
	metrics *telemetry.Metrics
	logger  *zap.Logger
}

// Option configures a Service.
type Option func(*deps)

func WithEvents(p eventbus.Publisher) Option {
	return func(d *deps) {
		if p != nil {
			d.events = p
		}
	}
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(d *deps) { d.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(d *deps) {
		if l != nil {
			d.logger = l
		}
	}
}

// Service generates bundles for creatures of one catalog.
type Service struct {
	deps
	catalog *catalog.Catalog
}

func NewService(cat *catalog.Catalog, alloc allocator.Store, syn *synth.Synthesizer, opts ...Option) *Service {
	d := deps{
		alloc:  alloc,
		synth:  syn,
		events: eventbus.Noop{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&d)
	}
	return &Service{deps: d, catalog: cat}
}

// Catalog returns the catalog requests are resolved against.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Allocator exposes the id store for counters endpoints.
func (s *Service) Allocator() allocator.Store {
	return s.alloc
}

// Validate checks in without side effects and resolves the creature.
func (s *Service) Validate(in Input) (models.GenerationRequest, error) {
	author, err := ValidateAuthor(in.Author)
	if err != nil {
		return models.GenerationRequest{}, err
	}
	if in.ModID <= 0 {
		return models.GenerationRequest{}, invalid("mod_id", "must be a positive integer")
	}
	if in.CopyID <= 0 {
		return models.GenerationRequest{}, invalid("copy_id", "a creature must be selected")
	}
	cr, err := s.catalog.Lookup(in.CopyID)
	if err != nil {
		return models.GenerationRequest{}, invalid("copy_id", "unknown creature %d", in.CopyID)
	}
	return models.GenerationRequest{ModID: in.ModID, Creature: cr, Author: author}, nil
}

// ValidateAuthor trims raw and checks it can be embedded in names and keys.
func ValidateAuthor(raw string) (string, error) {
	author := strings.TrimSpace(raw)
	switch {
	case author == "":
		return "", invalid("author", "is required")
	case utf8.RuneCountInString(author) > MaxAuthorLength:
		return "", invalid("author", "must be at most %d characters", MaxAuthorLength)
	case strings.ContainsAny(author, "/\\\x00"):
		return "", invalid("author", "must not contain path separators")
	}
	return author, nil
}

// Generate validates in, draws one result id and synthesizes the bundle.
// The mod id comes from the caller; only the result id is allocated.
func (s *Service) Generate(ctx context.Context, in Input) (*models.GenerationResult, error) {
	ctx, span := tracer.Start(ctx, "generator.Generate")
	defer span.End()

	req, err := s.Validate(in)
	if err != nil {
		s.metrics.Failed("validation")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("mod_id", req.ModID),
		attribute.Int("copy_id", req.Creature.CopyID),
	)

	resultID, err := s.alloc.ConsumeResultID(ctx)
	if err != nil {
		s.metrics.Failed("allocation")
		span.RecordError(err)
		span.SetStatus(codes.Error, "allocation failed")
		return nil, allocationError("consume result id", err)
	}
	s.metrics.Allocated("result_id")

	res, err := s.synthesize(ctx, req, resultID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "synthesis failed")
		return nil, err
	}

	s.metrics.Generated("single")
	s.publishBundle(ctx, res)
	s.logger.Info("bundle generated",
		zap.Int64("mod_id", res.ModID),
		zap.Int64("result_id", res.ResultID),
		zap.Int("copy_id", res.Creature.CopyID),
		zap.String("author", res.Author),
	)
	return res, nil
}

func (d *deps) synthesize(ctx context.Context, req models.GenerationRequest, resultID int64) (*models.GenerationResult, error) {
	_, span := tracer.Start(ctx, "generator.synthesize")
	defer span.End()

	res, err := d.synth.Synthesize(req, resultID)
	if err != nil {
		d.metrics.Failed("synthesis")
		return nil, &SynthesisError{CopyID: req.Creature.CopyID, Err: err}
	}
	return res, nil
}

func (d *deps) publishBundle(ctx context.Context, res *models.GenerationResult) {
	names := make([]string, 0, len(res.Files))
	for _, f := range res.Files {
		names = append(names, f.Name)
	}
	err := d.events.Publish(ctx, eventbus.SubjectBundleGenerated, eventbus.BundleGenerated{
		ModID:     res.ModID,
		ResultID:  res.ResultID,
		CopyID:    res.Creature.CopyID,
		Name:      res.Creature.Name,
		Author:    res.Author,
		LinkKey:   res.LinkKey,
		Files:     names,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		d.logger.Warn("failed to publish bundle event", zap.Error(err))
	}
}

// IsClientError reports whether err stems from bad input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, catalog.ErrNotFound)
}
