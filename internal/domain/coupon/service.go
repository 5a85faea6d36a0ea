package coupon

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-coupons/internal/domain/cart"
)

const instrumentationName = "github.com/xenking/kart-coupons/internal/domain/coupon"

// Input is an unvalidated coupon definition: a raw type tag and the raw
// JSON of its details.
type Input struct {
	Type    string
	Details []byte
}

// Service manages coupon records and evaluates them against carts.
type Service struct {
	repo   Repository
	tracer trace.Tracer

	evaluated  metric.Int64Counter
	applicable metric.Int64Counter
	applied    metric.Int64Counter
}

// NewService creates a Service backed by repo.
func NewService(repo Repository, tp trace.TracerProvider, mp metric.MeterProvider) (*Service, error) {
	meter := mp.Meter(instrumentationName)
	s := &Service{
		repo:   repo,
		tracer: tp.Tracer(instrumentationName),
	}

	var err error
	if s.evaluated, err = meter.Int64Counter("coupons.evaluated",
		metric.WithDescription("Coupons evaluated against carts"),
	); err != nil {
		return nil, errors.Wrap(err, "coupons.evaluated")
	}
	if s.applicable, err = meter.Int64Counter("coupons.applicable",
		metric.WithDescription("Coupons found applicable to a cart"),
	); err != nil {
		return nil, errors.Wrap(err, "coupons.applicable")
	}
	if s.applied, err = meter.Int64Counter("coupons.applied",
		metric.WithDescription("Coupons applied to a cart"),
	); err != nil {
		return nil, errors.Wrap(err, "coupons.applied")
	}
	return s, nil
}

// Parse normalizes the type tag and decodes the details for it. Empty or
// null details are rejected with ErrDetailsRequired.
func (in Input) Parse() (Type, Details, error) {
	t, err := ParseType(in.Type)
	if err != nil {
		return "", nil, err
	}
	if len(in.Details) == 0 {
		return "", nil, ErrDetailsRequired
	}
	d, err := ParseDetails(t, in.Details)
	if err != nil {
		return "", nil, err
	}
	if d == nil {
		return "", nil, ErrDetailsRequired
	}
	return t, d, nil
}

// Create validates and stores a new coupon.
func (s *Service) Create(ctx context.Context, in Input) (*Coupon, error) {
	t, d, err := in.Parse()
	if err != nil {
		return nil, err
	}

	c := &Coupon{Type: t, Details: d}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, errors.Wrap(err, "create coupon")
	}
	zctx.From(ctx).Info("Coupon created", zap.Int64("coupon_id", c.ID), zap.Stringer("type", c.Type))
	return c, nil
}

// List returns every stored coupon.
func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}
	return list, nil
}

// Get returns the coupon with the given id or ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*Coupon, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrapLookup(err, id)
	}
	return c, nil
}

// Update replaces the type and details of an existing coupon.
func (s *Service) Update(ctx context.Context, id int64, in Input) (*Coupon, error) {
	t, d, err := in.Parse()
	if err != nil {
		return nil, err
	}

	c := &Coupon{ID: id, Type: t, Details: d}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, wrapLookup(err, id)
	}
	zctx.From(ctx).Info("Coupon updated", zap.Int64("coupon_id", id), zap.Stringer("type", t))
	return c, nil
}

// Delete removes the coupon with the given id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return wrapLookup(err, id)
	}
	zctx.From(ctx).Info("Coupon deleted", zap.Int64("coupon_id", id))
	return nil
}

// Applicable evaluates every stored coupon against c.
func (s *Service) Applicable(ctx context.Context, c cart.Cart) (_ []Applicable, rerr error) {
	ctx, span := s.tracer.Start(ctx, "coupon.Applicable",
		trace.WithAttributes(attribute.Int("cart.items", len(c.Items))),
	)
	defer func() { endSpan(span, rerr) }()

	coupons, err := s.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list coupons")
	}
	list, err := ListApplicable(c, coupons)
	if err != nil {
		return nil, err
	}

	s.evaluated.Add(ctx, int64(len(coupons)))
	for _, a := range list {
		s.applicable.Add(ctx, 1, metric.WithAttributes(attribute.String("coupon.type", a.Type.String())))
	}
	span.SetAttributes(
		attribute.Int("coupons.evaluated", len(coupons)),
		attribute.Int("coupons.applicable", len(list)),
	)
	zctx.From(ctx).Debug("Evaluated coupons",
		zap.Int("evaluated", len(coupons)),
		zap.Int("applicable", len(list)),
	)
	return list, nil
}

// ApplyByID resolves the coupon with the given id and applies it to c.
func (s *Service) ApplyByID(ctx context.Context, id int64, c *cart.Cart) (_ *Result, rerr error) {
	ctx, span := s.tracer.Start(ctx, "coupon.Apply",
		trace.WithAttributes(attribute.Int64("coupon.id", id)),
	)
	defer func() { endSpan(span, rerr) }()

	cp, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, wrapLookup(err, id)
	}
	res, err := Apply(*cp, c)
	if err != nil {
		return nil, err
	}

	s.applied.Add(ctx, 1, metric.WithAttributes(attribute.String("coupon.type", cp.Type.String())))
	span.SetAttributes(attribute.Float64("coupon.discount", res.Discount))
	zctx.From(ctx).Debug("Applied coupon",
		zap.Int64("coupon_id", id),
		zap.Float64("subtotal", res.Subtotal),
		zap.Float64("discount", res.Discount),
	)
	return &res, nil
}

func wrapLookup(err error, id int64) error {
	if errors.Is(err, ErrNotFound) {
		return errors.Wrapf(ErrNotFound, "id %d", id)
	}
	return errors.Wrapf(err, "coupon %d", id)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
