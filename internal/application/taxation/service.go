package taxation

import (
	"context"
	"errors"

	"github.com/erp/stockledger/internal/application/uow"
	"github.com/erp/stockledger/internal/application/validation"
	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/taxation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service maintains product tax profile assignments
type Service struct {
	store       uow.Store
	products    catalog.ProductLookup
	taxProfiles catalog.TaxProfileLookup
	clock       shared.Clock
	logger      *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger.Named("taxation")
	}
}

// WithClock sets the clock that stamps assignments
func WithClock(clock shared.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService creates a taxation Service
func NewService(store uow.Store, products catalog.ProductLookup, taxProfiles catalog.TaxProfileLookup, opts ...Option) *Service {
	s := &Service{
		store:       store,
		products:    products,
		taxProfiles: taxProfiles,
		clock:       shared.SystemClock{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assign links a tax profile to a product. A primary assignment demotes
// the current primary in the same transaction.
func (s *Service) Assign(ctx context.Context, req AssignTaxProfileRequest) (*AssignmentResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := s.requireProduct(ctx, req.ProductID); err != nil {
		return nil, err
	}
	ok, err := s.taxProfiles.Exists(ctx, req.TaxProfileID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shared.ErrNotFound.WithMessage("tax profile %s not found", req.TaxProfileID)
	}

	var added *taxation.Assignment
	err = s.mutate(ctx, req.ProductID, func(p *taxation.ProductTaxProfiles) (taxation.Changes, error) {
		changes, err := p.Assign(req.TaxProfileID, req.IsPrimary, s.clock.Now())
		added = changes.Added
		return changes, err
	})
	if err != nil {
		s.logger.Debug("assign tax profile rejected", zap.String("product_id", req.ProductID.String()), zap.Error(err))
		return nil, err
	}
	s.logger.Info("tax profile assigned",
		zap.String("product_id", req.ProductID.String()),
		zap.String("tax_profile_id", req.TaxProfileID.String()),
		zap.Bool("primary", req.IsPrimary))
	resp := ToAssignmentResponse(added)
	return &resp, nil
}

// SetPrimary designates an assigned tax profile as the product's primary
func (s *Service) SetPrimary(ctx context.Context, productID, taxProfileID uuid.UUID) (*AssignmentResponse, error) {
	var primary taxation.Assignment
	err := s.mutate(ctx, productID, func(p *taxation.ProductTaxProfiles) (taxation.Changes, error) {
		changes, err := p.SetPrimary(taxProfileID, s.clock.Now())
		if err == nil {
			primary = *p.Primary()
		}
		return changes, err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("primary tax profile changed",
		zap.String("product_id", productID.String()),
		zap.String("tax_profile_id", taxProfileID.String()))
	resp := ToAssignmentResponse(&primary)
	return &resp, nil
}

// Remove unlinks a tax profile. The primary can only be removed when it is
// the product's only assignment.
func (s *Service) Remove(ctx context.Context, productID, taxProfileID uuid.UUID) error {
	err := s.mutate(ctx, productID, func(p *taxation.ProductTaxProfiles) (taxation.Changes, error) {
		return p.Remove(taxProfileID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("tax profile removed",
		zap.String("product_id", productID.String()),
		zap.String("tax_profile_id", taxProfileID.String()))
	return nil
}

// ResolvePrimary returns the product's primary assignment, or nil when none is set
func (s *Service) ResolvePrimary(ctx context.Context, productID uuid.UUID) (*AssignmentResponse, error) {
	a, err := s.store.TaxAssignments().FindPrimary(ctx, productID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	resp := ToAssignmentResponse(a)
	return &resp, nil
}

// ResolveRate returns the rate of the product's primary tax profile and
// whether one is set
func (s *Service) ResolveRate(ctx context.Context, productID uuid.UUID) (decimal.Decimal, bool, error) {
	a, err := s.store.TaxAssignments().FindPrimary(ctx, productID)
	if errors.Is(err, shared.ErrNotFound) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	profile, err := s.taxProfiles.Get(ctx, a.TaxProfileID)
	if err != nil {
		return decimal.Zero, false, err
	}
	return profile.Rate, true, nil
}

// ListForProduct returns the product's tax profile assignments
func (s *Service) ListForProduct(ctx context.Context, productID uuid.UUID) ([]AssignmentResponse, error) {
	as, err := s.store.TaxAssignments().FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return ToAssignmentResponses(as), nil
}

// ListForTaxProfile returns every assignment of a tax profile
func (s *Service) ListForTaxProfile(ctx context.Context, taxProfileID uuid.UUID) ([]AssignmentResponse, error) {
	as, err := s.store.TaxAssignments().FindByTaxProfile(ctx, taxProfileID)
	if err != nil {
		return nil, err
	}
	return ToAssignmentResponses(as), nil
}

// mutate loads the product's assignments under lock, applies op and
// persists the resulting changes in one transaction
func (s *Service) mutate(ctx context.Context, productID uuid.UUID, op func(*taxation.ProductTaxProfiles) (taxation.Changes, error)) error {
	return s.store.Execute(ctx, func(repos uow.Repositories) error {
		repo := repos.TaxAssignments()
		current, err := repo.FindByProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		p := taxation.NewProductTaxProfiles(productID, current)
		changes, err := op(p)
		if err != nil {
			return err
		}
		return repo.Apply(ctx, changes)
	})
}

func (s *Service) requireProduct(ctx context.Context, productID uuid.UUID) error {
	ok, err := s.products.Exists(ctx, productID)
	if err != nil {
		return err
	}
	if !ok {
		return shared.ErrNotFound.WithMessage("product %s not found", productID)
	}
	return nil
}
