package warehouse

import (
	"context"
	"time"

	"github.com/erp/stockledger/internal/application/uow"
	"github.com/erp/stockledger/internal/application/validation"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/warehouse"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Policy holds configurable registry rules
type Policy struct {
	// BlockDeactivateWithTransactions makes Deactivate fail with
	// HAS_LINKED_TRANSACTIONS for warehouses that have ledger entries
	BlockDeactivateWithTransactions bool
}

// Service manages warehouses and the single-primary invariant
type Service struct {
	store  uow.Store
	clock  shared.Clock
	logger *zap.Logger
	policy Policy
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger.Named("warehouse")
	}
}

// WithClock sets the time source
func WithClock(clock shared.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithPolicy sets the registry policy
func WithPolicy(p Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// NewService creates a warehouse Service
func NewService(store uow.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		clock:  shared.SystemClock{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create adds a warehouse. Requesting primary demotes the current primary in
// the same transaction; the first warehouse of an empty registry always
// becomes primary.
func (s *Service) Create(ctx context.Context, req CreateWarehouseRequest) (*WarehouseResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	w, err := warehouse.NewWarehouse(req.Name, req.ShippingAddress, req.IsActive, req.IsPrimary, now)
	if err != nil {
		return nil, err
	}

	err = s.store.Execute(ctx, func(repos uow.Repositories) error {
		repo := repos.Warehouses()
		exists, err := repo.ExistsByName(ctx, w.Name, nil)
		if err != nil {
			return err
		}
		if exists {
			return shared.ErrDuplicateName.WithMessage("a warehouse named %q already exists", w.Name)
		}

		primaries, err := repo.FindPrimaryForUpdate(ctx)
		if err != nil {
			return err
		}
		if len(primaries) == 0 && !w.IsPrimary {
			w.Activate(now)
			if err := w.MarkPrimary(now); err != nil {
				return err
			}
			s.logger.Info("first warehouse becomes primary", zap.String("name", w.Name))
		}
		if w.IsPrimary {
			if err := demote(ctx, repo, primaries, w.ID, now); err != nil {
				return err
			}
		}
		return repo.Create(ctx, w)
	})
	if err != nil {
		s.logger.Debug("create warehouse rejected", zap.String("name", req.Name), zap.Error(err))
		return nil, err
	}

	s.logger.Info("warehouse created",
		zap.String("warehouse_id", w.ID.String()),
		zap.String("name", w.Name),
		zap.Bool("primary", w.IsPrimary))
	resp := ToWarehouseResponse(w)
	return &resp, nil
}

// PromoteToPrimary makes id the primary warehouse, demoting the previous one atomically
func (s *Service) PromoteToPrimary(ctx context.Context, id uuid.UUID) (*WarehouseResponse, error) {
	now := s.clock.Now()
	var w *warehouse.Warehouse
	err := s.store.Execute(ctx, func(repos uow.Repositories) error {
		repo := repos.Warehouses()
		var err error
		w, err = repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		return s.promote(ctx, repo, w, now)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("warehouse promoted to primary", zap.String("warehouse_id", id.String()))
	resp := ToWarehouseResponse(w)
	return &resp, nil
}

// Activate marks a warehouse as active
func (s *Service) Activate(ctx context.Context, id uuid.UUID) (*WarehouseResponse, error) {
	now := s.clock.Now()
	var w *warehouse.Warehouse
	err := s.store.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		w, err = repos.Warehouses().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if w.IsActive {
			return nil
		}
		w.Activate(now)
		return repos.Warehouses().Update(ctx, w)
	})
	if err != nil {
		return nil, err
	}
	resp := ToWarehouseResponse(w)
	return &resp, nil
}

// Deactivate marks a warehouse as inactive. The primary cannot be deactivated.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) (*WarehouseResponse, error) {
	now := s.clock.Now()
	var w *warehouse.Warehouse
	err := s.store.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		w, err = repos.Warehouses().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := s.deactivate(ctx, repos, w, now); err != nil {
			return err
		}
		return repos.Warehouses().Update(ctx, w)
	})
	if err != nil {
		s.logger.Debug("deactivate warehouse rejected", zap.String("warehouse_id", id.String()), zap.Error(err))
		return nil, err
	}
	s.logger.Info("warehouse deactivated", zap.String("warehouse_id", id.String()))
	resp := ToWarehouseResponse(w)
	return &resp, nil
}

// Delete removes a warehouse. A warehouse with ledger history is deactivated
// instead and the outcome says so.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (*DeleteWarehouseResponse, error) {
	now := s.clock.Now()
	outcome := warehouse.OutcomeDeleted
	err := s.store.Execute(ctx, func(repos uow.Repositories) error {
		repo := repos.Warehouses()
		w, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if w.IsPrimary {
			return shared.ErrCannotDeleteWarehouse.WithMessage("warehouse %q is the primary warehouse and cannot be deleted", w.Name)
		}
		has, err := repos.Ledger().ExistsForWarehouse(ctx, id)
		if err != nil {
			return err
		}
		if w.CanDelete(has) {
			return repo.Delete(ctx, id)
		}
		if !w.IsActive {
			return shared.ErrHasLinkedTransactions.WithMessage("warehouse %q has stock transactions and is already inactive", w.Name)
		}
		if err := w.Deactivate(now); err != nil {
			return err
		}
		outcome = warehouse.OutcomeDeactivatedInsteadOfDeleted
		return repo.Update(ctx, w)
	})
	if err != nil {
		s.logger.Debug("delete warehouse rejected", zap.String("warehouse_id", id.String()), zap.Error(err))
		return nil, err
	}
	s.logger.Info("warehouse delete handled",
		zap.String("warehouse_id", id.String()),
		zap.String("outcome", string(outcome)))
	return &DeleteWarehouseResponse{ID: id, Outcome: outcome}, nil
}

// Update edits name, address, active flag and optionally promotes the
// warehouse. Clearing the primary flag is rejected; promote another
// warehouse instead.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateWarehouseRequest) (*WarehouseResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	var w *warehouse.Warehouse
	err := s.store.Execute(ctx, func(repos uow.Repositories) error {
		repo := repos.Warehouses()
		var err error
		w, err = repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.IsPrimary != nil && !*req.IsPrimary && w.IsPrimary {
			return shared.ErrCannotUnsetPrimaryViaUpdate.WithMessage(
				"warehouse %q is primary; promote another warehouse instead", w.Name)
		}

		if warehouse.NameKey(req.Name) != w.NameKey() {
			exists, err := repo.ExistsByName(ctx, req.Name, &id)
			if err != nil {
				return err
			}
			if exists {
				return shared.ErrDuplicateName.WithMessage("a warehouse named %q already exists", req.Name)
			}
		}
		if err := w.Rename(req.Name, now); err != nil {
			return err
		}
		w.SetShippingAddress(req.ShippingAddress, now)
		if req.IsActive {
			w.Activate(now)
		} else if w.IsActive || w.IsPrimary {
			if err := s.deactivate(ctx, repos, w, now); err != nil {
				return err
			}
		}

		if req.IsPrimary != nil && *req.IsPrimary && !w.IsPrimary {
			return s.promote(ctx, repo, w, now)
		}
		return repo.Update(ctx, w)
	})
	if err != nil {
		s.logger.Debug("update warehouse rejected", zap.String("warehouse_id", id.String()), zap.Error(err))
		return nil, err
	}
	resp := ToWarehouseResponse(w)
	return &resp, nil
}

// EnsurePrimary guarantees a primary warehouse exists. An empty registry gets
// a new primary warehouse; otherwise the oldest active warehouse is promoted.
// It reports whether anything changed.
func (s *Service) EnsurePrimary(ctx context.Context, name, address string) (*WarehouseResponse, bool, error) {
	now := s.clock.Now()
	var (
		w       *warehouse.Warehouse
		changed bool
	)
	err := s.store.Execute(ctx, func(repos uow.Repositories) error {
		repo := repos.Warehouses()
		primaries, err := repo.FindPrimaryForUpdate(ctx)
		if err != nil {
			return err
		}
		if len(primaries) > 0 {
			w = &primaries[0]
			return nil
		}
		changed = true

		active, err := repo.FindActive(ctx)
		if err != nil {
			return err
		}
		if len(active) > 0 {
			w = &active[0]
			if err := w.MarkPrimary(now); err != nil {
				return err
			}
			return repo.Update(ctx, w)
		}

		w, err = warehouse.NewWarehouse(name, address, true, true, now)
		if err != nil {
			return err
		}
		exists, err := repo.ExistsByName(ctx, w.Name, nil)
		if err != nil {
			return err
		}
		if exists {
			return shared.ErrDuplicateName.WithMessage("a warehouse named %q already exists", w.Name)
		}
		return repo.Create(ctx, w)
	})
	if err != nil {
		return nil, false, err
	}
	if changed {
		s.logger.Info("primary warehouse ensured", zap.String("warehouse_id", w.ID.String()), zap.String("name", w.Name))
	}
	resp := ToWarehouseResponse(w)
	return &resp, changed, nil
}

// Get returns one warehouse
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*WarehouseResponse, error) {
	w, err := s.store.Warehouses().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToWarehouseResponse(w)
	return &resp, nil
}

// List returns every warehouse ordered by name
func (s *Service) List(ctx context.Context) ([]WarehouseResponse, error) {
	ws, err := s.store.Warehouses().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return ToWarehouseResponses(ws), nil
}

// ListActive returns the active warehouses ordered by name
func (s *Service) ListActive(ctx context.Context) ([]WarehouseResponse, error) {
	ws, err := s.store.Warehouses().FindActive(ctx)
	if err != nil {
		return nil, err
	}
	return ToWarehouseResponses(ws), nil
}

// GetPrimary returns the primary warehouse; shared.ErrNotFound when none is set
func (s *Service) GetPrimary(ctx context.Context) (*WarehouseResponse, error) {
	w, err := s.store.Warehouses().FindPrimary(ctx)
	if err != nil {
		return nil, err
	}
	resp := ToWarehouseResponse(w)
	return &resp, nil
}

// deactivate applies the registry policy before flipping the active flag.
// Every path that can deactivate a warehouse goes through here.
func (s *Service) deactivate(ctx context.Context, repos uow.Repositories, w *warehouse.Warehouse, now time.Time) error {
	if s.policy.BlockDeactivateWithTransactions && !w.IsPrimary {
		has, err := repos.Ledger().ExistsForWarehouse(ctx, w.ID)
		if err != nil {
			return err
		}
		if has {
			return shared.ErrHasLinkedTransactions.WithMessage("warehouse %q has stock transactions", w.Name)
		}
	}
	return w.Deactivate(now)
}

func (s *Service) promote(ctx context.Context, repo warehouse.Repository, w *warehouse.Warehouse, now time.Time) error {
	if w.IsPrimary {
		return nil
	}
	if !w.IsActive {
		return shared.ErrInactiveWarehouse.WithMessage("warehouse %q is inactive and cannot become primary", w.Name)
	}
	primaries, err := repo.FindPrimaryForUpdate(ctx)
	if err != nil {
		return err
	}
	if err := demote(ctx, repo, primaries, w.ID, now); err != nil {
		return err
	}
	if err := w.MarkPrimary(now); err != nil {
		return err
	}
	return repo.Update(ctx, w)
}

// demote clears the primary flag on every current primary except keep.
// It runs before the new primary is written so the single-primary index
// never sees two rows.
func demote(ctx context.Context, repo warehouse.Repository, primaries []warehouse.Warehouse, keep uuid.UUID, now time.Time) error {
	for i := range primaries {
		if primaries[i].ID == keep {
			continue
		}
		primaries[i].Demote(now)
		if err := repo.Update(ctx, &primaries[i]); err != nil {
			return err
		}
	}
	return nil
}
