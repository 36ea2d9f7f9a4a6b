package authx

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service provides identity and access management on top of the versioned
// entity store. It integrates with the database through dbkit with enhanced
// error handling.
//
// Every read and write runs inside an explicit transaction so the permission
// check and the operation it guards observe the same snapshot. Write
// operations take a caller authorization id; the caller's live access is
// resolved inside the transaction and the operation fails with ErrForbidden
// if it does not cover the touched entity.
//
// Example error handling:
//
//	_, err := service.UpdateUser(ctx, callerID, update)
//	if err != nil {
//	    if authx.IsForbidden(err) {
//	        // Caller's access does not cover this user
//	    }
//	    if authx.IsConflict(err) {
//	        // A concurrent writer replaced the record first
//	    }
//	}
type Service struct {
	db         dbkit.IDB
	realm      string
	strategies *StrategyTable
	txMonitor  *transactionMonitor
	log        *zap.Logger
	now        func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithStrategies sets the authority strategy table.
func WithStrategies(t *StrategyTable) Option {
	return func(s *Service) {
		s.strategies = t
	}
}

// WithClock sets the time source used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new Service for a realm.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	service := authx.NewService("app", db)
func NewService(realm string, db dbkit.IDB, opts ...Option) *Service {
	s := &Service{
		db:         db,
		realm:      realm,
		strategies: DefaultStrategies(),
		txMonitor:  newTransactionMonitor(),
		log:        zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Realm returns the realm this service stamps into every scope.
func (s *Service) Realm() string {
	return s.realm
}

// Strategies returns the authority strategy table.
func (s *Service) Strategies() *StrategyTable {
	return s.strategies
}

// withDB clones the service bound to a transactional handle. The clone
// shares everything except the handle, so operations invoked on it run
// inside the caller's transaction.
func (s *Service) withDB(db dbkit.IDB) *Service {
	clone := *s
	clone.db = db
	return &clone
}

// newRecordID mints the id for a new record.
func newRecordID() string {
	return uuid.NewString()
}

// NewEntityID mints an id for a new entity. Exposed so callers can know an
// entity's id before creating it.
func NewEntityID() string {
	return uuid.NewString()
}

// writeMeta stamps provenance for a new record created by the caller.
func (s *Service) writeMeta(callerAuthorizationID string) WriteMeta {
	return WriteMeta{
		RecordID:                 newRecordID(),
		CreatedByAuthorizationID: callerAuthorizationID,
		CreatedAt:                s.now().UTC(),
	}
}

// caller resolves the caller's current authorization record. Every write
// path requires a caller; a missing or disabled caller is ErrNotAuthorized.
func (s *Service) caller(ctx context.Context, e *Executor, callerAuthorizationID string) (*AuthorizationRecord, error) {
	if callerAuthorizationID == "" {
		return nil, NewError(ErrNotAuthorized, "operation requires a caller authorization")
	}
	caller, err := e.Authorization(ctx, callerAuthorizationID)
	if err != nil {
		if IsNotFound(err) {
			return nil, NewError(ErrNotAuthorized, "caller authorization does not exist").
				WithAuthorization(callerAuthorizationID)
		}
		return nil, err
	}
	if !caller.Enabled {
		return nil, NewError(ErrNotAuthorized, "caller authorization is disabled").
			WithAuthorization(callerAuthorizationID)
	}
	return caller, nil
}

// GetChecker resolves a caller authorization into a Checker outside any
// write path, for handlers that want ad hoc permission checks.
func (s *Service) GetChecker(ctx context.Context, callerAuthorizationID string) (*Checker, error) {
	var checker *Checker
	err := s.ReadOnlyTransaction(ctx, func(ctx context.Context, tx *Service) error {
		e := NewExecutor(tx.db)
		caller, err := tx.caller(ctx, e, callerAuthorizationID)
		if err != nil {
			return err
		}
		c := NewChecker(tx.realm, caller, e)
		if _, err := c.Access(ctx); err != nil {
			return err
		}
		checker = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return checker, nil
}
