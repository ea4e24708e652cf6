// Package memory is an in-process implementation of the account and movement
// stores, used when the service runs without Postgres and by the ledger tests.
//
// A unit of work locks each account it reads with GetByIDForUpdate until the
// unit ends, so operations on one account run one at a time while other
// accounts proceed in parallel. Every write inside a unit is journaled and
// undone in reverse order if the unit fails.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eaglebank/banking/account-service/internal/repository"
	"github.com/eaglebank/banking/shared/models"
	"github.com/eaglebank/banking/shared/xerrors"
)

type Store struct {
	mu             sync.RWMutex
	accounts       map[int64]*models.Account
	byNumber       map[string]int64
	movements      map[int64]*models.Movement
	nextAccountID  int64
	nextMovementID int64

	locksMu sync.Mutex
	locks   map[int64]accountLock

	now func() time.Time
}

type Option func(*Store)

// WithClock sets the clock used to stamp movements appended without a
// creation time.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		accounts:  make(map[int64]*models.Account),
		byNumber:  make(map[string]int64),
		movements: make(map[int64]*models.Movement),
		locks:     make(map[int64]accountLock),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ repository.Storage = (*Store)(nil)

func (s *Store) Reader() repository.Stores {
	return (&unit{s: s}).stores()
}

func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, st repository.Stores) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	u := &unit{s: s, tx: true, held: make(map[int64]accountLock)}
	defer u.release()
	defer func() {
		if p := recover(); p != nil {
			u.rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, u.stores()); err != nil {
		u.rollback()
		return err
	}
	return nil
}

// accountLock is a mutex held by sending into its single slot, so a waiter
// can give up when its context ends.
type accountLock chan struct{}

func (l accountLock) lock(ctx context.Context) error {
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l accountLock) unlock() { <-l }

func (s *Store) lockFor(accountID int64) accountLock {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[accountID]
	if !ok {
		l = make(accountLock, 1)
		s.locks[accountID] = l
	}
	return l
}

// unit is one unit of work, or a plain reader when tx is false.
type unit struct {
	s    *Store
	tx   bool
	held map[int64]accountLock
	undo []func()
}

func (u *unit) stores() repository.Stores {
	return repository.Stores{
		Accounts:  accountStore{u},
		Movements: movementLog{u},
	}
}

// record journals an inverse operation. Callers hold s.mu.
func (u *unit) record(inverse func()) {
	if u.tx {
		u.undo = append(u.undo, inverse)
	}
}

func (u *unit) rollback() {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.undo = nil
}

func (u *unit) release() {
	for id, l := range u.held {
		l.unlock()
		delete(u.held, id)
	}
}

type accountStore struct{ u *unit }

func (a accountStore) Create(_ context.Context, account *models.Account) error {
	s := a.u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.byNumber[account.AccountNumber]; dup {
		return fmt.Errorf("account %s: %w", account.AccountNumber, xerrors.ErrDuplicateAccountNumber)
	}

	s.nextAccountID++
	account.ID = s.nextAccountID
	stored := *account
	s.accounts[stored.ID] = &stored
	s.byNumber[stored.AccountNumber] = stored.ID

	a.u.record(func() {
		delete(s.accounts, stored.ID)
		delete(s.byNumber, stored.AccountNumber)
	})
	return nil
}

func (a accountStore) GetByID(_ context.Context, id int64) (*models.Account, error) {
	s := a.u.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %d: %w", id, xerrors.ErrAccountNotFound)
	}
	cp := *stored
	return &cp, nil
}

func (a accountStore) GetByIDForUpdate(ctx context.Context, id int64) (*models.Account, error) {
	if a.u.tx {
		if _, held := a.u.held[id]; !held {
			l := a.u.s.lockFor(id)
			if err := l.lock(ctx); err != nil {
				return nil, fmt.Errorf("lock account %d: %w", id, err)
			}
			a.u.held[id] = l
		}
	}
	return a.GetByID(ctx, id)
}

func (a accountStore) GetByAccountNumber(ctx context.Context, accountNumber string) (*models.Account, error) {
	a.u.s.mu.RLock()
	id, ok := a.u.s.byNumber[accountNumber]
	a.u.s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("account %s: %w", accountNumber, xerrors.ErrAccountNotFound)
	}
	return a.GetByID(ctx, id)
}

func (a accountStore) List(_ context.Context) ([]models.Account, error) {
	return a.filter(func(*models.Account) bool { return true }), nil
}

func (a accountStore) ListByCustomer(_ context.Context, customerID int64) ([]models.Account, error) {
	return a.filter(func(acc *models.Account) bool { return acc.CustomerID == customerID }), nil
}

func (a accountStore) filter(keep func(*models.Account) bool) []models.Account {
	s := a.u.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Account{}
	for _, acc := range s.accounts {
		if keep(acc) {
			out = append(out, *acc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (a accountStore) Update(_ context.Context, account *models.Account) error {
	s := a.u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.accounts[account.ID]
	if !ok {
		return fmt.Errorf("account %d: %w", account.ID, xerrors.ErrAccountNotFound)
	}
	prev := *stored
	stored.AccountType = account.AccountType
	stored.Status = account.Status
	stored.Balance = account.Balance
	stored.UpdatedAt = account.UpdatedAt

	a.u.record(func() {
		if cur, ok := s.accounts[prev.ID]; ok {
			*cur = prev
		}
	})
	return nil
}

func (a accountStore) Delete(_ context.Context, id int64) error {
	s := a.u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.accounts[id]
	if !ok {
		return fmt.Errorf("account %d: %w", id, xerrors.ErrAccountNotFound)
	}
	var removed []*models.Movement
	for mid, m := range s.movements {
		if m.AccountID == id {
			removed = append(removed, m)
			delete(s.movements, mid)
		}
	}
	delete(s.accounts, id)
	delete(s.byNumber, stored.AccountNumber)

	a.u.record(func() {
		s.accounts[id] = stored
		s.byNumber[stored.AccountNumber] = id
		for _, m := range removed {
			s.movements[m.ID] = m
		}
	})
	return nil
}

func (a accountStore) Exists(_ context.Context, id int64) (bool, error) {
	a.u.s.mu.RLock()
	defer a.u.s.mu.RUnlock()
	_, ok := a.u.s.accounts[id]
	return ok, nil
}

type movementLog struct{ u *unit }

func (l movementLog) Append(_ context.Context, m *models.Movement) error {
	s := l.u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[m.AccountID]; !ok {
		return fmt.Errorf("append movement to account %d: %w", m.AccountID, xerrors.ErrAccountNotFound)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	s.nextMovementID++
	m.ID = s.nextMovementID
	stored := *m
	s.movements[stored.ID] = &stored

	l.u.record(func() { delete(s.movements, stored.ID) })
	return nil
}

func (l movementLog) GetByID(_ context.Context, id int64) (*models.Movement, error) {
	s := l.u.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.movements[id]
	if !ok {
		return nil, fmt.Errorf("movement %d: %w", id, xerrors.ErrMovementNotFound)
	}
	cp := *stored
	return &cp, nil
}

func (l movementLog) List(_ context.Context) ([]models.Movement, error) {
	out := l.filter(func(*models.Movement) bool { return true })
	sortByID(out)
	return out, nil
}

func (l movementLog) ListByAccount(_ context.Context, accountID int64) ([]models.Movement, error) {
	out := l.filter(func(m *models.Movement) bool { return m.AccountID == accountID })
	sortByID(out)
	return out, nil
}

func (l movementLog) ListByAccountDescending(_ context.Context, accountID int64) ([]models.Movement, error) {
	out := l.filter(func(m *models.Movement) bool { return m.AccountID == accountID })
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (l movementLog) ListByAccountInRange(_ context.Context, accountID int64, start, end time.Time) ([]models.Movement, error) {
	out := l.filter(func(m *models.Movement) bool {
		return m.AccountID == accountID && !m.CreatedAt.Before(start) && !m.CreatedAt.After(end)
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (l movementLog) filter(keep func(*models.Movement) bool) []models.Movement {
	s := l.u.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Movement{}
	for _, m := range s.movements {
		if keep(m) {
			out = append(out, *m)
		}
	}
	return out
}

func (l movementLog) UpdateSnapshot(_ context.Context, m *models.Movement) error {
	s := l.u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.movements[m.ID]
	if !ok {
		return fmt.Errorf("movement %d: %w", m.ID, xerrors.ErrMovementNotFound)
	}
	prev := *stored
	stored.Value = m.Value
	stored.ResultingBalance = m.ResultingBalance

	l.u.record(func() {
		if cur, ok := s.movements[prev.ID]; ok {
			*cur = prev
		}
	})
	return nil
}

func (l movementLog) Delete(_ context.Context, id int64) error {
	s := l.u.s
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.movements[id]
	if !ok {
		return fmt.Errorf("movement %d: %w", id, xerrors.ErrMovementNotFound)
	}
	delete(s.movements, id)

	l.u.record(func() { s.movements[id] = stored })
	return nil
}

func sortByID(ms []models.Movement) {
	sort.Slice(ms, func(i, j int) bool { return ms[i].ID < ms[j].ID })
}
