package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	ierr "github.com/shenikar/relief_locator/internal/errors"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/shenikar/relief_locator/internal/service"
)

// AccountStore keeps accounts in process memory
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*models.Account
	now      func() time.Time
}

var _ service.AccountRepository = (*AccountStore)(nil)

func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[uuid.UUID]*models.Account),
		now:      time.Now,
	}
}

func (s *AccountStore) Create(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Username, account.Username) || strings.EqualFold(existing.Email, account.Email) {
			return ierr.NewError("duplicate account").
				WithHint("An account with this username or email already exists").
				Mark(ierr.ErrConflict)
		}
	}

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.CreatedAt = s.now().UTC()

	stored := *account
	s.accounts[account.ID] = &stored
	return nil
}

func (s *AccountStore) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, accountNotFound(id)
	}
	c := *account
	return &c, nil
}

func (s *AccountStore) List(_ context.Context) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		c := *a
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *AccountStore) UpdateApproval(_ context.Context, id uuid.UUID, approved bool) (*models.Account, error) {
	return s.update(id, func(a *models.Account) { a.IsApproved = approved })
}

func (s *AccountStore) UpdateRole(_ context.Context, id uuid.UUID, role models.Role) (*models.Account, error) {
	return s.update(id, func(a *models.Account) { a.Role = role })
}

func (s *AccountStore) update(id uuid.UUID, mutate func(*models.Account)) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, accountNotFound(id)
	}
	mutate(account)
	c := *account
	return &c, nil
}

// isApprovedCoordinator is the write-time guard used by coordinator assignment
func (s *AccountStore) isApprovedCoordinator(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	return ok && account.IsApprovedCoordinator()
}

func accountNotFound(id uuid.UUID) error {
	return ierr.NewError(fmt.Sprintf("account %s not found", id)).
		WithHint("Account not found").
		Mark(ierr.ErrNotFound)
}
