package testutils

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mchen/wallet-backend/internal/models"
)

// MemoryRepository is a hermetic repository.Repository implementation so
// the full HTTP stack can be exercised without a database. All methods are
// safe for concurrent use.
type MemoryRepository struct {
	mu           sync.RWMutex
	users        map[string]*models.User
	usersByEmail map[string]string
	transactions map[string]*models.Transaction
	insertSeq    map[string]int64 // creation order tiebreak for equal timestamps
	nextSeq      int64
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:        make(map[string]*models.User),
		usersByEmail: make(map[string]string),
		transactions: make(map[string]*models.Transaction),
		insertSeq:    make(map[string]int64),
	}
}

func (r *MemoryRepository) CreateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.usersByEmail[user.Email]; exists {
		return fmt.Errorf("duplicate email: %s", user.Email)
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	copied := *user
	r.users[user.ID] = &copied
	r.usersByEmail[user.Email] = user.ID
	return nil
}

func (r *MemoryRepository) UpdateUser(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.users[user.ID]
	if !ok {
		return fmt.Errorf("no such user: %s", user.ID)
	}

	if user.Email != current.Email {
		if _, exists := r.usersByEmail[user.Email]; exists {
			return fmt.Errorf("duplicate email: %s", user.Email)
		}
		delete(r.usersByEmail, current.Email)
		r.usersByEmail[user.Email] = user.ID
	}

	user.UpdatedAt = time.Now().UTC()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.usersByEmail[email]
	if !ok {
		return nil, nil
	}
	copied := *r.users[id]
	return &copied, nil
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (r *MemoryRepository) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}

	r.nextSeq++
	copied := *txn
	r.transactions[txn.ID] = &copied
	r.insertSeq[txn.ID] = r.nextSeq
	return nil
}

func (r *MemoryRepository) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	txn, ok := r.transactions[id]
	if !ok {
		return nil, nil
	}
	copied := *txn
	return &copied, nil
}

func (r *MemoryRepository) DeleteTransaction(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.transactions, id)
	delete(r.insertSeq, id)
	return nil
}

func (r *MemoryRepository) GetTransactionsByUser(
	ctx context.Context,
	userID string,
	limit,
	offset int,
) ([]models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var all []models.Transaction
	for _, txn := range r.transactions {
		if txn.UserID == userID {
			all = append(all, *txn)
		}
	}

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return r.insertSeq[all[i].ID] > r.insertSeq[all[j].ID]
	})

	if offset >= len(all) {
		return []models.Transaction{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *MemoryRepository) GetSummaryByUser(ctx context.Context, userID string) (*models.Summary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var summary models.Summary
	for _, txn := range r.transactions {
		if txn.UserID != userID {
			continue
		}
		if txn.Amount > 0 {
			summary.Income += txn.Amount
		} else {
			summary.Expense += txn.Amount
		}
		summary.Balance += txn.Amount
	}
	return &summary, nil
}

// MemoryCounterStore is a hermetic ratelimit.Store. Incr is atomic under
// the mutex, matching the single-statement guarantee of the real store.
// Set Err to simulate an unreachable store.
type MemoryCounterStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

// NewMemoryCounterStore creates an empty in-memory counter store
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		counts: make(map[string]int64),
	}
}

// FailWith makes every subsequent call return err; pass nil to recover
func (s *MemoryCounterStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemoryCounterStore) Incr(ctx context.Context, key string, windowStart time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return 0, s.err
	}

	k := fmt.Sprintf("%s|%d", key, windowStart.UnixNano())
	s.counts[k]++
	return s.counts[k], nil
}
