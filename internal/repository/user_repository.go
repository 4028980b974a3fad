package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
)

// InMemoryUserRepository implements UserRepository with in-memory storage
type InMemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// NewInMemoryUserRepository creates a user repository holding users
func NewInMemoryUserRepository(users ...models.User) *InMemoryUserRepository {
	r := &InMemoryUserRepository{users: make(map[string]models.User, len(users))}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *InMemoryUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *InMemoryUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *InMemoryUserRepository) List(ctx context.Context) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (r *InMemoryUserRepository) Upsert(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.users[u.ID]; ok {
		u.CreatedAt = existing.CreatedAt
	} else if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	r.users[u.ID] = *u
	return nil
}

func (r *InMemoryUserRepository) SetAdmin(ctx context.Context, id string, admin bool) error {
	return r.update(id, func(u *models.User) { u.Admin = admin })
}

func (r *InMemoryUserRepository) SetBanned(ctx context.Context, id string, banned bool) error {
	return r.update(id, func(u *models.User) { u.Banned = banned })
}

func (r *InMemoryUserRepository) update(id string, fn func(*models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(&u)
	r.users[id] = u
	return nil
}

// NewInMemoryStore wires the in-memory repositories into a Store
func NewInMemoryStore(menu []models.CatalogItem) *Store {
	return &Store{
		Catalog: NewInMemoryCatalogRepository(menu...),
		Coupons: NewInMemoryCouponRepository(),
		Orders:  NewInMemoryOrderRepository(),
		Users:   NewInMemoryUserRepository(),
		Ping:    func(context.Context) error { return nil },
		Close:   func(context.Context) error { return nil },
	}
}
