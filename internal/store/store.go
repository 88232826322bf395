// Package store provides storage backends for brand profiles and saved posts.
//
// It includes an in-memory store plus SQLite and PostgreSQL stores that share
// one set of queries.
package store

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/BTreeMap/PostPipe/internal/models"
)

// ErrBrandNotFound is returned when updating or deleting an unknown brand.
var ErrBrandNotFound = errors.New("brand not found")

// ErrDSNNotSet is returned when a SQL store is opened without a DSN.
var ErrDSNNotSet = errors.New("database DSN not set")

// Store persists brand profiles and saved posts.
type Store interface {
	CreateBrand(ctx context.Context, b *models.Brand) error
	// GetBrand returns nil, nil when no brand has the given ID.
	GetBrand(ctx context.Context, id string) (*models.Brand, error)
	ListBrands(ctx context.Context, userID string) ([]models.Brand, error)
	UpdateBrand(ctx context.Context, b *models.Brand) error
	DeleteBrand(ctx context.Context, id string) error

	SavePost(ctx context.Context, p *models.SavedPost) error
	ListPosts(ctx context.Context, brandID string) ([]models.SavedPost, error)

	Close() error
}

// Opts holds configuration options for store implementations.
type Opts struct {
	DSN string
}

// Option configures a store.
type Option func(*Opts)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType returns "postgres" for PostgreSQL connection strings and
// "sqlite3" for everything else.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite3"
}

// InMemoryStore is a Store held in process memory.
type InMemoryStore struct {
	mu     sync.RWMutex
	brands map[string]models.Brand
	posts  []models.SavedPost
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{brands: make(map[string]models.Brand)}
}

func (s *InMemoryStore) CreateBrand(ctx context.Context, b *models.Brand) error {
	if err := prepareBrand(b); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brands[b.ID] = *b
	slog.Debug("InMemoryStore.CreateBrand: brand created", "brandID", b.ID, "name", b.Name)
	return nil
}

func (s *InMemoryStore) GetBrand(ctx context.Context, id string) (*models.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.brands[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *InMemoryStore) ListBrands(ctx context.Context, userID string) ([]models.Brand, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Brand
	for _, b := range s.brands {
		if userID == "" || b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *InMemoryStore) UpdateBrand(ctx context.Context, b *models.Brand) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.brands[b.ID]
	if !ok {
		return ErrBrandNotFound
	}
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = now()
	s.brands[b.ID] = *b
	return nil
}

func (s *InMemoryStore) DeleteBrand(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.brands[id]; !ok {
		return ErrBrandNotFound
	}
	delete(s.brands, id)
	return nil
}

func (s *InMemoryStore) SavePost(ctx context.Context, p *models.SavedPost) error {
	if err := preparePost(p); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(s.posts, *p)
	return nil
}

func (s *InMemoryStore) ListPosts(ctx context.Context, brandID string) ([]models.SavedPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.SavedPost
	for _, p := range s.posts {
		if brandID == "" || p.BrandID == brandID {
			out = append(out, p)
		}
	}
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
