package content

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BTreeMap/PostPipe/internal/models"
)

// ErrBatchNotFound is returned for unknown batch IDs.
var ErrBatchNotFound = errors.New("batch not found")

// DefaultBatchTTL is how long an untouched batch is kept.
const DefaultBatchTTL = 24 * time.Hour

// Batch is a generated set of posts under review by one user.
type Batch struct {
	ID        string           `json:"id"`
	Kind      models.BatchKind `json:"kind"`
	BrandID   string           `json:"brand_id,omitempty"`
	BrandName string           `json:"brand_name"`
	UserID    string           `json:"user_id,omitempty"`
	Posts     []models.Post    `json:"posts"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// SelectedPosts returns the posts marked for saving or export.
func (b Batch) SelectedPosts() []models.Post {
	var out []models.Post
	for _, p := range b.Posts {
		if p.Selected {
			out = append(out, p)
		}
	}
	return out
}

func (b Batch) clone() Batch {
	b.Posts = append([]models.Post(nil), b.Posts...)
	return b
}

// SessionOpts holds configuration for Sessions.
type SessionOpts struct {
	TTL time.Duration
	Now func() time.Time
}

// SessionOption configures Sessions.
type SessionOption func(*SessionOpts)

// WithBatchTTL sets how long an untouched batch is kept. Zero disables expiry.
func WithBatchTTL(ttl time.Duration) SessionOption {
	return func(o *SessionOpts) {
		o.TTL = ttl
	}
}

// WithSessionClock overrides the clock used for timestamps and expiry.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(o *SessionOpts) {
		o.Now = now
	}
}

// Sessions is an in-memory registry of batches under review. Callers get
// copies; mutation goes through the registry methods.
type Sessions struct {
	mu      sync.Mutex
	batches map[string]*Batch
	ttl     time.Duration
	now     func() time.Time
}

// NewSessions creates an empty registry.
func NewSessions(opts ...SessionOption) *Sessions {
	cfg := SessionOpts{TTL: DefaultBatchTTL, Now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Sessions{
		batches: make(map[string]*Batch),
		ttl:     cfg.TTL,
		now:     cfg.Now,
	}
}

// Create registers a new batch and returns it.
func (s *Sessions) Create(kind models.BatchKind, brand *models.Brand, userID string, posts []models.Post) Batch {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	now := s.now()
	b := &Batch{
		ID:        uuid.NewString(),
		Kind:      kind,
		UserID:    userID,
		Posts:     append([]models.Post(nil), posts...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if brand != nil {
		b.BrandID = brand.ID
		b.BrandName = brand.Name
	}
	s.batches[b.ID] = b
	slog.Debug("Sessions.Create: batch created", "batchID", b.ID, "kind", kind, "posts", len(posts))
	return b.clone()
}

// Get returns a copy of the batch.
func (s *Sessions) Get(id string) (Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.lookupLocked(id)
	if err != nil {
		return Batch{}, err
	}
	return b.clone(), nil
}

// Post returns a copy of post n (1-based) of the batch.
func (s *Sessions) Post(id string, n int) (models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.lookupLocked(id)
	if err != nil {
		return models.Post{}, err
	}
	if n < 1 || n > len(b.Posts) {
		return models.Post{}, fmt.Errorf("%w: %d", models.ErrPostIndexNotFound, n)
	}
	return b.Posts[n-1], nil
}

// UpdatePost applies fn to post n (1-based) of the batch and returns the result.
func (s *Sessions) UpdatePost(id string, n int, fn func(*models.Post)) (models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.lookupLocked(id)
	if err != nil {
		return models.Post{}, err
	}
	if n < 1 || n > len(b.Posts) {
		return models.Post{}, fmt.Errorf("%w: %d", models.ErrPostIndexNotFound, n)
	}
	fn(&b.Posts[n-1])
	b.UpdatedAt = s.now()
	return b.Posts[n-1], nil
}

// SetSelected marks post n (1-based) as selected or not.
func (s *Sessions) SetSelected(id string, n int, selected bool) error {
	_, err := s.UpdatePost(id, n, func(p *models.Post) {
		p.Selected = selected
	})
	return err
}

// SelectAll sets the selection flag on every post of the batch.
func (s *Sessions) SelectAll(id string, selected bool) (Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.lookupLocked(id)
	if err != nil {
		return Batch{}, err
	}
	for i := range b.Posts {
		b.Posts[i].Selected = selected
	}
	b.UpdatedAt = s.now()
	return b.clone(), nil
}

// Delete removes the batch. It reports whether the batch existed.
func (s *Sessions) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.batches[id]
	delete(s.batches, id)
	return ok
}

// Len returns the number of live batches.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

// Prune removes expired batches and returns how many were removed.
func (s *Sessions) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.batches)
	s.pruneLocked()
	return before - len(s.batches)
}

func (s *Sessions) lookupLocked(id string) (*Batch, error) {
	b, ok := s.batches[id]
	if !ok || s.expiredLocked(b) {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}
	return b, nil
}

func (s *Sessions) expiredLocked(b *Batch) bool {
	return s.ttl > 0 && s.now().Sub(b.UpdatedAt) > s.ttl
}

func (s *Sessions) pruneLocked() {
	for id, b := range s.batches {
		if s.expiredLocked(b) {
			delete(s.batches, id)
			slog.Debug("Sessions.prune: expired batch removed", "batchID", id)
		}
	}
}
