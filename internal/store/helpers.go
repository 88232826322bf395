package store

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/BTreeMap/PostPipe/internal/models"
	"github.com/BTreeMap/PostPipe/internal/parser"
)

// now returns the current time truncated to microseconds, the precision
// both SQL backends keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// prepareBrand validates b and fills in its ID and timestamps.
func prepareBrand(b *models.Brand) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	ts := now()
	b.CreatedAt = ts
	b.UpdatedAt = ts
	return nil
}

// preparePost fills in the ID, creation time, and the scheduled date parsed
// from the post's date label.
func preparePost(p *models.SavedPost) error {
	if strings.TrimSpace(p.Content) == "" {
		return errors.New("post content is empty")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
	if p.ScheduledFor == nil && p.Date != "" {
		if t, ok := parser.ParseDateLabel(p.Date, p.CreatedAt); ok {
			p.ScheduledFor = &t
		}
	}
	return nil
}
