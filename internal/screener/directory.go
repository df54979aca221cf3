package screener

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cuongbtq/screening-queue/internal/queue/domain"
)

// ErrUnknownScreener is returned when an email does not belong to a screener
var ErrUnknownScreener = errors.New("unknown screener")

// Screener is the stored profile of a screener
type Screener struct {
	ID        int       `db:"id" json:"id"`
	FirstName string    `db:"firstname" json:"firstname"`
	LastName  string    `db:"lastname" json:"lastname"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}

// Info stamps the profile with the time of the assignment
func (s *Screener) Info(now time.Time) *domain.ScreenerInfo {
	return &domain.ScreenerInfo{
		ID:        s.ID,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		Email:     s.Email,
		Time:      now.UnixMilli(),
	}
}

// Directory resolves screener identities
type Directory interface {
	Lookup(ctx context.Context, email string) (*Screener, error)
}

// Static is a fixed in-memory directory
type Static struct {
	mu        sync.RWMutex
	screeners map[string]Screener
}

// NewStatic creates a directory holding the given screeners
func NewStatic(screeners ...Screener) *Static {
	s := &Static{screeners: make(map[string]Screener, len(screeners))}
	for _, sc := range screeners {
		s.Add(sc)
	}
	return s
}

// Add registers or replaces a screener
func (s *Static) Add(sc Screener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sc.ID == 0 {
		sc.ID = len(s.screeners) + 1
	}
	s.screeners[normalize(sc.Email)] = sc
}

func (s *Static) Lookup(ctx context.Context, email string) (*Screener, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.screeners[normalize(email)]
	if !ok {
		return nil, ErrUnknownScreener
	}
	return &sc, nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
