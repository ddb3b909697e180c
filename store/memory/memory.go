// Package memory provides in-memory repository implementations for tests
// and development.
package memory

import (
	"context"
	"sync"

	"github.com/warp/circulation-engine/calendar"
	"github.com/warp/circulation-engine/policy"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu       sync.RWMutex
	days     map[dayKey]calendar.OpeningDay
	policies map[policy.ID]policy.LoanPolicy
}

type dayKey struct {
	ServicePointID string
	Date           calendar.Date
}

func New() *Store {
	return &Store{
		days:     make(map[dayKey]calendar.OpeningDay),
		policies: make(map[policy.ID]policy.LoanPolicy),
	}
}

// PutOpeningDay records one day's opening hours for a service point.
func (s *Store) PutOpeningDay(servicePointID string, day calendar.OpeningDay) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.days[dayKey{ServicePointID: servicePointID, Date: day.Date}] = day
}

// AdjacentOpeningDays returns the previous/requested/next window for a
// service point. Days with no record are closed.
func (s *Store) AdjacentOpeningDays(_ context.Context, date calendar.Date, servicePointID string) (calendar.AdjacentOpeningDays, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return calendar.NewAdjacentOpeningDays(
		s.dayLocked(servicePointID, date.AddDays(-1)),
		s.dayLocked(servicePointID, date),
		s.dayLocked(servicePointID, date.AddDays(1)),
	), nil
}

func (s *Store) dayLocked(servicePointID string, date calendar.Date) calendar.OpeningDay {
	if day, ok := s.days[dayKey{ServicePointID: servicePointID, Date: date}]; ok {
		return day
	}
	return calendar.ClosedDay(date)
}

// PutPolicy stores a loan policy.
func (s *Store) PutPolicy(p policy.LoanPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[p.ID] = p
}

// GetPolicy returns a stored loan policy.
func (s *Store) GetPolicy(_ context.Context, id policy.ID) (policy.LoanPolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[id]
	if !ok {
		return policy.LoanPolicy{}, policy.ErrPolicyNotFound
	}
	return p, nil
}
