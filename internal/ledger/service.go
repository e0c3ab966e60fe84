package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/mahmoudomarus/krib-server/internal/policy"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=ledger
type Repository interface {
	GetEntry(ctx context.Context, id uuid.UUID) (*Entry, error)
	ListEntries(ctx context.Context, filter ListFilter) ([]*Entry, error)
}

type ListFilter struct {
	HostID    uuid.UUID
	BookingID *uuid.UUID
	Status    *Status
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the ledger entries belonging to the given host. Callers other
// than the host see nothing.
func (s *Service) List(ctx context.Context, actor policy.Actor, filter ListFilter) ([]*Entry, error) {
	if !policy.CanReadHostRecord(actor, filter.HostID) {
		return nil, nil
	}

	return s.repo.ListEntries(ctx, filter)
}

// Get returns a single entry. Denied reads surface as not found so the row's
// existence is not leaked.
func (s *Service) Get(ctx context.Context, actor policy.Actor, id uuid.UUID) (*Entry, error) {
	e, err := s.repo.GetEntry(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.CanReadHostRecord(actor, e.HostID) {
		return nil, ErrNotFound
	}

	return e, nil
}
