package event

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mahmoudomarus/krib-server/internal/policy"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=event
type Repository interface {
	ListEvents(ctx context.Context, filter ListFilter) ([]*Event, error)

	CreateSubscription(ctx context.Context, sub *Subscription) error
	GetSubscription(ctx context.Context, id uuid.UUID) (*Subscription, error)
	ListSubscriptions(ctx context.Context, hostID uuid.UUID) ([]*Subscription, error)
	UpdateSubscription(ctx context.Context, sub *Subscription) error
	DeleteSubscription(ctx context.Context, id uuid.UUID) error
	RecordDelivery(ctx context.Context, id uuid.UUID, ok bool, disableAfter int) (*Subscription, error)
}

type ListFilter struct {
	HostID   uuid.UUID
	AfterSeq int64
	Limit    int
}

type Service struct {
	repo Repository

	// failureThreshold is the number of consecutive delivery failures after
	// which a subscription is deactivated until manually re-enabled.
	failureThreshold int
}

func NewService(repo Repository, failureThreshold int) *Service {
	return &Service{repo: repo, failureThreshold: failureThreshold}
}

// List returns the host's events after the given sequence cursor.
func (s *Service) List(ctx context.Context, actor policy.Actor, filter ListFilter) ([]*Event, error) {
	if !policy.CanReadHostRecord(actor, filter.HostID) {
		return nil, nil
	}

	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}

	return s.repo.ListEvents(ctx, filter)
}

var ErrInvalidInput = errors.New("invalid subscription input")

type SubscriptionParams struct {
	URL    string
	Secret string
	Events []string
}

func (s *Service) Subscribe(ctx context.Context, actor policy.Actor, params SubscriptionParams) (*Subscription, error) {
	if actor.Anonymous() {
		return nil, ErrNotFound
	}

	if params.URL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidInput)
	}

	sub := &Subscription{
		HostID: actor.ID,
		URL:    params.URL,
		Secret: params.Secret,
		Events: params.Events,
		Active: true,
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	return sub, nil
}

func (s *Service) Subscriptions(ctx context.Context, actor policy.Actor) ([]*Subscription, error) {
	if actor.Anonymous() {
		return nil, nil
	}

	return s.repo.ListSubscriptions(ctx, actor.ID)
}

type SubscriptionUpdate struct {
	URL    *string
	Secret *string
	Events *[]string
	Active *bool
}

// UpdateSubscription edits a subscription. Re-activating one resets its
// failure count.
func (s *Service) UpdateSubscription(ctx context.Context, actor policy.Actor, id uuid.UUID, update SubscriptionUpdate) (*Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.CanReadHostRecord(actor, sub.HostID) {
		return nil, ErrNotFound
	}

	if update.URL != nil {
		if *update.URL == "" {
			return nil, fmt.Errorf("%w: url is required", ErrInvalidInput)
		}

		sub.URL = *update.URL
	}

	if update.Secret != nil {
		sub.Secret = *update.Secret
	}

	if update.Events != nil {
		sub.Events = *update.Events
	}

	if update.Active != nil {
		sub.Active = *update.Active
		if sub.Active {
			sub.ConsecutiveFailures = 0
		}
	}

	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	return sub, nil
}

func (s *Service) Unsubscribe(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return err
	}

	if !policy.CanReadHostRecord(actor, sub.HostID) {
		return ErrNotFound
	}

	return s.repo.DeleteSubscription(ctx, id)
}

// RecordDelivery is reported by the external dispatcher after each delivery
// attempt. A success resets the failure count; enough consecutive failures
// deactivate the subscription.
func (s *Service) RecordDelivery(ctx context.Context, subscriptionID uuid.UUID, ok bool) (*Subscription, error) {
	return s.repo.RecordDelivery(ctx, subscriptionID, ok, s.failureThreshold)
}
