// Package policy centralizes row-level access decisions. Every predicate is a
// pure function of the acting identity and the row's ownership fields, so the
// rules can be tested without a database.
package policy

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Actor is the verified identity attached to a request. The zero value is an
// anonymous caller.
type Actor struct {
	ID    uuid.UUID
	Email string
}

func (a Actor) Anonymous() bool {
	return a.ID == uuid.Nil
}

// IsHost reports whether the actor owns the given host id.
func (a Actor) IsHost(hostID uuid.UUID) bool {
	return !a.Anonymous() && a.ID == hostID
}

// MatchesGuest reports whether the actor's email matches a booking's guest
// contact email. Guests have no account of their own; contact email equality
// is the only identity we can tie them to.
func (a Actor) MatchesGuest(guestEmail string) bool {
	return a.Email != "" && strings.EqualFold(a.Email, guestEmail)
}

// CanReadProperty allows the owning host always, anyone else only for active
// listings.
func CanReadProperty(a Actor, hostID uuid.UUID, status string) bool {
	if a.IsHost(hostID) {
		return true
	}

	return status == "active"
}

// CanWriteProperty allows only the owning host.
func CanWriteProperty(a Actor, hostID uuid.UUID) bool {
	return a.IsHost(hostID)
}

// CanReadBooking allows the property's host and the guest identified by the
// booking's contact email.
func CanReadBooking(a Actor, hostID uuid.UUID, guestEmail string) bool {
	return a.IsHost(hostID) || a.MatchesGuest(guestEmail)
}

// CanReadHostRecord gates financial transactions, payouts, payout settings and
// bank-account records. Only the owning host may see them.
func CanReadHostRecord(a Actor, hostID uuid.UUID) bool {
	return a.IsHost(hostID)
}

type contextKey struct{}

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, contextKey{}, a)
}

// FromContext returns the actor attached to the context, or the anonymous
// actor when none is present.
func FromContext(ctx context.Context) Actor {
	a, _ := ctx.Value(contextKey{}).(Actor)
	return a
}
