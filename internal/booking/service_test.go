package booking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mahmoudomarus/krib-server/internal/booking"
	"github.com/mahmoudomarus/krib-server/internal/event"
	"github.com/mahmoudomarus/krib-server/internal/ledger"
	"github.com/mahmoudomarus/krib-server/internal/policy"
)

var testCalc = ledger.Calculator{
	PlatformFeeBPS:          1500,
	ProcessingFeeBPS:        290,
	ProcessingFeeFixedCents: 30,
}

func validCreateParams(propertyID uuid.UUID) booking.CreateParams {
	return booking.CreateParams{
		PropertyID: propertyID,
		GuestName:  "Sara Ahmed",
		GuestEmail: "sara@example.com",
		GuestPhone: "+971500000000",
		CheckIn:    time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		CheckOut:   time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		Guests:     2,
	}
}

func TestService_Create_Validation(t *testing.T) {
	type testCase struct {
		name   string
		mutate func(p *booking.CreateParams)
	}

	tests := []testCase{
		{
			name:   "MissingGuestName",
			mutate: func(p *booking.CreateParams) { p.GuestName = "" },
		},
		{
			name:   "MissingGuestEmail",
			mutate: func(p *booking.CreateParams) { p.GuestEmail = "" },
		},
		{
			name:   "CheckOutBeforeCheckIn",
			mutate: func(p *booking.CreateParams) { p.CheckOut = p.CheckIn.AddDate(0, 0, -1) },
		},
		{
			name:   "CheckOutEqualsCheckIn",
			mutate: func(p *booking.CreateParams) { p.CheckOut = p.CheckIn },
		},
		{
			name:   "ZeroGuests",
			mutate: func(p *booking.CreateParams) { p.Guests = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := booking.NewMockRepository(ctrl)
			svc := booking.NewService(repo, testCalc)

			params := validCreateParams(uuid.New())
			tt.mutate(&params)

			got, err := svc.Create(context.Background(), policy.Actor{}, params)
			assert.ErrorIs(t, err, booking.ErrInvalidInput)
			assert.Nil(t, got)
		})
	}
}

func TestService_Create(t *testing.T) {
	propertyID := uuid.New()
	hostID := uuid.New()

	snapshot := &booking.PropertySnapshot{
		ID:          propertyID,
		HostID:      hostID,
		MaxGuests:   4,
		Status:      "active",
		NightlyRate: 20000,
		CleaningFee: 5000,
	}

	t.Run("Success", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := booking.NewMockRepository(ctrl)
		ctxTx := booking.NewMockCreateTx(ctrl)
		svc := booking.NewService(repo, testCalc)

		params := validCreateParams(propertyID)

		repo.EXPECT().BeginCreate(gomock.Any(), propertyID).Return(ctxTx, nil)
		ctxTx.EXPECT().Property(gomock.Any()).Return(snapshot, nil)
		ctxTx.EXPECT().HasOverlap(gomock.Any(), params.CheckIn, params.CheckOut).Return(false, nil)
		ctxTx.EXPECT().
			Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, b *booking.Booking) error {
				b.ID = uuid.New()
				b.CreatedAt = time.Now()
				return nil
			})
		ctxTx.EXPECT().
			AppendEvent(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, ev *event.Event) error {
				assert.Equal(t, event.TypeBookingCreated, ev.Type)
				assert.Equal(t, hostID, ev.HostID)
				return nil
			})
		ctxTx.EXPECT().Commit().Return(nil)
		ctxTx.EXPECT().Rollback().Return(nil)

		got, err := svc.Create(context.Background(), policy.Actor{}, params)
		require.NoError(t, err)
		require.NotNil(t, got)

		// 5 nights at 200.00 plus a 50.00 cleaning fee.
		assert.Equal(t, int64(105000), got.TotalAmount)
		assert.Equal(t, booking.StatusPending, got.Status)
		assert.Equal(t, booking.PaymentPending, got.PaymentStatus)
		assert.Equal(t, hostID, got.HostID)
	})

	t.Run("OverlapConflict", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := booking.NewMockRepository(ctrl)
		ctxTx := booking.NewMockCreateTx(ctrl)
		svc := booking.NewService(repo, testCalc)

		params := validCreateParams(propertyID)

		repo.EXPECT().BeginCreate(gomock.Any(), propertyID).Return(ctxTx, nil)
		ctxTx.EXPECT().Property(gomock.Any()).Return(snapshot, nil)
		ctxTx.EXPECT().HasOverlap(gomock.Any(), params.CheckIn, params.CheckOut).Return(true, nil)
		ctxTx.EXPECT().Rollback().Return(nil)

		got, err := svc.Create(context.Background(), policy.Actor{}, params)
		assert.ErrorIs(t, err, booking.ErrDatesUnavailable)
		assert.Nil(t, got)
	})

	t.Run("TooManyGuests", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := booking.NewMockRepository(ctrl)
		ctxTx := booking.NewMockCreateTx(ctrl)
		svc := booking.NewService(repo, testCalc)

		params := validCreateParams(propertyID)
		params.Guests = 5

		repo.EXPECT().BeginCreate(gomock.Any(), propertyID).Return(ctxTx, nil)
		ctxTx.EXPECT().Property(gomock.Any()).Return(snapshot, nil)
		ctxTx.EXPECT().Rollback().Return(nil)

		got, err := svc.Create(context.Background(), policy.Actor{}, params)
		assert.ErrorIs(t, err, booking.ErrInvalidInput)
		assert.Nil(t, got)
	})

	t.Run("InactivePropertyHiddenFromGuests", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := booking.NewMockRepository(ctrl)
		ctxTx := booking.NewMockCreateTx(ctrl)
		svc := booking.NewService(repo, testCalc)

		draft := *snapshot
		draft.Status = "draft"

		repo.EXPECT().BeginCreate(gomock.Any(), propertyID).Return(ctxTx, nil)
		ctxTx.EXPECT().Property(gomock.Any()).Return(&draft, nil)
		ctxTx.EXPECT().Rollback().Return(nil)

		got, err := svc.Create(context.Background(), policy.Actor{}, validCreateParams(propertyID))
		assert.ErrorIs(t, err, booking.ErrNotFound)
		assert.Nil(t, got)
	})

	t.Run("OwnerMayBookInactiveProperty", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := booking.NewMockRepository(ctrl)
		ctxTx := booking.NewMockCreateTx(ctrl)
		svc := booking.NewService(repo, testCalc)

		draft := *snapshot
		draft.Status = "draft"

		params := validCreateParams(propertyID)

		repo.EXPECT().BeginCreate(gomock.Any(), propertyID).Return(ctxTx, nil)
		ctxTx.EXPECT().Property(gomock.Any()).Return(&draft, nil)
		ctxTx.EXPECT().HasOverlap(gomock.Any(), params.CheckIn, params.CheckOut).Return(false, nil)
		ctxTx.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
		ctxTx.EXPECT().AppendEvent(gomock.Any(), gomock.Any()).Return(nil)
		ctxTx.EXPECT().Commit().Return(nil)
		ctxTx.EXPECT().Rollback().Return(nil)

		got, err := svc.Create(context.Background(), policy.Actor{ID: hostID}, params)
		require.NoError(t, err)
		assert.NotNil(t, got)
	})
}

func confirmedBooking(hostID uuid.UUID) *booking.Booking {
	now := time.Now().UTC()

	return &booking.Booking{
		ID:            uuid.New(),
		PropertyID:    uuid.New(),
		HostID:        hostID,
		GuestName:     "Sara Ahmed",
		GuestEmail:    "sara@example.com",
		CheckIn:       now.AddDate(0, 0, -7),
		CheckOut:      now.AddDate(0, 0, -2),
		Guests:        2,
		TotalAmount:   105000,
		Status:        booking.StatusConfirmed,
		PaymentStatus: booking.PaymentPaid,
	}
}

func TestService_Transition_Confirm(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hostID := uuid.New()

	b := confirmedBooking(hostID)
	b.Status = booking.StatusPending
	b.PaymentStatus = booking.PaymentPending
	b.CheckIn = time.Now().UTC().AddDate(0, 0, 7)
	b.CheckOut = time.Now().UTC().AddDate(0, 0, 12)

	repo := booking.NewMockRepository(ctrl)
	itx := booking.NewMockTransitionTx(ctrl)
	svc := booking.NewService(repo, testCalc)

	repo.EXPECT().BeginTransition(gomock.Any(), b.ID).Return(itx, nil)
	itx.EXPECT().Booking(gomock.Any()).Return(b, nil)
	itx.EXPECT().
		CreateLedgerEntry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e *ledger.Entry) error {
			assert.Equal(t, ledger.TypeBookingPayment, e.Type)
			assert.Equal(t, ledger.StatusCompleted, e.Status)
			assert.Equal(t, b.TotalAmount, e.GrossAmount)
			assert.NoError(t, e.Validate())
			require.NotNil(t, e.PaymentDate)
			return nil
		})
	itx.EXPECT().
		SetStatus(gomock.Any(), booking.StatusConfirmed, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ booking.Status, ps *booking.PaymentStatus) error {
			require.NotNil(t, ps)
			assert.Equal(t, booking.PaymentPaid, *ps)
			return nil
		})
	itx.EXPECT().RecomputePropertyStats(gomock.Any(), b.PropertyID).Return(nil)
	itx.EXPECT().
		AppendEvent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ev *event.Event) error {
			assert.Equal(t, event.TypeBookingConfirmed, ev.Type)
			return nil
		})
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	got, err := svc.Transition(context.Background(), policy.Actor{ID: hostID}, b.ID, booking.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, got.Status)
	assert.Equal(t, booking.PaymentPaid, got.PaymentStatus)
}

func TestService_Transition_SameStatusNoOp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hostID := uuid.New()
	b := confirmedBooking(hostID)

	repo := booking.NewMockRepository(ctrl)
	itx := booking.NewMockTransitionTx(ctrl)
	svc := booking.NewService(repo, testCalc)

	// No SetStatus, no ledger entry, no event: re-confirming is a no-op.
	repo.EXPECT().BeginTransition(gomock.Any(), b.ID).Return(itx, nil)
	itx.EXPECT().Booking(gomock.Any()).Return(b, nil)
	itx.EXPECT().Rollback().Return(nil)

	got, err := svc.Transition(context.Background(), policy.Actor{ID: hostID}, b.ID, booking.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, got.Status)
}

func TestService_Transition_Errors(t *testing.T) {
	hostID := uuid.New()

	type testCase struct {
		name    string
		booking func() *booking.Booking
		actor   policy.Actor
		target  booking.Status
		wantErr error
	}

	tests := []testCase{
		{
			name: "InvalidFromTerminal",
			booking: func() *booking.Booking {
				b := confirmedBooking(hostID)
				b.Status = booking.StatusCancelled
				return b
			},
			actor:   policy.Actor{ID: hostID},
			target:  booking.StatusConfirmed,
			wantErr: booking.ErrInvalidTransition,
		},
		{
			name: "PendingStraightToCompleted",
			booking: func() *booking.Booking {
				b := confirmedBooking(hostID)
				b.Status = booking.StatusPending
				return b
			},
			actor:   policy.Actor{ID: hostID},
			target:  booking.StatusCompleted,
			wantErr: booking.ErrInvalidTransition,
		},
		{
			name: "CompleteBeforeCheckout",
			booking: func() *booking.Booking {
				b := confirmedBooking(hostID)
				b.CheckIn = time.Now().UTC().AddDate(0, 0, 1)
				b.CheckOut = time.Now().UTC().AddDate(0, 0, 6)
				return b
			},
			actor:   policy.Actor{ID: hostID},
			target:  booking.StatusCompleted,
			wantErr: booking.ErrCheckoutNotReached,
		},
		{
			name: "GuestMayNotConfirm",
			booking: func() *booking.Booking {
				b := confirmedBooking(hostID)
				b.Status = booking.StatusPending
				return b
			},
			actor:   policy.Actor{ID: uuid.New(), Email: "sara@example.com"},
			target:  booking.StatusConfirmed,
			wantErr: booking.ErrForbidden,
		},
		{
			name: "GuestMayNotCancelConfirmed",
			booking: func() *booking.Booking {
				return confirmedBooking(hostID)
			},
			actor:   policy.Actor{ID: uuid.New(), Email: "sara@example.com"},
			target:  booking.StatusCancelled,
			wantErr: booking.ErrForbidden,
		},
		{
			name: "StrangerSeesNotFound",
			booking: func() *booking.Booking {
				return confirmedBooking(hostID)
			},
			actor:   policy.Actor{ID: uuid.New(), Email: "other@example.com"},
			target:  booking.StatusCancelled,
			wantErr: booking.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			b := tt.booking()

			repo := booking.NewMockRepository(ctrl)
			itx := booking.NewMockTransitionTx(ctrl)
			svc := booking.NewService(repo, testCalc)

			repo.EXPECT().BeginTransition(gomock.Any(), b.ID).Return(itx, nil)
			itx.EXPECT().Booking(gomock.Any()).Return(b, nil)
			itx.EXPECT().Rollback().Return(nil)

			got, err := svc.Transition(context.Background(), tt.actor, b.ID, tt.target)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, got)
		})
	}
}

func TestService_Transition_GuestCancelsPending(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hostID := uuid.New()

	b := confirmedBooking(hostID)
	b.Status = booking.StatusPending
	b.PaymentStatus = booking.PaymentPending

	repo := booking.NewMockRepository(ctrl)
	itx := booking.NewMockTransitionTx(ctrl)
	svc := booking.NewService(repo, testCalc)

	repo.EXPECT().BeginTransition(gomock.Any(), b.ID).Return(itx, nil)
	itx.EXPECT().Booking(gomock.Any()).Return(b, nil)
	itx.EXPECT().SetStatus(gomock.Any(), booking.StatusCancelled, gomock.Nil()).Return(nil)
	itx.EXPECT().RecomputePropertyStats(gomock.Any(), b.PropertyID).Return(nil)
	itx.EXPECT().
		AppendEvent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ev *event.Event) error {
			assert.Equal(t, event.TypeBookingCancelled, ev.Type)
			return nil
		})
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	guest := policy.Actor{ID: uuid.New(), Email: "Sara@Example.com"}

	got, err := svc.Transition(context.Background(), guest, b.ID, booking.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, booking.StatusCancelled, got.Status)
	assert.Equal(t, booking.PaymentPending, got.PaymentStatus)
}

func TestService_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hostID := uuid.New()
	b := confirmedBooking(hostID)

	repo := booking.NewMockRepository(ctrl)
	svc := booking.NewService(repo, testCalc)

	repo.EXPECT().GetBooking(gomock.Any(), b.ID).Return(b, nil).Times(2)

	got, err := svc.Get(context.Background(), policy.Actor{ID: hostID}, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	got, err = svc.Get(context.Background(), policy.Actor{ID: uuid.New()}, b.ID)
	assert.ErrorIs(t, err, booking.ErrNotFound)
	assert.Nil(t, got)
}

func TestService_List_ScopesToActor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hostID := uuid.New()

	repo := booking.NewMockRepository(ctrl)
	svc := booking.NewService(repo, testCalc)

	// Anonymous callers see nothing and the store is never hit.
	got, err := svc.List(context.Background(), policy.Actor{}, booking.ListFilter{})
	require.NoError(t, err)
	assert.Nil(t, got)

	// A signed-in caller asking for someone else's host scope is narrowed to
	// their own guest email.
	repo.EXPECT().
		ListBookings(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter booking.ListFilter) ([]*booking.Booking, error) {
			assert.Nil(t, filter.HostID)
			require.NotNil(t, filter.GuestEmail)
			assert.Equal(t, "sara@example.com", *filter.GuestEmail)
			return nil, nil
		})

	other := hostID
	_, err = svc.List(context.Background(), policy.Actor{ID: uuid.New(), Email: "sara@example.com"}, booking.ListFilter{HostID: &other})
	require.NoError(t, err)

	// The host keeps their own scope.
	repo.EXPECT().
		ListBookings(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter booking.ListFilter) ([]*booking.Booking, error) {
			require.NotNil(t, filter.HostID)
			assert.Equal(t, hostID, *filter.HostID)
			assert.Nil(t, filter.GuestEmail)
			return []*booking.Booking{{ID: uuid.New()}}, nil
		})

	got, err = svc.List(context.Background(), policy.Actor{ID: hostID}, booking.ListFilter{HostID: &hostID})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestService_Create_RepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := booking.NewMockRepository(ctrl)
	svc := booking.NewService(repo, testCalc)

	repo.EXPECT().BeginCreate(gomock.Any(), gomock.Any()).Return(nil, errors.New("db error"))

	got, err := svc.Create(context.Background(), policy.Actor{}, validCreateParams(uuid.New()))
	assert.Error(t, err)
	assert.Nil(t, got)
}
