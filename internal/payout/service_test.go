package payout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mahmoudomarus/krib-server/internal/event"
	"github.com/mahmoudomarus/krib-server/internal/ledger"
	"github.com/mahmoudomarus/krib-server/internal/payout"
	"github.com/mahmoudomarus/krib-server/internal/policy"
)

var testDefaults = payout.Defaults{
	HoldPeriodDays: 7,
	MinimumAmount:  2500,
	Frequency:      payout.FrequencyWeekly,
}

func entry(hostID uuid.UUID, net int64) *ledger.Entry {
	return &ledger.Entry{
		ID:          uuid.New(),
		BookingID:   uuid.New(),
		PropertyID:  uuid.New(),
		HostID:      hostID,
		Type:        ledger.TypeBookingPayment,
		GrossAmount: net,
		NetAmount:   net,
		Status:      ledger.StatusCompleted,
	}
}

func TestService_Run(t *testing.T) {
	hostID := uuid.New()

	t.Run("CreatesPayout", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := payout.NewMockRepository(ctrl)
		stx := payout.NewMockSettlementTx(ctrl)
		svc := payout.NewService(repo, testDefaults)

		e1 := entry(hostID, 1000)
		e2 := entry(hostID, 2000)

		repo.EXPECT().GetSettings(gomock.Any(), hostID).Return(nil, payout.ErrNoSettings)
		repo.EXPECT().BeginSettlement(gomock.Any(), hostID).Return(stx, nil)
		stx.EXPECT().
			EligibleEntries(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, cutoff time.Time) ([]*ledger.Entry, error) {
				// Default seven day hold.
				assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, -7), cutoff, time.Minute)
				return []*ledger.Entry{e1, e2}, nil
			})
		stx.EXPECT().
			CreatePayout(gomock.Any(), gomock.Any(), []uuid.UUID{e1.ID, e2.ID}).
			DoAndReturn(func(_ context.Context, p *payout.Payout, _ []uuid.UUID) error {
				p.ID = uuid.New()
				p.CreatedAt = time.Now()
				return nil
			})
		stx.EXPECT().
			AppendEvent(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, ev *event.Event) error {
				assert.Equal(t, event.TypePayoutCreated, ev.Type)
				assert.Equal(t, hostID, ev.HostID)
				require.NotNil(t, ev.PayoutID)
				return nil
			})
		stx.EXPECT().Commit().Return(nil)
		stx.EXPECT().Rollback().Return(nil)

		result, err := svc.Run(context.Background(), hostID)
		require.NoError(t, err)
		require.NotNil(t, result.Payout)

		assert.Equal(t, int64(3000), result.Payout.Amount)
		assert.Equal(t, payout.StatusPending, result.Payout.Status)
		assert.Equal(t, hostID, result.Payout.HostID)
		assert.Equal(t, int64(3000), result.Earnings)
	})

	t.Run("BelowMinimumIsNoOp", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := payout.NewMockRepository(ctrl)
		stx := payout.NewMockSettlementTx(ctrl)
		svc := payout.NewService(repo, testDefaults)

		repo.EXPECT().GetSettings(gomock.Any(), hostID).Return(nil, payout.ErrNoSettings)
		repo.EXPECT().BeginSettlement(gomock.Any(), hostID).Return(stx, nil)
		stx.EXPECT().
			EligibleEntries(gomock.Any(), gomock.Any()).
			Return([]*ledger.Entry{entry(hostID, 2000)}, nil)
		stx.EXPECT().Rollback().Return(nil)

		result, err := svc.Run(context.Background(), hostID)
		require.NoError(t, err)
		assert.Nil(t, result.Payout)
		assert.Equal(t, int64(2000), result.Earnings)
	})

	t.Run("NothingEligible", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := payout.NewMockRepository(ctrl)
		stx := payout.NewMockSettlementTx(ctrl)
		svc := payout.NewService(repo, testDefaults)

		repo.EXPECT().GetSettings(gomock.Any(), hostID).Return(nil, payout.ErrNoSettings)
		repo.EXPECT().BeginSettlement(gomock.Any(), hostID).Return(stx, nil)
		stx.EXPECT().EligibleEntries(gomock.Any(), gomock.Any()).Return(nil, nil)
		stx.EXPECT().Rollback().Return(nil)

		result, err := svc.Run(context.Background(), hostID)
		require.NoError(t, err)
		assert.Nil(t, result.Payout)
		assert.Zero(t, result.Earnings)
	})

	t.Run("HostSettingsOverrideDefaults", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := payout.NewMockRepository(ctrl)
		stx := payout.NewMockSettlementTx(ctrl)
		svc := payout.NewService(repo, testDefaults)

		saved := &payout.Settings{
			HostID:         hostID,
			HoldPeriodDays: 14,
			MinimumAmount:  10000,
			Frequency:      payout.FrequencyMonthly,
		}

		repo.EXPECT().GetSettings(gomock.Any(), hostID).Return(saved, nil)
		repo.EXPECT().BeginSettlement(gomock.Any(), hostID).Return(stx, nil)
		stx.EXPECT().
			EligibleEntries(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, cutoff time.Time) ([]*ledger.Entry, error) {
				assert.WithinDuration(t, time.Now().UTC().AddDate(0, 0, -14), cutoff, time.Minute)
				return []*ledger.Entry{entry(hostID, 9999)}, nil
			})
		stx.EXPECT().Rollback().Return(nil)

		result, err := svc.Run(context.Background(), hostID)
		require.NoError(t, err)
		assert.Nil(t, result.Payout)
	})

	t.Run("CorruptEntryAborts", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := payout.NewMockRepository(ctrl)
		stx := payout.NewMockSettlementTx(ctrl)
		svc := payout.NewService(repo, testDefaults)

		bad := entry(hostID, 5000)
		bad.PlatformFee = 100 // breaks the net arithmetic

		repo.EXPECT().GetSettings(gomock.Any(), hostID).Return(nil, payout.ErrNoSettings)
		repo.EXPECT().BeginSettlement(gomock.Any(), hostID).Return(stx, nil)
		stx.EXPECT().EligibleEntries(gomock.Any(), gomock.Any()).Return([]*ledger.Entry{bad}, nil)
		stx.EXPECT().Rollback().Return(nil)

		result, err := svc.Run(context.Background(), hostID)
		assert.Error(t, err)
		assert.Nil(t, result)
	})
}

func TestService_RecordTransfer(t *testing.T) {
	hostID := uuid.New()

	t.Run("DelegatesWithTargetStatus", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := payout.NewMockRepository(ctrl)
		svc := payout.NewService(repo, testDefaults)

		p := &payout.Payout{ID: uuid.New(), HostID: hostID, Amount: 3000, Status: payout.StatusPending}

		repo.EXPECT().GetPayout(gomock.Any(), p.ID).Return(p, nil)
		repo.EXPECT().
			RecordTransfer(gomock.Any(), p.ID, payout.StatusProcessing, "", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ uuid.UUID, status payout.Status, _ string, ev *event.Event) (*payout.Payout, error) {
				assert.Equal(t, event.TypePayoutUpdated, ev.Type)
				assert.Contains(t, string(ev.Payload), `"status":"processing"`)

				updated := *p
				updated.Status = status
				return &updated, nil
			})

		got, err := svc.RecordTransfer(context.Background(), p.ID, payout.StatusProcessing, "")
		require.NoError(t, err)
		assert.Equal(t, payout.StatusProcessing, got.Status)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := payout.NewMockRepository(ctrl)
		svc := payout.NewService(repo, testDefaults)

		got, err := svc.RecordTransfer(context.Background(), uuid.New(), payout.Status("settled"), "")
		assert.ErrorIs(t, err, payout.ErrInvalidTransition)
		assert.Nil(t, got)
	})

	t.Run("UnknownPayout", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := payout.NewMockRepository(ctrl)
		svc := payout.NewService(repo, testDefaults)

		repo.EXPECT().GetPayout(gomock.Any(), gomock.Any()).Return(nil, payout.ErrNotFound)

		got, err := svc.RecordTransfer(context.Background(), uuid.New(), payout.StatusPaid, "")
		assert.ErrorIs(t, err, payout.ErrNotFound)
		assert.Nil(t, got)
	})
}

func TestService_PendingEarnings(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hostID := uuid.New()

	repo := payout.NewMockRepository(ctrl)
	svc := payout.NewService(repo, testDefaults)

	repo.EXPECT().GetSettings(gomock.Any(), hostID).Return(nil, payout.ErrNoSettings)
	repo.EXPECT().PendingEarnings(gomock.Any(), hostID, gomock.Any()).Return(int64(4200), nil)

	got, err := svc.PendingEarnings(context.Background(), policy.Actor{ID: hostID}, hostID)
	require.NoError(t, err)
	assert.Equal(t, int64(4200), got)

	// Someone else's earnings read as zero without touching the store.
	got, err = svc.PendingEarnings(context.Background(), policy.Actor{ID: uuid.New()}, hostID)
	require.NoError(t, err)
	assert.Zero(t, got)
}

func TestService_UpdateSettings(t *testing.T) {
	hostID := uuid.New()

	type testCase struct {
		name    string
		params  payout.SettingsParams
		wantErr bool
	}

	tests := []testCase{
		{
			name: "Success",
			params: payout.SettingsParams{
				HoldPeriodDays: 3,
				MinimumAmount:  5000,
				Frequency:      payout.FrequencyDaily,
			},
		},
		{
			name: "NegativeHoldPeriod",
			params: payout.SettingsParams{
				HoldPeriodDays: -1,
				Frequency:      payout.FrequencyDaily,
			},
			wantErr: true,
		},
		{
			name: "NegativeMinimum",
			params: payout.SettingsParams{
				MinimumAmount: -100,
				Frequency:     payout.FrequencyDaily,
			},
			wantErr: true,
		},
		{
			name: "UnknownFrequency",
			params: payout.SettingsParams{
				Frequency: payout.Frequency("fortnightly"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := payout.NewMockRepository(ctrl)
			svc := payout.NewService(repo, testDefaults)

			if !tt.wantErr {
				repo.EXPECT().UpsertSettings(gomock.Any(), gomock.Any()).Return(nil)
			}

			got, err := svc.UpdateSettings(context.Background(), policy.Actor{ID: hostID}, hostID, tt.params)

			if tt.wantErr {
				assert.ErrorIs(t, err, payout.ErrInvalidInput)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, hostID, got.HostID)
			assert.Equal(t, tt.params.Frequency, got.Frequency)
		})
	}
}

func TestService_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hostID := uuid.New()
	p := &payout.Payout{ID: uuid.New(), HostID: hostID, Amount: 3000, Status: payout.StatusPending}

	repo := payout.NewMockRepository(ctrl)
	svc := payout.NewService(repo, testDefaults)

	repo.EXPECT().GetPayout(gomock.Any(), p.ID).Return(p, nil).Times(2)

	got, err := svc.Get(context.Background(), policy.Actor{ID: hostID}, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	got, err = svc.Get(context.Background(), policy.Actor{ID: uuid.New()}, p.ID)
	assert.ErrorIs(t, err, payout.ErrNotFound)
	assert.Nil(t, got)
}

func TestService_Run_RepoError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hostID := uuid.New()

	repo := payout.NewMockRepository(ctrl)
	svc := payout.NewService(repo, testDefaults)

	repo.EXPECT().GetSettings(gomock.Any(), hostID).Return(nil, payout.ErrNoSettings)
	repo.EXPECT().BeginSettlement(gomock.Any(), hostID).Return(nil, errors.New("db error"))

	result, err := svc.Run(context.Background(), hostID)
	assert.Error(t, err)
	assert.Nil(t, result)
}
