package ledger_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mahmoudomarus/krib-server/internal/ledger"
	"github.com/mahmoudomarus/krib-server/internal/policy"
)

func TestService_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hostID := uuid.New()

	repo := ledger.NewMockRepository(ctrl)
	svc := ledger.NewService(repo)

	repo.EXPECT().
		ListEntries(gomock.Any(), ledger.ListFilter{HostID: hostID}).
		Return([]*ledger.Entry{{ID: uuid.New()}, {ID: uuid.New()}}, nil)

	got, err := svc.List(context.Background(), policy.Actor{ID: hostID}, ledger.ListFilter{HostID: hostID})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// Another host's ledger is invisible and the store is never queried.
	got, err = svc.List(context.Background(), policy.Actor{ID: uuid.New()}, ledger.ListFilter{HostID: hostID})
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestService_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hostID := uuid.New()
	e := &ledger.Entry{ID: uuid.New(), HostID: hostID}

	repo := ledger.NewMockRepository(ctrl)
	svc := ledger.NewService(repo)

	repo.EXPECT().GetEntry(gomock.Any(), e.ID).Return(e, nil).Times(2)

	got, err := svc.Get(context.Background(), policy.Actor{ID: hostID}, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)

	// Denied reads surface as not found, not forbidden.
	got, err = svc.Get(context.Background(), policy.Actor{ID: uuid.New()}, e.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.Nil(t, got)
}
