package property_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mahmoudomarus/krib-server/internal/policy"
	"github.com/mahmoudomarus/krib-server/internal/property"
)

func TestService_Create(t *testing.T) {
	hostID := uuid.New()

	type testCase struct {
		name      string
		actor     policy.Actor
		params    property.CreateParams
		setupMock func(m *property.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name:  "Success",
			actor: policy.Actor{ID: hostID},
			params: property.CreateParams{
				Name:        "Marina Loft",
				Location:    "Dubai Marina",
				NightlyRate: 20000,
				CleaningFee: 5000,
				MaxGuests:   4,
			},
			setupMock: func(m *property.MockRepository) {
				m.EXPECT().
					CreateProperty(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, p *property.Property) error {
						p.ID = uuid.New()
						return nil
					})
			},
		},
		{
			name:    "AnonymousForbidden",
			actor:   policy.Actor{},
			params:  property.CreateParams{Name: "Marina Loft", MaxGuests: 2},
			wantErr: property.ErrForbidden,
		},
		{
			name:    "MissingName",
			actor:   policy.Actor{ID: hostID},
			params:  property.CreateParams{MaxGuests: 2},
			wantErr: property.ErrInvalidInput,
		},
		{
			name:    "NegativeRate",
			actor:   policy.Actor{ID: hostID},
			params:  property.CreateParams{Name: "Marina Loft", NightlyRate: -100, MaxGuests: 2},
			wantErr: property.ErrInvalidInput,
		},
		{
			name:    "ZeroGuests",
			actor:   policy.Actor{ID: hostID},
			params:  property.CreateParams{Name: "Marina Loft"},
			wantErr: property.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := property.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := property.NewService(repo)
			got, err := svc.Create(context.Background(), tt.actor, tt.params)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, hostID, got.HostID)
			assert.Equal(t, property.StatusDraft, got.Status)
		})
	}
}

func TestService_Get(t *testing.T) {
	hostID := uuid.New()

	draft := &property.Property{ID: uuid.New(), HostID: hostID, Name: "Marina Loft", Status: property.StatusDraft}
	active := &property.Property{ID: uuid.New(), HostID: hostID, Name: "Palm Villa", Status: property.StatusActive}

	type testCase struct {
		name    string
		actor   policy.Actor
		prop    *property.Property
		wantErr error
	}

	tests := []testCase{
		{name: "OwnerSeesDraft", actor: policy.Actor{ID: hostID}, prop: draft},
		{name: "StrangerSeesActive", actor: policy.Actor{ID: uuid.New()}, prop: active},
		{name: "AnonymousSeesActive", actor: policy.Actor{}, prop: active},
		{name: "StrangerBlockedFromDraft", actor: policy.Actor{ID: uuid.New()}, prop: draft, wantErr: property.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := property.NewMockRepository(ctrl)
			repo.EXPECT().GetProperty(gomock.Any(), tt.prop.ID).Return(tt.prop, nil)

			svc := property.NewService(repo)
			got, err := svc.Get(context.Background(), tt.actor, tt.prop.ID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.prop.ID, got.ID)
		})
	}
}

func TestService_List_ForcesActiveForOthers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hostID := uuid.New()

	repo := property.NewMockRepository(ctrl)
	svc := property.NewService(repo)

	repo.EXPECT().
		ListProperties(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter property.ListFilter) ([]*property.Property, error) {
			require.NotNil(t, filter.Status)
			assert.Equal(t, property.StatusActive, *filter.Status)
			return nil, nil
		})

	_, err := svc.List(context.Background(), policy.Actor{}, property.ListFilter{})
	require.NoError(t, err)

	// The host browsing their own listings sees every status.
	repo.EXPECT().
		ListProperties(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filter property.ListFilter) ([]*property.Property, error) {
			assert.Nil(t, filter.Status)
			return nil, nil
		})

	_, err = svc.List(context.Background(), policy.Actor{ID: hostID}, property.ListFilter{HostID: &hostID})
	require.NoError(t, err)
}

func TestService_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hostID := uuid.New()
	p := &property.Property{ID: uuid.New(), HostID: hostID, Name: "Marina Loft", MaxGuests: 2, Status: property.StatusDraft}

	repo := property.NewMockRepository(ctrl)
	svc := property.NewService(repo)

	repo.EXPECT().GetProperty(gomock.Any(), p.ID).Return(p, nil)
	repo.EXPECT().UpdateProperty(gomock.Any(), gomock.Any()).Return(nil)

	activated := property.StatusActive
	rate := int64(25000)

	got, err := svc.Update(context.Background(), policy.Actor{ID: hostID}, p.ID, property.UpdateParams{
		NightlyRate: &rate,
		Status:      &activated,
	})
	require.NoError(t, err)
	assert.Equal(t, property.StatusActive, got.Status)
	assert.Equal(t, int64(25000), got.NightlyRate)
	assert.Equal(t, "Marina Loft", got.Name)
}

func TestService_Update_UnknownStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hostID := uuid.New()
	p := &property.Property{ID: uuid.New(), HostID: hostID, Name: "Marina Loft", MaxGuests: 2, Status: property.StatusActive}

	repo := property.NewMockRepository(ctrl)
	repo.EXPECT().GetProperty(gomock.Any(), p.ID).Return(p, nil)

	svc := property.NewService(repo)

	bogus := property.Status("bogus")

	got, err := svc.Update(context.Background(), policy.Actor{ID: hostID}, p.ID, property.UpdateParams{Status: &bogus})
	assert.ErrorIs(t, err, property.ErrInvalidInput)
	assert.Nil(t, got)

	// The listing keeps its saved status.
	assert.Equal(t, property.StatusActive, p.Status)
}

func TestService_Update_Denied(t *testing.T) {
	hostID := uuid.New()

	t.Run("StrangerGetsNotFound", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		p := &property.Property{ID: uuid.New(), HostID: hostID, Status: property.StatusDraft}

		repo := property.NewMockRepository(ctrl)
		repo.EXPECT().GetProperty(gomock.Any(), p.ID).Return(p, nil)

		svc := property.NewService(repo)

		got, err := svc.Update(context.Background(), policy.Actor{ID: uuid.New()}, p.ID, property.UpdateParams{})
		assert.ErrorIs(t, err, property.ErrNotFound)
		assert.Nil(t, got)
	})

	t.Run("ReaderWithoutOwnershipGetsForbidden", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		// Active listings are readable by anyone but writable only by the owner.
		p := &property.Property{ID: uuid.New(), HostID: hostID, Status: property.StatusActive}

		repo := property.NewMockRepository(ctrl)
		repo.EXPECT().GetProperty(gomock.Any(), p.ID).Return(p, nil)

		svc := property.NewService(repo)

		got, err := svc.Update(context.Background(), policy.Actor{ID: uuid.New()}, p.ID, property.UpdateParams{})
		assert.ErrorIs(t, err, property.ErrForbidden)
		assert.Nil(t, got)
	})

	t.Run("RepoError", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := property.NewMockRepository(ctrl)
		repo.EXPECT().GetProperty(gomock.Any(), gomock.Any()).Return(nil, errors.New("db error"))

		svc := property.NewService(repo)

		got, err := svc.Update(context.Background(), policy.Actor{ID: hostID}, uuid.New(), property.UpdateParams{})
		assert.Error(t, err)
		assert.Nil(t, got)
	})
}
