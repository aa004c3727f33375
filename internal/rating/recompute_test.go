package rating

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) LockProduct(ctx context.Context, productID string) error {
	return m.Called(ctx, productID).Error(0)
}

func (m *mockStore) ApprovedRatings(ctx context.Context, productID string) ([]int, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int), args.Error(1)
}

func (m *mockStore) WriteSummary(ctx context.Context, productID string, s Summary) error {
	return m.Called(ctx, productID, s).Error(0)
}

func TestRecompute_WritesComputedSummary(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	want := Compute([]int{3, 4, 5})

	store.On("LockProduct", ctx, "p-1").Return(nil)
	store.On("ApprovedRatings", ctx, "p-1").Return([]int{3, 4, 5}, nil)
	store.On("WriteSummary", ctx, "p-1", want).Return(nil)

	got, err := Recompute(ctx, store, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "4.00/3", got.String())
	store.AssertExpectations(t)
}

func TestRecompute_NoApprovedReviewsResetsAggregate(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)

	store.On("LockProduct", ctx, "p-1").Return(nil)
	store.On("ApprovedRatings", ctx, "p-1").Return(nil, nil)
	store.On("WriteSummary", ctx, "p-1", Empty()).Return(nil)

	got, err := Recompute(ctx, store, "p-1")
	require.NoError(t, err)
	assert.True(t, got.Equal(Empty()))
	store.AssertExpectations(t)
}

func TestRecompute_MissingProductSurfaces(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)

	store.On("LockProduct", ctx, "gone").Return(ErrProductMissing)

	_, err := Recompute(ctx, store, "gone")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProductMissing)
	store.AssertNotCalled(t, "WriteSummary", mock.Anything, mock.Anything, mock.Anything)
}

func TestRecompute_LoadErrorStopsWrite(t *testing.T) {
	ctx := context.Background()
	store := new(mockStore)
	boom := errors.New("connection reset")

	store.On("LockProduct", ctx, "p-1").Return(nil)
	store.On("ApprovedRatings", ctx, "p-1").Return(nil, boom)

	_, err := Recompute(ctx, store, "p-1")
	assert.ErrorIs(t, err, boom)
	store.AssertNotCalled(t, "WriteSummary", mock.Anything, mock.Anything, mock.Anything)
}
