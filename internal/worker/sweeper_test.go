package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockBookings struct{ mock.Mock }

func (m *mockBookings) CancelStalePending(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

func (m *mockBookings) CancelExpiredBooked(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockBookings) FinishStaleInService(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockCards struct{ mock.Mock }

func (m *mockCards) CancelStalePending(ctx context.Context, cutoff time.Time) (int, error) {
	args := m.Called(ctx, cutoff)
	return args.Int(0), args.Error(1)
}

func (m *mockCards) CorrectStatuses(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestRunOnceUsesCutoffs(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	b, c := &mockBookings{}, &mockCards{}
	b.On("CancelStalePending", mock.Anything, now.Add(-10*time.Minute)).Return(2, nil)
	b.On("CancelExpiredBooked", mock.Anything).Return(1, nil)
	b.On("FinishStaleInService", mock.Anything).Return(0, nil)
	c.On("CancelStalePending", mock.Anything, now.Add(-2*time.Hour)).Return(3, nil)
	c.On("CorrectStatuses", mock.Anything).Return(4, nil)

	w := NewSweeper(b, c, time.Minute, zerolog.Nop())
	w.now = func() time.Time { return now }

	done := w.RunOnce(context.Background())
	assert.Equal(t, map[string]int{
		"booking_cancel_pending": 2,
		"booking_cancel_expired": 1,
		"booking_finish_stale":   0,
		"card_cancel_pending":    3,
		"card_correct_status":    4,
	}, done)
	b.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestRunOnceContinuesPastFailures(t *testing.T) {
	b, c := &mockBookings{}, &mockCards{}
	b.On("CancelStalePending", mock.Anything, mock.Anything).Return(0, errors.New("db down"))
	b.On("CancelExpiredBooked", mock.Anything).Return(1, nil)
	b.On("FinishStaleInService", mock.Anything).Return(0, errors.New("db down"))
	c.On("CancelStalePending", mock.Anything, mock.Anything).Return(0, nil)
	c.On("CorrectStatuses", mock.Anything).Return(1, nil)

	done := NewSweeper(b, c, 0, zerolog.Nop()).RunOnce(context.Background())
	assert.NotContains(t, done, "booking_cancel_pending")
	assert.NotContains(t, done, "booking_finish_stale")
	assert.Equal(t, 1, done["booking_cancel_expired"])
	assert.Equal(t, 1, done["card_correct_status"])
}

func TestStartStopsWithContext(t *testing.T) {
	ran := make(chan struct{}, 1)
	b, c := &mockBookings{}, &mockCards{}
	b.On("CancelStalePending", mock.Anything, mock.Anything).Return(0, nil)
	b.On("CancelExpiredBooked", mock.Anything).Return(0, nil)
	b.On("FinishStaleInService", mock.Anything).Return(0, nil)
	c.On("CancelStalePending", mock.Anything, mock.Anything).Return(0, nil)
	c.On("CorrectStatuses", mock.Anything).Return(0, nil).Run(func(mock.Arguments) {
		select {
		case ran <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		NewSweeper(b, c, 5*time.Millisecond, zerolog.Nop()).Start(ctx)
		close(stopped)
	}()

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not run")
	}
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
