package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/payment"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/worker"
)

type countingReconciler struct {
	calls atomic.Int32
	limit atomic.Int32
	err   error
}

func (c *countingReconciler) Execute(ctx context.Context, staleAfter time.Duration, limit int) (payment.ReconcileReport, error) {
	c.calls.Add(1)
	c.limit.Store(int32(limit))
	return payment.ReconcileReport{Checked: 1, Applied: 1}, c.err
}

func TestReconciler_RunsUntilCancelled(t *testing.T) {
	uc := &countingReconciler{}
	r := worker.NewReconciler(uc, 5*time.Millisecond, time.Minute, 25)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return uc.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("reconciler did not stop after cancel")
	}
	assert.Equal(t, int32(25), uc.limit.Load())
}

func TestReconciler_ErrorDoesNotStopLoop(t *testing.T) {
	uc := &countingReconciler{err: errors.New("gateway down")}
	r := worker.NewReconciler(uc, 5*time.Millisecond, time.Minute, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	assert.Eventually(t, func() bool { return uc.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}
