// Package worker фоновые задачи движка.
package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/logger"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/usecase/payment"
)

// PendingReconciler один проход сверки зависших платежей.
type PendingReconciler interface {
	Execute(ctx context.Context, staleAfter time.Duration, limit int) (payment.ReconcileReport, error)
}

// Reconciler периодически опрашивает шлюз по платежам без уведомления.
type Reconciler struct {
	uc         PendingReconciler
	interval   time.Duration
	staleAfter time.Duration
	batchSize  int
}

func NewReconciler(uc PendingReconciler, interval, staleAfter time.Duration, batchSize int) *Reconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reconciler{uc: uc, interval: interval, staleAfter: staleAfter, batchSize: batchSize}
}

// Run блокируется до отмены ctx.
func (r *Reconciler) Run(ctx context.Context) {
	log := logger.WithFields(logrus.Fields{"worker": "reconciler", "interval": r.interval.String()})
	log.Info("reconciler: запущен")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("reconciler: остановлен")
			return
		case <-ticker.C:
			r.tick(ctx, log)
		}
	}
}

func (r *Reconciler) tick(ctx context.Context, log *logrus.Entry) {
	report, err := r.uc.Execute(ctx, r.staleAfter, r.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).Error("reconciler: проход завершился ошибкой")
		}
		return
	}
	if report.Checked == 0 {
		return
	}
	log.WithFields(logrus.Fields{
		"checked": report.Checked,
		"applied": report.Applied,
		"pending": report.Pending,
		"failed":  report.Failed,
	}).Info("reconciler: проход завершён")
}
