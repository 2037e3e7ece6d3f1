package payment

import (
	"context"
	"time"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/gateway"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/repository"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/logger"
	"github.com/sirupsen/logrus"
)

// ReconcileReport итог одного прохода сверки.
type ReconcileReport struct {
	Checked int
	Applied int
	Pending int
	Failed  int
}

// ReconcilePendingUseCase опрашивает шлюз по зависшим платежам, на случай если webhook потерялся.
// Результаты проходят через тот же идемпотентный HandleCallbackUseCase.
type ReconcilePendingUseCase struct {
	store    repository.Store
	gateway  gateway.Gateway
	callback *HandleCallbackUseCase
}

func NewReconcilePendingUseCase(store repository.Store, gw gateway.Gateway, callback *HandleCallbackUseCase) *ReconcilePendingUseCase {
	return &ReconcilePendingUseCase{store: store, gateway: gw, callback: callback}
}

func (uc *ReconcilePendingUseCase) Execute(ctx context.Context, staleAfter time.Duration, limit int) (ReconcileReport, error) {
	var report ReconcileReport

	txs, err := uc.store.Repos().Transactions.ListStalePending(ctx, time.Now().UTC().Add(-staleAfter), limit)
	if err != nil {
		return report, err
	}

	for _, tx := range txs {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Checked++
		log := logger.WithFields(logrus.Fields{"external_ref": tx.ExternalRef, "request_id": tx.RequestID})

		status, err := uc.gateway.QueryStatus(ctx, tx.ExternalRef)
		if err != nil {
			report.Failed++
			log.WithError(err).Warn("reconcile: не удалось получить статус платежа")
			continue
		}

		outcome, err := uc.callback.Execute(ctx, tx.ExternalRef, status)
		switch {
		case err != nil:
			report.Failed++
		case outcome == OutcomePending:
			report.Pending++
		case outcome == OutcomeApplied || outcome == OutcomeRefunded:
			report.Applied++
		}
	}
	return report, nil
}
