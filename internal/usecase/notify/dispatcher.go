// Package notify отправляет доменные события после фиксации изменений.
package notify

import (
	"context"
	"time"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/event"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/goroutine"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/logger"
	"github.com/sirupsen/logrus"
)

const publishTimeout = 5 * time.Second

// Dispatcher публикует события в отдельной горутине; ошибки только логируются.
type Dispatcher struct {
	publisher event.Publisher
	recovery  *goroutine.RecoveryHandler
}

func NewDispatcher(publisher event.Publisher, recovery *goroutine.RecoveryHandler) *Dispatcher {
	if publisher == nil {
		publisher = event.Nop{}
	}
	if recovery == nil {
		recovery = goroutine.NewRecoveryHandler(logger.Recovery())
	}
	return &Dispatcher{publisher: publisher, recovery: recovery}
}

func (d *Dispatcher) Emit(events ...event.Event) {
	if d == nil || len(events) == 0 {
		return
	}
	d.recovery.SafeGo(func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		for _, evt := range events {
			if err := d.publisher.Publish(ctx, evt); err != nil {
				logger.WithFields(logrus.Fields{
					"event":      evt.Type,
					"request_id": evt.RequestID,
				}).WithError(err).Warn("notify: не удалось опубликовать событие")
			}
		}
	})
}

// Wait ждёт отправки всех событий (остановка сервера и тесты).
func (d *Dispatcher) Wait() {
	if d != nil {
		d.recovery.Wait()
	}
}
