// Package events доставка доменных событий во внешние каналы.
package events

import (
	"context"
	"errors"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/event"
)

// Multi публикует событие во все каналы; сбой одного не мешает остальным.
type Multi []event.Publisher

func (m Multi) Publish(ctx context.Context, evt event.Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
