package events

import (
	"context"
	"errors"

	"github.com/ppk/screening/internal/domain/question"
)

// Fanout delivers each change to every publisher in order.
type Fanout []Publisher

// Notify calls every publisher even when one fails; failures are joined.
func (f Fanout) Notify(ctx context.Context, c question.Change) error {
	var errs []error
	for _, p := range f {
		if err := p.Notify(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) Close() error {
	var errs []error
	for _, p := range f {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
