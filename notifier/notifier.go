// Package notifier tells the restaurant about new orders. Delivery is best effort:
// callers log failures and never retry.
package notifier

import (
	"context"
	"errors"

	"food-delivery/models"

	"github.com/sirupsen/logrus"
)

type Notifier interface {
	NotifyNewOrder(ctx context.Context, order models.Order) error
}

// Multi sends to every notifier in turn and joins their errors.
type Multi []Notifier

func (m Multi) NotifyNewOrder(ctx context.Context, order models.Order) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyNewOrder(ctx, order); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log only records the order. Used when no relay is configured.
type Log struct {
	Logger logrus.FieldLogger
}

func (l Log) NotifyNewOrder(_ context.Context, order models.Order) error {
	l.Logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"customer": order.Name,
		"total":    order.Total.StringFixed(2),
	}).Info("new order (no mail relay configured)")
	return nil
}
