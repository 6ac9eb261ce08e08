package notifier

import (
	"context"
	"fmt"

	"food-delivery/models"
)

// Mailer delivers a rendered message to the restaurant inbox.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Email renders the order summary and hands it to a Mailer.
type Email struct {
	Mailer Mailer
}

func (e Email) NotifyNewOrder(ctx context.Context, order models.Order) error {
	msg, err := Compose(order)
	if err != nil {
		return err
	}
	if err := e.Mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("email order %d: %w", order.ID, err)
	}
	return nil
}
