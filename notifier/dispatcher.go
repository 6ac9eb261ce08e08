package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"food-delivery/metrics"
	"food-delivery/models"

	"github.com/sirupsen/logrus"
)

// Dispatcher runs each notification as a detached task: the caller's context may be
// cancelled without affecting delivery, and the outcome is only logged.
type Dispatcher struct {
	notifier Notifier
	log      logrus.FieldLogger
	timeout  time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(n Notifier, log logrus.FieldLogger, timeout time.Duration) *Dispatcher {
	return &Dispatcher{notifier: n, log: log, timeout: timeout}
}

// Dispatch starts the notification in the background. After Wait has been called
// new orders are only logged.
func (d *Dispatcher) Dispatch(ctx context.Context, order models.Order) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.WithField("order_id", order.ID).Warn("dispatcher closed, new order notification skipped")
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer d.wg.Done()
		d.run(ctx, order)
	}()
}

func (d *Dispatcher) run(ctx context.Context, order models.Order) {
	log := d.log.WithField("order_id", order.ID)
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("notifier panic: %v", r)
			}
		}()
		return d.notifier.NotifyNewOrder(ctx, order)
	}()
	metrics.RecordNotification(err == nil, time.Since(start))

	if err != nil {
		log.WithError(err).Error("new order notification failed")
		return
	}
	log.Info("new order notification sent")
}

// Wait stops accepting new notifications and blocks until every dispatched one
// has finished.
func (d *Dispatcher) Wait() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
