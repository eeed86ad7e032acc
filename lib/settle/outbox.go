// Copyright 2026 The Trustplane Authors
// SPDX-License-Identifier: Apache-2.0

package settle

import (
	"context"
	"log/slog"
	"sync"
)

// defaultQueueSize bounds pending dispatches. Release volume is low;
// hitting the bound means the settlement backend has been down for a
// while and dropping is the documented behavior anyway.
const defaultQueueSize = 256

// Outbox dispatches queued items to a delivery function on a single
// background goroutine. Enqueue never blocks the caller: when the
// queue is full the item is logged and dropped.
type Outbox[T any] struct {
	name    string
	deliver func(ctx context.Context, item T) error
	logger  *slog.Logger

	queue chan T
	done  chan struct{}
	once  sync.Once
}

// NewOutbox creates an outbox and starts its worker. The worker runs
// until ctx is cancelled, then drains whatever is already queued.
func NewOutbox[T any](ctx context.Context, name string, logger *slog.Logger, deliver func(ctx context.Context, item T) error) *Outbox[T] {
	o := &Outbox[T]{
		name:    name,
		deliver: deliver,
		logger:  logger,
		queue:   make(chan T, defaultQueueSize),
		done:    make(chan struct{}),
	}
	go o.run(ctx)
	return o
}

// Enqueue schedules an item for delivery. Returns false if the item
// was dropped because the queue is full or the outbox has stopped.
func (o *Outbox[T]) Enqueue(item T) bool {
	select {
	case <-o.done:
		o.logger.Warn("outbox stopped, dropping item", "outbox", o.name)
		return false
	default:
	}
	select {
	case o.queue <- item:
		return true
	default:
		o.logger.Warn("outbox full, dropping item", "outbox", o.name)
		return false
	}
}

// Done returns a channel closed once the worker has drained and
// exited.
func (o *Outbox[T]) Done() <-chan struct{} {
	return o.done
}

func (o *Outbox[T]) run(ctx context.Context) {
	defer o.once.Do(func() { close(o.done) })

	for {
		select {
		case item := <-o.queue:
			o.deliverOne(ctx, item)
		case <-ctx.Done():
			// Drain what is already queued before exiting. Delivery
			// uses a background context; ctx is already cancelled.
			for {
				select {
				case item := <-o.queue:
					o.deliverOne(context.Background(), item)
				default:
					return
				}
			}
		}
	}
}

func (o *Outbox[T]) deliverOne(ctx context.Context, item T) {
	if err := o.deliver(ctx, item); err != nil {
		o.logger.Error("delivery failed, dropping item",
			"outbox", o.name,
			"error", err,
		)
	}
}
