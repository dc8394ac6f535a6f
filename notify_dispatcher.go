package goDesk

import (
	"context"

	"github.com/MrEthical07/goDesk/internal/notify"
)

// notifyDispatcher delivers notifications either inline or through the async
// dispatcher, depending on NotifyConfig.Async.
type notifyDispatcher struct {
	sink  Notifier
	async *notify.Dispatcher[Notification]
}

func newNotifyDispatcher(cfg NotifyConfig, sink Notifier) *notifyDispatcher {
	if sink == nil {
		sink = NoOpNotifier{}
	}
	d := &notifyDispatcher{sink: sink}
	if cfg.Async {
		d.async = notify.NewDispatcher[Notification](notify.Config{
			Enabled:    true,
			BufferSize: cfg.BufferSize,
			DropIfFull: cfg.DropIfFull,
		}, notify.SinkFunc[Notification](sink.Notify))
	}
	return d
}

func (d *notifyDispatcher) Emit(ctx context.Context, n Notification) {
	if d == nil {
		return
	}
	if d.async != nil {
		// ctx bounds only the wait for buffer room; the sink runs detached.
		d.async.Emit(ctx, n)
		return
	}
	d.sink.Notify(ctx, n)
}

func (d *notifyDispatcher) Close() {
	if d == nil {
		return
	}
	d.async.Close()
}

func (d *notifyDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.async.Dropped()
}
