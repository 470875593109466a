package eventbus

import (
	"context"

	"github.com/annel0/blockverse/internal/logging"
)

// StartLoggingListener пишет все события в журнал сервера
func StartLoggingListener(bus EventBus) (Subscription, error) {
	logger := logging.GetComponentLogger("events")
	return bus.Subscribe(context.Background(), Filter{}, func(ctx context.Context, ev *Envelope) {
		logger.Debug("%s %s src=%s %s", ev.ID, ev.EventType, ev.Source, ev.Payload)
	})
}
