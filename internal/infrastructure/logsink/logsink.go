// Package logsink provides a SignalSender and a Publisher that only write
// to the structured log, for local runs without AWS or a broker.
package logsink

import (
	"context"

	"github.com/bed-alerts/internal/domain"
	"github.com/bed-alerts/internal/logger"
)

type SignalSender struct{}

func (SignalSender) SendSignal(ctx context.Context, message string, targets []domain.UserDevice) error {
	ids := make([]string, 0, len(targets))
	for _, d := range targets {
		ids = append(ids, d.ID)
	}
	logger.InfoKV(ctx, "signal", "message", message, "devices", ids)
	return nil
}

type Publisher struct{}

func (Publisher) Publish(ctx context.Context, payload []byte) error {
	logger.InfoKV(ctx, "publish", "payload", string(payload))
	return nil
}
