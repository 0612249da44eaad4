package event

import (
	"context"
	"encoding/json"

	"go-pos-inventory/internal/metrics"
	"go-pos-inventory/internal/ws"
	"go-pos-inventory/pkg/logger"
)

// HubPublisher pushes events to connected websocket clients.
type HubPublisher struct {
	hub     *ws.Hub
	metrics *metrics.Metrics
}

func NewHubPublisher(hub *ws.Hub, m *metrics.Metrics) *HubPublisher {
	return &HubPublisher{hub: hub, metrics: m}
}

func (p *HubPublisher) Publish(_ context.Context, evt Event) {
	msg, err := json.Marshal(evt)
	if err != nil {
		logger.L().Error("marshal event", "type", evt.Type, "error", err)
		return
	}
	if !p.hub.Send(msg) {
		p.metrics.EventDropped("ws")
		logger.L().Warn("websocket queue full, event dropped", "type", evt.Type, "key", evt.Key())
	}
}
