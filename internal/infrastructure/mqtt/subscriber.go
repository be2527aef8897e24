// Package mqtt ingests location events from an MQTT broker and hands them to
// the notification service for auto-confirmation.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/bed-alerts/internal/config"
	"github.com/bed-alerts/internal/domain"
	"github.com/bed-alerts/internal/logger"
	"github.com/bed-alerts/internal/pkg/validate"
)

const (
	qosAtLeastOnce  = 1
	tokenTimeout    = 10 * time.Second
	disconnectQuiet = 250 // ms
)

// EventHandler consumes decoded location events.
type EventHandler interface {
	HandleLocationEvent(ctx context.Context, event domain.LocationEvent) (int, error)
}

// Subscriber owns one broker connection subscribed to a single topic.
type Subscriber struct {
	opts    *paho.ClientOptions
	topic   string
	handler EventHandler
}

func NewSubscriber(cfg *config.Config, handler EventHandler) *Subscriber {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.MQTTBroker)
	opts.SetClientID(cfg.MQTTClientID)
	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
	}
	if cfg.MQTTPassword != "" {
		opts.SetPassword(cfg.MQTTPassword)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	return &Subscriber{opts: opts, topic: cfg.MQTTTopic, handler: handler}
}

// Run connects and blocks until ctx is done. The subscription is made by the
// on-connect handler, so it is restored after every automatic reconnect.
func (s *Subscriber) Run(ctx context.Context) error {
	ctx = logger.WithName(ctx, "mqtt")
	s.opts.SetOnConnectHandler(s.onConnect(ctx))
	s.opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.WarnKV(ctx, "connection to MQTT broker lost", "error", err)
	})
	client := paho.NewClient(s.opts)
	if err := wait(client.Connect()); err != nil {
		return fmt.Errorf("connect to MQTT broker: %w", err)
	}
	defer client.Disconnect(disconnectQuiet)

	<-ctx.Done()
	if err := wait(client.Unsubscribe(s.topic)); err != nil {
		logger.WarnKV(ctx, "unsubscribe failed", "topic", s.topic, "error", err)
	}
	return nil
}

// onConnect subscribes on every (re)connect: with a clean session the broker
// forgets subscriptions when the connection drops.
func (s *Subscriber) onConnect(ctx context.Context) paho.OnConnectHandler {
	return func(client paho.Client) {
		if err := s.subscribe(ctx, client); err != nil {
			logger.ErrorKV(ctx, "location events will not be received", "topic", s.topic, "error", err)
		}
	}
}

func (s *Subscriber) subscribe(ctx context.Context, client paho.Client) error {
	token := client.Subscribe(s.topic, qosAtLeastOnce, func(_ paho.Client, msg paho.Message) {
		s.handle(ctx, msg.Payload())
	})
	if err := wait(token); err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.topic, err)
	}
	logger.InfoKV(ctx, "subscribed to location events", "topic", s.topic)
	return nil
}

// handle never returns an error: a bad message must not stop the stream.
func (s *Subscriber) handle(ctx context.Context, payload []byte) {
	event, err := decodeLocationEvent(payload)
	if err != nil {
		logger.WarnKV(ctx, "dropping malformed location event", "error", err)
		return
	}
	confirmed, err := s.handler.HandleLocationEvent(ctx, event)
	if err != nil {
		logger.ErrorKV(ctx, "handle location event", "source", event.Source, "error", err)
		return
	}
	logger.DebugKV(ctx, "location event handled", "source", event.Source, "confirmed", confirmed)
}

func decodeLocationEvent(payload []byte) (domain.LocationEvent, error) {
	var req domain.LocationEventRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return domain.LocationEvent{}, fmt.Errorf("decode location event: %w", err)
	}
	if err := validate.Struct(req); err != nil {
		return domain.LocationEvent{}, err
	}
	return req.Event(), nil
}

func wait(t paho.Token) error {
	if !t.WaitTimeout(tokenTimeout) {
		return fmt.Errorf("timed out after %s", tokenTimeout)
	}
	return t.Error()
}
