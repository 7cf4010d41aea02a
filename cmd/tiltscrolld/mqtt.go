package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"tiltscroll/internal/orientation"
	"tiltscroll/internal/tilt"
)

// DecisionMessage is published for every scroll step applied to the offset.
type DecisionMessage struct {
	Session  string        `json:"session"`
	Offset   int           `json:"offset"`
	Decision tilt.Decision `json:"decision"`
	At       time.Time     `json:"at"`
}

// DecisionPublisher receives applied scroll decisions.
type DecisionPublisher interface {
	PublishDecision(DecisionMessage) error
}

// mqttPublisher is the slice of mqtt.Client the bridge publishes through.
type mqttPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTBridge subscribes to a Pose topic feeding the sensor feed and publishes
// applied decisions.
type MQTTBridge struct {
	cfg    MQTTConfig
	feed   *SensorFeed
	logger *slog.Logger

	client mqtt.Client
	pub    mqttPublisher
}

func newMQTTBridge(cfg MQTTConfig, feed *SensorFeed, logger *slog.Logger) *MQTTBridge {
	return &MQTTBridge{cfg: cfg, feed: feed, logger: logger}
}

// Connect dials the broker. Pose subscription happens in the on-connect
// handler so it survives automatic reconnects.
func (b *MQTTBridge) Connect(clientID string) error {
	opts := mqtt.NewClientOptions().
		AddBroker(b.cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(time.Duration(mqttConnectTimeoutMS) * time.Millisecond).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			b.logger.Warn("mqtt connection lost", "broker", b.cfg.Broker, "error", err)
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(time.Duration(mqttConnectTimeoutMS) * time.Millisecond) {
		return fmt.Errorf("mqtt connect to %s: timeout", b.cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect to %s: %w", b.cfg.Broker, err)
	}

	b.client = client
	b.pub = client
	b.logger.Info("mqtt connected", "broker", b.cfg.Broker, "client_id", clientID)
	return nil
}

func (b *MQTTBridge) onConnect(client mqtt.Client) {
	if b.cfg.PoseTopic == "" {
		return
	}
	token := client.Subscribe(b.cfg.PoseTopic, byte(b.cfg.QoS), func(_ mqtt.Client, msg mqtt.Message) {
		b.handlePose(msg.Payload())
	})
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			b.logger.Error("mqtt subscribe failed", "topic", b.cfg.PoseTopic, "error", err)
			return
		}
		b.logger.Info("mqtt subscribed", "topic", b.cfg.PoseTopic)
	}()
}

// handlePose decodes one Pose JSON payload and hands it to the feed.
func (b *MQTTBridge) handlePose(payload []byte) {
	var p orientation.Pose
	if err := json.Unmarshal(payload, &p); err != nil {
		b.logger.Warn("mqtt pose unmarshal error", "error", err)
		return
	}
	b.feed.DeliverPose(p)
}

// PublishDecision publishes without waiting for the broker; only errors that
// are already known when the call returns are reported.
func (b *MQTTBridge) PublishDecision(m DecisionMessage) error {
	if b.pub == nil {
		return errors.New("mqtt not connected")
	}
	if b.cfg.DecisionTopic == "" {
		return nil
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	token := b.pub.Publish(b.cfg.DecisionTopic, byte(b.cfg.QoS), false, payload)
	select {
	case <-token.Done():
		return token.Error()
	default:
		return nil
	}
}

// Run holds the connection until ctx is canceled, then disconnects.
func (b *MQTTBridge) Run(ctx context.Context) error {
	<-ctx.Done()
	if b.client != nil {
		b.client.Disconnect(mqttDisconnectQuiesceMS)
		b.logger.Info("mqtt disconnected")
	}
	return nil
}
