package sink

import (
	"context"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	json "github.com/goccy/go-json"

	"pilo_plug/internal/config"
	"pilo_plug/internal/models"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttPublishTimeout = 5 * time.Second
	mqttKeepAlive      = 30 * time.Second
	mqttQuiesceMs      = 250
)

// publisher is the part of pahomqtt.Client the sink uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// MQTTSink publishes each sample as JSON on <topic>/<device_id>.
type MQTTSink struct {
	client publisher
	topic  string
	qos    byte
}

func NewMQTTSink(client publisher, topic string, qos byte) *MQTTSink {
	return &MQTTSink{client: client, topic: topic, qos: qos}
}

// ConnectMQTT dials the broker described by cfg.
func ConnectMQTT(cfg config.MQTTConfig) (*MQTTSink, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(mqttConnectTimeout)
	opts.SetKeepAlive(mqttKeepAlive)

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s: timeout after %v", cfg.Broker, mqttConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}
	return NewMQTTSink(client, cfg.Topic, byte(cfg.QoS)), nil
}

func (m *MQTTSink) Name() string { return "mqtt" }

func (m *MQTTSink) Publish(ctx context.Context, s models.Sample) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode sample: %w", err)
	}

	timeout := mqttPublishTimeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}

	topic := m.topic + "/" + s.DeviceID
	token := m.client.Publish(topic, m.qos, false, payload)
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("mqtt publish to %s: timeout after %v", topic, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish to %s: %w", topic, err)
	}
	return nil
}

func (m *MQTTSink) Close() error {
	m.client.Disconnect(mqttQuiesceMs)
	return nil
}
