package notify

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTOptions configures an MQTTNotifier.
type MQTTOptions struct {
	Broker   string
	Topic    string
	ClientID string
	Timeout  time.Duration
}

// Publisher is the part of mqtt.Client the notifier needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTNotifier relays notifications as JSON messages, e.g. to a phone
// automation subscribed to the topic.
type MQTTNotifier struct {
	client  Publisher
	topic   string
	timeout time.Duration
}

type mqttMessage struct {
	Kind  string `json:"kind"`
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
	Lang  string `json:"lang,omitempty"`
	Ms    int64  `json:"ms,omitempty"`
	Time  string `json:"time"`
}

// DialMQTT connects a client and wraps it in a notifier.
func DialMQTT(opts MQTTOptions) (*MQTTNotifier, func(), error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.ClientID == "" {
		opts.ClientID = fmt.Sprintf("sundriven-notify-%d", time.Now().UnixNano())
	}
	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(opts.Timeout)
	client := mqtt.NewClient(co)
	token := client.Connect()
	if !token.WaitTimeout(opts.Timeout) {
		return nil, nil, fmt.Errorf("mqtt connect to %s: timed out", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("mqtt connect to %s: %w", opts.Broker, err)
	}
	closeFn := func() { client.Disconnect(250) }
	return NewMQTTNotifier(client, opts.Topic, opts.Timeout), closeFn, nil
}

// NewMQTTNotifier wraps an existing publisher.
func NewMQTTNotifier(p Publisher, topic string, timeout time.Duration) *MQTTNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MQTTNotifier{client: p, topic: topic, timeout: timeout}
}

func (n *MQTTNotifier) publish(msg mqttMessage) error {
	msg.Time = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	token := n.client.Publish(n.topic, 1, false, data)
	if !token.WaitTimeout(n.timeout) {
		return fmt.Errorf("mqtt publish to %s: timed out", n.topic)
	}
	return token.Error()
}

func (n *MQTTNotifier) Show(title string, opts Options) error {
	return n.publish(mqttMessage{Kind: "notification", Title: title, Body: opts.Body, Lang: opts.Lang})
}

func (n *MQTTNotifier) Vibrate(d time.Duration) error {
	return n.publish(mqttMessage{Kind: "vibrate", Ms: d.Milliseconds()})
}

var (
	_ Notifier = (*MQTTNotifier)(nil)
	_ Vibrator = (*MQTTNotifier)(nil)
)
