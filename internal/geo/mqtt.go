package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/brettz9/sundriven/pkg/logger"
)

// MQTTOptions configures an MQTTSource.
type MQTTOptions struct {
	Broker   string
	Topic    string
	ClientID string
	// Timeout bounds the connect/subscribe handshake and how long Current
	// waits for a first fix.
	Timeout time.Duration
	Logger  logger.Logger
}

// MQTTSource follows a device publishing OwnTracks location messages
// (`{"_type":"location","lat":..,"lon":..,"tst":..}`) to an MQTT topic.
type MQTTSource struct {
	client  mqtt.Client
	topic   string
	timeout time.Duration
	log     logger.Logger

	mu       sync.Mutex
	last     *Coordinates
	fix      chan struct{}
	fixOnce  sync.Once
	watchers map[uint64]mqttWatcher
	nextID   uint64
}

type mqttWatcher struct {
	onUpdate func(Coordinates)
	onError  func(error)
}

// NewMQTTSource creates the source; Start connects it.
func NewMQTTSource(opts MQTTOptions) *MQTTSource {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.ClientID == "" {
		opts.ClientID = fmt.Sprintf("sundriven-geo-%d", time.Now().UnixNano())
	}
	s := &MQTTSource{
		topic:    opts.Topic,
		timeout:  opts.Timeout,
		log:      logger.OrNop(opts.Logger),
		fix:      make(chan struct{}),
		watchers: make(map[uint64]mqttWatcher),
	}
	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(opts.Timeout).
		SetOnConnectHandler(func(c mqtt.Client) {
			// resubscribe after reconnects; the handler must not block
			go s.subscribe(c)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			s.log.Warning("geo: mqtt connection lost: %v", err)
			s.broadcastError(NewPositionError(PositionUnavailable, err))
		})
	s.client = mqtt.NewClient(co)
	return s
}

// Start connects to the broker. Subscription happens in the connect handler.
func (s *MQTTSource) Start() error {
	token := s.client.Connect()
	if !token.WaitTimeout(s.timeout) {
		return fmt.Errorf("mqtt connect: %w", ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (s *MQTTSource) subscribe(c mqtt.Client) {
	token := c.Subscribe(s.topic, 1, func(_ mqtt.Client, m mqtt.Message) {
		if err := s.handlePayload(m.Payload()); err != nil {
			s.log.Warning("geo: ignoring mqtt message on %s: %v", m.Topic(), err)
		}
	})
	if !token.WaitTimeout(s.timeout) || token.Error() != nil {
		s.log.Error("geo: mqtt subscribe %s failed: %v", s.topic, token.Error())
		return
	}
	s.log.Info("geo: subscribed to %s", s.topic)
}

// Close unsubscribes and disconnects.
func (s *MQTTSource) Close() {
	if s.client.IsConnected() {
		s.client.Unsubscribe(s.topic).WaitTimeout(s.timeout)
		s.client.Disconnect(250)
	}
}

type ownTracksLocation struct {
	Type string   `json:"_type"`
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
	Tst  int64    `json:"tst"`
}

var errNotLocation = errors.New("not a location message")

func (s *MQTTSource) handlePayload(payload []byte) error {
	var msg ownTracksLocation
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if msg.Type != "location" {
		return errNotLocation
	}
	if msg.Lat == nil || msg.Lon == nil {
		return errors.New("location without lat/lon")
	}
	if *msg.Lat < -90 || *msg.Lat > 90 || *msg.Lon < -180 || *msg.Lon > 180 {
		return fmt.Errorf("coordinates out of range: %v,%v", *msg.Lat, *msg.Lon)
	}
	c := Coordinates{Latitude: *msg.Lat, Longitude: *msg.Lon}

	s.mu.Lock()
	s.last = &c
	watchers := make([]mqttWatcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.mu.Unlock()
	s.fixOnce.Do(func() { close(s.fix) })

	for _, w := range watchers {
		w.onUpdate(c)
	}
	return nil
}

func (s *MQTTSource) broadcastError(err error) {
	s.mu.Lock()
	watchers := make([]mqttWatcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		watchers = append(watchers, w)
	}
	s.mu.Unlock()
	for _, w := range watchers {
		w.onError(err)
	}
}

// Current returns the latest fix, waiting up to Timeout for the first one.
func (s *MQTTSource) Current(ctx context.Context) (Coordinates, error) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last != nil {
		return *last, nil
	}
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case <-s.fix:
		s.mu.Lock()
		defer s.mu.Unlock()
		return *s.last, nil
	case <-timer.C:
		return Coordinates{}, NewPositionError(Timeout, errors.New("no location published yet"))
	case <-ctx.Done():
		return Coordinates{}, AsPositionError(ctx.Err())
	}
}

// Watch registers callbacks for every subsequent fix. A known fix is
// delivered right away.
func (s *MQTTSource) Watch(onUpdate func(Coordinates), onError func(error)) (Watch, error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = mqttWatcher{onUpdate: onUpdate, onError: onError}
	last := s.last
	s.mu.Unlock()

	if last != nil {
		onUpdate(*last)
	}
	return watchFunc(func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}), nil
}

var _ Source = (*MQTTSource)(nil)
