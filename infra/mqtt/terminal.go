package mqtt

import (
	"context"
	"encoding/json"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremqtt "github.com/kilianp07/taxi/core/mqtt"
	"github.com/kilianp07/taxi/infra/logger"
)

// Decider answers an offer on behalf of a driver.
type Decider func(o coremqtt.Offer) bool

// Terminal emulates the driver terminals of a fleet: it listens on every
// offer topic and publishes the decision on the driver's answer topic.
type Terminal struct {
	cli    pahoClient
	decide Decider
	qos    byte
	logger logger.Logger
}

// NewTerminal connects a terminal emulator to the broker.
func NewTerminal(cfg Config, decide Decider) (*Terminal, error) {
	cfg.SetDefaults()
	if cfg.ClientID == "taxi-dispatch" {
		cfg.ClientID = "taxi-terminal"
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	t := &Terminal{decide: decide, logger: logger.New("mqtt_terminal")}
	if q, ok := cfg.QoS["answer"]; ok {
		t.qos = q
	}
	opts.OnConnect = func(c paho.Client) {
		if token := c.Subscribe(OfferWildcard, t.qos, t.onOffer); token.Wait() && token.Error() != nil {
			t.logger.Errorf("subscribe error: %v", token.Error())
		}
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	t.cli = c
	return t, nil
}

// HandleOffer decides an offer and returns the answer to publish.
func (t *Terminal) HandleOffer(payload []byte) (coremqtt.Answer, int, error) {
	var o coremqtt.Offer
	if err := json.Unmarshal(payload, &o); err != nil {
		return coremqtt.Answer{}, 0, err
	}
	accepted := false
	if t.decide != nil {
		accepted = t.decide(o)
	}
	return coremqtt.Answer{OfferID: o.ID, Accepted: accepted}, o.DriverID, nil
}

func (t *Terminal) onOffer(c paho.Client, msg paho.Message) {
	ans, driverID, err := t.HandleOffer(msg.Payload())
	if err != nil {
		t.logger.Errorf("failed to decode offer: %v", err)
		return
	}
	if id, ok := DriverFromTopic(msg.Topic()); ok {
		driverID = id
	}
	payload, err := json.Marshal(ans)
	if err != nil {
		return
	}
	t.logger.Debugw("answering offer", map[string]any{"offer_id": ans.OfferID, "driver_id": driverID, "accepted": ans.Accepted})
	t.cli.Publish(AnswerTopic(driverID), t.qos, false, payload)
}

// Run keeps the terminal connected until ctx is canceled.
func (t *Terminal) Run(ctx context.Context) error {
	<-ctx.Done()
	t.Close()
	return nil
}

// Close disconnects from the broker.
func (t *Terminal) Close() {
	if t.cli != nil && t.cli.IsConnected() {
		t.cli.Disconnect(250)
	}
}
