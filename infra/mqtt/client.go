package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coremqtt "github.com/kilianp07/taxi/core/mqtt"
	"github.com/kilianp07/taxi/infra/logger"
)

// Topic layout shared by the dispatcher and the driver terminals.
const (
	OfferTopicFormat  = "taxi/driver/%d/offer"
	AnswerTopicFormat = "taxi/driver/%d/answer"
	AnswerWildcard    = "taxi/driver/+/answer"
	OfferWildcard     = "taxi/driver/+/offer"
)

// OfferTopic returns the topic the driver's terminal listens on.
func OfferTopic(driverID int) string { return fmt.Sprintf(OfferTopicFormat, driverID) }

// AnswerTopic returns the topic the driver's terminal answers on.
func AnswerTopic(driverID int) string { return fmt.Sprintf(AnswerTopicFormat, driverID) }

// DriverFromTopic extracts the driver id of a taxi/driver/<id>/... topic.
func DriverFromTopic(topic string) (int, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "taxi" || parts[1] != "driver" {
		return 0, false
	}
	id, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, false
	}
	return id, true
}

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker      string          `json:"broker"`
	ClientID    string          `json:"client_id"`
	Username    string          `json:"username"`
	Password    string          `json:"password"`
	AnswerTopic string          `json:"answer_topic"`
	UseTLS      bool            `json:"use_tls"`
	ClientCert  string          `json:"client_cert"`
	ClientKey   string          `json:"client_key"`
	CABundle    string          `json:"ca_bundle"`
	AuthMethod  string          `json:"auth_method"`
	QoS         map[string]byte `json:"qos"`
	LWTTopic    string          `json:"lwt_topic"`
	LWTPayload  string          `json:"lwt_payload"`
	LWTQoS      byte            `json:"lwt_qos"`
	LWTRetain   bool            `json:"lwt_retain"`
	MaxRetries  int             `json:"max_retries"`
	BackoffMS   int             `json:"backoff_ms"`
	TLSConfig   *tls.Config     `json:"-"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "taxi-dispatch"
	}
	if c.AnswerTopic == "" {
		c.AnswerTopic = AnswerWildcard
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt: broker is required")
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient offers orders to driver terminals using Eclipse Paho.
type PahoClient struct {
	cli         pahoClient
	answerTopic string
	qos         map[string]byte

	mu         sync.Mutex
	pending    map[string]chan bool
	logger     logger.Logger
	maxRetries int
	backoff    time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker and subscribes to the answer topic.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		answerTopic: cfg.AnswerTopic,
		pending:     make(map[string]chan bool),
		logger:      log,
		qos:         cfg.QoS,
		maxRetries:  cfg.MaxRetries,
		backoff:     time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(pc.answerTopic, pc.qosFor("answer"), pc.onAnswer); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func (p *PahoClient) qosFor(kind string) byte {
	if q, ok := p.qos[kind]; ok {
		return q
	}
	return 0
}

func (p *PahoClient) onAnswer(_ paho.Client, msg paho.Message) {
	var a coremqtt.Answer
	if err := json.Unmarshal(msg.Payload(), &a); err != nil {
		p.logger.Errorf("failed to decode answer: %v", err)
		return
	}
	p.mu.Lock()
	ch, ok := p.pending[a.OfferID]
	if ok {
		select {
		case ch <- a.Accepted:
		default:
		}
		p.logger.Infof("received answer %s accepted=%t", a.OfferID, a.Accepted)
	}
	p.mu.Unlock()
}

// SendOffer publishes the offer on the driver's offer topic and returns the
// offer identifier used for answer tracking.
func (p *PahoClient) SendOffer(o coremqtt.Offer) (string, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	payload, err := json.Marshal(o)
	if err != nil {
		return "", err
	}

	// Registered before publishing so a fast answer is not lost.
	p.mu.Lock()
	p.pending[o.ID] = make(chan bool, 1)
	p.mu.Unlock()

	topic := OfferTopic(o.DriverID)
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.qosFor("offer"), false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Infof("sent offer %s to %s", o.ID, topic)
			break
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		time.Sleep(p.backoff * time.Duration(1<<attempt))
	}
	if publishErr != nil {
		p.forget(o.ID)
		return "", publishErr
	}
	return o.ID, nil
}

// WaitForAnswer blocks until the driver answers the offer, the timeout
// expires or ctx is done.
func (p *PahoClient) WaitForAnswer(ctx context.Context, offerID string, timeout time.Duration) (bool, error) {
	p.mu.Lock()
	ch := p.pending[offerID]
	p.mu.Unlock()
	if ch == nil {
		return false, fmt.Errorf("unknown offer %s", offerID)
	}
	defer p.forget(offerID)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case accepted := <-ch:
		return accepted, nil
	case <-timer.C:
		return false, fmt.Errorf("%w", coremqtt.ErrAnswerTimeout)
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (p *PahoClient) forget(offerID string) {
	p.mu.Lock()
	delete(p.pending, offerID)
	p.mu.Unlock()
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
