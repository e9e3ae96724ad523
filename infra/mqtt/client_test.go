package mqtt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	coremqtt "github.com/kilianp07/taxi/core/mqtt"
)

// helper to generate self-signed cert
func generateCert(t *testing.T) (certFile, keyFile, caFile string) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("gen key: %v", err)
	}
	tmpl := x509.Certificate{SerialNumber: big.NewInt(1), Subject: pkix.Name{CommonName: "test"}, NotBefore: time.Now(), NotAfter: time.Now().Add(time.Hour)}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})

	dir := t.TempDir()
	certFile = dir + "/cert.pem"
	keyFile = dir + "/key.pem"
	caFile = dir + "/ca.pem"
	if err := os.WriteFile(certFile, certPEM, 0644); err != nil {
		t.Fatalf("write cert: %v", err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0644); err != nil {
		t.Fatalf("write key: %v", err)
	}
	if err := os.WriteFile(caFile, certPEM, 0644); err != nil {
		t.Fatalf("write ca: %v", err)
	}
	return
}

func TestLoadTLSConfig(t *testing.T) {
	cert, key, ca := generateCert(t)
	cfg := Config{UseTLS: true, ClientCert: cert, ClientKey: key, CABundle: ca}
	tlsCfg, err := cfg.LoadTLSConfig()
	if err != nil {
		t.Fatalf("load tls: %v", err)
	}
	if len(tlsCfg.Certificates) == 0 {
		t.Fatalf("no certs loaded")
	}
	if tlsCfg.RootCAs == nil {
		t.Fatalf("no root CAs")
	}
}

func TestNewClientOptionsAuth(t *testing.T) {
	opts, err := NewClientOptions(Config{Broker: "tcp://localhost:1883", ClientID: "id", Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("opts: %v", err)
	}
	if opts.Username != "u" || opts.Password != "p" {
		t.Fatalf("auth not set")
	}
}

func withMockClient(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } })
}

func TestQoSSettings(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", QoS: map[string]byte{"offer": 2, "answer": 1}}
	cli, err := NewPahoClient(cfg)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if len(mc.subscribed) == 0 || mc.subscribed[0].qos != 1 || mc.subscribed[0].topic != AnswerWildcard {
		t.Fatalf("subscribe qos not applied")
	}
	offerID, err := cli.SendOffer(coremqtt.Offer{OrderID: "o1", VehicleID: 5, DriverID: 105})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(mc.published) == 0 || mc.published[0].qos != 2 {
		t.Fatalf("publish qos not applied")
	}
	if mc.published[0].topic != "taxi/driver/105/offer" {
		t.Fatalf("unexpected topic %s", mc.published[0].topic)
	}
	payload := fmt.Sprintf(`{"offer_id":"%s","accepted":true}`, offerID)
	cli.onAnswer(nil, mockMessage{p: []byte(payload)})
	ok, err := cli.WaitForAnswer(context.Background(), offerID, time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("answer wait failed: %v", err)
	}
}

func TestOfferPayload(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883"})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	id, err := cli.SendOffer(coremqtt.Offer{ID: "fixed", OrderID: "o1", VehicleID: 1, DriverID: 101, Pickup: "a,1,b", TripDistance: 42})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != "fixed" {
		t.Fatalf("offer id not kept: %s", id)
	}
	var got coremqtt.Offer
	if err := json.Unmarshal(mc.payloads[0], &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.DriverID != 101 || got.TripDistance != 42 || got.Pickup != "a,1,b" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestRefusalAnswer(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883"})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	id, _ := cli.SendOffer(coremqtt.Offer{DriverID: 102})
	cli.onAnswer(nil, mockMessage{p: []byte(`{"offer_id":"unknown","accepted":true}`)})
	cli.onAnswer(nil, mockMessage{p: []byte(`garbage`)})
	cli.onAnswer(nil, mockMessage{p: []byte(fmt.Sprintf(`{"offer_id":"%s","accepted":false}`, id))})
	ok, err := cli.WaitForAnswer(context.Background(), id, time.Second)
	if err != nil || ok {
		t.Fatalf("expected refusal, got %v %v", ok, err)
	}
	if _, err := cli.WaitForAnswer(context.Background(), id, time.Millisecond); err == nil {
		t.Fatalf("answered offer should be forgotten")
	}
}

func TestLWTConfigured(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", LWTTopic: "lwt", LWTPayload: "bye", LWTQoS: 1}
	cli, err := NewPahoClient(cfg)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if !mc.opts.WillEnabled {
		t.Fatalf("will not enabled")
	}
	if mc.opts.WillTopic != "lwt" || string(mc.opts.WillPayload) != "bye" {
		t.Fatalf("will options incorrect")
	}
	cli.Disconnect()
	if len(mc.published) != 0 {
		t.Fatalf("unexpected publish on disconnect")
	}
}

func TestRetryLogic(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	withMockClient(t, mc)
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 1, BackoffMS: 1}
	cli, err := NewPahoClient(cfg)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if _, err = cli.SendOffer(coremqtt.Offer{DriverID: 101}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(mc.published) != 2 {
		t.Fatalf("expected retries")
	}
}

func TestPublishFailureForgetsOffer(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("a"), fmt.Errorf("b")}}
	withMockClient(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if _, err := cli.SendOffer(coremqtt.Offer{ID: "x", DriverID: 101}); err == nil {
		t.Fatalf("expected error")
	}
	if len(cli.pending) != 0 {
		t.Fatalf("pending offer kept after failure")
	}
}

func TestWaitForAnswerTimeout(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id"}
	cli, err := NewPahoClient(cfg)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	id, _ := cli.SendOffer(coremqtt.Offer{DriverID: 101})
	ok, err := cli.WaitForAnswer(context.Background(), id, time.Millisecond)
	if !errors.Is(err, coremqtt.ErrAnswerTimeout) || ok {
		t.Fatalf("expected timeout")
	}
}

func TestWaitForAnswerCanceledForgetsOffer(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)
	cli, err := NewPahoClient(Config{Broker: "tcp://localhost:1883", ClientID: "id"})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	id, _ := cli.SendOffer(coremqtt.Offer{DriverID: 101})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	ok, err := cli.WaitForAnswer(ctx, id, time.Minute)
	if !errors.Is(err, context.Canceled) || ok {
		t.Fatalf("expected cancellation, got %v %v", ok, err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("wait ignored cancellation")
	}
	cli.mu.Lock()
	n := len(cli.pending)
	cli.mu.Unlock()
	if n != 0 {
		t.Fatalf("canceled offer still pending")
	}
}

func TestTopics(t *testing.T) {
	if OfferTopic(7) != "taxi/driver/7/offer" || AnswerTopic(7) != "taxi/driver/7/answer" {
		t.Fatalf("unexpected topics")
	}
	if id, ok := DriverFromTopic("taxi/driver/42/answer"); !ok || id != 42 {
		t.Fatalf("driver not parsed")
	}
	for _, bad := range []string{"taxi/driver/x/offer", "vehicle/1/command", "taxi/driver/1"} {
		if _, ok := DriverFromTopic(bad); ok {
			t.Fatalf("%s should not parse", bad)
		}
	}
}

func TestTerminalAnswers(t *testing.T) {
	mc := &mockClient{}
	withMockClient(t, mc)
	term, err := NewTerminal(Config{Broker: "tcp://localhost:1883"}, func(o coremqtt.Offer) bool { return o.TripDistance <= 50000 })
	if err != nil {
		t.Fatalf("terminal: %v", err)
	}
	if len(mc.subscribed) != 1 || mc.subscribed[0].topic != OfferWildcard {
		t.Fatalf("terminal not subscribed to offers")
	}
	term.onOffer(nil, mockMessage{p: []byte(`{"offer_id":"a","driver_id":103,"trip_distance":60000}`), topic: "taxi/driver/103/offer"})
	if len(mc.published) != 1 || mc.published[0].topic != "taxi/driver/103/answer" {
		t.Fatalf("answer not published: %+v", mc.published)
	}
	var ans coremqtt.Answer
	if err := json.Unmarshal(mc.payloads[0], &ans); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ans.OfferID != "a" || ans.Accepted {
		t.Fatalf("unexpected answer %+v", ans)
	}
}

// mockClient implements pahoClient for tests
type mockClient struct {
	opts       *paho.ClientOptions
	subscribed []struct {
		topic string
		qos   byte
	}
	published []struct {
		topic string
		qos   byte
	}
	payloads    [][]byte
	publishErrs []error
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(m)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {}
func (m *mockClient) Publish(topic string, qos byte, _ bool, payload interface{}) paho.Token {
	if b, ok := payload.([]byte); ok {
		m.payloads = append(m.payloads, b)
	}
	m.published = append(m.published, struct {
		topic string
		qos   byte
	}{topic, qos})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}
func (m *mockClient) Subscribe(topic string, qos byte, _ paho.MessageHandler) paho.Token {
	m.subscribed = append(m.subscribed, struct {
		topic string
		qos   byte
	}{topic, qos})
	return &dummyToken{}
}
func (m *mockClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &dummyToken{}
}
func (m *mockClient) Unsubscribe(...string) paho.Token        { return &dummyToken{} }
func (m *mockClient) AddRoute(string, paho.MessageHandler)    {}
func (m *mockClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }
func (m *mockClient) IsConnectionOpen() bool                  { return true }

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

type mockMessage struct {
	p     []byte
	topic string
}

func (m mockMessage) Duplicate() bool   { return false }
func (m mockMessage) Qos() byte         { return 0 }
func (m mockMessage) Retained() bool    { return false }
func (m mockMessage) Topic() string     { return m.topic }
func (m mockMessage) MessageID() uint16 { return 0 }
func (m mockMessage) Payload() []byte   { return m.p }
func (m mockMessage) Ack()              {}
