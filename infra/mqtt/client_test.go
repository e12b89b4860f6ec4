package mqtt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"math/big"
	"os"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/rebalance/core/factory"
	"github.com/kilianp07/rebalance/core/model"
	"github.com/kilianp07/rebalance/core/output"
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
	for path, data := range map[string][]byte{certFile: certPEM, keyFile: keyPEM, caFile: certPEM} {
		if err := os.WriteFile(path, data, 0o600); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
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
	if _, err := (Config{UseTLS: true}).LoadTLSConfig(); err == nil {
		t.Fatalf("expected error without cert paths")
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
	opts, err = NewClientOptions(Config{Broker: "tcp://localhost:1883", Username: "u", AuthMethod: "certificate"})
	if err != nil {
		t.Fatalf("opts: %v", err)
	}
	if opts.Username != "" {
		t.Fatalf("username should not be set for certificate auth")
	}
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	if c.Topic != DefaultTopic || c.Retain == nil || !*c.Retain || c.ClientID == "" {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected missing broker error")
	}
	c.Broker = "tcp://localhost:1883"
	c.QoS = 3
	if err := c.Validate(); err == nil {
		t.Fatalf("expected qos error")
	}
}

func withMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } })
}

func TestPublishPlanRetained(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	pub, err := NewPlanPublisher(Config{Broker: "tcp://localhost:1883", Topic: "velo/plan", QoS: 1})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	plan := model.NewRebalancingPlan(nil)
	plan.Bike = append(plan.Bike, model.Itinerary{Source: "A", Destination: "B", Mode: model.ModeBike})
	if err := pub.Write(context.Background(), plan); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(mc.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(mc.published))
	}
	msg := mc.published[0]
	if msg.topic != "velo/plan" || msg.qos != 1 || !msg.retained {
		t.Fatalf("unexpected publish %+v", msg)
	}
	var got model.RebalancingPlan
	if err := json.Unmarshal(msg.payload, &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if len(got.Bike) != 1 || got.Bike[0].Source != "A" {
		t.Fatalf("unexpected payload %s", msg.payload)
	}
	_ = pub.Close()
}

func TestLWTConfigured(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	cfg := Config{Broker: "tcp://localhost:1883", ClientID: "id", LWTTopic: "lwt", LWTPayload: "bye", LWTQoS: 1}
	pub, err := NewPlanPublisher(cfg)
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	if !mc.opts.WillEnabled {
		t.Fatalf("will not enabled")
	}
	if mc.opts.WillTopic != "lwt" || string(mc.opts.WillPayload) != "bye" {
		t.Fatalf("will options incorrect")
	}
	_ = pub.Close()
	if len(mc.published) != 0 {
		t.Fatalf("unexpected publish on disconnect")
	}
}

func TestRetryLogic(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	withMock(t, mc)
	pub, err := NewPlanPublisher(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	if err := pub.Write(context.Background(), model.NewRebalancingPlan(nil)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(mc.published) != 2 {
		t.Fatalf("expected retries, got %d publishes", len(mc.published))
	}
}

func TestRetryExhausted(t *testing.T) {
	fail := fmt.Errorf("net fail")
	mc := &mockClient{publishErrs: []error{fail, fail, fail}}
	withMock(t, mc)
	pub, err := NewPlanPublisher(Config{Broker: "tcp://localhost:1883", MaxRetries: 2, BackoffMS: 1})
	if err != nil {
		t.Fatalf("publisher: %v", err)
	}
	if err := pub.Write(context.Background(), model.NewRebalancingPlan(nil)); err == nil {
		t.Fatalf("expected error after retries")
	}
	if len(mc.published) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(mc.published))
	}
}

func TestConnectError(t *testing.T) {
	mc := &mockClient{connectErr: fmt.Errorf("refused")}
	withMock(t, mc)
	if _, err := NewPlanPublisher(Config{Broker: "tcp://localhost:1883"}); err == nil {
		t.Fatalf("expected connect error")
	}
}

func TestRegisteredWriter(t *testing.T) {
	mc := &mockClient{}
	withMock(t, mc)
	w, err := output.NewWriter([]factory.ModuleConfig{{Type: "mqtt", Conf: map[string]any{
		"broker": "tcp://localhost:1883",
		"topic":  "t",
		"retain": false,
		"qos":    "1",
	}}})
	if err != nil {
		t.Fatalf("writer: %v", err)
	}
	pub, ok := w.(*PlanPublisher)
	if !ok {
		t.Fatalf("expected *PlanPublisher, got %T", w)
	}
	if *pub.cfg.Retain || pub.cfg.QoS != 1 {
		t.Fatalf("config not decoded: %+v", pub.cfg)
	}
}

type publishedMsg struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// mockClient implements pahoClient for tests
type mockClient struct {
	opts        *paho.ClientOptions
	published   []publishedMsg
	publishErrs []error
	connectErr  error
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	if m.connectErr != nil {
		return &dummyToken{err: m.connectErr}
	}
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(nil)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) {}
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	b, _ := payload.([]byte)
	m.published = append(m.published, publishedMsg{topic, qos, retained, b})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }
