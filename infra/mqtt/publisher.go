package mqtt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/rebalance/core/factory"
	"github.com/kilianp07/rebalance/core/model"
	"github.com/kilianp07/rebalance/core/output"
	"github.com/kilianp07/rebalance/infra/logger"
	"github.com/kilianp07/rebalance/pkg/export"
)

// PlanPublisher is an output.Writer that publishes the plan document.
type PlanPublisher struct {
	cli    pahoClient
	cfg    Config
	logger logger.Logger
}

// NewPlanPublisher connects to the broker.
func NewPlanPublisher(cfg Config) (*PlanPublisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_publisher")
	opts.OnConnect = func(paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	return &PlanPublisher{cli: c, cfg: cfg, logger: log}, nil
}

// Write publishes the plan, retrying with exponential backoff.
func (p *PlanPublisher) Write(ctx context.Context, plan *model.RebalancingPlan) error {
	var buf bytes.Buffer
	if err := export.WriteJSON(&buf, plan, false); err != nil {
		return fmt.Errorf("encode plan: %w", err)
	}
	payload := bytes.TrimRight(buf.Bytes(), "\n")

	attempt := 0
	op := func() error {
		attempt++
		token := p.cli.Publish(p.cfg.Topic, p.cfg.QoS, *p.cfg.Retain, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			p.logger.Errorf("publish attempt %d failed: %v", attempt, err)
			return err
		}
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.cfg.Backoff()
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(p.cfg.MaxRetries)), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", p.cfg.Topic, err)
	}
	p.logger.Infof("published plan to %s (%d bytes)", p.cfg.Topic, len(payload))
	return nil
}

// Close gracefully closes the MQTT connection.
func (p *PlanPublisher) Close() error {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
	return nil
}

func init() {
	_ = output.RegisterWriter("mqtt", func(conf map[string]any) (output.Writer, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewPlanPublisher(c)
	})
}
