package opcua

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/ua"

	"github.com/ghalamif/simtemp/internal/domain"
	"github.com/ghalamif/simtemp/internal/ports"
)

// Config describes the OPC UA node that mirrors the simulated reading.
type Config struct {
	Endpoint        string        `yaml:"endpoint"`
	NodeID          string        `yaml:"node_id"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	SecurityMode    string        `yaml:"security_mode"`
	SecurityPolicy  string        `yaml:"security_policy"`
	ApplicationName string        `yaml:"application_name"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
}

// Enabled reports whether an endpoint is configured.
func (c *Config) Enabled() bool { return c.Endpoint != "" }

func (c *Config) ApplyDefaults() {
	if c.SecurityMode == "" {
		c.SecurityMode = "None"
	}
	if c.SecurityPolicy == "" {
		c.SecurityPolicy = "None"
	}
	if c.ApplicationName == "" {
		c.ApplicationName = "simtemp"
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 2 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("endpoint is required")
	}
	if c.NodeID == "" {
		return errors.New("node_id is required")
	}
	if _, err := ua.ParseNodeID(c.NodeID); err != nil {
		return fmt.Errorf("parse node id %q: %w", c.NodeID, err)
	}
	return nil
}

// Publisher writes the latest reading of each batch to one Int32 node.
type Publisher struct {
	cfg    Config
	nodeID *ua.NodeID

	mu     sync.Mutex
	client *opcua.Client
}

func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	nodeID, err := ua.ParseNodeID(cfg.NodeID)
	if err != nil {
		return nil, err
	}
	return &Publisher{cfg: cfg, nodeID: nodeID}, nil
}

func (p *Publisher) Name() string { return "opcua" }

// Connect opens the session. WriteBatch fails until it succeeds.
func (p *Publisher) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return fmt.Errorf("opcua publisher already connected")
	}

	client, err := opcua.NewClient(p.cfg.Endpoint, p.buildClientOptions()...)
	if err != nil {
		return fmt.Errorf("opcua new client: %w", err)
	}
	if err := client.Connect(ctx); err != nil {
		// a failed dial can still leave a conn or secure channel behind
		_ = closeClient(client)
		return fmt.Errorf("opcua connect: %w", err)
	}
	p.client = client
	return nil
}

func (p *Publisher) WriteBatch(samples []*domain.Sample) error {
	if len(samples) == 0 {
		return nil
	}
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	if client == nil {
		return fmt.Errorf("opcua publisher not connected")
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.WriteTimeout)
	defer cancel()

	req := writeRequest(p.nodeID, samples[len(samples)-1])
	resp, err := client.Write(ctx, req)
	if err != nil {
		return fmt.Errorf("opcua write %s: %w", p.cfg.NodeID, err)
	}
	if len(resp.Results) == 0 {
		return fmt.Errorf("opcua write %s: empty result", p.cfg.NodeID)
	}
	if resp.Results[0] != ua.StatusOK {
		return fmt.Errorf("opcua write %s: %s", p.cfg.NodeID, resp.Results[0])
	}
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	client := p.client
	p.client = nil
	p.mu.Unlock()
	if client == nil {
		return nil
	}
	return closeClient(client)
}

// closeClient uses its own deadline so an expired connect context still
// lets the session and channel be torn down.
func closeClient(client *opcua.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Close(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func writeRequest(nodeID *ua.NodeID, s *domain.Sample) *ua.WriteRequest {
	return &ua.WriteRequest{
		NodesToWrite: []*ua.WriteValue{
			{
				NodeID:      nodeID,
				AttributeID: ua.AttributeIDValue,
				Value: &ua.DataValue{
					EncodingMask:    ua.DataValueValue | ua.DataValueSourceTimestamp,
					Value:           ua.MustVariant(s.ReadingMC),
					SourceTimestamp: s.Timestamp,
				},
			},
		},
	}
}

func (p *Publisher) buildClientOptions() []opcua.Option {
	opts := []opcua.Option{
		opcua.SecurityModeString(normalizeSecurityMode(p.cfg.SecurityMode)),
		opcua.SecurityPolicy(normalizeSecurityPolicy(p.cfg.SecurityPolicy)),
		opcua.ApplicationName(p.cfg.ApplicationName),
		opcua.AutoReconnect(true),
	}

	if p.cfg.Username != "" {
		opts = append(opts, opcua.AuthUsername(p.cfg.Username, p.cfg.Password))
	} else {
		opts = append(opts, opcua.AuthAnonymous())
	}
	return opts
}

func normalizeSecurityMode(mode string) string {
	switch strings.ToLower(mode) {
	case "sign":
		return "Sign"
	case "signandencrypt", "signencrypt", "sign_and_encrypt", "sign+encrypt":
		return "SignAndEncrypt"
	default:
		return "None"
	}
}

func normalizeSecurityPolicy(policy string) string {
	if policy == "" {
		return "None"
	}
	return policy
}

var _ ports.Sink = (*Publisher)(nil)
