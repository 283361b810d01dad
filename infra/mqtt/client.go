// Package mqtt announces finished schedules on an MQTT broker so other
// services can react to them.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/gcal-scheduler/core/history"
	"github.com/kilianp07/gcal-scheduler/core/logger"
	coremon "github.com/kilianp07/gcal-scheduler/core/monitoring"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Enabled     bool            `json:"enabled"`
	Broker      string          `json:"broker"`
	ClientID    string          `json:"client_id"`
	Username    string          `json:"username"`
	Password    string          `json:"password"`
	TopicPrefix string          `json:"topic_prefix"`
	UseTLS      bool            `json:"use_tls"`
	ClientCert  string          `json:"client_cert"`
	ClientKey   string          `json:"client_key"`
	CABundle    string          `json:"ca_bundle"`
	QoS         map[string]byte `json:"qos"`
	LWTTopic    string          `json:"lwt_topic"`
	LWTPayload  string          `json:"lwt_payload"`
	LWTQoS      byte            `json:"lwt_qos"`
	LWTRetain   bool            `json:"lwt_retain"`
	MaxRetries  int             `json:"max_retries"`
	BackoffMS   int             `json:"backoff_ms"`
	TLSConfig   *tls.Config     `json:"-"`
}

// SetDefaults fills in the topic prefix and a unique client id.
func (c *Config) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "scheduler"
	}
	c.TopicPrefix = strings.TrimSuffix(c.TopicPrefix, "/")
	if c.ClientID == "" {
		c.ClientID = "gcal-scheduler-" + uuid.NewString()[:8]
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the broker address when announcements are enabled.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return errors.New("mqtt broker is required when enabled")
	}
	return nil
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Announcer publishes run outcomes. The latest successful schedule is kept
// retained on <prefix>/schedule; every run outcome goes to <prefix>/status.
type Announcer struct {
	cli        pahoClient
	prefix     string
	qos        byte
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

// NewAnnouncer connects to the broker.
func NewAnnouncer(cfg Config, log logger.Logger) (*Announcer, error) {
	cfg.SetDefaults()
	if log == nil {
		log = logger.Nop{}
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.OnConnect = func(paho.Client) { log.Infof("MQTT connected") }
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	return &Announcer{
		cli:        c,
		prefix:     cfg.TopicPrefix,
		qos:        cfg.QoS["schedule"],
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        log,
	}, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
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

type statusMessage struct {
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Announce publishes rec. Only successful runs replace the retained schedule.
func (a *Announcer) Announce(rec history.RunRecord) error {
	if rec.Status == "ok" {
		payload, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := a.publish(a.prefix+"/schedule", true, payload); err != nil {
			coremon.CaptureException(err, map[string]string{"module": "mqtt", "run_id": rec.ID})
			return err
		}
	}
	payload, err := json.Marshal(statusMessage{RunID: rec.ID, Status: rec.Status, Reason: rec.Reason, Timestamp: rec.Timestamp})
	if err != nil {
		return err
	}
	if err := a.publish(a.prefix+"/status", false, payload); err != nil {
		coremon.CaptureException(err, map[string]string{"module": "mqtt", "run_id": rec.ID})
		return err
	}
	return nil
}

func (a *Announcer) publish(topic string, retained bool, payload []byte) error {
	var publishErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		token := a.cli.Publish(topic, a.qos, retained, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			a.log.Infof("published %d bytes to %s", len(payload), topic)
			return nil
		}
		a.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < a.maxRetries {
			time.Sleep(a.backoff * time.Duration(1<<attempt))
		}
	}
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

// Disconnect gracefully closes the MQTT connection.
func (a *Announcer) Disconnect() {
	if a.cli != nil && a.cli.IsConnected() {
		a.cli.Disconnect(250)
	}
}
