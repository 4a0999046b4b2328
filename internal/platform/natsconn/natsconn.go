// Package natsconn provides a shared NATS connection factory with
// configurable reconnect behaviour and fail-fast semantics, plus the
// JetStream stream that carries social events.
package natsconn

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yond5413/pentagram/internal/platform/config"
)

// Options configures the NATS connection behaviour.
// Zero values fall back to env vars or built-in defaults.
type Options struct {
	URL           string
	Name          string
	MaxReconnects int           // default from NATS_MAX_RECONNECTS or 5
	ReconnectWait time.Duration // default from NATS_RECONNECT_WAIT or 2s
}

// Connect establishes a NATS connection with the configured retry policy.
// On failure after all retries it returns an error so the caller can fail-fast.
func Connect(opts Options) (*nats.Conn, error) {
	opts = opts.withDefaults()
	nc, err := nats.Connect(opts.URL, opts.natsOptions()...)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s (max_reconnects=%d, wait=%s): %w",
			opts.URL, opts.MaxReconnects, opts.ReconnectWait, err)
	}
	return nc, nil
}

func (o Options) withDefaults() Options {
	if o.URL == "" {
		o.URL = strings.TrimSpace(os.Getenv("NATS_URL"))
		if o.URL == "" {
			o.URL = "nats://nats:4222"
		}
	}
	if o.MaxReconnects == 0 {
		o.MaxReconnects = config.EnvInt("NATS_MAX_RECONNECTS", 5)
	}
	if o.ReconnectWait == 0 {
		o.ReconnectWait = config.EnvDuration("NATS_RECONNECT_WAIT", 2*time.Second)
	}
	return o
}

func (o Options) natsOptions() []nats.Option {
	out := []nats.Option{
		nats.MaxReconnects(o.MaxReconnects),
		nats.ReconnectWait(o.ReconnectWait),
		nats.RetryOnFailedConnect(false),
	}
	if o.Name != "" {
		out = append(out, nats.Name(o.Name))
	}
	return out
}

// StreamConfig describes a JetStream stream owned by a service.
type StreamConfig struct {
	Name     string
	Subjects []string
	MaxAge   time.Duration
}

// EnsureStream returns a JetStream context after creating the stream when it
// does not exist yet. An existing stream is left untouched.
func EnsureStream(nc *nats.Conn, sc StreamConfig) (nats.JetStreamContext, error) {
	if nc == nil || nc.IsClosed() {
		return nil, fmt.Errorf("stream %s: %w", sc.Name, nats.ErrConnectionClosed)
	}
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if _, err := js.StreamInfo(sc.Name); err == nil {
		return js, nil
	} else if !errors.Is(err, nats.ErrStreamNotFound) {
		return nil, fmt.Errorf("stream info %s: %w", sc.Name, err)
	}
	if _, err := js.AddStream(sc.streamConfig()); err != nil {
		return nil, fmt.Errorf("add stream %s: %w", sc.Name, err)
	}
	return js, nil
}

// streamConfig fills defaults: a 24h MaxAge and file storage.
func (sc StreamConfig) streamConfig() *nats.StreamConfig {
	maxAge := sc.MaxAge
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &nats.StreamConfig{
		Name:     sc.Name,
		Subjects: sc.Subjects,
		MaxAge:   maxAge,
		Storage:  nats.FileStorage,
	}
}
