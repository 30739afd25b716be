package engine

import (
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/hashicorp/go-metrics"
)

// Config holds the settings of one Engine
type Config struct {
	// Name identifies the engine in logs and metrics
	Name string

	// MaxConcurrentHandlers bounds the number of handlers running at the same
	// time. When the limit is reached, reading from the sockets pauses until a
	// handler returns. 0 means unbounded.
	MaxConcurrentHandlers int

	// KeepPendingOnDisconnect leaves requests pending when the peer they were
	// sent to disconnects. By default they fail with common.ErrPeerDisconnected.
	KeepPendingOnDisconnect bool

	// MetricSink receives the engine metrics, a blackhole sink is used if nil
	MetricSink metrics.MetricSink

	// MetricLabels are added to every metric emitted by the engine
	MetricLabels []metrics.Label
}

// ConfigFromServer derives the engine settings of the acceptor role
func ConfigFromServer(conf common.ServerConfig) Config {
	return Config{
		Name:                    "server",
		MaxConcurrentHandlers:   conf.MaxConcurrentHandlers,
		KeepPendingOnDisconnect: conf.KeepPendingOnDisconnect,
	}
}

// ConfigFromClient derives the engine settings of the initiator role
func ConfigFromClient(conf common.ClientConfig) Config {
	return Config{
		Name:                  "client",
		MaxConcurrentHandlers: conf.MaxConcurrentHandlers,
	}
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "engine"
	}
	if c.MetricSink == nil {
		c.MetricSink = &metrics.BlackholeSink{}
	}
	if c.MaxConcurrentHandlers < 0 {
		c.MaxConcurrentHandlers = 0
	}
	return c
}
