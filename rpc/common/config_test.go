package common

import (
	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestServerConfigString(t *testing.T) {
	c := ServerConfig{
		Transport: ServerTransportConfig{
			Endpoint:     "0.0.0.0:8080",
			MaxFrameSize: 4 * 1024 * 1024,
			TLSConf:      TLSConf{CertFile: "cert.pem", KeyFile: "key.pem"},
		},
		TimeoutSecond: 5,
		LogLevel:      "debug",
	}
	s := c.String()
	require.Contains(t, s, "0.0.0.0:8080")
	require.Contains(t, s, "4 MB")
	require.Contains(t, s, "unbounded")
	require.Contains(t, s, "cert.pem")
	require.Contains(t, s, "disabled")
}

func TestClientConfigString(t *testing.T) {
	c := ClientConfig{
		Transport:             ClientTransportConfig{Endpoint: "/tmp/a.sock", MaxFrameSize: 1500},
		MaxConcurrentHandlers: 8,
	}
	s := c.String()
	require.Contains(t, s, "/tmp/a.sock")
	require.Contains(t, s, "1500 B")
	require.Contains(t, s, "8")
	require.NotContains(t, s, "TLS")
}

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"":        logger.INFO,
		"INFO":    logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	} {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ParseLogLevel("verbose")
	require.Error(t, err)
	require.Error(t, InitLoggers("verbose"))
}
