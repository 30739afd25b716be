package common

import (
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Transport configuration structs
// --------------------------------------------------------------------------

// SocketConf holds socket buffer settings shared by stream based transports
type SocketConf struct {
	WriteBufferSize int
	ReadBufferSize  int
}

// TCPConf holds TCP specific settings
type TCPConf struct {
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// TLSConf holds the TLS material for transports that require it (quic)
type TLSConf struct {
	CertFile           string
	KeyFile            string
	CAFile             string
	InsecureSkipVerify bool
}

// ServerTransportConfig groups all transport settings of the acceptor role
type ServerTransportConfig struct {
	Endpoint     string
	MaxFrameSize uint32
	SocketConf
	TCPConf
	TLSConf
}

// ClientTransportConfig groups all transport settings of the initiator role
type ClientTransportConfig struct {
	Endpoint     string
	MaxFrameSize uint32
	SocketConf
	TCPConf
	TLSConf
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of the acceptor role
type ServerConfig struct {
	Transport ServerTransportConfig

	// write deadline per frame, 0 disables it
	TimeoutSecond int64

	// maximum concurrently running handlers per engine, 0 means unbounded
	MaxConcurrentHandlers int

	// keep pending requests when their peer disconnects (instead of failing them)
	KeepPendingOnDisconnect bool

	// address of the optional prometheus endpoint
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// Server settings
	addSection("RPC Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Max Frame Size", formatBytes(c.Transport.MaxFrameSize))
	addField("Max Handlers", formatLimit(c.MaxConcurrentHandlers))
	addField("Keep On Disconnect", strconv.FormatBool(c.KeepPendingOnDisconnect))

	// Socket settings
	addSection("Socket")
	addField("Write Buffer", strconv.Itoa(c.Transport.WriteBufferSize))
	addField("Read Buffer", strconv.Itoa(c.Transport.ReadBufferSize))
	addField("TCP No Delay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("TCP Keep Alive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.Transport.TCPLingerSec))

	if c.Transport.CertFile != "" {
		addSection("TLS")
		addField("Certificate", c.Transport.CertFile)
		addField("Key", c.Transport.KeyFile)
	}

	// Observability
	addSection("Observability")
	addField("Log Level", c.LogLevel)
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	} else {
		addField("Metrics Endpoint", "disabled")
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds all configuration parameters of the initiator role
type ClientConfig struct {
	Transport ClientTransportConfig

	// dial timeout and write deadline per frame, 0 disables them
	TimeoutSecond int

	// maximum concurrently running handlers for requests sent by the server
	MaxConcurrentHandlers int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Max Frame Size", formatBytes(c.Transport.MaxFrameSize))
	addField("Max Handlers", formatLimit(c.MaxConcurrentHandlers))

	// Socket settings
	addSection("Socket")
	addField("Write Buffer", strconv.Itoa(c.Transport.WriteBufferSize))
	addField("Read Buffer", strconv.Itoa(c.Transport.ReadBufferSize))
	addField("TCP No Delay", strconv.FormatBool(c.Transport.TCPNoDelay))

	if c.Transport.CAFile != "" || c.Transport.InsecureSkipVerify {
		addSection("TLS")
		addField("CA", c.Transport.CAFile)
		addField("Skip Verify", strconv.FormatBool(c.Transport.InsecureSkipVerify))
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func formatBytes(n uint32) string {
	if n == 0 {
		return "default"
	}
	if n%(1024*1024) == 0 {
		return fmt.Sprintf("%d MB", n/(1024*1024))
	}
	if n%1024 == 0 {
		return fmt.Sprintf("%d KB", n/1024)
	}
	return fmt.Sprintf("%d B", n)
}

func formatLimit(n int) string {
	if n <= 0 {
		return "unbounded"
	}
	return strconv.Itoa(n)
}
