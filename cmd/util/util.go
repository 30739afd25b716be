package util

import (
	"fmt"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/serializer"
	"github.com/ValentinKolb/asyncsock/rpc/transport"
	"github.com/ValentinKolb/asyncsock/rpc/transport/quic"
	"github.com/ValentinKolb/asyncsock/rpc/transport/tcp"
	"github.com/ValentinKolb/asyncsock/rpc/transport/unix"
	"github.com/ValentinKolb/asyncsock/rpc/transport/ws"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and configures viper to read ASYNCSOCK_*
// environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("asyncsock")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Flags
// --------------------------------------------------------------------------

// setupSocketFlags adds the socket and TLS flags shared by both roles
func setupSocketFlags(cmd *cobra.Command) {
	key := "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the write buffer of the socket (in KB, ignored for quic, ws uses it for its message buffers)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 512, WrapString("The size of the read buffer of the socket (in KB, ignored for quic, ws uses it for its message buffers)"))

	key = "transport-max-frame"
	cmd.PersistentFlags().Uint32(key, 0, WrapString("The maximum size of one frame in KB, 0 uses the default of the transport"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval (in seconds, only for tcp)"))

	// a linger of 0 would reset connections on close, so 0 leaves the os default
	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, 0, WrapString("The linger time (in seconds, only for tcp, 0 keeps the os default)"))

	key = "tls-cert"
	cmd.PersistentFlags().String(key, "", WrapString("Path to the PEM certificate (required by the quic server)"))

	key = "tls-key"
	cmd.PersistentFlags().String(key, "", WrapString("Path to the PEM private key (required by the quic server)"))

	key = "tls-ca"
	cmd.PersistentFlags().String(key, "", WrapString("Path to a PEM CA bundle used to verify the peer"))

	key = "tls-insecure"
	cmd.PersistentFlags().Bool(key, false, WrapString("Skip verification of the server certificate (quic client only)"))
}

// SetupRPCClientFlags adds the connection flags of the initiator role
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds for dialing and waiting for responses"))

	key = "endpoint"
	cmd.PersistentFlags().String(key, "localhost:8080", WrapString("The address of the asyncsock server (e.g. localhost:8080, /tmp/asyncsock.sock, ...)"))

	key = "max-handlers"
	cmd.PersistentFlags().Int(key, 0, WrapString("Maximum number of concurrently running handlers for requests sent by the server, 0 means unbounded"))

	setupSocketFlags(cmd)
}

// SetupRPCServerFlags adds the listen flags of the acceptor role
func SetupRPCServerFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int64(key, 5, WrapString("The write timeout per frame in seconds, 0 disables it"))

	key = "endpoint"
	cmd.PersistentFlags().String(key, "0.0.0.0:8080", WrapString("The address on which the server will listen (e.g. 0.0.0.0:8080, /tmp/asyncsock.sock, ...)"))

	key = "max-handlers"
	cmd.PersistentFlags().Int(key, 0, WrapString("Maximum number of concurrently running handlers, 0 means unbounded"))

	key = "keep-pending"
	cmd.PersistentFlags().Bool(key, false, WrapString("Keep requests pending when the peer they were sent to disconnects"))

	key = "metrics-endpoint"
	cmd.PersistentFlags().String(key, "", WrapString("Address of the prometheus metrics endpoint (e.g. :9090), empty disables it"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	setupSocketFlags(cmd)
}

// --------------------------------------------------------------------------
// Config getters
// --------------------------------------------------------------------------

func getSocketConf() common.SocketConf {
	return common.SocketConf{
		WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
		ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
	}
}

func getTCPConf() common.TCPConf {
	return common.TCPConf{
		TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
		TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
	}
}

func getTLSConf() common.TLSConf {
	return common.TLSConf{
		CertFile:           viper.GetString("tls-cert"),
		KeyFile:            viper.GetString("tls-key"),
		CAFile:             viper.GetString("tls-ca"),
		InsecureSkipVerify: viper.GetBool("tls-insecure"),
	}
}

// GetClientConfig reads the client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		TimeoutSecond:         viper.GetInt("timeout"),
		MaxConcurrentHandlers: viper.GetInt("max-handlers"),
		Transport: common.ClientTransportConfig{
			Endpoint:     viper.GetString("endpoint"),
			MaxFrameSize: viper.GetUint32("transport-max-frame") * 1024,
			SocketConf:   getSocketConf(),
			TCPConf:      getTCPConf(),
			TLSConf:      getTLSConf(),
		},
	}
}

// GetServerConfig reads the server configuration from viper
func GetServerConfig() *common.ServerConfig {
	return &common.ServerConfig{
		TimeoutSecond:           viper.GetInt64("timeout"),
		MaxConcurrentHandlers:   viper.GetInt("max-handlers"),
		KeepPendingOnDisconnect: viper.GetBool("keep-pending"),
		MetricsEndpoint:         viper.GetString("metrics-endpoint"),
		LogLevel:                viper.GetString("log-level"),
		Transport: common.ServerTransportConfig{
			Endpoint:     viper.GetString("endpoint"),
			MaxFrameSize: viper.GetUint32("transport-max-frame") * 1024,
			SocketConf:   getSocketConf(),
			TCPConf:      getTCPConf(),
			TLSConf:      getTLSConf(),
		},
	}
}

// --------------------------------------------------------------------------
// Factories
// --------------------------------------------------------------------------

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	switch viper.GetString("serializer") {
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "gob":
		return serializer.NewGOBSerializer(), nil
	case "binary":
		return serializer.NewBinarySerializer(), nil
	case "proto":
		return serializer.NewProtoSerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

// GetClientTransport creates the client transport based on configuration
func GetClientTransport() (transport.IClientTransport, error) {
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewTCPClientTransport(), nil
	case "unix":
		return unix.NewUnixClientTransport(), nil
	case "quic":
		return quic.NewQUICClientTransport(), nil
	case "ws":
		return ws.NewWSClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetServerTransport creates the server transport based on configuration
func GetServerTransport() (transport.IServerTransport, error) {
	switch viper.GetString("transport") {
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	case "quic":
		return quic.NewQUICServerTransport(), nil
	case "ws":
		return ws.NewWSServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}
