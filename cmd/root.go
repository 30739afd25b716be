package cmd

import (
	"fmt"
	"github.com/ValentinKolb/asyncsock/cmd/request"
	"github.com/ValentinKolb/asyncsock/cmd/serve"
	"github.com/ValentinKolb/asyncsock/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "asyncsock",
		Short: "asynchronous request/response messaging over sockets",
		Long: fmt.Sprintf(`asyncsock (v%s)

Asynchronous request/response messaging on top of bidirectional sockets.
Both ends of a connection can send requests and answer them, responses are
correlated by request id and may arrive in any order.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of asyncsock",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("asyncsock v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(request.RequestCmd)
	RootCmd.AddCommand(request.PerfCmd)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("serializer to use (json, gob, binary, proto)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix, quic, ws)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
