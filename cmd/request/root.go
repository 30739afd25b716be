package request

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ValentinKolb/asyncsock/cmd/util"
	"github.com/ValentinKolb/asyncsock/rpc/client"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/engine"
	"github.com/spf13/cobra"
	"time"
)

var (
	rpcClient *client.RPCClient

	// RequestCmd sends a single request and prints its outcome
	RequestCmd = &cobra.Command{
		Use:   "request [type] [json]",
		Short: "Send one request to an asyncsock server",
		Long: `Send one request of the given type to an asyncsock server and print the response.
The optional second argument is the JSON payload of the request (e.g. '{"ms": 100}').
A failure reported by the server is printed with its message and status code.`,
		Args:              cobra.RangeArgs(1, 2),
		PersistentPreRunE: setupClient,
		PersistentPostRun: closeClient,
		RunE:              runRequest,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common RPC flags
	util.SetupRPCClientFlags(RequestCmd)
	RequestCmd.Flags().Bool("raw", false, util.WrapString("Print the response content as received instead of indenting it"))
}

// setupClient connects the client used by the request and perf commands
func setupClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config := util.GetClientConfig()

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetClientTransport()
	if err != nil {
		return err
	}

	engineCfg := engine.ConfigFromClient(*config)
	rpcClient, err = client.Dial(*config, t, s, engineCfg)
	return err
}

func closeClient(*cobra.Command, []string) {
	if rpcClient != nil {
		_ = rpcClient.Close()
	}
}

func runRequest(cmd *cobra.Command, args []string) error {
	var payload any
	if len(args) == 2 {
		raw := json.RawMessage(args[1])
		if !json.Valid(raw) {
			return fmt.Errorf("payload is not valid JSON: %s", args[1])
		}
		payload = raw
	}

	ctx, cancel := requestContext()
	defer cancel()

	start := time.Now()
	f, err := rpcClient.Request(args[0], payload)
	if err != nil {
		return err
	}
	res, err := f.Await(ctx)
	elapsed := time.Since(start)

	var remote *common.RemoteError
	if errors.As(err, &remote) {
		fmt.Printf("error (status %d): %s\n", remote.StatusCode(), remote.Message)
		if remote.Stack != "" {
			fmt.Println(remote.Stack)
		}
		return fmt.Errorf("request failed after %s", elapsed)
	}
	if err != nil {
		return err
	}

	raw, _ := cmd.Flags().GetBool("raw")
	fmt.Println(formatContent(res.Content, raw))
	fmt.Printf("(%s in %s)\n", res.ID, elapsed)
	return nil
}

// requestContext bounds waiting for a response by the configured timeout
func requestContext() (context.Context, context.CancelFunc) {
	timeout := util.GetClientConfig().TimeoutSecond
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
}

// formatContent indents JSON content unless raw is set
func formatContent(content json.RawMessage, raw bool) string {
	if len(content) == 0 {
		return "null"
	}
	if raw {
		return string(content)
	}
	var v any
	if err := json.Unmarshal(content, &v); err != nil {
		return string(content)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(content)
	}
	return string(out)
}
