package serve

import (
	"context"
	"errors"
	cmdUtil "github.com/ValentinKolb/asyncsock/cmd/util"
	"github.com/ValentinKolb/asyncsock/rpc/common"
	"github.com/ValentinKolb/asyncsock/rpc/engine"
	"github.com/ValentinKolb/asyncsock/rpc/server"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var (
	plog = logger.GetLogger(common.LoggerServer)

	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the asyncsock server",
		Long:    `Start the asyncsock server with the built-in handlers echo, ping, sleep, fail and forward. The configuration can be set via command line flags or environment variables. The format of the environment variables is ASYNCSOCK_<flag> (e.g. ASYNCSOCK_MAX_HANDLERS=64)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	cmdUtil.SetupRPCServerFlags(ServeCmd)
}

// processConfig reads the configuration from the command line flags and
// environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := cmdUtil.BindCommandFlags(cmd); err != nil {
		return err
	}
	serveCmdConfig = cmdUtil.GetServerConfig()

	if _, err := common.ParseLogLevel(serveCmdConfig.LogLevel); err != nil {
		return err
	}
	if viper.GetString("transport") == "quic" && (serveCmdConfig.Transport.CertFile == "" || serveCmdConfig.Transport.KeyFile == "") {
		return errors.New("the quic transport requires --tls-cert and --tls-key")
	}
	return nil
}

// run starts the asyncsock server
func run(_ *cobra.Command, _ []string) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	engineCfg := engine.ConfigFromServer(*serveCmdConfig)
	engineCfg.MetricLabels = append(engineCfg.MetricLabels, common.LabelTransport.M(viper.GetString("transport")))

	var metricsServer *http.Server
	if serveCmdConfig.MetricsEndpoint != "" {
		sink := newPrometheusSink()
		engineCfg.MetricSink = sink
		metricsServer = startMetricsServer(serveCmdConfig.MetricsEndpoint, sink)
	}

	serv, err := server.NewRPCServer(*serveCmdConfig, t, s, engineCfg)
	if err != nil {
		return err
	}

	if err := registerHandlers(serv.Engine()); err != nil {
		return err
	}

	// close the server on SIGINT / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		_ = serv.Close()
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}
	}()

	err = serv.Serve()
	stop()
	return err
}

// startMetricsServer serves the prometheus text format on /metrics
func startMetricsServer(endpoint string, sink *prometheusSink) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		sink.WritePrometheus(w)
	})

	srv := &http.Server{
		Addr:              endpoint,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		plog.Infof("Serving metrics on %s/metrics", endpoint)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			plog.Errorf("Metrics server failed: %v", err)
		}
	}()
	return srv
}
