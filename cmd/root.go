package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/giantswarm/deployctl/internal/config"
	"github.com/giantswarm/deployctl/internal/dispatch"
	"github.com/giantswarm/deployctl/internal/instrumentation"
	"github.com/giantswarm/deployctl/internal/k8s"
	"github.com/giantswarm/deployctl/internal/logging"
)

// rootCmd represents the base command for the deployctl application.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deployctl",
		Short: "Inspect and operate deployments across Kubernetes clusters",
		Long: `deployctl treats every context of a kubeconfig as one fleet of Kubernetes
clusters. It lists Deployments across all clusters by label, shows pod details
for a single Deployment, and restarts, starts or stops Deployments or edits
their ConfigMaps in one cluster.

The same operations are exposed to Model Context Protocol clients with
'deployctl serve'.`,
		// Errors are printed by cobra; usage on every failed request is noise.
		SilenceUsage: true,
	}

	config.AddFlags(cmd.PersistentFlags())
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging, including client-go output")
	cmd.PersistentFlags().StringP("output", "o", outputJSON, "Output format: json or yaml")

	cmd.AddCommand(
		newVersionCmd(),
		newSelfUpdateCmd(),
		newServeCmd(),
		newGetCmd(),
		newInfoCmd(),
		newScaleCmd(dispatch.ActionRestart, "restart", "Restart a deployment by deleting its pods"),
		newScaleCmd(dispatch.ActionStart, "start", "Scale a deployment to its stored replica count"),
		newScaleCmd(dispatch.ActionStop, "stop", "Scale a deployment to zero replicas"),
		newConfigMapCmd(),
		newContextsCmd(),
	)
	return cmd
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "deployctl version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newClientFactory builds the per-context client factory. Tests replace it
// with a factory handing out fake clientsets.
var newClientFactory = func(cfg config.Config, logger *slog.Logger) k8s.ClientFactory {
	return k8s.NewClientFactory(cfg, logger)
}

// environment is what every command needs: the loaded configuration, the
// process logger and the chosen output format.
type environment struct {
	cfg    config.Config
	logger *slog.Logger
	output string
}

// loadEnvironment builds the configuration from flags, environment and
// config file, and sets up slog and klog.
func loadEnvironment(cmd *cobra.Command) (*environment, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, err
	}

	debug, _ := cmd.Flags().GetBool("debug")
	level := cfg.SlogLevel()
	if debug {
		level = slog.LevelDebug
	}
	logger := logging.NewLogger(cmd.ErrOrStderr(), level, cfg.LogFormat)
	logging.SetupKlog(logger, debug)
	slog.SetDefault(logger)

	output, _ := cmd.Flags().GetString("output")
	if err := validateOutput(output); err != nil {
		return nil, err
	}

	return &environment{cfg: cfg, logger: logger, output: output}, nil
}

// dispatcher wires a Dispatcher for this process. metrics may be nil.
func (e *environment) dispatcher(metrics *instrumentation.Metrics) *dispatch.Dispatcher {
	return dispatch.NewDispatcher(e.cfg,
		k8s.NewContextResolver(e.cfg, e.logger),
		newClientFactory(e.cfg, e.logger),
		metrics,
		e.logger)
}
