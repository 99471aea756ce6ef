package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/giantswarm/deployctl/internal/dispatch"
)

// runRequest dispatches req, prints notices to stderr and the result to
// stdout. Any warning or error notice makes the command fail.
func runRequest(cmd *cobra.Command, req dispatch.Request) error {
	env, err := loadEnvironment(cmd)
	if err != nil {
		return err
	}

	result := env.dispatcher(nil).Dispatch(cmd.Context(), req)
	printNotices(cmd.ErrOrStderr(), result.Notices)

	if err := writeOutput(cmd.OutOrStdout(), env.output, result); err != nil {
		return err
	}
	if result.Failed() {
		return fmt.Errorf("%s finished with %d warning(s)", req.Action, len(result.Notices.Warnings()))
	}
	return nil
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <label>",
		Short: "List deployments matching a label in every cluster",
		Long: `List Deployments across all clusters of the fleet.

The label is mapped to a selector: "all" selects every Helm release,
labels starting with "prod" or "uat" select a release, anything else
selects an app. Clusters without matches are reported on stderr.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, dispatch.Request{
				Action: dispatch.ActionGet,
				Label:  args[0],
			})
		},
	}
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <context> <app> <deployment>",
		Short: "Show pods, template and ConfigMap of one deployment",
		Long: `Show the pods selected by app=<app>, the pod template of the Deployment,
its ConfigMap and the path of the exported manifest.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, dispatch.Request{
				Action:     dispatch.ActionGetPodInfo,
				Context:    args[0],
				App:        args[1],
				Deployment: args[2],
			})
		},
	}
}

// newScaleCmd builds restart, start and stop, which share their arguments.
func newScaleCmd(action dispatch.Action, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <context> <deployment>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, dispatch.Request{
				Action:     action,
				Context:    args[0],
				Deployment: args[1],
			})
		},
	}
}

func newConfigMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configmap",
		Short: "Edit deployment ConfigMaps",
	}
	cmd.AddCommand(newConfigMapUpdateCmd())
	return cmd
}

func newConfigMapUpdateCmd() *cobra.Command {
	var (
		contextName string
		namespace   string
		name        string
		key         string
		value       string
		valueFile   string
		restart     string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Replace one ConfigMap key and optionally restart a deployment",
		Long: `Replace the value of one ConfigMap key with YAML text.

The value is parsed and re-serialized before it is applied; invalid YAML is
rejected without touching the cluster. With --restart the named deployment is
restarted after the ConfigMap was patched successfully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if valueFile != "" {
				data, err := os.ReadFile(valueFile)
				if err != nil {
					return fmt.Errorf("failed to read value file: %w", err)
				}
				value = string(data)
			}

			action := dispatch.ActionUpdateConfigMap
			if restart != "" {
				action = dispatch.ActionUpdateConfigMapRestart
			}

			return runRequest(cmd, dispatch.Request{
				Action:  action,
				Context: contextName,
				ConfigMap: &dispatch.ConfigMapEdit{
					Namespace:         namespace,
					Name:              name,
					Key:               key,
					Value:             value,
					RestartDeployment: restart,
				},
			})
		},
	}

	cmd.Flags().StringVar(&contextName, "context", "", "Cluster context holding the ConfigMap")
	cmd.Flags().StringVar(&namespace, "configmap-namespace", "", "Namespace of the ConfigMap (default: namespace of the context)")
	cmd.Flags().StringVar(&name, "name", "", "ConfigMap name")
	cmd.Flags().StringVar(&key, "key", "", "Key to replace")
	cmd.Flags().StringVar(&value, "value", "", "New value as YAML text")
	cmd.Flags().StringVar(&valueFile, "value-file", "", "Read the new value from a file")
	cmd.Flags().StringVar(&restart, "restart", "", "Deployment to restart after a successful update")

	_ = cmd.MarkFlagRequired("context")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("key")
	cmd.MarkFlagsMutuallyExclusive("value", "value-file")
	cmd.MarkFlagsOneRequired("value", "value-file")

	return cmd
}

func newContextsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contexts",
		Short: "List the cluster contexts and the namespace used for each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(cmd)
			if err != nil {
				return err
			}
			targets, err := env.dispatcher(nil).Contexts(cmd.Context())
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), env.output, targets)
		},
	}
}
