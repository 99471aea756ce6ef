// Package config holds the process-wide deployctl configuration.
//
// A single Config is built once at startup from defaults, an optional config
// file, DEPLOYCTL_* environment variables (a .env file is honored) and command
// line flags, then handed to every component constructor. Nothing in the
// rest of the code base reads global configuration state.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// NamespaceRule decides which namespace is used for a cluster context.
type NamespaceRule string

const (
	// NamespaceFromContext uses the context name as the namespace.
	NamespaceFromContext NamespaceRule = "context"

	// NamespaceFromKubeconfig uses the namespace field of the kubeconfig
	// context, falling back to the context name when it is empty.
	NamespaceFromKubeconfig NamespaceRule = "kubeconfig"

	// NamespaceFixed uses FixedNamespace for every context.
	NamespaceFixed NamespaceRule = "fixed"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "DEPLOYCTL"

// Default values.
const (
	DefaultQPS                = 20.0
	DefaultBurst              = 30
	DefaultRequestTimeout     = 30 * time.Second
	DefaultListTimeoutSeconds = 10
	DefaultClusterTimeout     = 15 * time.Second
	DefaultWorkers            = 4
	DefaultReplicasSuffix     = "-replicas"
	DefaultReplicasKey        = "replicas"
)

// Config is the explicit configuration object passed to all constructors.
type Config struct {
	// KubeconfigPath overrides the kubeconfig location. Empty means the
	// client-go default loading rules (KUBECONFIG, then ~/.kube/config).
	KubeconfigPath string `mapstructure:"kubeconfig"`

	// Contexts restricts the fleet to these context names when non-empty.
	Contexts []string `mapstructure:"contexts"`

	// NamespaceRule maps a context to its namespace.
	NamespaceRule  NamespaceRule `mapstructure:"namespace_rule"`
	FixedNamespace string        `mapstructure:"fixed_namespace"`

	// InsecureSkipTLSVerify disables server certificate verification for
	// every cluster. It must be set explicitly per environment.
	InsecureSkipTLSVerify bool `mapstructure:"insecure_skip_tls_verify"`

	// Client performance settings
	QPS            float32       `mapstructure:"qps"`
	Burst          int           `mapstructure:"burst"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// ListTimeoutSeconds is the server-side timeout requested on list calls.
	ListTimeoutSeconds int64 `mapstructure:"list_timeout_seconds"`

	// ClusterTimeout bounds all work done against one cluster in a fan-out.
	ClusterTimeout time.Duration `mapstructure:"cluster_timeout"`

	// Workers is the fan-out pool size.
	Workers int `mapstructure:"workers"`

	// ExportDir is the root directory for deployment exports.
	ExportDir string `mapstructure:"export_dir"`

	// Replica ConfigMap convention used by the start action.
	ReplicasConfigMapSuffix string `mapstructure:"replicas_configmap_suffix"`
	ReplicasKey             string `mapstructure:"replicas_key"`

	// Safety settings
	ReadOnly bool `mapstructure:"read_only"`
	DryRun   bool `mapstructure:"dry_run"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		NamespaceRule:           NamespaceFromContext,
		QPS:                     DefaultQPS,
		Burst:                   DefaultBurst,
		RequestTimeout:          DefaultRequestTimeout,
		ListTimeoutSeconds:      DefaultListTimeoutSeconds,
		ClusterTimeout:          DefaultClusterTimeout,
		Workers:                 DefaultWorkers,
		ExportDir:               os.TempDir(),
		ReplicasConfigMapSuffix: DefaultReplicasSuffix,
		ReplicasKey:             DefaultReplicasKey,
		LogLevel:                "info",
		LogFormat:               "text",
	}
}

// flagKeys maps configuration keys to the command line flags that set them.
var flagKeys = map[string]string{
	"kubeconfig":               "kubeconfig",
	"contexts":                 "contexts",
	"namespace_rule":           "namespace-rule",
	"fixed_namespace":          "namespace",
	"insecure_skip_tls_verify": "insecure-skip-tls-verify",
	"qps":                      "qps-limit",
	"burst":                    "burst-limit",
	"request_timeout":          "request-timeout",
	"list_timeout_seconds":     "list-timeout",
	"cluster_timeout":          "cluster-timeout",
	"workers":                  "workers",
	"export_dir":               "export-dir",
	"read_only":                "read-only",
	"dry_run":                  "dry-run",
	"log_level":                "log-level",
	"log_format":               "log-format",
}

// AddFlags registers the configuration flags on fs.
func AddFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "Path to a deployctl config file (yaml, json or toml)")
	fs.String("kubeconfig", "", "Path to the kubeconfig file (default: KUBECONFIG or ~/.kube/config)")
	fs.StringSlice("contexts", nil, "Restrict the fleet to these kubeconfig contexts")
	fs.String("namespace-rule", string(d.NamespaceRule), "How a context maps to a namespace: context, kubeconfig or fixed")
	fs.String("namespace", "", "Namespace used for every context when --namespace-rule=fixed")
	fs.Bool("insecure-skip-tls-verify", false, "Skip TLS verification of cluster API servers")
	fs.Float32("qps-limit", d.QPS, "QPS limit for Kubernetes API calls")
	fs.Int("burst-limit", d.Burst, "Burst limit for Kubernetes API calls")
	fs.Duration("request-timeout", d.RequestTimeout, "Timeout for a single Kubernetes API request")
	fs.Int64("list-timeout", d.ListTimeoutSeconds, "Server-side timeout in seconds requested for list calls")
	fs.Duration("cluster-timeout", d.ClusterTimeout, "Deadline for all calls against one cluster during a fleet query")
	fs.Int("workers", d.Workers, "Number of clusters queried concurrently")
	fs.String("export-dir", d.ExportDir, "Root directory for deployment exports")
	fs.Bool("read-only", false, "Refuse restart, start, stop and configmap updates")
	fs.Bool("dry-run", false, "Send mutating requests with dryRun=All")
	fs.String("log-level", d.LogLevel, "Log level: debug, info, warn or error")
	fs.String("log-format", d.LogFormat, "Log format: text or json")
}

// Load builds the Config from defaults, the optional config file, the
// environment and the flags in fs. fs may be nil.
func Load(fs *pflag.FlagSet) (Config, error) {
	// Load .env into the process environment; a missing file is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Debug("could not load .env file", "error", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for key, flag := range flagKeys {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("failed to bind flag %q: %w", flag, err)
				}
			}
		}

		if f := fs.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("failed to read config file %q: %w", f.Value.String(), err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg.KubeconfigPath = expandHome(cfg.KubeconfigPath)
	cfg.ExportDir = expandHome(cfg.ExportDir)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("kubeconfig", d.KubeconfigPath)
	v.SetDefault("contexts", []string{})
	v.SetDefault("namespace_rule", string(d.NamespaceRule))
	v.SetDefault("fixed_namespace", d.FixedNamespace)
	v.SetDefault("insecure_skip_tls_verify", d.InsecureSkipTLSVerify)
	v.SetDefault("qps", d.QPS)
	v.SetDefault("burst", d.Burst)
	v.SetDefault("request_timeout", d.RequestTimeout)
	v.SetDefault("list_timeout_seconds", d.ListTimeoutSeconds)
	v.SetDefault("cluster_timeout", d.ClusterTimeout)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("export_dir", d.ExportDir)
	v.SetDefault("replicas_configmap_suffix", d.ReplicasConfigMapSuffix)
	v.SetDefault("replicas_key", d.ReplicasKey)
	v.SetDefault("read_only", d.ReadOnly)
	v.SetDefault("dry_run", d.DryRun)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
}

// Validate checks the configuration for values the components cannot work with.
func (c Config) Validate() error {
	switch c.NamespaceRule {
	case NamespaceFromContext, NamespaceFromKubeconfig:
	case NamespaceFixed:
		if c.FixedNamespace == "" {
			return fmt.Errorf("namespace rule %q requires a namespace", c.NamespaceRule)
		}
	default:
		return fmt.Errorf("unknown namespace rule %q (want context, kubeconfig or fixed)", c.NamespaceRule)
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.ClusterTimeout <= 0 {
		return fmt.Errorf("cluster timeout must be positive, got %s", c.ClusterTimeout)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must not be negative, got %s", c.RequestTimeout)
	}
	if c.ListTimeoutSeconds < 0 {
		return fmt.Errorf("list timeout must not be negative, got %d", c.ListTimeoutSeconds)
	}
	if c.ExportDir == "" {
		return fmt.Errorf("export directory is required")
	}
	if c.ReplicasKey == "" {
		return fmt.Errorf("replicas key is required")
	}
	return nil
}

// ReplicasConfigMapName returns the ConfigMap holding the replica count a
// stopped deployment is started with.
func (c Config) ReplicasConfigMapName(deployment string) string {
	return deployment + c.ReplicasConfigMapSuffix
}

// SlogLevel converts LogLevel for slog handlers.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
