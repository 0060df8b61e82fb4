package cli

import (
	envparse "github.com/caarlos0/env/v11"

	"github.com/codex-k8s/chartctl/internal/logging"
)

// baseEnv defines root CLI defaults sourced from CHARTCTL_* env vars.
type baseEnv struct {
	// TargetManifest is the manifest name from CHARTCTL_TARGET_MANIFEST.
	TargetManifest string `env:"CHARTCTL_TARGET_MANIFEST"`
	// Kubeconfig is the kubeconfig path from CHARTCTL_KUBECONFIG.
	Kubeconfig string `env:"CHARTCTL_KUBECONFIG"`
	// KubeContext is the context name from CHARTCTL_KUBE_CONTEXT.
	KubeContext string `env:"CHARTCTL_KUBE_CONTEXT"`
	// LogLevel is the logging level from CHARTCTL_LOG_LEVEL.
	LogLevel string `env:"CHARTCTL_LOG_LEVEL"`
}

// deployEnv describes deployment tuning passed via env.
type deployEnv struct {
	// Concurrency bounds active charts from CHARTCTL_CONCURRENCY.
	Concurrency int `env:"CHARTCTL_CONCURRENCY"`
	// Values is a k=v,k2=v2 override list from CHARTCTL_VALUES.
	Values string `env:"CHARTCTL_VALUES"`
	// ValuesFile is a YAML values path from CHARTCTL_VALUES_FILE.
	ValuesFile string `env:"CHARTCTL_VALUES_FILE"`
	// EnvFiles lists .env-style override file paths from CHARTCTL_ENV_FILE.
	EnvFiles []string `env:"CHARTCTL_ENV_FILE"`
}

// applyEnvDefaults fills root options from CHARTCTL_* env vars.
// Flags still override whatever the environment provides.
func applyEnvDefaults(opts *Options) {
	var base baseEnv
	if err := envparse.Parse(&base); err != nil {
		return
	}
	if base.TargetManifest != "" {
		opts.TargetManifest = base.TargetManifest
	}
	if base.Kubeconfig != "" {
		opts.Kubeconfig = base.Kubeconfig
	}
	if base.KubeContext != "" {
		opts.KubeContext = base.KubeContext
	}
	if base.LogLevel != "" {
		opts.LogLevel = logging.ParseLevel(base.LogLevel)
	}
}

// parseDeployEnv reads deployment tuning from CHARTCTL_* env vars.
func parseDeployEnv() deployEnv {
	var d deployEnv
	_ = envparse.Parse(&d)
	return d
}
