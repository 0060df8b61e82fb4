// Package helm adapts the helm CLI to the engine's apply and inspection boundaries.
//
// Releases carry their desired-state fingerprint in a reserved values key,
// written on every install/upgrade. Inspection reads it back, which keeps
// the fingerprint a pure function of rendered content and effective values
// without relying on the package manager's own revision bookkeeping.
package helm

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/codex-k8s/chartctl/internal/diff"
	"github.com/codex-k8s/chartctl/internal/engine"
	"github.com/codex-k8s/chartctl/internal/release"
	"github.com/codex-k8s/chartctl/internal/source"
)

// FingerprintKey is the reserved values key carrying the desired-state
// fingerprint on installed releases.
const FingerprintKey = "chartctlFingerprint"

// runFunc executes an external command, returning stdout. Tests replace it.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Client wraps helm execution with optional kubeconfig and context selection.
type Client struct {
	// Kubeconfig is the kubeconfig path passed to helm, empty for default.
	Kubeconfig string
	// Context is the kubeconfig context passed to helm, empty for default.
	Context string

	logger *slog.Logger
	run    runFunc
}

// NewClient constructs a helm CLI wrapper.
func NewClient(kubeconfig, kubeContext string, logger *slog.Logger) *Client {
	c := &Client{
		Kubeconfig: kubeconfig,
		Context:    kubeContext,
		logger:     logger,
	}
	c.run = c.execHelm
	return c
}

var _ engine.Applier = (*Client)(nil)
var _ release.Inspector = (*Client)(nil)

// Inspect reports whether a release exists and, if so, its stored fingerprint.
func (c *Client) Inspect(ctx context.Context, releaseName, namespace string) (release.State, error) {
	out, err := c.run(ctx, "helm", c.globalArgs("get", "values", releaseName, "--namespace", namespace, "--output", "yaml")...)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return release.State{Present: false}, nil
		}
		return release.State{}, fmt.Errorf("helm get values %q: %w", releaseName, err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(out, &values); err != nil {
		return release.State{}, fmt.Errorf("decode values of release %q: %w", releaseName, err)
	}
	fingerprint, _ := values[FingerprintKey].(string)
	return release.State{Present: true, Fingerprint: fingerprint}, nil
}

// Install creates a new release from the rendered chart tree.
func (c *Client) Install(ctx context.Context, releaseName, namespace string, rendered source.Rendered, values map[string]any, opts engine.ApplyOptions) error {
	return c.apply(ctx, "install", releaseName, namespace, rendered, values, opts)
}

// Upgrade replaces an existing release with the rendered chart tree.
func (c *Client) Upgrade(ctx context.Context, releaseName, namespace string, rendered source.Rendered, values map[string]any, opts engine.ApplyOptions) error {
	return c.apply(ctx, "upgrade", releaseName, namespace, rendered, values, opts)
}

// apply runs a helm install/upgrade with a values file stamped with the
// desired-state fingerprint.
func (c *Client) apply(ctx context.Context, verb, releaseName, namespace string, rendered source.Rendered, values map[string]any, opts engine.ApplyOptions) error {
	fingerprint, err := diff.Fingerprint(rendered.Content, values)
	if err != nil {
		return fmt.Errorf("fingerprint chart for %q: %w", releaseName, err)
	}

	stamped := make(map[string]any, len(values)+1)
	for k, v := range values {
		stamped[k] = v
	}
	stamped[FingerprintKey] = fingerprint

	valuesFile, err := writeValuesFile(stamped)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(valuesFile) }()

	args := []string{verb, releaseName, rendered.Path,
		"--namespace", namespace, "--create-namespace",
		"--values", valuesFile,
	}
	if opts.NoHooks {
		args = append(args, "--no-hooks")
	}
	if opts.Wait {
		args = append(args, "--wait")
		if opts.Timeout > 0 {
			args = append(args, "--timeout", opts.Timeout.String())
		}
	}

	c.logger.Debug("running helm", "verb", verb, "release", releaseName, "namespace", namespace)
	if _, err := c.run(ctx, "helm", c.globalArgs(args...)...); err != nil {
		return fmt.Errorf("helm %s %q: %w", verb, releaseName, err)
	}
	return nil
}

// globalArgs appends kubeconfig/context selection to a helm argument list.
func (c *Client) globalArgs(args ...string) []string {
	if c.Context != "" {
		args = append(args, "--kube-context", c.Context)
	}
	if c.Kubeconfig != "" {
		args = append(args, "--kubeconfig", c.Kubeconfig)
	}
	return args
}

// execHelm runs the helm binary, returning stdout. Stderr is folded into
// the error so callers can match on messages like "release: not found".
func (c *Client) execHelm(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%s %s failed: %s", name, args[0], msg)
	}
	return stdout.Bytes(), nil
}

// writeValuesFile persists a values mapping to a temporary YAML file.
func writeValuesFile(values map[string]any) (string, error) {
	f, err := os.CreateTemp("", "chartctl-values-*.yaml")
	if err != nil {
		return "", fmt.Errorf("create values file: %w", err)
	}

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(values); err != nil {
		_ = enc.Close()
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("encode values file: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("finalize values file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close values file: %w", err)
	}
	return f.Name(), nil
}
