// Package kube provides low-level integration with Kubernetes for the action executor.
package kube

import (
	"context"
	"fmt"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/codex-k8s/chartctl/internal/actions"
)

// restartedAtAnnotation is patched into a daemonset's pod template to
// trigger a rolling restart, the same way kubectl rollout restart does.
const restartedAtAnnotation = "chartctl.codex-k8s.io/restartedAt"

// Client implements the action executor's resource selection and mutation
// against a Kubernetes cluster.
type Client struct {
	clientset kubernetes.Interface
	now       func() time.Time
}

// NewClient constructs a Client from a kubeconfig path and context name.
// Empty values fall back to the standard kubeconfig loading rules.
func NewClient(kubeconfig, kubeContext string) (*Client, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{}
	if kubeContext != "" {
		overrides.CurrentContext = kubeContext
	}

	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build kubernetes client: %w", err)
	}
	return NewClientFromClientset(clientset), nil
}

// NewClientFromClientset constructs a Client around an existing clientset.
// Tests use this with the fake clientset.
func NewClientFromClientset(clientset kubernetes.Interface) *Client {
	return &Client{
		clientset: clientset,
		now:       time.Now,
	}
}

// Find lists resources of the given kind matching the selector.
func (c *Client) Find(ctx context.Context, kind, namespace string, selector labels.Selector) ([]actions.Ref, error) {
	opts := metav1.ListOptions{LabelSelector: selector.String()}

	switch kind {
	case actions.KindDaemonSet:
		list, err := c.clientset.AppsV1().DaemonSets(namespace).List(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("list daemonsets in %q: %w", namespace, err)
		}
		refs := make([]actions.Ref, 0, len(list.Items))
		for _, item := range list.Items {
			refs = append(refs, actions.Ref{Kind: kind, Namespace: item.Namespace, Name: item.Name})
		}
		return refs, nil
	case actions.KindJob:
		list, err := c.clientset.BatchV1().Jobs(namespace).List(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("list jobs in %q: %w", namespace, err)
		}
		refs := make([]actions.Ref, 0, len(list.Items))
		for _, item := range list.Items {
			refs = append(refs, actions.Ref{Kind: kind, Namespace: item.Namespace, Name: item.Name})
		}
		return refs, nil
	default:
		return nil, fmt.Errorf("find: unknown resource kind %q", kind)
	}
}

// Restart patches each daemonset's pod template annotation to trigger a
// rolling restart.
func (c *Client) Restart(ctx context.Context, refs []actions.Ref) error {
	stamp := c.now().UTC().Format(time.RFC3339)
	patch := fmt.Sprintf(
		`{"spec":{"template":{"metadata":{"annotations":{%q:%q}}}}}`,
		restartedAtAnnotation, stamp,
	)

	for _, ref := range refs {
		if ref.Kind != actions.KindDaemonSet {
			return fmt.Errorf("restart: unsupported resource kind %q", ref.Kind)
		}
		_, err := c.clientset.AppsV1().DaemonSets(ref.Namespace).Patch(
			ctx, ref.Name, types.StrategicMergePatchType, []byte(patch), metav1.PatchOptions{})
		if err != nil {
			return fmt.Errorf("restart daemonset %s/%s: %w", ref.Namespace, ref.Name, err)
		}
	}
	return nil
}

// Delete removes each job with background propagation so dependent pods are
// cleaned up too. Jobs already gone are treated as deleted.
func (c *Client) Delete(ctx context.Context, refs []actions.Ref) error {
	propagation := metav1.DeletePropagationBackground
	opts := metav1.DeleteOptions{PropagationPolicy: &propagation}

	for _, ref := range refs {
		if ref.Kind != actions.KindJob {
			return fmt.Errorf("delete: unsupported resource kind %q", ref.Kind)
		}
		err := c.clientset.BatchV1().Jobs(ref.Namespace).Delete(ctx, ref.Name, opts)
		if err != nil && !apierrors.IsNotFound(err) {
			return fmt.Errorf("delete job %s/%s: %w", ref.Namespace, ref.Name, err)
		}
	}
	return nil
}
