package kube

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	batchv1 "k8s.io/api/batch/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/codex-k8s/chartctl/internal/actions"
)

func daemonSet(namespace, name string, lbls map[string]string) *appsv1.DaemonSet {
	return &appsv1.DaemonSet{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name, Labels: lbls},
	}
}

func job(namespace, name string, lbls map[string]string) *batchv1.Job {
	return &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name, Labels: lbls},
	}
}

func TestFindByLabelSelector(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		daemonSet("blog", "agent", map[string]string{"app": "agent"}),
		daemonSet("blog", "other", map[string]string{"app": "other"}),
		job("blog", "blog-init", map[string]string{"app": "blog-init"}),
	)
	client := NewClientFromClientset(clientset)
	ctx := t.Context()

	refs, err := client.Find(ctx, actions.KindDaemonSet, "blog", labels.Set{"app": "agent"}.AsSelector())
	require.NoError(t, err)
	assert.Equal(t, []actions.Ref{{Kind: actions.KindDaemonSet, Namespace: "blog", Name: "agent"}}, refs)

	refs, err = client.Find(ctx, actions.KindJob, "blog", labels.Set{"app": "blog-init"}.AsSelector())
	require.NoError(t, err)
	assert.Equal(t, []actions.Ref{{Kind: actions.KindJob, Namespace: "blog", Name: "blog-init"}}, refs)

	refs, err = client.Find(ctx, actions.KindJob, "blog", labels.Set{"app": "absent"}.AsSelector())
	require.NoError(t, err)
	assert.Empty(t, refs)

	_, err = client.Find(ctx, "pod", "blog", labels.Everything())
	require.Error(t, err)
}

func TestRestartPatchesPodTemplate(t *testing.T) {
	clientset := fake.NewSimpleClientset(daemonSet("blog", "agent", map[string]string{"app": "agent"}))
	client := NewClientFromClientset(clientset)
	stamp := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	client.now = func() time.Time { return stamp }

	err := client.Restart(t.Context(), []actions.Ref{{Kind: actions.KindDaemonSet, Namespace: "blog", Name: "agent"}})
	require.NoError(t, err)

	got, err := clientset.AppsV1().DaemonSets("blog").Get(t.Context(), "agent", metav1.GetOptions{})
	require.NoError(t, err)
	assert.Equal(t, stamp.Format(time.RFC3339), got.Spec.Template.Annotations[restartedAtAnnotation])
}

func TestRestartRejectsNonDaemonSet(t *testing.T) {
	client := NewClientFromClientset(fake.NewSimpleClientset())

	err := client.Restart(t.Context(), []actions.Ref{{Kind: actions.KindJob, Namespace: "blog", Name: "j"}})
	require.Error(t, err)
}

func TestDeleteRemovesJobs(t *testing.T) {
	clientset := fake.NewSimpleClientset(job("blog", "blog-init", map[string]string{"app": "blog-init"}))
	client := NewClientFromClientset(clientset)

	err := client.Delete(t.Context(), []actions.Ref{{Kind: actions.KindJob, Namespace: "blog", Name: "blog-init"}})
	require.NoError(t, err)

	_, err = clientset.BatchV1().Jobs("blog").Get(t.Context(), "blog-init", metav1.GetOptions{})
	assert.True(t, apierrors.IsNotFound(err))
}

func TestDeleteToleratesMissingJob(t *testing.T) {
	client := NewClientFromClientset(fake.NewSimpleClientset())

	err := client.Delete(t.Context(), []actions.Ref{{Kind: actions.KindJob, Namespace: "blog", Name: "gone"}})
	require.NoError(t, err)
}
