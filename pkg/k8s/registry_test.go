package k8s

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindFromString(t *testing.T) {
	cases := []struct {
		in   string
		want ResourceKind
	}{
		{"Pod", KindPod},
		{"pod", KindPod},
		{"pods", KindPod},
		{"PODS", KindPod},
		{"Deployment", KindDeployment},
		{"deployments", KindDeployment},
		{"StorageClass", KindStorageClass},
		{"storageclasses", KindStorageClass},
	}
	for _, tc := range cases {
		got, err := kindFromString(tc.in)
		assert.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
}

func TestKindFromStringUnknown(t *testing.T) {
	_, err := kindFromString("Widget")
	assert.Error(t, err)
}

func TestGVRForKnownKinds(t *testing.T) {
	for kind := range registry {
		gvr, err := gvrFor(kind)
		assert.NoError(t, err)
		assert.NotEmpty(t, gvr.Resource)
		assert.NotEmpty(t, gvr.Version)
	}
}

func TestIsNamespacedClusterScopedKinds(t *testing.T) {
	clusterScoped := []ResourceKind{
		KindPersistentVolume, KindStorageClass, KindNamespace,
		KindClusterRole, KindClusterRoleBinding,
	}
	for _, kind := range clusterScoped {
		ns, err := isNamespaced(kind)
		assert.NoError(t, err)
		assert.False(t, ns, "%s should be cluster-scoped", kind)
	}
}

func TestIsNamespacedNamespacedKinds(t *testing.T) {
	namespaced := []ResourceKind{
		KindPod, KindDeployment, KindReplicaSet, KindService,
		KindConfigMap, KindSecret, KindPersistentVolumeClaim,
	}
	for _, kind := range namespaced {
		ns, err := isNamespaced(kind)
		assert.NoError(t, err)
		assert.True(t, ns, "%s should be namespaced", kind)
	}
}

func TestAllKindsMatchesRegistry(t *testing.T) {
	assert.Len(t, allKinds(), len(registry))
}
