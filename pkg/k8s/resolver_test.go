package k8s

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	dynamicfake "k8s.io/client-go/dynamic/fake"
)

func fakeClient(t *testing.T, objs ...runtime.Object) ClusterClient {
	t.Helper()
	scheme := runtime.NewScheme()
	dyn := dynamicfake.NewSimpleDynamicClientWithCustomListKinds(scheme, buildTestGVRMap(), objs...)
	return newDynamicClusterClient(dyn)
}

func obj(kind, namespace, name, uidStr string, labels map[string]string, spec map[string]interface{}) *unstructured.Unstructured {
	apiVersion, k := apiVersionKind(kind)
	o := &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": apiVersion,
		"kind":       k,
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": namespace,
			"uid":       uidStr,
		},
	}}
	if labels != nil {
		o.SetLabels(labels)
	}
	if spec != nil {
		o.Object["spec"] = spec
	}
	return o
}

func apiVersionKind(kind string) (string, string) {
	switch ResourceKind(kind) {
	case KindDeployment, KindReplicaSet, KindStatefulSet, KindDaemonSet:
		return "apps/v1", kind
	case KindJob, KindCronJob:
		return "batch/v1", kind
	case KindIngress:
		return "networking.k8s.io/v1", kind
	case KindStorageClass:
		return "storage.k8s.io/v1", kind
	case KindRole, KindRoleBinding, KindClusterRole, KindClusterRoleBinding:
		return "rbac.authorization.k8s.io/v1", kind
	default:
		return "v1", kind
	}
}

func withOwner(o *unstructured.Unstructured, ownerKind, ownerName string, ownerUID types.UID) *unstructured.Unstructured {
	o.SetOwnerReferences([]metav1.OwnerReference{
		{Kind: ownerKind, Name: ownerName, UID: ownerUID, APIVersion: "v1"},
	})
	return o
}

func TestResolveGraph_RootFetchFailure(t *testing.T) {
	client := fakeClient(t)
	_, err := ResolveGraph(context.Background(), client, KindPod, "missing", "default")
	require.Error(t, err)
	var rf *RootFetchFailure
	assert.ErrorAs(t, err, &rf)
}

func TestResolveGraph_RootNodeIsFirst(t *testing.T) {
	pod := obj("Pod", "default", "web-1", "pod-uid", nil, nil)
	client := fakeClient(t, pod)
	g, err := ResolveGraph(context.Background(), client, KindPod, "web-1", "default")
	require.NoError(t, err)
	require.NotEmpty(t, g.Nodes)
	assert.Equal(t, "pod-uid", g.Nodes[0].ID)
	assert.Equal(t, "Pod", g.Nodes[0].ResourceType)
}

func TestResolveGraph_OwnerReference(t *testing.T) {
	rs := obj("ReplicaSet", "default", "web-rs", "rs-uid", nil, nil)
	pod := withOwner(obj("Pod", "default", "web-1", "pod-uid", nil, nil), "ReplicaSet", "web-rs", "rs-uid")
	client := fakeClient(t, rs, pod)

	g, err := ResolveGraph(context.Background(), client, KindPod, "web-1", "default")
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "rs-uid", g.Edges[0].Source)
	assert.Equal(t, "pod-uid", g.Edges[0].Target)
	assert.Equal(t, "owner", g.Edges[0].Label)
}

func TestResolveGraph_ServiceToPods(t *testing.T) {
	svc := obj("Service", "default", "web", "svc-uid", nil, map[string]interface{}{
		"selector": map[string]interface{}{"app": "web"},
	})
	pod1 := obj("Pod", "default", "web-1", "pod-1", map[string]string{"app": "web"}, nil)
	pod2 := obj("Pod", "default", "web-2", "pod-2", map[string]string{"app": "other"}, nil)
	client := fakeClient(t, svc, pod1, pod2)

	g, err := ResolveGraph(context.Background(), client, KindService, "web", "default")
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 2) // svc + matching pod only
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "svc-uid", g.Edges[0].Source)
	assert.Equal(t, "pod-1", g.Edges[0].Target)
	assert.Equal(t, "selects", g.Edges[0].Label)
}

func TestResolveGraph_ServiceWithNoSelectorMatchesNothing(t *testing.T) {
	svc := obj("Service", "default", "headless", "svc-uid", nil, map[string]interface{}{})
	pod := obj("Pod", "default", "web-1", "pod-1", map[string]string{"app": "web"}, nil)
	client := fakeClient(t, svc, pod)

	g, err := ResolveGraph(context.Background(), client, KindService, "headless", "default")
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)
}

func TestResolveGraph_PodSelectedByServices(t *testing.T) {
	pod := obj("Pod", "default", "web-1", "pod-1", map[string]string{"app": "web", "tier": "backend"}, nil)
	svcMatch := obj("Service", "default", "web", "svc-1", nil, map[string]interface{}{
		"selector": map[string]interface{}{"app": "web"},
	})
	svcNoMatch := obj("Service", "default", "other", "svc-2", nil, map[string]interface{}{
		"selector": map[string]interface{}{"app": "different"},
	})
	svcEmptySelector := obj("Service", "default", "external", "svc-3", nil, map[string]interface{}{})
	client := fakeClient(t, pod, svcMatch, svcNoMatch, svcEmptySelector)

	g, err := ResolveGraph(context.Background(), client, KindPod, "web-1", "default")
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 2) // pod + svcMatch
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "svc-1", g.Edges[0].Source)
	assert.Equal(t, "pod-1", g.Edges[0].Target)
	assert.Equal(t, "selects", g.Edges[0].Label)
}

func TestResolveGraph_PodConfigAndEnvRefs(t *testing.T) {
	cm := obj("ConfigMap", "default", "app-config", "cm-uid", nil, nil)
	secret := obj("Secret", "default", "app-secret", "secret-uid", nil, nil)
	pvc := obj("PersistentVolumeClaim", "default", "data", "pvc-uid", nil, nil)

	pod := obj("Pod", "default", "web-1", "pod-uid", nil, map[string]interface{}{
		"volumes": []interface{}{
			map[string]interface{}{
				"name":                  "data-vol",
				"persistentVolumeClaim": map[string]interface{}{"claimName": "data"},
			},
		},
		"containers": []interface{}{
			map[string]interface{}{
				"name": "app",
				"env": []interface{}{
					map[string]interface{}{
						"name": "DB_HOST",
						"valueFrom": map[string]interface{}{
							"configMapKeyRef": map[string]interface{}{"name": "app-config"},
						},
					},
					map[string]interface{}{
						"name": "DB_PASS",
						"valueFrom": map[string]interface{}{
							"secretKeyRef": map[string]interface{}{"name": "app-secret"},
						},
					},
				},
			},
		},
	})

	client := fakeClient(t, cm, secret, pvc, pod)
	g, err := ResolveGraph(context.Background(), client, KindPod, "web-1", "default")
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 4)
	assert.Len(t, g.Edges, 3)
	for _, e := range g.Edges {
		assert.Equal(t, "pod-uid", e.Source)
		assert.Equal(t, "uses", e.Label)
	}
}

func TestResolveGraph_PVCChain(t *testing.T) {
	sc := obj("StorageClass", "", "fast", "sc-uid", nil, nil)
	pv := obj("PersistentVolume", "", "pv-1", "pv-uid", nil, nil)
	pvc := obj("PersistentVolumeClaim", "default", "data", "pvc-uid", nil, map[string]interface{}{
		"storageClassName": "fast",
		"volumeName":       "pv-1",
	})
	client := fakeClient(t, sc, pv, pvc)

	g, err := ResolveGraph(context.Background(), client, KindPersistentVolumeClaim, "data", "default")
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 2)
	labels := map[string]int{}
	for _, e := range g.Edges {
		labels[e.Label]++
	}
	assert.Equal(t, 1, labels["uses"])  // pvc -> storageclass
	assert.Equal(t, 1, labels["bound"]) // pvc -> pv
}

func TestResolveGraph_PVToPVCReverse(t *testing.T) {
	pvc := obj("PersistentVolumeClaim", "default", "data", "pvc-uid", nil, nil)
	pv := obj("PersistentVolume", "", "pv-1", "pv-uid", nil, map[string]interface{}{
		"claimRef": map[string]interface{}{"name": "data", "namespace": "default"},
	})
	client := fakeClient(t, pvc, pv)

	g, err := ResolveGraph(context.Background(), client, KindPersistentVolume, "pv-1", "")
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "bound", g.Edges[0].Label)
	assert.Equal(t, "pv-uid", g.Edges[0].Source)
	assert.Equal(t, "pvc-uid", g.Edges[0].Target)
}

func TestResolveGraph_DeploymentToReplicaSetToPod(t *testing.T) {
	deploy := obj("Deployment", "default", "web", "deploy-uid", nil, nil)
	rs := withOwner(obj("ReplicaSet", "default", "web-abc", "rs-uid", nil, nil), "Deployment", "web", "deploy-uid")
	pod := withOwner(obj("Pod", "default", "web-abc-xyz", "pod-uid", nil, nil), "ReplicaSet", "web-abc", "rs-uid")
	client := fakeClient(t, deploy, rs, pod)

	g, err := ResolveGraph(context.Background(), client, KindDeployment, "web", "default")
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 2) // deploy + rs (pod is not reached, deployment only manages 1 hop)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "manages", g.Edges[0].Label)
	assert.Equal(t, "deploy-uid", g.Edges[0].Source)
	assert.Equal(t, "rs-uid", g.Edges[0].Target)
}

func TestResolveGraph_ReplicaSetToPods(t *testing.T) {
	rs := obj("ReplicaSet", "default", "web-abc", "rs-uid", nil, nil)
	pod1 := withOwner(obj("Pod", "default", "web-abc-1", "pod-1", nil, nil), "ReplicaSet", "web-abc", "rs-uid")
	pod2 := obj("Pod", "default", "unrelated", "pod-2", nil, nil)
	client := fakeClient(t, rs, pod1, pod2)

	g, err := ResolveGraph(context.Background(), client, KindReplicaSet, "web-abc", "default")
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "manages", g.Edges[0].Label)
	assert.Equal(t, "pod-1", g.Edges[0].Target)
}

func TestResolveGraph_ReverseConfigMapUsage(t *testing.T) {
	cm := obj("ConfigMap", "default", "shared-config", "cm-uid", nil, nil)
	podUsing := obj("Pod", "default", "consumer", "pod-uid", nil, map[string]interface{}{
		"volumes": []interface{}{
			map[string]interface{}{
				"name":      "cfg",
				"configMap": map[string]interface{}{"name": "shared-config"},
			},
		},
	})
	podNotUsing := obj("Pod", "default", "bystander", "pod-2", nil, nil)
	client := fakeClient(t, cm, podUsing, podNotUsing)

	g, err := ResolveGraph(context.Background(), client, KindConfigMap, "shared-config", "default")
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "pod-uid", g.Edges[0].Source)
	assert.Equal(t, "cm-uid", g.Edges[0].Target)
	assert.Equal(t, "uses", g.Edges[0].Label)
}

func TestResolveGraph_ReverseConfigMapUsageSkippedWithoutNamespace(t *testing.T) {
	// ConfigMap/Secret are always namespaced in practice; this exercises
	// the namespace-required guard itself using a synthetic empty namespace.
	cm := obj("ConfigMap", "", "cluster-scoped-ish", "cm-uid", nil, nil)
	client := fakeClient(t, cm)

	g, err := ResolveGraph(context.Background(), client, KindConfigMap, "cluster-scoped-ish", "")
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Edges)
}

func TestResolveGraph_ReverseStorageClassUsage(t *testing.T) {
	sc := obj("StorageClass", "", "fast", "sc-uid", nil, nil)
	pvcUsing := obj("PersistentVolumeClaim", "default", "data", "pvc-1", nil, map[string]interface{}{
		"storageClassName": "fast",
	})
	pvcOther := obj("PersistentVolumeClaim", "default", "other", "pvc-2", nil, map[string]interface{}{
		"storageClassName": "slow",
	})
	client := fakeClient(t, sc, pvcUsing, pvcOther)

	g, err := ResolveGraph(context.Background(), client, KindStorageClass, "fast", "")
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 2)
	require.Len(t, g.Edges, 1)
	assert.Equal(t, "pvc-1", g.Edges[0].Source)
	assert.Equal(t, "sc-uid", g.Edges[0].Target)
}

func TestSelectorSubset(t *testing.T) {
	labels := map[string]string{"app": "web", "tier": "backend"}
	assert.True(t, selectorSubset(map[string]string{"app": "web"}, labels))
	assert.True(t, selectorSubset(map[string]string{"app": "web", "tier": "backend"}, labels))
	assert.False(t, selectorSubset(map[string]string{"app": "other"}, labels))
	assert.False(t, selectorSubset(map[string]string{"app": "web", "missing": "x"}, labels))
	assert.False(t, selectorSubset(nil, labels))
}

func TestRenderSelectorSortsKeys(t *testing.T) {
	sel := map[string]string{"z": "1", "a": "2"}
	assert.Equal(t, "a=2,z=1", renderSelector(sel))
}
