package k8s

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/runtime/schema"
)

// ResourceKind is the closed set of Kubernetes kinds this service
// understands. Anything outside this table is rejected at the API
// boundary rather than passed through to the dynamic client.
type ResourceKind string

const (
	KindPod                   ResourceKind = "Pod"
	KindDeployment            ResourceKind = "Deployment"
	KindReplicaSet            ResourceKind = "ReplicaSet"
	KindStatefulSet           ResourceKind = "StatefulSet"
	KindDaemonSet             ResourceKind = "DaemonSet"
	KindJob                   ResourceKind = "Job"
	KindCronJob               ResourceKind = "CronJob"
	KindService               ResourceKind = "Service"
	KindIngress               ResourceKind = "Ingress"
	KindConfigMap             ResourceKind = "ConfigMap"
	KindSecret                ResourceKind = "Secret"
	KindPersistentVolumeClaim ResourceKind = "PersistentVolumeClaim"
	KindPersistentVolume      ResourceKind = "PersistentVolume"
	KindStorageClass          ResourceKind = "StorageClass"
	KindNamespace             ResourceKind = "Namespace"
	KindServiceAccount        ResourceKind = "ServiceAccount"
	KindRole                  ResourceKind = "Role"
	KindRoleBinding           ResourceKind = "RoleBinding"
	KindClusterRole           ResourceKind = "ClusterRole"
	KindClusterRoleBinding    ResourceKind = "ClusterRoleBinding"
)

// apiResource describes how a ResourceKind maps onto the Kubernetes API:
// its GroupVersionResource and whether it is namespace-scoped.
type apiResource struct {
	gvr        schema.GroupVersionResource
	namespaced bool
}

// registry is the single source of truth for every kind this service can
// resolve. It is intentionally closed: adding a kind means adding a row
// here, not teaching the resolver a new code path.
var registry = map[ResourceKind]apiResource{
	KindPod:                   {schema.GroupVersionResource{Group: "", Version: "v1", Resource: "pods"}, true},
	KindDeployment:            {schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"}, true},
	KindReplicaSet:            {schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "replicasets"}, true},
	KindStatefulSet:           {schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "statefulsets"}, true},
	KindDaemonSet:             {schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "daemonsets"}, true},
	KindJob:                   {schema.GroupVersionResource{Group: "batch", Version: "v1", Resource: "jobs"}, true},
	KindCronJob:               {schema.GroupVersionResource{Group: "batch", Version: "v1", Resource: "cronjobs"}, true},
	KindService:               {schema.GroupVersionResource{Group: "", Version: "v1", Resource: "services"}, true},
	KindIngress:               {schema.GroupVersionResource{Group: "networking.k8s.io", Version: "v1", Resource: "ingresses"}, true},
	KindConfigMap:             {schema.GroupVersionResource{Group: "", Version: "v1", Resource: "configmaps"}, true},
	KindSecret:                {schema.GroupVersionResource{Group: "", Version: "v1", Resource: "secrets"}, true},
	KindPersistentVolumeClaim: {schema.GroupVersionResource{Group: "", Version: "v1", Resource: "persistentvolumeclaims"}, true},
	KindPersistentVolume:      {schema.GroupVersionResource{Group: "", Version: "v1", Resource: "persistentvolumes"}, false},
	KindStorageClass:          {schema.GroupVersionResource{Group: "storage.k8s.io", Version: "v1", Resource: "storageclasses"}, false},
	KindNamespace:             {schema.GroupVersionResource{Group: "", Version: "v1", Resource: "namespaces"}, false},
	KindServiceAccount:        {schema.GroupVersionResource{Group: "", Version: "v1", Resource: "serviceaccounts"}, true},
	KindRole:                  {schema.GroupVersionResource{Group: "rbac.authorization.k8s.io", Version: "v1", Resource: "roles"}, true},
	KindRoleBinding:           {schema.GroupVersionResource{Group: "rbac.authorization.k8s.io", Version: "v1", Resource: "rolebindings"}, true},
	KindClusterRole:           {schema.GroupVersionResource{Group: "rbac.authorization.k8s.io", Version: "v1", Resource: "clusterroles"}, false},
	KindClusterRoleBinding:    {schema.GroupVersionResource{Group: "rbac.authorization.k8s.io", Version: "v1", Resource: "clusterrolebindings"}, false},
}

// ParseKind parses a user-supplied kind name into a known ResourceKind.
// It is the exported entry point callers outside this package (the HTTP
// handlers) use to validate a path parameter against the closed
// registry before calling ResolveGraph or ClusterClient.
func ParseKind(s string) (ResourceKind, error) {
	return kindFromString(s)
}

// kindFromString parses a user-supplied kind name, case-insensitively,
// into a known ResourceKind. It accepts both the canonical kind name
// ("Pod") and its lowercase plural ("pods") since both appear in the
// API surface (path segments use the latter).
func kindFromString(s string) (ResourceKind, error) {
	for kind := range registry {
		if strings.EqualFold(string(kind), s) {
			return kind, nil
		}
	}
	for kind, res := range registry {
		if strings.EqualFold(res.gvr.Resource, s) {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown resource kind %q", s)
}

// gvrFor returns the GroupVersionResource for a known kind.
func gvrFor(kind ResourceKind) (schema.GroupVersionResource, error) {
	res, ok := registry[kind]
	if !ok {
		return schema.GroupVersionResource{}, fmt.Errorf("unknown resource kind %q", kind)
	}
	return res.gvr, nil
}

// isNamespaced reports whether a known kind is namespace-scoped.
func isNamespaced(kind ResourceKind) (bool, error) {
	res, ok := registry[kind]
	if !ok {
		return false, fmt.Errorf("unknown resource kind %q", kind)
	}
	return res.namespaced, nil
}

// allKinds returns every registered kind, enumerating the closed set in
// map iteration order.
func allKinds() []ResourceKind {
	kinds := make([]ResourceKind, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	return kinds
}
