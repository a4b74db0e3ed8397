package k8s

import (
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// buildTestGVRMap returns the GVR-to-ListKind map the fake dynamic
// client needs to know how to list each kind in the registry.
func buildTestGVRMap() map[schema.GroupVersionResource]string {
	return map[schema.GroupVersionResource]string{
		{Group: "", Version: "v1", Resource: "pods"}:                                       "PodList",
		{Group: "apps", Version: "v1", Resource: "deployments"}:                            "DeploymentList",
		{Group: "apps", Version: "v1", Resource: "replicasets"}:                             "ReplicaSetList",
		{Group: "apps", Version: "v1", Resource: "statefulsets"}:                            "StatefulSetList",
		{Group: "apps", Version: "v1", Resource: "daemonsets"}:                              "DaemonSetList",
		{Group: "batch", Version: "v1", Resource: "jobs"}:                                   "JobList",
		{Group: "batch", Version: "v1", Resource: "cronjobs"}:                               "CronJobList",
		{Group: "", Version: "v1", Resource: "services"}:                                    "ServiceList",
		{Group: "networking.k8s.io", Version: "v1", Resource: "ingresses"}:                  "IngressList",
		{Group: "", Version: "v1", Resource: "configmaps"}:                                  "ConfigMapList",
		{Group: "", Version: "v1", Resource: "secrets"}:                                     "SecretList",
		{Group: "", Version: "v1", Resource: "persistentvolumeclaims"}:                      "PersistentVolumeClaimList",
		{Group: "", Version: "v1", Resource: "persistentvolumes"}:                           "PersistentVolumeList",
		{Group: "storage.k8s.io", Version: "v1", Resource: "storageclasses"}:                "StorageClassList",
		{Group: "", Version: "v1", Resource: "namespaces"}:                                  "NamespaceList",
		{Group: "", Version: "v1", Resource: "serviceaccounts"}:                             "ServiceAccountList",
		{Group: "rbac.authorization.k8s.io", Version: "v1", Resource: "roles"}:              "RoleList",
		{Group: "rbac.authorization.k8s.io", Version: "v1", Resource: "rolebindings"}:       "RoleBindingList",
		{Group: "rbac.authorization.k8s.io", Version: "v1", Resource: "clusterroles"}:       "ClusterRoleList",
		{Group: "rbac.authorization.k8s.io", Version: "v1", Resource: "clusterrolebindings"}: "ClusterRoleBindingList",
	}
}
