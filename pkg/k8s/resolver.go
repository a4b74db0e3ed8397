package k8s

import (
	"context"
	"log"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// ResolveGraph fetches the named resource and builds its dependency
// graph. The root fetch failing is fatal (RootFetchFailure); every other
// expansion rule fails in isolation and is swallowed.
func ResolveGraph(ctx context.Context, client ClusterClient, kind ResourceKind, name, namespace string) (Graph, error) {
	root, err := client.Get(ctx, kind, name, namespace)
	if err != nil {
		return Graph{}, &RootFetchFailure{Kind: kind, Name: name, Namespace: namespace, Err: err}
	}
	rootUID := uid(root)
	if rootUID == "" {
		return Graph{}, &RootFetchFailure{Kind: kind, Name: name, Namespace: namespace, Err: errNotFound}
	}

	b := newGraphBuilder()
	b.addNode(nodeFromObject(kind, root))

	rules := []func(){
		func() { ownerRefRule(ctx, client, b, root, rootUID, namespace) },
	}

	switch kind {
	case KindService:
		rules = append(rules, func() { serviceToPodsRule(ctx, client, b, root, rootUID, namespace) })
	case KindPod:
		rules = append(rules,
			func() { podSelectedByServicesRule(ctx, client, b, root, rootUID, namespace) },
			func() { podConfigStorageRefsRule(ctx, client, b, root, rootUID, namespace) },
		)
	case KindPersistentVolumeClaim:
		rules = append(rules,
			func() { pvcToStorageClassRule(ctx, client, b, root, rootUID) },
			func() { pvcToPVRule(ctx, client, b, root, rootUID) },
		)
		if namespace != "" {
			rules = append(rules, func() { reverseConfigSecretPVCUsageRule(ctx, client, b, KindPersistentVolumeClaim, name, rootUID, namespace) })
		}
	case KindPersistentVolume:
		rules = append(rules, func() { pvToPVCRule(ctx, client, b, root, rootUID) })
	case KindConfigMap, KindSecret:
		if namespace != "" {
			rules = append(rules, func() { reverseConfigSecretPVCUsageRule(ctx, client, b, kind, name, rootUID, namespace) })
		}
	case KindStorageClass:
		rules = append(rules, func() { reverseStorageClassUsageRule(ctx, client, b, name, rootUID) })
	case KindDeployment:
		rules = append(rules, func() { deploymentToReplicaSetsRule(ctx, client, b, rootUID, namespace) })
	case KindReplicaSet:
		rules = append(rules, func() { replicaSetToPodsRule(ctx, client, b, rootUID, namespace) })
	}

	fanOut(rules...)
	return b.build(), nil
}

func nodeFromObject(kind ResourceKind, obj *unstructured.Unstructured) Node {
	return Node{
		ID:           uid(obj),
		Label:        obj.GetName(),
		ResourceType: string(kind),
		Data:         obj.Object,
	}
}

// newEdgeID derives an edge's identity from the ordered pair of endpoint
// UIDs it connects, so the same relationship always produces the same ID.
func newEdgeID(source, target string) string {
	return source + "-" + target
}

func logRelationFailure(rule string, err error) {
	log.Printf("k8s: %s", (&RelationLookupFailure{Rule: rule, Err: err}).Error())
}

// --- Step 2: ownerReferences, upstream direction -----------------------

func ownerRefRule(ctx context.Context, client ClusterClient, b *graphBuilder, root *unstructured.Unstructured, rootUID, namespace string) {
	for _, ref := range root.GetOwnerReferences() {
		ownerKind, err := kindFromString(ref.Kind)
		if err != nil {
			continue // owner kind outside the closed registry: not an error, just not followed
		}
		ownerNamespaced, err := isNamespaced(ownerKind)
		if err != nil {
			continue
		}
		ownerNamespace := namespace
		if !ownerNamespaced {
			ownerNamespace = ""
		}
		ownerObj, err := client.Get(ctx, ownerKind, ref.Name, ownerNamespace)
		if err != nil {
			logRelationFailure("ownerReferences", err)
			continue
		}
		ownerUID := uid(ownerObj)
		if ownerUID == "" {
			continue // empty-uid secondary object: RelationLookupFailure-equivalent, skip
		}
		b.addNode(nodeFromObject(ownerKind, ownerObj))
		b.addEdge(Edge{ID: newEdgeID(ownerUID, rootUID), Source: ownerUID, Target: rootUID, Label: "owner"})
	}
}

// --- Step 3/4: Service <-> Pod selector matching ------------------------

func serviceToPodsRule(ctx context.Context, client ClusterClient, b *graphBuilder, root *unstructured.Unstructured, rootUID, namespace string) {
	selector := nestedStringMap(mapOf(root), "spec", "selector")
	if len(selector) == 0 {
		return
	}
	pods, err := client.ListAll(ctx, KindPod, namespace, selector)
	if err != nil {
		logRelationFailure("service->pods", err)
		return
	}
	for _, pod := range pods {
		pUID := uid(pod)
		if pUID == "" {
			continue
		}
		b.addNode(nodeFromObject(KindPod, pod))
		b.addEdge(Edge{ID: newEdgeID(rootUID, pUID), Source: rootUID, Target: pUID, Label: "selects"})
	}
}

func podSelectedByServicesRule(ctx context.Context, client ClusterClient, b *graphBuilder, root *unstructured.Unstructured, rootUID, namespace string) {
	podLabels := root.GetLabels()
	services, err := client.ListAll(ctx, KindService, namespace, nil)
	if err != nil {
		logRelationFailure("services->pod", err)
		return
	}
	for _, svc := range services {
		selector := nestedStringMap(mapOf(svc), "spec", "selector")
		if len(selector) == 0 || !selectorSubset(selector, podLabels) {
			continue
		}
		svcUID := uid(svc)
		if svcUID == "" {
			continue
		}
		b.addNode(nodeFromObject(KindService, svc))
		b.addEdge(Edge{ID: newEdgeID(svcUID, rootUID), Source: svcUID, Target: rootUID, Label: "selects"})
	}
}

func selectorSubset(selector, labels map[string]string) bool {
	if len(selector) == 0 {
		return false
	}
	for k, v := range selector {
		if labels[k] != v {
			return false
		}
	}
	return true
}

// --- Step 5: Pod config/storage references, downstream direction -------

func podConfigStorageRefsRule(ctx context.Context, client ClusterClient, b *graphBuilder, root *unstructured.Unstructured, rootUID, namespace string) {
	rm := mapOf(root)

	for _, v := range nestedSlice(rm, "spec", "volumes") {
		vm := asMap(v)
		if vm == nil {
			continue
		}
		if cm := asMap(vm["configMap"]); cm != nil {
			if name := stringField(cm, "name"); name != "" {
				addUsesRef(ctx, client, b, KindConfigMap, name, namespace, rootUID)
			}
		}
		if sec := asMap(vm["secret"]); sec != nil {
			if name := stringField(sec, "secretName"); name != "" {
				addUsesRef(ctx, client, b, KindSecret, name, namespace, rootUID)
			}
		}
		if pvc := asMap(vm["persistentVolumeClaim"]); pvc != nil {
			if name := stringField(pvc, "claimName"); name != "" {
				addUsesRef(ctx, client, b, KindPersistentVolumeClaim, name, namespace, rootUID)
			}
		}
	}

	for _, field := range []string{"containers", "initContainers"} {
		for _, c := range nestedSlice(rm, "spec", field) {
			cm := asMap(c)
			if cm == nil {
				continue
			}
			for _, e := range nestedSlice(cm, "env") {
				em := asMap(e)
				if em == nil {
					continue
				}
				valueFrom := asMap(em["valueFrom"])
				if valueFrom == nil {
					continue
				}
				if ref := asMap(valueFrom["configMapKeyRef"]); ref != nil {
					if name := stringField(ref, "name"); name != "" {
						addUsesRef(ctx, client, b, KindConfigMap, name, namespace, rootUID)
					}
				}
				if ref := asMap(valueFrom["secretKeyRef"]); ref != nil {
					if name := stringField(ref, "name"); name != "" {
						addUsesRef(ctx, client, b, KindSecret, name, namespace, rootUID)
					}
				}
			}
			for _, e := range nestedSlice(cm, "envFrom") {
				em := asMap(e)
				if em == nil {
					continue
				}
				if ref := asMap(em["configMapRef"]); ref != nil {
					if name := stringField(ref, "name"); name != "" {
						addUsesRef(ctx, client, b, KindConfigMap, name, namespace, rootUID)
					}
				}
				if ref := asMap(em["secretRef"]); ref != nil {
					if name := stringField(ref, "name"); name != "" {
						addUsesRef(ctx, client, b, KindSecret, name, namespace, rootUID)
					}
				}
			}
		}
	}
}

// addUsesRef fetches the named target, adds its node if unseen, and
// always adds a "uses" edge (root -> target) regardless of whether the
// node already existed — edges are never deduplicated.
func addUsesRef(ctx context.Context, client ClusterClient, b *graphBuilder, kind ResourceKind, name, namespace, rootUID string) {
	obj, err := client.Get(ctx, kind, name, namespace)
	if err != nil {
		logRelationFailure("pod-config-ref", err)
		return
	}
	targetUID := uid(obj)
	if targetUID == "" {
		return
	}
	b.addNode(nodeFromObject(kind, obj))
	b.addEdge(Edge{ID: newEdgeID(rootUID, targetUID), Source: rootUID, Target: targetUID, Label: "uses"})
}

// --- Step 6/7: PVC <-> StorageClass / PersistentVolume ------------------

func pvcToStorageClassRule(ctx context.Context, client ClusterClient, b *graphBuilder, root *unstructured.Unstructured, rootUID string) {
	name := nestedString(mapOf(root), "spec", "storageClassName")
	if name == "" {
		return
	}
	sc, err := client.Get(ctx, KindStorageClass, name, "")
	if err != nil {
		logRelationFailure("pvc->storageclass", err)
		return
	}
	scUID := uid(sc)
	if scUID == "" {
		return
	}
	b.addNode(nodeFromObject(KindStorageClass, sc))
	b.addEdge(Edge{ID: newEdgeID(rootUID, scUID), Source: rootUID, Target: scUID, Label: "uses"})
}

func pvcToPVRule(ctx context.Context, client ClusterClient, b *graphBuilder, root *unstructured.Unstructured, rootUID string) {
	name := nestedString(mapOf(root), "spec", "volumeName")
	if name == "" {
		return
	}
	pv, err := client.Get(ctx, KindPersistentVolume, name, "")
	if err != nil {
		logRelationFailure("pvc->pv", err)
		return
	}
	pvUID := uid(pv)
	if pvUID == "" {
		return
	}
	b.addNode(nodeFromObject(KindPersistentVolume, pv))
	b.addEdge(Edge{ID: newEdgeID(rootUID, pvUID), Source: rootUID, Target: pvUID, Label: "bound"})
}

// --- Step 8: PersistentVolume -> PersistentVolumeClaim ------------------

func pvToPVCRule(ctx context.Context, client ClusterClient, b *graphBuilder, root *unstructured.Unstructured, rootUID string) {
	specMap := asMap(mapOf(root)["spec"])
	if specMap == nil {
		return
	}
	claim := asMap(specMap["claimRef"])
	if claim == nil {
		return
	}
	name := stringField(claim, "name")
	ns := stringField(claim, "namespace")
	if name == "" || ns == "" {
		if name != "" || ns != "" {
			log.Printf("k8s: %s", (&MalformedReference{Rule: "pv->pvc", Detail: "claimRef missing name or namespace"}).Error())
		}
		return
	}
	pvc, err := client.Get(ctx, KindPersistentVolumeClaim, name, ns)
	if err != nil {
		logRelationFailure("pv->pvc", err)
		return
	}
	pvcUID := uid(pvc)
	if pvcUID == "" {
		return
	}
	b.addNode(nodeFromObject(KindPersistentVolumeClaim, pvc))
	b.addEdge(Edge{ID: newEdgeID(rootUID, pvcUID), Source: rootUID, Target: pvcUID, Label: "bound"})
}

// --- Reverse lookups: ConfigMap/Secret/PVC <- Pods (namespace required) -

func reverseConfigSecretPVCUsageRule(ctx context.Context, client ClusterClient, b *graphBuilder, rootKind ResourceKind, rootName, rootUID, namespace string) {
	pods, err := client.ListAll(ctx, KindPod, namespace, nil)
	if err != nil {
		logRelationFailure("reverse-config-secret-pvc", err)
		return
	}
	for _, pod := range pods {
		if !podUsesRef(pod, rootKind, rootName) {
			continue
		}
		podUID := uid(pod)
		if podUID == "" {
			continue
		}
		b.addNode(nodeFromObject(KindPod, pod))
		b.addEdge(Edge{ID: newEdgeID(podUID, rootUID), Source: podUID, Target: rootUID, Label: "uses"})
	}
}

func podUsesRef(pod *unstructured.Unstructured, kind ResourceKind, name string) bool {
	pm := mapOf(pod)

	for _, v := range nestedSlice(pm, "spec", "volumes") {
		vm := asMap(v)
		if vm == nil {
			continue
		}
		switch kind {
		case KindConfigMap:
			if cm := asMap(vm["configMap"]); cm != nil && stringField(cm, "name") == name {
				return true
			}
		case KindSecret:
			if sec := asMap(vm["secret"]); sec != nil && stringField(sec, "secretName") == name {
				return true
			}
		case KindPersistentVolumeClaim:
			if pvc := asMap(vm["persistentVolumeClaim"]); pvc != nil && stringField(pvc, "claimName") == name {
				return true
			}
		}
	}

	if kind == KindPersistentVolumeClaim {
		return false // env checks only apply to ConfigMap/Secret
	}

	for _, field := range []string{"containers", "initContainers"} {
		for _, c := range nestedSlice(pm, "spec", field) {
			cm := asMap(c)
			if cm == nil {
				continue
			}
			for _, e := range nestedSlice(cm, "env") {
				em := asMap(e)
				if em == nil {
					continue
				}
				valueFrom := asMap(em["valueFrom"])
				if valueFrom == nil {
					continue
				}
				if kind == KindConfigMap {
					if ref := asMap(valueFrom["configMapKeyRef"]); ref != nil && stringField(ref, "name") == name {
						return true
					}
				}
				if kind == KindSecret {
					if ref := asMap(valueFrom["secretKeyRef"]); ref != nil && stringField(ref, "name") == name {
						return true
					}
				}
			}
			for _, e := range nestedSlice(cm, "envFrom") {
				em := asMap(e)
				if em == nil {
					continue
				}
				if kind == KindConfigMap {
					if ref := asMap(em["configMapRef"]); ref != nil && stringField(ref, "name") == name {
						return true
					}
				}
				if kind == KindSecret {
					if ref := asMap(em["secretRef"]); ref != nil && stringField(ref, "name") == name {
						return true
					}
				}
			}
		}
	}
	return false
}

// --- Reverse lookup: StorageClass <- PersistentVolumeClaims (cluster-wide)

func reverseStorageClassUsageRule(ctx context.Context, client ClusterClient, b *graphBuilder, scName, rootUID string) {
	pvcs, err := client.ListAll(ctx, KindPersistentVolumeClaim, "", nil)
	if err != nil {
		logRelationFailure("reverse-storageclass", err)
		return
	}
	for _, pvc := range pvcs {
		if nestedString(mapOf(pvc), "spec", "storageClassName") != scName {
			continue
		}
		pvcUID := uid(pvc)
		if pvcUID == "" {
			continue
		}
		b.addNode(nodeFromObject(KindPersistentVolumeClaim, pvc))
		b.addEdge(Edge{ID: newEdgeID(pvcUID, rootUID), Source: pvcUID, Target: rootUID, Label: "uses"})
	}
}

// --- Step 9/10: Deployment -> ReplicaSet -> Pod ownership ---------------

func deploymentToReplicaSetsRule(ctx context.Context, client ClusterClient, b *graphBuilder, rootUID, namespace string) {
	rsList, err := client.ListAll(ctx, KindReplicaSet, namespace, nil)
	if err != nil {
		logRelationFailure("deployment->replicasets", err)
		return
	}
	for _, rs := range rsList {
		if !ownedByUID(rs, rootUID) {
			continue
		}
		rsUID := uid(rs)
		if rsUID == "" {
			continue
		}
		b.addNode(nodeFromObject(KindReplicaSet, rs))
		b.addEdge(Edge{ID: newEdgeID(rootUID, rsUID), Source: rootUID, Target: rsUID, Label: "manages"})
	}
}

func replicaSetToPodsRule(ctx context.Context, client ClusterClient, b *graphBuilder, rootUID, namespace string) {
	pods, err := client.ListAll(ctx, KindPod, namespace, nil)
	if err != nil {
		logRelationFailure("replicaset->pods", err)
		return
	}
	for _, pod := range pods {
		if !ownedByUID(pod, rootUID) {
			continue
		}
		podUID := uid(pod)
		if podUID == "" {
			continue
		}
		b.addNode(nodeFromObject(KindPod, pod))
		b.addEdge(Edge{ID: newEdgeID(rootUID, podUID), Source: rootUID, Target: podUID, Label: "manages"})
	}
}

func ownedByUID(obj *unstructured.Unstructured, ownerUID string) bool {
	for _, ref := range obj.GetOwnerReferences() {
		if string(ref.UID) == ownerUID {
			return true
		}
	}
	return false
}
