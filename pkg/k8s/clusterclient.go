package k8s

import (
	"context"
	"fmt"
	"sort"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"
)

// ClusterClient is the narrow surface the Resolver needs from a
// Kubernetes API connection: fetch one object, or list all objects of a
// kind, optionally filtered by label selector. Everything about auth,
// transport and context selection lives behind this interface so the
// resolver itself never imports client-go's connection machinery.
type ClusterClient interface {
	Get(ctx context.Context, kind ResourceKind, name, namespace string) (*unstructured.Unstructured, error)
	ListAll(ctx context.Context, kind ResourceKind, namespace string, selector map[string]string) ([]*unstructured.Unstructured, error)
}

// dynamicClusterClient implements ClusterClient over a single context's
// dynamic.Interface, resolved ahead of time by ClusterClientFactory.
type dynamicClusterClient struct {
	dyn dynamic.Interface
}

func newDynamicClusterClient(dyn dynamic.Interface) *dynamicClusterClient {
	return &dynamicClusterClient{dyn: dyn}
}

func (c *dynamicClusterClient) Get(ctx context.Context, kind ResourceKind, name, namespace string) (*unstructured.Unstructured, error) {
	gvr, err := gvrFor(kind)
	if err != nil {
		return nil, err
	}
	namespaced, err := isNamespaced(kind)
	if err != nil {
		return nil, err
	}
	var ri dynamic.ResourceInterface
	if namespaced {
		ri = c.dyn.Resource(gvr).Namespace(namespace)
	} else {
		ri = c.dyn.Resource(gvr)
	}
	obj, err := ri.Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, classifyErr(err)
	}
	return obj, nil
}

func (c *dynamicClusterClient) ListAll(ctx context.Context, kind ResourceKind, namespace string, selector map[string]string) ([]*unstructured.Unstructured, error) {
	gvr, err := gvrFor(kind)
	if err != nil {
		return nil, err
	}
	namespaced, err := isNamespaced(kind)
	if err != nil {
		return nil, err
	}
	var ri dynamic.ResourceInterface
	if namespaced {
		ri = c.dyn.Resource(gvr).Namespace(namespace)
	} else {
		ri = c.dyn.Resource(gvr)
	}
	opts := metav1.ListOptions{}
	if len(selector) > 0 {
		opts.LabelSelector = renderSelector(selector)
	}
	list, err := ri.List(ctx, opts)
	if err != nil {
		return nil, classifyErr(err)
	}
	out := make([]*unstructured.Unstructured, 0, len(list.Items))
	for i := range list.Items {
		out = append(out, &list.Items[i])
	}
	return out, nil
}

// classifyErr normalizes a client-go error into a stable taxonomy callers
// can branch on: NotFound and Forbidden are typed via apimachinery,
// everything else falls back to substring classification for
// transport-level failures that arrive as opaque errors from the
// underlying REST client.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}
	if apierrors.IsNotFound(err) {
		return fmt.Errorf("%w: %v", errNotFound, err)
	}
	if apierrors.IsForbidden(err) {
		return fmt.Errorf("%w: %v", errForbidden, err)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return fmt.Errorf("%w: %v", errTransport, err)
	case strings.Contains(msg, "certificate") || strings.Contains(msg, "x509"):
		return fmt.Errorf("%w: %v", errTransport, err)
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host"):
		return fmt.Errorf("%w: %v", errTransport, err)
	default:
		return err
	}
}

// renderSelector joins a label map into the "k=v,k=v" form the
// Kubernetes API expects, with keys sorted for a deterministic rendering
// (callers still compare selectors as sets, but a stable string avoids
// spurious diffs in logs and fixtures).
func renderSelector(sel map[string]string) string {
	keys := make([]string, 0, len(sel))
	for k := range sel {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+sel[k])
	}
	return strings.Join(parts, ",")
}
