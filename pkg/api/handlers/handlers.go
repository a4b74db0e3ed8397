// Package handlers implements the HTTP surface of the resource graph
// resolver: health, context discovery, resource listing/fetching, graph
// resolution, and port-forward lifecycle management.
package handlers

import (
	"github.com/Merlicne/k8s-manager/pkg/k8s"
	"github.com/Merlicne/k8s-manager/pkg/portforward"
)

// Handlers holds the dependencies every route needs: a way to resolve a
// ClusterClient per context, and the port-forward manager.
type Handlers struct {
	factory *k8s.ClusterClientFactory
	pf      *portforward.Manager
}

func New(factory *k8s.ClusterClientFactory, pf *portforward.Manager) *Handlers {
	return &Handlers{factory: factory, pf: pf}
}
