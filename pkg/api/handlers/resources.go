package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Merlicne/k8s-manager/pkg/k8s"
	"github.com/Merlicne/k8s-manager/pkg/metrics"
)

// ListResources lists every object of a kind in a namespace (or
// cluster-wide for cluster-scoped kinds, or across all namespaces when
// the namespace query param is omitted for a namespaced kind).
func (h *Handlers) ListResources(c *fiber.Ctx) error {
	kind, err := k8s.ParseKind(c.Params("kind"))
	if err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}
	client, err := h.factory.ClientFor(c.Params("context"))
	if err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}
	objs, err := client.ListAll(c.Context(), kind, c.Query("namespace"), nil)
	if err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(objs)
}

// GetResource fetches a single object by kind/name/namespace.
func (h *Handlers) GetResource(c *fiber.Ctx) error {
	kind, err := k8s.ParseKind(c.Params("kind"))
	if err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}
	client, err := h.factory.ClientFor(c.Params("context"))
	if err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}
	obj, err := client.Get(c.Context(), kind, c.Params("name"), c.Query("namespace"))
	if err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(obj)
}

// GetResourceGraph resolves the dependency graph rooted at one object.
func (h *Handlers) GetResourceGraph(c *fiber.Ctx) error {
	kind, err := k8s.ParseKind(c.Params("kind"))
	if err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}
	client, err := h.factory.ClientFor(c.Params("context"))
	if err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}
	graph, err := k8s.ResolveGraph(c.Context(), client, kind, c.Params("name"), c.Query("namespace"))
	metrics.ObserveResolve(string(kind), len(graph.Nodes), err)
	if err != nil {
		return c.JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(graph)
}
