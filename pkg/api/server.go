package api

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Merlicne/k8s-manager/pkg/api/handlers"
	"github.com/Merlicne/k8s-manager/pkg/k8s"
	"github.com/Merlicne/k8s-manager/pkg/metrics"
	"github.com/Merlicne/k8s-manager/pkg/portforward"
)

// Server wires the HTTP surface to the cluster client factory, the
// port-forward manager, and the metrics registry. It mirrors the shape
// of the console's own server type: one struct owning every
// long-lived dependency, constructed once at startup.
type Server struct {
	app     *fiber.App
	cfg     Config
	factory *k8s.ClusterClientFactory
	pf      *portforward.Manager
	store   *portforward.AuditStore
}

// NewServer builds the Fiber app and registers every route from
// the resolver and port-forward subsystems. It does not start
// listening; call Start for that.
func NewServer(cfg Config) (*Server, error) {
	factory, err := k8s.NewClusterClientFactory(cfg.KubeconfigPath)
	if err != nil {
		return nil, err
	}
	if err := factory.WatchConfig(); err != nil {
		log.Printf("api: kubeconfig watch disabled: %v", err)
	}

	store, err := portforward.NewAuditStore(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	pf := portforward.NewManager(store)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(metrics.Middleware())

	s := &Server{app: app, cfg: cfg, factory: factory, pf: pf, store: store}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	h := handlers.New(s.factory, s.pf)

	s.app.Get("/health", h.Health)
	s.app.Get("/metrics", metrics.Handler())

	api := s.app.Group("/api")
	api.Get("/contexts", h.ListContexts)
	api.Get("/:context/resources/:kind", h.ListResources)
	api.Get("/:context/resources/:kind/:name", h.GetResource)
	api.Get("/:context/resources/:kind/:name/graph", h.GetResourceGraph)

	api.Post("/port-forward", h.StartPortForward)
	api.Get("/port-forward", h.ListPortForwards)
	api.Delete("/port-forward/:local_port", h.StopPortForward)
}

// Start begins listening; it blocks until the server stops.
func (s *Server) Start() error {
	return s.app.Listen(":" + s.cfg.Port)
}

// Shutdown gracefully drains in-flight requests, stops the kubeconfig
// watcher, and closes the port-forward audit store.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.factory.StopWatching()
	s.pf.StopAll()
	if err := s.store.Close(); err != nil {
		log.Printf("api: closing audit store: %v", err)
	}
	return s.app.ShutdownWithContext(ctx)
}
