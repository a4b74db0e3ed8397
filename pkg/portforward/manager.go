// Package portforward manages the lifecycle of local kubectl
// port-forward child processes spawned as detached os/exec children.
package portforward

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/google/uuid"
)

// StartRequest is the body of POST /api/port-forward. The forwarded
// resource is always a Service -- resource kind is not a request field.
type StartRequest struct {
	Context     string `json:"context"`
	Namespace   string `json:"namespace"`
	ServiceName string `json:"service_name"`
	ServicePort int    `json:"service_port"`
	LocalPort   int    `json:"local_port"`
}

// Info describes one running forward, returned to API callers.
type Info struct {
	ID          string `json:"id"`
	Context     string `json:"context"`
	Namespace   string `json:"namespace"`
	ServiceName string `json:"service_name"`
	ServicePort int    `json:"service_port"`
	LocalPort   int    `json:"local_port"`
	PID         int    `json:"pid"`
}

type forward struct {
	info   Info
	cancel context.CancelFunc
	cmd    *exec.Cmd
}

// Manager owns the set of active port-forwards, keyed by local port —
// the kernel only allows one process to bind a given local port at a
// time, so that is also the natural uniqueness key for a forward.
type Manager struct {
	mu       sync.Mutex
	forwards map[int]*forward
	store    *AuditStore
}

func NewManager(store *AuditStore) *Manager {
	return &Manager{forwards: make(map[int]*forward), store: store}
}

// Start rejects a request whose local port is already in use, then
// spawns `kubectl port-forward --context=... --namespace=...
// type/name local:remote` as a detached child process.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*Info, error) {
	m.mu.Lock()
	if _, exists := m.forwards[req.LocalPort]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("local port %d is already in use", req.LocalPort)
	}
	m.mu.Unlock()

	fwCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(fwCtx, "kubectl", "port-forward",
		"--context="+req.Context,
		"--namespace="+req.Namespace,
		fmt.Sprintf("service/%s", req.ServiceName),
		fmt.Sprintf("%d:%d", req.LocalPort, req.ServicePort),
	)
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("starting kubectl port-forward: %w", err)
	}

	info := Info{
		ID:          uuid.New().String(),
		Context:     req.Context,
		Namespace:   req.Namespace,
		ServiceName: req.ServiceName,
		ServicePort: req.ServicePort,
		LocalPort:   req.LocalPort,
		PID:         cmd.Process.Pid,
	}

	m.mu.Lock()
	m.forwards[req.LocalPort] = &forward{info: info, cancel: cancel, cmd: cmd}
	m.mu.Unlock()

	m.store.RecordStart(ctx, info, "service", req.ServiceName)

	go func() {
		_ = cmd.Wait()
		m.mu.Lock()
		delete(m.forwards, req.LocalPort)
		m.mu.Unlock()
	}()

	return &info, nil
}

// Stop kills the process bound to localPort and removes it from the
// active set.
func (m *Manager) Stop(localPort int) error {
	m.mu.Lock()
	fw, ok := m.forwards[localPort]
	if ok {
		delete(m.forwards, localPort)
	}
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("no port-forward on local port %d", localPort)
	}
	fw.cancel()
	if fw.cmd.Process != nil {
		_ = fw.cmd.Process.Kill()
	}
	m.store.RecordStop(context.Background(), fw.info.ID)
	return nil
}

// List returns a snapshot of every active forward.
func (m *Manager) List() []Info {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Info, 0, len(m.forwards))
	for _, fw := range m.forwards {
		out = append(out, fw.info)
	}
	return out
}

// StopAll kills every active forward, used during server shutdown.
func (m *Manager) StopAll() {
	m.mu.Lock()
	ports := make([]int, 0, len(m.forwards))
	for p := range m.forwards {
		ports = append(ports, p)
	}
	m.mu.Unlock()
	for _, p := range ports {
		_ = m.Stop(p)
	}
}
