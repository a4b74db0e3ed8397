package k8s

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v2"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/clientcmd/api"
)

// ClusterClientFactory resolves a kubeconfig's contexts into cached,
// per-context Kubernetes clients. It watches the kubeconfig file for
// changes and invalidates its caches on reload, so long-running API
// processes pick up context additions/removals without a restart.
type ClusterClientFactory struct {
	mu             sync.RWMutex
	kubeconfig     string
	clients        map[string]*kubernetes.Clientset
	dynamicClients map[string]dynamic.Interface
	configs        map[string]*rest.Config
	rawConfig      *api.Config
	contextOrder   []string

	watcher   *fsnotify.Watcher
	stopWatch chan struct{}
	onReload  func()

	inClusterConfig *rest.Config
}

// NewClusterClientFactory resolves the kubeconfig path (explicit arg ->
// KUBECONFIG env -> ~/.kube/config) and performs an initial load. If the
// kubeconfig cannot be loaded but in-cluster config is available, it
// still succeeds and falls back to in-cluster config for every context
// lookup, for processes run inside a pod with no mounted kubeconfig. If
// neither is available, it returns an error.
func NewClusterClientFactory(kubeconfigPath string) (*ClusterClientFactory, error) {
	if kubeconfigPath == "" {
		if env := os.Getenv("KUBECONFIG"); env != "" {
			kubeconfigPath = env
		} else if home, err := os.UserHomeDir(); err == nil {
			kubeconfigPath = filepath.Join(home, ".kube", "config")
		}
	}

	f := &ClusterClientFactory{
		kubeconfig:     kubeconfigPath,
		clients:        make(map[string]*kubernetes.Clientset),
		dynamicClients: make(map[string]dynamic.Interface),
		configs:        make(map[string]*rest.Config),
	}

	if cfg, err := rest.InClusterConfig(); err == nil {
		f.inClusterConfig = cfg
	}

	if err := f.LoadConfig(); err != nil && f.inClusterConfig == nil {
		return nil, fmt.Errorf("loading kubeconfig %q: %w", kubeconfigPath, err)
	}

	return f, nil
}

// LoadConfig (re-)parses the kubeconfig file and drops every cached
// client, forcing lazy reconstruction against the new config on next
// use.
func (f *ClusterClientFactory) LoadConfig() error {
	raw, err := clientcmd.LoadFromFile(f.kubeconfig)
	if err != nil {
		return err
	}
	order, err := contextOrderFromFile(f.kubeconfig)
	if err != nil {
		log.Printf("k8s: reading context order from %q: %v", f.kubeconfig, err)
		order = nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.rawConfig = raw
	f.contextOrder = order
	f.clients = make(map[string]*kubernetes.Clientset)
	f.dynamicClients = make(map[string]dynamic.Interface)
	f.configs = make(map[string]*rest.Config)
	return nil
}

// contextOrderFromFile reads the raw kubeconfig YAML to recover the
// file order of the "contexts" list. clientcmd.LoadFromFile flattens
// that list into a Go map, which loses the ordering a client listing
// contexts needs to preserve.
func contextOrderFromFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Contexts []struct {
			Name string `yaml:"name"`
		} `yaml:"contexts"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(doc.Contexts))
	for _, c := range doc.Contexts {
		names = append(names, c.Name)
	}
	return names, nil
}

// ListContexts returns every context name in the loaded kubeconfig, in
// the order the file defines them. If that order could not be read from
// the file, the names come back in map iteration order. If no kubeconfig
// was loaded (pure in-cluster mode), it returns a single synthetic
// "in-cluster" context.
func (f *ClusterClientFactory) ListContexts() ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.rawConfig == nil {
		if f.inClusterConfig != nil {
			return []string{"in-cluster"}, nil
		}
		return nil, fmt.Errorf("no kubeconfig loaded")
	}
	if f.contextOrder != nil {
		names := make([]string, 0, len(f.contextOrder))
		for _, name := range f.contextOrder {
			if _, ok := f.rawConfig.Contexts[name]; ok {
				names = append(names, name)
			}
		}
		return names, nil
	}
	names := make([]string, 0, len(f.rawConfig.Contexts))
	for name := range f.rawConfig.Contexts {
		names = append(names, name)
	}
	return names, nil
}

// restConfigFor resolves the rest.Config for a context name, caching it.
func (f *ClusterClientFactory) restConfigFor(contextName string) (*rest.Config, error) {
	f.mu.RLock()
	if cfg, ok := f.configs[contextName]; ok {
		f.mu.RUnlock()
		return cfg, nil
	}
	f.mu.RUnlock()

	if contextName == "in-cluster" && f.inClusterConfig != nil {
		return f.inClusterConfig, nil
	}

	f.mu.RLock()
	raw := f.rawConfig
	f.mu.RUnlock()
	if raw == nil {
		if f.inClusterConfig != nil {
			return f.inClusterConfig, nil
		}
		return nil, fmt.Errorf("no kubeconfig loaded")
	}

	overrides := &clientcmd.ConfigOverrides{CurrentContext: contextName}
	cfg, err := clientcmd.NewNonInteractiveClientConfig(*raw, contextName, overrides, nil).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("building client config for context %q: %w", contextName, err)
	}

	f.mu.Lock()
	f.configs[contextName] = cfg
	f.mu.Unlock()
	return cfg, nil
}

// Typed returns a cached *kubernetes.Clientset for the named context.
func (f *ClusterClientFactory) Typed(contextName string) (*kubernetes.Clientset, error) {
	f.mu.RLock()
	if cs, ok := f.clients[contextName]; ok {
		f.mu.RUnlock()
		return cs, nil
	}
	f.mu.RUnlock()

	cfg, err := f.restConfigFor(contextName)
	if err != nil {
		return nil, err
	}
	cs, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("building typed client for context %q: %w", contextName, err)
	}

	f.mu.Lock()
	f.clients[contextName] = cs
	f.mu.Unlock()
	return cs, nil
}

// Dynamic returns a cached dynamic.Interface for the named context.
func (f *ClusterClientFactory) Dynamic(contextName string) (dynamic.Interface, error) {
	f.mu.RLock()
	if dyn, ok := f.dynamicClients[contextName]; ok {
		f.mu.RUnlock()
		return dyn, nil
	}
	f.mu.RUnlock()

	cfg, err := f.restConfigFor(contextName)
	if err != nil {
		return nil, err
	}
	dyn, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("building dynamic client for context %q: %w", contextName, err)
	}

	f.mu.Lock()
	f.dynamicClients[contextName] = dyn
	f.mu.Unlock()
	return dyn, nil
}

// ClientFor returns the ClusterClient the Resolver consumes, bound to a
// single context's dynamic client.
func (f *ClusterClientFactory) ClientFor(contextName string) (ClusterClient, error) {
	dyn, err := f.Dynamic(contextName)
	if err != nil {
		return nil, err
	}
	return newDynamicClusterClient(dyn), nil
}

// WatchConfig starts an fsnotify watch on the kubeconfig file and
// reloads on any write/create/rename event, debounced by 500ms to
// collapse editors that perform several filesystem operations per save.
func (f *ClusterClientFactory) WatchConfig() error {
	if f.kubeconfig == "" {
		return fmt.Errorf("no kubeconfig path to watch")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(f.kubeconfig)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %q: %w", filepath.Dir(f.kubeconfig), err)
	}

	f.mu.Lock()
	f.watcher = watcher
	f.stopWatch = make(chan struct{})
	stop := f.stopWatch
	f.mu.Unlock()

	go f.watchLoop(watcher, stop)
	return nil
}

func (f *ClusterClientFactory) watchLoop(watcher *fsnotify.Watcher, stop chan struct{}) {
	var debounce *time.Timer
	for {
		select {
		case <-stop:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(f.kubeconfig) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(500*time.Millisecond, func() {
				if err := f.LoadConfig(); err != nil {
					log.Printf("k8s: reloading kubeconfig: %v", err)
					return
				}
				f.mu.RLock()
				cb := f.onReload
				f.mu.RUnlock()
				if cb != nil {
					cb()
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Printf("k8s: kubeconfig watch error: %v", err)
		}
	}
}

// StopWatching stops a watch started with WatchConfig. Safe to call
// even if no watch is active.
func (f *ClusterClientFactory) StopWatching() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopWatch != nil {
		close(f.stopWatch)
		f.stopWatch = nil
	}
	if f.watcher != nil {
		f.watcher.Close()
		f.watcher = nil
	}
}

// SetOnReload registers a callback invoked after a successful reload.
func (f *ClusterClientFactory) SetOnReload(cb func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onReload = cb
}
