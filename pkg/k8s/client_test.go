package k8s

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleKubeconfig = `
apiVersion: v1
kind: Config
clusters:
- name: dev-cluster
  cluster:
    server: https://dev.example.com
- name: prod-cluster
  cluster:
    server: https://prod.example.com
users:
- name: dev-user
  user:
    token: dev-token
contexts:
- name: dev
  context:
    cluster: dev-cluster
    user: dev-user
- name: prod
  context:
    cluster: prod-cluster
    user: dev-user
current-context: dev
`

func writeKubeconfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	require.NoError(t, os.WriteFile(path, []byte(sampleKubeconfig), 0o600))
	return path
}

func TestClusterClientFactory_ListContexts(t *testing.T) {
	path := writeKubeconfig(t)
	f, err := NewClusterClientFactory(path)
	require.NoError(t, err)

	contexts, err := f.ListContexts()
	require.NoError(t, err)
	assert.Equal(t, []string{"dev", "prod"}, contexts, "context order must match the kubeconfig file")
}

func TestClusterClientFactory_RestConfigForUnknownContext(t *testing.T) {
	path := writeKubeconfig(t)
	f, err := NewClusterClientFactory(path)
	require.NoError(t, err)

	_, err = f.restConfigFor("missing")
	assert.Error(t, err)
}

func TestClusterClientFactory_RestConfigForKnownContext(t *testing.T) {
	path := writeKubeconfig(t)
	f, err := NewClusterClientFactory(path)
	require.NoError(t, err)

	cfg, err := f.restConfigFor("prod")
	require.NoError(t, err)
	assert.Equal(t, "https://prod.example.com", cfg.Host)
}

func TestClusterClientFactory_LoadConfigDropsCaches(t *testing.T) {
	path := writeKubeconfig(t)
	f, err := NewClusterClientFactory(path)
	require.NoError(t, err)

	_, err = f.restConfigFor("dev")
	require.NoError(t, err)
	assert.NotEmpty(t, f.configs)

	require.NoError(t, f.LoadConfig())
	assert.Empty(t, f.configs, "LoadConfig must invalidate cached clients and configs")
}

func TestClusterClientFactory_NoKubeconfigOutsideClusterErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := NewClusterClientFactory(filepath.Join(dir, "does-not-exist"))
	// Outside a cluster, in-cluster config also fails to build, so this
	// is expected to error rather than silently succeed with no client.
	assert.Error(t, err)
}

func TestClusterClientFactory_ClientForKnownContext(t *testing.T) {
	path := writeKubeconfig(t)
	f, err := NewClusterClientFactory(path)
	require.NoError(t, err)

	client, err := f.ClientFor("dev")
	require.NoError(t, err)
	assert.NotNil(t, client)
}
