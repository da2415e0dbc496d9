//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pameecs/peac"
	"github.com/pameecs/peac/internal/testutil"
	"github.com/pameecs/peac/registry"
)

var (
	registryOnce sync.Once
	registryAddr string
	registryErr  error
)

// getRegistry returns the shared registry address, starting the container
// on first use.
func getRegistry(tb testing.TB) string {
	tb.Helper()

	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}

	registryOnce.Do(func() {
		registryAddr, registryErr = startRegistryContainer(context.Background())
	})
	if registryErr != nil {
		tb.Fatalf("start registry container: %v", registryErr)
	}
	return registryAddr
}

// startRegistryContainer starts a registry:2 container and returns its
// host:port address. The testcontainers reaper removes it.
func startRegistryContainer(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "registry:2",
		ExposedPorts: []string{"5000/tcp"},
		WaitingFor: wait.ForHTTP("/v2/").WithPort("5000/tcp").WithStatusCodeMatcher(func(status int) bool {
			return status >= 200 && status < 300
		}),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start registry container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve registry host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5000/tcp")
	if err != nil {
		return "", fmt.Errorf("resolve registry port: %w", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port()), nil
}

// newTestClient returns a client for the local plain-HTTP registry.
func newTestClient(opts ...registry.Option) *registry.Client {
	return registry.New(append([]registry.Option{registry.WithPlainHTTP(true), registry.WithAnonymous()}, opts...)...)
}

// testRef returns a per-test reference so parallel tests do not collide.
func testRef(addr string, t testing.TB, tag string) string {
	return fmt.Sprintf("%s/test/%s:%s", addr, strings.ToLower(t.Name()), tag)
}

// packTree builds an archive from files and opens it.
func packTree(tb testing.TB, files map[string][]byte, opts ...peac.CreateOption) *peac.Archive {
	tb.Helper()

	dir := testutil.WriteTree(tb, files)
	dest := filepath.Join(tb.TempDir(), "src.peac")
	require.NoError(tb, peac.CreateFile(context.Background(), dir, dest, opts...))

	a, err := peac.Open(dest)
	require.NoError(tb, err)
	tb.Cleanup(func() { a.Close() })
	return a
}

func assertFilesMatch(tb testing.TB, a *peac.Archive, want map[string][]byte) {
	tb.Helper()
	for name, content := range want {
		got, err := a.ReadFile(name)
		require.NoError(tb, err, name)
		require.Equal(tb, content, got, name)
	}
}
