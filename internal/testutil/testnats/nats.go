package testnats

import (
	"context"
	"sync"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const image = "nats:2.10-alpine"

var (
	sharedContainer *Container
	sharedOnce      sync.Once
	sharedErr       error
)

type Container struct {
	Container testcontainers.Container
	URL       string
}

// Shared starts one NATS container per test binary and reuses it.
// Tests sharing it must not run in parallel and should use unique subject
// prefixes. The test is skipped under -short.
func Shared(t *testing.T) *Container {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping NATS container test in short mode")
	}

	sharedOnce.Do(func() {
		sharedContainer, sharedErr = start(context.Background())
	})
	require.NoError(t, sharedErr)

	return sharedContainer
}

func start(ctx context.Context) (*Container, error) {
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForListeningPort("4222/tcp"),
		},
		Started: true,
	})
	if err != nil {
		return nil, err
	}

	host, err := c.Host(ctx)
	if err != nil {
		return nil, err
	}
	port, err := c.MappedPort(ctx, "4222")
	if err != nil {
		return nil, err
	}

	return &Container{
		Container: c,
		URL:       "nats://" + host + ":" + port.Port(),
	}, nil
}

// Terminate stops the container. Call it once, from TestMain.
func (c *Container) Terminate() {
	if c == nil || c.Container == nil {
		return
	}
	_ = c.Container.Terminate(context.Background())
}

// Terminate stops the shared container if one was started.
func Terminate() {
	sharedContainer.Terminate()
}

func (c *Container) Connect(t *testing.T) *nats.Conn {
	t.Helper()

	conn, err := nats.Connect(c.URL)
	require.NoError(t, err)

	t.Cleanup(func() { conn.Close() })

	return conn
}
