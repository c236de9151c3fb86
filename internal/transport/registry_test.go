package transport_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipbotio/clipbot/internal/transport"
)

type fakeConn struct {
	name    string
	running bool
	stopped *bool
}

func (c *fakeConn) Adapter() string { return c.name }
func (c *fakeConn) Running() bool   { return c.running }
func (c *fakeConn) Stop(context.Context) error {
	if c.stopped != nil {
		*c.stopped = true
	}
	c.running = false
	return nil
}

type fakeAdapter struct {
	name    string
	connErr error
	conn    *fakeConn
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Connect(context.Context, transport.InboundHandler) (transport.Connection, error) {
	if a.connErr != nil {
		return nil, a.connErr
	}
	if a.conn == nil {
		a.conn = &fakeConn{name: a.name, running: true}
	}
	return a.conn, nil
}

func noopHandler(context.Context, transport.Sender, transport.IncomingMessage) {}

func TestRegistry_StartAllAndLookup(t *testing.T) {
	t.Parallel()
	reg := transport.NewRegistry(nil)
	adapters := []transport.Adapter{
		&fakeAdapter{name: "telegram"},
		&fakeAdapter{name: "discord"},
	}

	require.NoError(t, reg.StartAll(context.Background(), adapters, noopHandler))
	assert.ElementsMatch(t, []string{"telegram", "discord"}, reg.Names())
	assert.Equal(t, 2, reg.Running())

	conn, err := reg.Get("telegram")
	require.NoError(t, err)
	assert.Equal(t, "telegram", conn.Adapter())

	_, err = reg.Get("matrix")
	assert.ErrorIs(t, err, transport.ErrConnectionNotFound)
}

func TestRegistry_StartAllFailureTearsDown(t *testing.T) {
	t.Parallel()
	stopped := false
	first := &fakeAdapter{name: "telegram", conn: &fakeConn{name: "telegram", running: true, stopped: &stopped}}
	second := &fakeAdapter{name: "discord", connErr: errors.New("bad token")}

	reg := transport.NewRegistry(nil)
	err := reg.StartAll(context.Background(), []transport.Adapter{first, second}, noopHandler)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect discord")
	assert.True(t, stopped)
	assert.Empty(t, reg.Names())
}

func TestRegistry_StopAllClears(t *testing.T) {
	t.Parallel()
	reg := transport.NewRegistry(nil)
	require.NoError(t, reg.StartAll(context.Background(),
		[]transport.Adapter{&fakeAdapter{name: "telegram"}}, noopHandler))

	reg.StopAll(context.Background())
	assert.Empty(t, reg.Names())
	assert.Equal(t, 0, reg.Running())
}
