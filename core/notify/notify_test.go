package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	method string
	args   []interface{}
}

type fakeBus struct {
	calls  []call
	nextID uint32
	err    error
}

func (f *fakeBus) CallWithContext(_ context.Context, method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	f.calls = append(f.calls, call{method: method, args: args})
	if f.err != nil {
		return &dbus.Call{Err: f.err}
	}
	return &dbus.Call{Body: []interface{}{f.nextID}}
}

func TestDesktop_ReplacesSameNotification(t *testing.T) {
	bus := &fakeBus{nextID: 17}
	d := &Desktop{obj: bus, text: "Lyra started", timeout: -1}
	ctx := context.Background()

	require.NoError(t, d.Show(ctx))
	require.NoError(t, d.Update(ctx, "Playing Artist - Song"))

	require.Len(t, bus.calls, 2)
	assert.Equal(t, notifyCall, bus.calls[0].method)
	assert.Equal(t, uint32(0), bus.calls[0].args[1], "first call asks for a new id")
	assert.Equal(t, "Lyra started", bus.calls[0].args[4])
	assert.Equal(t, uint32(17), bus.calls[1].args[1], "update replaces the shown notification")
	assert.Equal(t, "Playing Artist - Song", bus.calls[1].args[4])
}

func TestDesktop_Error(t *testing.T) {
	bus := &fakeBus{err: errors.New("no such service")}
	d := &Desktop{obj: bus}

	err := d.Update(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such service")
	assert.Equal(t, uint32(0), d.id)
}

func TestDesktop_Close(t *testing.T) {
	bus := &fakeBus{nextID: 3}
	d := &Desktop{obj: bus}
	require.NoError(t, d.Show(context.Background()))
	require.NoError(t, d.Close())

	require.Len(t, bus.calls, 2)
	assert.Equal(t, closeCall, bus.calls[1].method)
	assert.Equal(t, []interface{}{uint32(3)}, bus.calls[1].args)
}

func TestNew_Disabled(t *testing.T) {
	n := New(false, "x")
	assert.IsType(t, Nop{}, n)
	assert.NoError(t, n.Update(context.Background(), "y"))
}
