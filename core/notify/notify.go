// Package notify keeps a single desktop notification up to date through
// org.freedesktop.Notifications on the session bus.
package notify

import (
	"context"
	"fmt"
	"sync"

	"Lyra/logger"

	"github.com/godbus/dbus/v5"
)

const (
	busName    = "org.freedesktop.Notifications"
	objectPath = "/org/freedesktop/Notifications"
	notifyCall = busName + ".Notify"
	closeCall  = busName + ".CloseNotification"

	appName = "lyra"
	summary = "Lyra"
)

// Notifier shows text to the user.
type Notifier interface {
	Show(ctx context.Context) error
	Update(ctx context.Context, text string) error
	Close() error
}

// caller is the part of dbus.BusObject the notifier uses.
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// Desktop is a notification that is replaced in place on every Update.
type Desktop struct {
	mu      sync.Mutex
	conn    *dbus.Conn
	obj     caller
	id      uint32 // 0 until the server assigned one
	text    string
	timeout int32
}

// NewDesktop connects to the session bus. text is the initial body shown by Show.
func NewDesktop(text string) (*Desktop, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("session bus connection failed: %w", err)
	}
	return &Desktop{
		conn:    conn,
		obj:     conn.Object(busName, dbus.ObjectPath(objectPath)),
		text:    text,
		timeout: -1,
	}, nil
}

// Show displays the current text.
func (d *Desktop) Show(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.notifyLocked(ctx)
}

// Update replaces the notification body.
func (d *Desktop) Update(ctx context.Context, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.text = text
	return d.notifyLocked(ctx)
}

func (d *Desktop) notifyLocked(ctx context.Context) error {
	call := d.obj.CallWithContext(ctx, notifyCall, 0,
		appName, d.id, "", summary, d.text,
		[]string{}, map[string]dbus.Variant{}, d.timeout)

	var id uint32
	if err := call.Store(&id); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	d.id = id
	return nil
}

// Close removes the notification and disconnects from the bus.
func (d *Desktop) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.id != 0 {
		if err := d.obj.CallWithContext(context.Background(), closeCall, 0, d.id).Err; err != nil {
			logger.Debug("failed to close notification", logger.ErrorField(err))
		}
		d.id = 0
	}
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}

// Nop is used when notifications are disabled.
type Nop struct{}

func (Nop) Show(context.Context) error           { return nil }
func (Nop) Update(context.Context, string) error { return nil }
func (Nop) Close() error                         { return nil }

// New returns a desktop notifier, or Nop when disabled or the bus is
// unreachable.
func New(enabled bool, text string) Notifier {
	if !enabled {
		return Nop{}
	}
	d, err := NewDesktop(text)
	if err != nil {
		logger.Warn("desktop notifications disabled", logger.ErrorField(err))
		return Nop{}
	}
	return d
}
