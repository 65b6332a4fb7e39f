package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/omnitrix21/android-frameworks-av/pkg/audio"
)

// DefaultCallbackTimeout bounds how long a check waits for routing.
const DefaultCallbackTimeout = 3 * time.Second

// DeviceUpdateNotifier records the latest routing update of a stream and
// lets a caller block until one arrives.
type DeviceUpdateNotifier struct {
	mu       sync.Mutex
	io       audio.IOHandle
	device   audio.PortHandle
	received bool
	updates  int
	signal   chan struct{}
}

// NewDeviceUpdateNotifier creates an idle notifier.
func NewDeviceUpdateNotifier() *DeviceUpdateNotifier {
	return &DeviceUpdateNotifier{
		io:     audio.IONone,
		device: audio.PortNone,
		signal: make(chan struct{}, 1),
	}
}

// OnAudioDeviceUpdate implements DeviceCallback. Only the first device of
// the update is kept.
func (n *DeviceUpdateNotifier) OnAudioDeviceUpdate(io audio.IOHandle, devices []audio.PortHandle) {
	n.mu.Lock()
	n.io = io
	n.device = audio.PortNone
	if len(devices) > 0 {
		n.device = devices[0]
	}
	n.received = true
	n.updates++
	n.mu.Unlock()

	select {
	case n.signal <- struct{}{}:
	default:
	}
}

// Last returns the most recent update.
func (n *DeviceUpdateNotifier) Last() (audio.IOHandle, audio.PortHandle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.io, n.device
}

// Updates returns the number of updates received.
func (n *DeviceUpdateNotifier) Updates() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.updates
}

// Wait blocks until an update routes to want, or to any device when want is
// PortNone.
func (n *DeviceUpdateNotifier) Wait(ctx context.Context, want audio.PortHandle) error {
	for {
		n.mu.Lock()
		ok := n.received && n.device != audio.PortNone && (want == audio.PortNone || n.device == want)
		n.mu.Unlock()
		if ok {
			return nil
		}

		select {
		case <-n.signal:
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrCallbackTimeout, ctx.Err())
		}
	}
}

// WaitTimeout is Wait with a deadline of d from now.
func (n *DeviceUpdateNotifier) WaitTimeout(d time.Duration, want audio.PortHandle) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return n.Wait(ctx, want)
}

var _ DeviceCallback = (*DeviceUpdateNotifier)(nil)
