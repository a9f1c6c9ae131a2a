package netadapter

import "context"

// Client is the OS-facing adapter primitive: enumerate, enable, disable.
// The Windows implementation talks to WMI; tests substitute fakes.
type Client interface {
	List(ctx context.Context) ([]Adapter, error)
	Enable(ctx context.Context, deviceID string) error
	Disable(ctx context.Context, deviceID string) error
}
