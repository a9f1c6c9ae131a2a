//go:build !windows

package netadapter

import (
	"context"
	"fmt"
)

type dummyClient struct{}

// NewClient is a dummy implementation for non-Windows systems.
func NewClient() Client {
	return &dummyClient{}
}

func (c *dummyClient) List(ctx context.Context) ([]Adapter, error) {
	return nil, fmt.Errorf("network adapter control is only available on Windows")
}

func (c *dummyClient) Enable(ctx context.Context, deviceID string) error {
	return fmt.Errorf("network adapter control is only available on Windows")
}

func (c *dummyClient) Disable(ctx context.Context, deviceID string) error {
	return fmt.Errorf("network adapter control is only available on Windows")
}
