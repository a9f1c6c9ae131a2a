//go:build windows

package netadapter

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
	"github.com/yusufpapurcu/wmi"
)

// sFalse is the COM "already initialized" HRESULT.
const sFalse = 0x00000001

// win32NetworkAdapter mirrors the Win32_NetworkAdapter WMI class fields the
// agent reads. Pointer fields are NULL for adapters without a connection.
type win32NetworkAdapter struct {
	DeviceID            string
	Name                string
	Description         string
	NetConnectionID     string
	AdapterTypeID       *uint16
	NetEnabled          *bool
	NetConnectionStatus *uint16
}

type wmiClient struct{}

// NewClient returns the WMI-backed adapter client.
func NewClient() Client {
	return &wmiClient{}
}

// List queries Win32_NetworkAdapter for all physical adapters.
func (c *wmiClient) List(ctx context.Context) ([]Adapter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var dst []win32NetworkAdapter
	query := "SELECT DeviceID, Name, Description, NetConnectionID, AdapterTypeID, NetEnabled, NetConnectionStatus " +
		"FROM Win32_NetworkAdapter WHERE PhysicalAdapter = TRUE"
	if err := wmi.Query(query, &dst); err != nil {
		return nil, fmt.Errorf("WMI adapter query failed: %w", err)
	}

	now := time.Now()
	adapters := make([]Adapter, 0, len(dst))
	for _, w := range dst {
		a := Adapter{
			DeviceID:    w.DeviceID,
			Name:        w.Name,
			Description: w.Description,
			Status:      "Unknown",
			UpdatedAt:   now,
		}
		// NetConnectionID is the user-visible name ("Ethernet", "Wi-Fi").
		if w.NetConnectionID != "" {
			a.Name = w.NetConnectionID
		}
		if w.AdapterTypeID != nil {
			a.Type = adapterTypeFromID(*w.AdapterTypeID)
		}
		if w.NetEnabled != nil {
			a.Enabled = *w.NetEnabled
		}
		if w.NetConnectionStatus != nil {
			a.Status = statusText(*w.NetConnectionStatus)
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

// Enable invokes Win32_NetworkAdapter.Enable on the given device.
func (c *wmiClient) Enable(ctx context.Context, deviceID string) error {
	return c.invoke(ctx, deviceID, "Enable")
}

// Disable invokes Win32_NetworkAdapter.Disable on the given device.
func (c *wmiClient) Disable(ctx context.Context, deviceID string) error {
	return c.invoke(ctx, deviceID, "Disable")
}

// invoke calls a method on a single Win32_NetworkAdapter instance. The wmi
// query package only reads, so method calls go through OLE directly. The
// blocking COM call cannot be aborted once started; the context is only
// checked up front.
func (c *wmiClient) invoke(ctx context.Context, deviceID, method string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		code := err.(*ole.OleError).Code()
		if code != ole.S_OK && code != sFalse {
			return fmt.Errorf("CoInitializeEx: %w", err)
		}
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WbemScripting.SWbemLocator")
	if err != nil {
		return fmt.Errorf("create WMI locator: %w", err)
	}
	defer unknown.Release()

	locator, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return fmt.Errorf("query WMI locator interface: %w", err)
	}
	defer locator.Release()

	serviceRaw, err := oleutil.CallMethod(locator, "ConnectServer")
	if err != nil {
		return fmt.Errorf("connect to WMI service: %w", err)
	}
	service := serviceRaw.ToIDispatch()
	defer service.Release()

	path := fmt.Sprintf("Win32_NetworkAdapter.DeviceID=%q", deviceID)
	adapterRaw, err := oleutil.CallMethod(service, "Get", path)
	if err != nil {
		return fmt.Errorf("get adapter %s: %w", deviceID, err)
	}
	adapter := adapterRaw.ToIDispatch()
	defer adapter.Release()

	resultRaw, err := oleutil.CallMethod(adapter, method)
	if err != nil {
		return fmt.Errorf("%s adapter %s: %w", method, deviceID, err)
	}
	defer resultRaw.Clear()

	if ret, ok := resultRaw.Value().(int32); ok && ret != 0 {
		return fmt.Errorf("%s on adapter %s returned code %d", method, deviceID, ret)
	}
	return nil
}
