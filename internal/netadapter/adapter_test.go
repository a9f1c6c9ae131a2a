package netadapter

import "testing"

func TestAdapterTypeFromID(t *testing.T) {
	if got := adapterTypeFromID(0); got != TypeEthernet {
		t.Errorf("AdapterTypeID 0 = %v, want ethernet", got)
	}
	if got := adapterTypeFromID(9); got != TypeWireless {
		t.Errorf("AdapterTypeID 9 = %v, want wireless", got)
	}
	if got := adapterTypeFromID(5); got != TypeUnknown {
		t.Errorf("AdapterTypeID 5 = %v, want unknown", got)
	}
}

func TestStatusText(t *testing.T) {
	if got := statusText(2); got != "Connected" {
		t.Errorf("statusText(2) = %q, want Connected", got)
	}
	if got := statusText(0); got != "Disconnected" {
		t.Errorf("statusText(0) = %q, want Disconnected", got)
	}
	if got := statusText(99); got != "Unknown" {
		t.Errorf("statusText(99) = %q, want Unknown", got)
	}
}

func TestBatchResultOk(t *testing.T) {
	var r BatchResult
	r.add(OperationResult{DeviceID: "1", Success: true})
	if !r.Ok() {
		t.Error("all-success batch should be Ok")
	}
	r.add(OperationResult{DeviceID: "2", Success: false, Message: "busy"})
	if r.Ok() {
		t.Error("batch with a failure must not be Ok")
	}
	if r.Succeeded != 1 || r.Failed != 1 {
		t.Errorf("counts = %d/%d, want 1/1", r.Succeeded, r.Failed)
	}
}
