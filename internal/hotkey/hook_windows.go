//go:build windows

package hotkey

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"syscall"
	"time"
	"unsafe"
)

var (
	user32   = syscall.NewLazyDLL("user32.dll")
	kernel32 = syscall.NewLazyDLL("kernel32.dll")

	procSetWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procGetMessage          = user32.NewProc("GetMessageW")
	procPostThreadMessage   = user32.NewProc("PostThreadMessageW")
	procGetCurrentThreadId  = kernel32.NewProc("GetCurrentThreadId")
)

const (
	whKeyboardLL = 13
	wmKeydown    = 0x0100
	wmKeyup      = 0x0101
	wmSyskeydown = 0x0104
	wmSyskeyup   = 0x0105
	wmQuit       = 0x0012
)

type kbdllHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

type message struct {
	Hwnd    uintptr
	Message uint32
	WParam  uintptr
	LParam  uintptr
	Time    uint32
	Pt      struct{ X, Y int32 }
}

// The OS invokes one process-global callback, so the currently installed
// port is tracked at package level.
var (
	activeMu   sync.Mutex
	activePort *windowsPort

	hookProc = syscall.NewCallback(keyboardProc)
)

// windowsPort is a WH_KEYBOARD_LL hook together with the message loop that
// keeps it alive. The hook and its loop share one locked OS thread.
type windowsPort struct {
	mu       sync.Mutex
	handle   uintptr
	threadID uintptr
	onKey    func(vk Key, down bool)
	done     chan struct{}
}

func installHook(onKey func(vk Key, down bool)) (hookPort, error) {
	p := &windowsPort{onKey: onKey, done: make(chan struct{})}
	errCh := make(chan error, 1)

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(p.done)

		tid, _, _ := procGetCurrentThreadId.Call()

		handle, _, callErr := procSetWindowsHookEx.Call(whKeyboardLL, hookProc, 0, 0)
		if handle == 0 {
			errCh <- fmt.Errorf("SetWindowsHookEx: %v", callErr)
			return
		}

		p.mu.Lock()
		p.handle = handle
		p.threadID = tid
		p.mu.Unlock()

		activeMu.Lock()
		activePort = p
		activeMu.Unlock()

		errCh <- nil

		// Low-level hooks are serviced through the installing thread's
		// message queue; the loop runs until Close posts WM_QUIT.
		var m message
		for {
			ret, _, _ := procGetMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
			if ret == 0 || int32(ret) == -1 {
				return
			}
		}
	}()

	if err := <-errCh; err != nil {
		return nil, err
	}
	return p, nil
}

// Handle returns the raw hook handle, zero once closed.
func (p *windowsPort) Handle() uintptr {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle
}

// Close unhooks and stops the message loop.
func (p *windowsPort) Close() error {
	p.mu.Lock()
	handle := p.handle
	tid := p.threadID
	p.handle = 0
	p.mu.Unlock()

	activeMu.Lock()
	if activePort == p {
		activePort = nil
	}
	activeMu.Unlock()

	if handle != 0 {
		procUnhookWindowsHookEx.Call(handle)
	}
	if tid != 0 {
		procPostThreadMessage.Call(tid, wmQuit, 0, 0)
	}

	select {
	case <-p.done:
	case <-time.After(time.Second):
		log.Println("[Hook] timeout waiting for message loop to exit")
	}
	return nil
}

// keyboardProc is the WH_KEYBOARD_LL callback. Every event is forwarded to
// CallNextHookEx so the hook observes without ever blocking key delivery.
func keyboardProc(nCode int, wParam uintptr, lParam uintptr) uintptr {
	if nCode >= 0 {
		kb := (*kbdllHookStruct)(unsafe.Pointer(lParam))

		activeMu.Lock()
		port := activePort
		activeMu.Unlock()

		if port != nil {
			switch wParam {
			case wmKeydown, wmSyskeydown:
				port.onKey(Key(kb.VkCode), true)
			case wmKeyup, wmSyskeyup:
				port.onKey(Key(kb.VkCode), false)
			}
		}
	}

	ret, _, _ := procCallNextHookEx.Call(0, uintptr(nCode), wParam, lParam)
	return ret
}
