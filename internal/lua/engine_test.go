package lua

import (
	"testing"
	"time"

	"netadapter-agent/internal/core"
)

func TestSanitizeFilename(t *testing.T) {
	good := []string{"night.lua", "enable_wifi.lua", "a.lua"}
	for _, name := range good {
		if _, err := sanitizeFilename(name); err != nil {
			t.Errorf("sanitizeFilename(%q) rejected a valid name: %v", name, err)
		}
	}

	bad := []string{"night", "night.txt", ".lua", "..lua"}
	for _, name := range bad {
		if _, err := sanitizeFilename(name); err == nil {
			t.Errorf("sanitizeFilename(%q) should be rejected", name)
		}
	}
}

func TestSanitizeFilenameNeutralizesTraversal(t *testing.T) {
	// Directory components are stripped, so a traversal attempt degrades to
	// a plain file inside the scripts directory.
	for _, name := range []string{"sub/dir/script.lua", "../script.lua"} {
		clean, err := sanitizeFilename(name)
		if err != nil {
			t.Fatalf("sanitizeFilename(%q) failed: %v", name, err)
		}
		if clean != "script.lua" {
			t.Errorf("sanitizeFilename(%q) = %q, want the base name only", name, clean)
		}
	}
}

func TestScriptCRUD(t *testing.T) {
	e := NewEngine(nil, nil, t.TempDir(), nil)

	scripts, err := e.GetScriptList()
	if err != nil {
		t.Fatalf("GetScriptList failed: %v", err)
	}
	if len(scripts) != 0 {
		t.Errorf("fresh directory should hold no scripts, got %v", scripts)
	}

	code := `notify("hello")`
	if err := e.SaveScriptCode("greet.lua", code); err != nil {
		t.Fatalf("SaveScriptCode failed: %v", err)
	}

	got, err := e.GetScriptCode("greet.lua")
	if err != nil {
		t.Fatalf("GetScriptCode failed: %v", err)
	}
	if got != code {
		t.Errorf("script code = %q, want %q", got, code)
	}

	scripts, err = e.GetScriptList()
	if err != nil {
		t.Fatalf("GetScriptList failed: %v", err)
	}
	if len(scripts) != 1 || scripts[0] != "greet.lua" {
		t.Errorf("scripts = %v, want [greet.lua]", scripts)
	}

	if err := e.DeleteScript("greet.lua"); err != nil {
		t.Fatalf("DeleteScript failed: %v", err)
	}
	if _, err := e.GetScriptCode("greet.lua"); err == nil {
		t.Error("deleted script should not be readable")
	}
}

func waitScriptEvent(t *testing.T, sub core.Subscriber) string {
	t.Helper()
	select {
	case ev := <-sub:
		payload, ok := ev.Payload.(map[string]interface{})
		if !ok {
			t.Fatalf("unexpected payload type %T", ev.Payload)
		}
		name, _ := payload["running"].(string)
		return name
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a script event")
	}
	return ""
}

func TestExecuteStringRunsAndReportsLifecycle(t *testing.T) {
	bus := core.NewEventBus()
	sub := bus.Subscribe(core.ScriptChangedEvent)
	e := NewEngine(nil, nil, t.TempDir(), bus)

	e.ExecuteString("x = 1")

	if got := waitScriptEvent(t, sub); got != "single line command" {
		t.Errorf("running script = %q, want the one-off command marker", got)
	}
	if got := waitScriptEvent(t, sub); got != "" {
		t.Errorf("script should report finished, still running %q", got)
	}
}

func TestSaveKeepsTraversalInsideScriptsDir(t *testing.T) {
	e := NewEngine(nil, nil, t.TempDir(), nil)
	if err := e.SaveScriptCode("../outside.lua", "x = 1"); err != nil {
		t.Fatalf("SaveScriptCode failed: %v", err)
	}

	scripts, err := e.GetScriptList()
	if err != nil {
		t.Fatalf("GetScriptList failed: %v", err)
	}
	if len(scripts) != 1 || scripts[0] != "outside.lua" {
		t.Errorf("scripts = %v, want the stripped name inside the directory", scripts)
	}
}
