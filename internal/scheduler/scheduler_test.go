package scheduler

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"netadapter-agent/internal/core"
)

func newTestScheduler(t *testing.T) (*Scheduler, core.CommandChannel) {
	t.Helper()
	ch := make(core.CommandChannel, 10)
	file := filepath.Join(t.TempDir(), "schedules.json")
	return NewScheduler(ch, file), ch
}

func recvCommand(t *testing.T, ch core.CommandChannel) (core.Command, bool) {
	t.Helper()
	select {
	case cmd := <-ch:
		return cmd, true
	case <-time.After(100 * time.Millisecond):
		return core.Command{}, false
	}
}

func TestExecuteParsesCommands(t *testing.T) {
	cases := []struct {
		command  string
		wantType core.CommandType
		wantKey  string
		wantVal  string
	}{
		{"enable-all", core.CmdEnableAll, "", ""},
		{"disable-all", core.CmdDisableAll, "", ""},
		{"switch", core.CmdSwitchAdapters, "", ""},
		{"refresh", core.CmdRefreshAdapters, "", ""},
		{"enable 7", core.CmdEnableAdapter, "deviceId", "7"},
		{"disable 12", core.CmdDisableAdapter, "deviceId", "12"},
		{"script nightly.lua", core.CmdRunScript, "name", "nightly.lua"},
	}

	for _, c := range cases {
		s, ch := newTestScheduler(t)
		s.execute(c.command)

		cmd, ok := recvCommand(t, ch)
		if !ok {
			t.Errorf("%q: no command dispatched", c.command)
			continue
		}
		if cmd.Type != c.wantType {
			t.Errorf("%q: type = %s, want %s", c.command, cmd.Type, c.wantType)
		}
		if c.wantKey != "" {
			if got, _ := cmd.Payload[c.wantKey].(string); got != c.wantVal {
				t.Errorf("%q: payload[%s] = %v, want %s", c.command, c.wantKey, cmd.Payload[c.wantKey], c.wantVal)
			}
		}
	}
}

func TestExecuteIgnoresUnknownAndIncompleteCommands(t *testing.T) {
	s, ch := newTestScheduler(t)

	s.execute("explode")
	s.execute("enable")
	s.execute("")

	if cmd, ok := recvCommand(t, ch); ok {
		t.Errorf("unexpected command dispatched: %+v", cmd)
	}
}

func TestAddPersistsAcrossRestart(t *testing.T) {
	ch := make(core.CommandChannel, 10)
	file := filepath.Join(t.TempDir(), "schedules.json")

	s := NewScheduler(ch, file)
	s.Add("30 3 * * *", "switch")
	s.Add("@hourly", "refresh")

	reloaded := NewScheduler(ch, file)
	entries := reloaded.GetAll()
	if len(entries) != 2 {
		t.Fatalf("reloaded %d schedules, want 2", len(entries))
	}

	seen := map[string]string{}
	for _, e := range entries {
		seen[e.Command] = e.Spec
	}
	if seen["switch"] != "30 3 * * *" {
		t.Errorf("switch schedule spec = %q", seen["switch"])
	}
	if seen["refresh"] != "@hourly" {
		t.Errorf("refresh schedule spec = %q", seen["refresh"])
	}
}

func TestAddRejectsInvalidSpec(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.Add("not a cron spec", "switch")
	if len(s.GetAll()) != 0 {
		t.Error("invalid spec should not be stored")
	}
}

func TestSaveLogsWriteFailure(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	// The schedules file sits in a directory that does not exist, so every
	// save fails.
	file := filepath.Join(t.TempDir(), "missing", "schedules.json")
	s := NewScheduler(make(core.CommandChannel, 1), file)
	s.Add("@daily", "switch")

	if !strings.Contains(buf.String(), "Error writing schedule file") {
		t.Errorf("expected a write failure log, got %q", buf.String())
	}
}

func TestRemove(t *testing.T) {
	s, _ := newTestScheduler(t)
	s.Add("@daily", "enable-all")

	var id int
	for entryID := range s.GetAll() {
		id = int(entryID)
	}
	s.Remove(id)

	if len(s.GetAll()) != 0 {
		t.Error("schedule should be gone after Remove")
	}
}
