package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"whorl/internal/api"
	"whorl/internal/testsupport"
)

func TestCLIStatusCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Running (pid")
	requireContains(t, out, "Totals")
	requireContains(t, out, "Visitors")

	out, _, err = runCLI(t, []string{"status", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status JSON: %v", err)
	}
	if !status.Running {
		t.Fatal("expected running daemon in JSON status")
	}
	if status.PID != os.Getpid() {
		t.Fatalf("status PID = %d, want %d", status.PID, os.Getpid())
	}
	if status.DatabasePath != env.cfg.DatabasePath() {
		t.Fatalf("status database path = %q, want %q", status.DatabasePath, env.cfg.DatabasePath())
	}
}

func TestCLIStatusDaemonDown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Server.Bind = ""
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	socket := filepath.Join(testsupport.BaseDir(cfg), "missing.sock")

	out, _, err := runCLI(t, []string{"status"}, socket, configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Not running")

	out, _, err = runCLI(t, []string{"status", "--json"}, socket, configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var status api.DaemonStatus
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status JSON: %v", err)
	}
	if status.Running {
		t.Fatal("expected stopped daemon in JSON status")
	}
	if status.SocketPath != socket {
		t.Fatalf("status socket = %q, want %q", status.SocketPath, socket)
	}
}

func TestCLIStatsCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"stats"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	requireContains(t, out, "No visits recorded in the last 7 days")

	out, _, err = runCLI(t, []string{"stats", "--days", "3", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("stats --json: %v", err)
	}
	var resp api.StatsResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("decode stats JSON: %v", err)
	}
	if resp.Days != 3 {
		t.Fatalf("stats days = %d, want 3", resp.Days)
	}
	if len(resp.Rows) != 0 {
		t.Fatalf("expected no stats rows, got %d", len(resp.Rows))
	}
}

func TestCLIVisitorCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	seeded := seedVisitor(t, env)

	out, _, err := runCLI(t, []string{"visitor", seeded.VisitorID}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("visitor: %v", err)
	}
	requireContains(t, out, seeded.VisitorID)
	requireContains(t, out, "Trust")
	requireContains(t, out, "Firefox")

	out, _, err = runCLI(t, []string{"visitor", seeded.VisitorID, "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("visitor --json: %v", err)
	}
	var detail api.VisitorDetail
	if err := json.Unmarshal([]byte(out), &detail); err != nil {
		t.Fatalf("decode visitor JSON: %v", err)
	}
	if detail.ID != seeded.VisitorID {
		t.Fatalf("visitor id = %q, want %q", detail.ID, seeded.VisitorID)
	}
	if detail.VisitCount != 1 {
		t.Fatalf("visit count = %d, want 1", detail.VisitCount)
	}

	_, _, err = runCLI(t, []string{"visitor", "no-such-visitor"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected error for unknown visitor")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCLIFlushCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	seedVisitor(t, env)

	_, _, err := runCLI(t, []string{"flush"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected flush without --yes to be refused")
	}
	if !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("unexpected error: %v", err)
	}

	out, _, err := runCLI(t, []string{"flush", "--yes"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("flush --yes: %v", err)
	}
	requireContains(t, out, "Removed 1 visitors")
}

func TestCLITokenSignAndCheck(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"token", "sign", "visitor-123"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("token sign: %v", err)
	}
	token := strings.TrimSpace(out)
	if !strings.HasPrefix(token, "visitor-123.") {
		t.Fatalf("unexpected token: %q", token)
	}

	out, _, err = runCLI(t, []string{"token", "check", token}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("token check: %v", err)
	}
	requireContains(t, out, "Valid")
	requireContains(t, out, "visitor-123")
	if strings.Contains(out, env.cfg.Identity.Secret) {
		t.Fatal("signing secret leaked into command output")
	}

	out, _, err = runCLI(t, []string{"token", "check", token, "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("token check --json: %v", err)
	}
	var result tokenCheckResult
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("decode check JSON: %v", err)
	}
	if !result.Valid || result.VisitorID != "visitor-123" {
		t.Fatalf("unexpected check result: %+v", result)
	}

	_, _, err = runCLI(t, []string{"token", "check", "garbage"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected error for malformed token")
	}
	if !strings.Contains(err.Error(), "invalid") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCLIConfigCommands(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	socket := filepath.Join(testsupport.BaseDir(cfg), "unused.sock")

	out, _, err := runCLI(t, []string{"config", "validate"}, socket, configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	out, _, err = runCLI(t, []string{"config", "path"}, socket, configPath)
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if strings.TrimSpace(out) != configPath {
		t.Fatalf("config path = %q, want %q", strings.TrimSpace(out), configPath)
	}

	out, _, err = runCLI(t, []string{"config", "show"}, socket, configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[redacted]")
	requireContains(t, out, "state_dir")
	if strings.Contains(out, cfg.Identity.Secret) {
		t.Fatal("config show printed the signing secret")
	}

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, socket, configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	_, _, err = runCLI(t, []string{"config", "init", "--path", target}, socket, configPath)
	if err == nil {
		t.Fatal("expected init over existing file to fail without --overwrite")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("unexpected error: %v", err)
	}
}
