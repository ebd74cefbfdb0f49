package cli

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artofscripting/networkvector/internal/errors"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out, stderr bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

// listen opens a loopback port that accepts and immediately closes
// connections.
func listen(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func quietScanArgs(target string, port int, dir string) []string {
	return []string{
		target,
		"--ports", strconv.Itoa(port),
		"--timeout", "1",
		"--no-resolve-hostnames",
		"--no-enumerate-shares",
		"--no-randomize",
		"--output-dir", dir,
		"--log-level", "error",
	}
}

func TestScanCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("csv report", func(t *testing.T) {
		dir := t.TempDir()
		port := listen(t)

		out, err := executeCommand(t, append(quietScanArgs("127.0.0.1", port, dir), "--no-graph")...)
		require.NoError(t, err)

		assert.Contains(t, out, "Network Vector - Network Topology Scanner")
		assert.Contains(t, out, "Found 1 hosts with open ports")
		assert.Contains(t, out, "Report saved to")

		reports, err := filepath.Glob(filepath.Join(dir, "network_scan_*.csv"))
		require.NoError(t, err)
		require.Len(t, reports, 1)

		data, err := os.ReadFile(reports[0])
		require.NoError(t, err)
		assert.Contains(t, string(data), "127.0.0.1")
		assert.Contains(t, string(data), strconv.Itoa(port))
	})

	t.Run("html report", func(t *testing.T) {
		dir := t.TempDir()
		port := listen(t)

		_, err := executeCommand(t, quietScanArgs("127.0.0.1", port, dir)...)
		require.NoError(t, err)

		reports, err := filepath.Glob(filepath.Join(dir, "network_scan_*.html"))
		require.NoError(t, err)
		require.Len(t, reports, 1)
	})

	t.Run("live prints hosts as they complete", func(t *testing.T) {
		dir := t.TempDir()
		port := listen(t)

		out, err := executeCommand(t, append(quietScanArgs("127.0.0.1", port, dir), "--no-graph", "--live")...)
		require.NoError(t, err)

		assert.Contains(t, out, "Live Mode: Enabled")
		assert.Contains(t, out, "[+] 127.0.0.1: "+strconv.Itoa(port))
	})

	t.Run("verbose lists hosts without live mode", func(t *testing.T) {
		dir := t.TempDir()
		port := listen(t)

		out, err := executeCommand(t, append(quietScanArgs("127.0.0.1", port, dir), "--no-graph", "-v")...)
		require.NoError(t, err)

		assert.NotContains(t, out, "Live Mode: Enabled")
		assert.Contains(t, out, "[+] 127.0.0.1: "+strconv.Itoa(port))
	})

	t.Run("invalid target", func(t *testing.T) {
		_, err := executeCommand(t, "10.0.0.300", "--output-dir", t.TempDir(), "--log-level", "error")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeTargetInvalid), "got %v", err)
	})

	t.Run("invalid exemption", func(t *testing.T) {
		_, err := executeCommand(t, "10.0.0.0/30", "--exempt", "bogus", "--output-dir", t.TempDir(), "--log-level", "error")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeExemptionInvalid), "got %v", err)
	})

	t.Run("invalid ports", func(t *testing.T) {
		_, err := executeCommand(t, "127.0.0.1", "--ports", "70000", "--log-level", "error")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodePortsInvalid), "got %v", err)
	})

	t.Run("missing target", func(t *testing.T) {
		_, err := executeCommand(t)
		require.Error(t, err)
	})

	t.Run("non-positive timeout", func(t *testing.T) {
		_, err := executeCommand(t, "127.0.0.1", "--timeout", "0")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeValidation), "got %v", err)
	})
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2026-10-17")
	t.Cleanup(func() { SetVersion("dev", "none", "unknown") })

	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "nvector 1.2.3 (commit: abc123, built: 2026-10-17)"), out)
	assert.Contains(t, out, "go: ")
}

func TestConfigCommand(t *testing.T) {
	t.Run("init writes defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nvector.yaml")

		out, err := executeCommand(t, "config", "init", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Wrote default configuration to "+path)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "threads:")
	})

	t.Run("init refuses to overwrite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nvector.yaml")
		require.NoError(t, os.WriteFile(path, []byte("scanning:\n  threads: 7\n"), 0o600))

		_, err := executeCommand(t, "config", "init", path)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeConflict), "got %v", err)

		_, err = executeCommand(t, "config", "init", path, "--force")
		require.NoError(t, err)
	})

	t.Run("show merges file and environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "custom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("scanning:\n  threads: 7\n"), 0o600))
		t.Setenv("NVECTOR_SCANNING_RATE_LIMIT", "250")

		out, err := executeCommand(t, "config", "show", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "threads: 7")
		assert.Contains(t, out, "rate_limit: 250")
	})

	t.Run("show rejects invalid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("scanning:\n  threads: 0\n"), 0o600))

		_, err := executeCommand(t, "config", "show", "--config", path)
		require.Error(t, err)
	})
}

func TestScheduleCommand(t *testing.T) {
	t.Run("invalid cron expression", func(t *testing.T) {
		_, err := executeCommand(t, "schedule", "not a schedule", "127.0.0.1", "--log-level", "error")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodeValidation), "got %v", err)
	})

	t.Run("invalid targets rejected before scheduling", func(t *testing.T) {
		_, err := executeCommand(t, "schedule", "@hourly", "127.0.0.1", "--ports", "0", "--log-level", "error")
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, errors.CodePortsInvalid), "got %v", err)
	})

	t.Run("requires two arguments", func(t *testing.T) {
		_, err := executeCommand(t, "schedule", "@hourly")
		require.Error(t, err)
	})
}
