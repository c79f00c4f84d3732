package agent_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/agent"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/config"
	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/manifest"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		WatchDir:    filepath.Join(dir, "monitored"),
		DownloadDir: filepath.Join(dir, "downloads"),
	}
	cfg.Manifest.Path = filepath.Join(dir, "logs", "hash_manifest.log")
	cfg.Index.Path = filepath.Join(dir, "index")
	cfg.Stability.Checks = 2
	cfg.Stability.Interval = 0.005
	cfg.Hash.Algorithm = "sha256"
	cfg.Hash.MaxRetries = 2

	require.NoError(t, os.MkdirAll(cfg.WatchDir, 0o755))
	return cfg
}

// startAgent runs the agent until the test ends, waiting for the PID
// file that marks the watch tree as covered.
func startAgent(t *testing.T, cfg *config.Config, lockDir string) (*agent.Agent, func() error) {
	t.Helper()

	a, err := agent.New(cfg)
	require.NoError(t, err)
	a.LockPath = filepath.Join(lockDir, "sfim.lock")
	a.PIDPath = filepath.Join(lockDir, "sfim.pid")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx)
	}()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(a.PIDPath); err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	_, err = os.Stat(a.PIDPath)
	require.NoError(t, err, "agent never became ready")

	return a, func() error {
		cancel()
		select {
		case err := <-done:
			a.Close()
			return err
		case <-time.After(5 * time.Second):
			a.Close()
			t.Fatal("agent did not stop after cancel")
			return nil
		}
	}
}

func waitForRecords(t *testing.T, path string, match func([]manifest.Record) bool) []manifest.Record {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		records, err := manifest.ReadRecords(path)
		require.NoError(t, err)
		if match(records) {
			return records
		}
		time.Sleep(25 * time.Millisecond)
	}
	records, _ := manifest.ReadRecords(path)
	t.Fatalf("manifest never reached expected state, got %d records", len(records))
	return nil
}

func TestAgent_RecordsLifecycle(t *testing.T) {
	cfg := testConfig(t)
	a, stop := startAgent(t, cfg, t.TempDir())
	_ = a

	path := filepath.Join(cfg.WatchDir, "invoice.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0o644))

	records := waitForRecords(t, cfg.Manifest.Path, func(rs []manifest.Record) bool {
		return len(rs) >= 1
	})
	assert.Equal(t, manifest.KindCreated, records[0].Kind)
	assert.Equal(t, "invoice.txt", records[0].Name)
	assert.Equal(t,
		"b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		records[0].Digest)

	require.NoError(t, os.Remove(path))

	records = waitForRecords(t, cfg.Manifest.Path, func(rs []manifest.Record) bool {
		return len(rs) >= 2 && rs[len(rs)-1].Kind == manifest.KindDeleted
	})
	last := records[len(records)-1]
	assert.Equal(t, manifest.Sentinel, last.Digest)
	assert.Equal(t, "invoice.txt", last.Name)

	require.NoError(t, stop())
}

func TestAgent_SecondInstanceRejected(t *testing.T) {
	lockDir := t.TempDir()

	cfg1 := testConfig(t)
	_, stop := startAgent(t, cfg1, lockDir)
	defer stop()

	cfg2 := testConfig(t)
	second, err := agent.New(cfg2)
	require.NoError(t, err)
	defer second.Close()
	second.LockPath = filepath.Join(lockDir, "sfim.lock")
	second.PIDPath = filepath.Join(lockDir, "second.pid")

	err = second.Run(context.Background())
	require.ErrorIs(t, err, agent.ErrAlreadyRunning)
}

func TestAgent_MissingWatchDirFails(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.Remove(cfg.WatchDir))

	a, err := agent.New(cfg)
	require.NoError(t, err)
	defer a.Close()
	lockDir := t.TempDir()
	a.LockPath = filepath.Join(lockDir, "sfim.lock")
	a.PIDPath = filepath.Join(lockDir, "sfim.pid")

	err = a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watching")
}

func TestPIDFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "sfim.pid")

	require.NoError(t, agent.WritePIDFile(path))

	pid, err := agent.ReadPIDFile(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	assert.True(t, agent.IsAgentRunning(path))

	require.NoError(t, agent.RemovePIDFile(path))
	assert.False(t, agent.IsAgentRunning(path))
}

func TestIsAgentRunning_StalePID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sfim.pid")
	// Beyond any real pid_max, so no live process can match.
	require.NoError(t, os.WriteFile(path, []byte("99999999"), 0o644))

	assert.False(t, agent.IsAgentRunning(path))
}
