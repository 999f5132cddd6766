package commands

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/devdiag/internal/config"
	"github.com/Dicklesworthstone/devdiag/internal/model"
)

// run executes args on a fresh command tree and returns its output, the
// resolved options and the error.
func run(args ...string) (string, *rootOptions, error) {
	o := &rootOptions{flags: config.Default()}
	cmd := newRootCmd(o)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), o, err
}

func execute(t *testing.T, args ...string) (string, *rootOptions) {
	t.Helper()
	out, o, err := run(args...)
	require.NoError(t, err)
	return out, o
}

func TestVersionCommand(t *testing.T) {
	out, _ := execute(t, "version")
	assert.Contains(t, out, "devdiag")
	assert.Contains(t, out, "Version:  dev")
}

func TestScanCommand(t *testing.T) {
	out, o := execute(t, "scan", "--model", "iPhone 13 Pro", "--cpu-iterations", "1000", "--log-file", t.TempDir()+"/scan.log")

	var snap model.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, "iPhone 13 Pro", snap.Capabilities.DeviceModelHint)
	assert.Equal(t, 6144.0, snap.Memory.TotalMB)
	assert.LessOrEqual(t, snap.Memory.UsedMB, 0.9*snap.Memory.TotalMB)
	assert.GreaterOrEqual(t, snap.CPU.UsagePercent, 5)
	assert.LessOrEqual(t, snap.CPU.UsagePercent, 95)
	assert.Len(t, snap.History, 1)
	assert.NotEmpty(t, snap.ScanID)
	assert.Equal(t, 1000, o.cfg.CPU.Iterations)
}

func TestWatchCommand(t *testing.T) {
	out, _ := execute(t, "watch", "--count", "2", "--interval", "10ms", "--cpu-iterations", "1000", "--log-file", t.TempDir()+"/watch.log")

	dec := json.NewDecoder(bytes.NewBufferString(out))
	var n int
	for dec.More() {
		var snap model.Snapshot
		require.NoError(t, dec.Decode(&snap))
		assert.NotEmpty(t, snap.History)
		n++
	}
	assert.Equal(t, 2, n)
}

func TestInvalidConfigRejected(t *testing.T) {
	_, _, err := run("scan", "--interval", "0s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval")
}

func TestCommandTreesDoNotShareState(t *testing.T) {
	logDir := t.TempDir()
	_, first := execute(t, "scan", "--interval", "2s", "--cpu-iterations", "1000", "--log-file", logDir+"/scan.log")
	assert.Equal(t, 2*time.Second, first.cfg.Interval)
	assert.Equal(t, logDir+"/scan.log", first.cfg.LogFile)

	_, second, err := run("scan", "--interval", "0s", "--cpu-iterations", "1000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "interval")
	assert.Empty(t, second.flags.LogFile)

	_, third := execute(t, "scan", "--cpu-iterations", "1000", "--log-file", logDir+"/third.log")
	assert.Equal(t, config.Default().Interval, third.cfg.Interval)
	assert.Equal(t, logDir+"/third.log", third.cfg.LogFile)
}

func TestNewRootCmdRegistersSubcommands(t *testing.T) {
	root := NewRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"version", "scan", "watch", "serve"})
	assert.NotNil(t, root.PersistentFlags().Lookup("cpu-scale"))
	assert.NotNil(t, root.PersistentFlags().Lookup("memory-max-used"))
}
