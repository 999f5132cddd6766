package logging_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/devdiag/internal/logging"
)

func TestNew_JSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devdiag.log")
	log, flush, err := logging.New(logging.Options{Format: "json", Verbosity: 1, OutputPath: path})
	require.NoError(t, err)

	log.WithName("scanner").V(1).Info("scan complete", "cpu", 25)
	log.V(2).Info("too verbose")
	flush()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "scan complete", rec["msg"])
	assert.Equal(t, "scanner", rec["logger"])
	assert.Equal(t, 25.0, rec["cpu"])
}

func TestNew_UnknownFormat(t *testing.T) {
	_, _, err := logging.New(logging.Options{Format: "xml"})
	require.Error(t, err)
}
