package filecursor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-stdlog/stdlog"
	"github.com/stretchr/testify/require"
)

var testConfig = Config{Logger: stdlog.Discard}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func openBytes(t *testing.T, content string, mode Mode) (*ByteCursor, string) {
	t.Helper()
	path := writeFile(t, content)
	c, err := OpenByteCursor(path, mode, testConfig)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, path
}

func openRecords(t *testing.T, content, delimiter string, bufferSize int) (*RecordCursor, string) {
	t.Helper()
	path := writeFile(t, content)
	c, err := OpenRecordCursor(path, delimiter, bufferSize, testConfig)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, path
}

func currentString(t *testing.T, c *RecordCursor) (string, bool) {
	t.Helper()
	rec, ok, err := c.Current()
	require.NoError(t, err)
	return string(rec), ok
}
