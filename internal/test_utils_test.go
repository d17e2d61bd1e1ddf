package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-stdlog/stdlog"
	"github.com/stretchr/testify/require"
)

type DummyConfig struct {
	MemoryMapped      bool
	LookupLockHolders bool
	Logger            stdlog.Logger
}

func (d DummyConfig) GetLogger() stdlog.Logger {
	return d.Logger
}

func (d DummyConfig) GetMemoryMapped() bool {
	return d.MemoryMapped
}

func (d DummyConfig) GetLookupLockHolders() bool {
	return d.LookupLockHolders
}

func WithLogger() DummyOpt {
	return func(d *DummyConfig) { d.Logger = stdlog.NewStd(os.Stdout) }
}

func WithMemoryMapped() DummyOpt {
	return func(d *DummyConfig) { d.MemoryMapped = true }
}

func WithLockHolderLookup() DummyOpt {
	return func(d *DummyConfig) { d.LookupLockHolders = true }
}

type DummyOpt func(*DummyConfig)

func NewDummyConfig(t *testing.T, dummyOpts ...DummyOpt) *DummyConfig {
	t.Helper()
	d := &DummyConfig{
		Logger: stdlog.Discard,
	}

	for _, opt := range dummyOpts {
		opt(d)
	}

	return d
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func openHandle(t *testing.T, content string, opts ...DummyOpt) *FileHandle {
	t.Helper()
	h, err := OpenFileHandle(writeFile(t, content), NewDummyConfig(t, opts...))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}
