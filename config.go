package filecursor

import "github.com/go-stdlog/stdlog"

type Config struct {
	// Logger allows a given stdlog.Logger instance to be set as the system
	// logger. If unset, no logs will be generated.
	Logger stdlog.Logger

	// MemoryMapped makes cursors read through a read-only memory mapping of
	// the file instead of issuing read calls against its descriptor. The
	// mapping is taken when the cursor is opened; truncating the file while
	// it is mapped will crash the process, regardless of the advisory lock.
	MemoryMapped bool

	// LookupLockHolders enables a best-effort lookup of processes holding the
	// file open whenever a shared lock cannot be acquired. Results are
	// reported through errors.LockFailed. The lookup walks the whole process
	// table, and may be slow on busy systems.
	LookupLockHolders bool
}

func (c Config) GetLogger() stdlog.Logger {
	if c.Logger != nil {
		return c.Logger.Named("filecursor")
	}
	return stdlog.Discard
}

func (c Config) GetMemoryMapped() bool {
	return c.MemoryMapped
}

func (c Config) GetLookupLockHolders() bool {
	return c.LookupLockHolders
}
