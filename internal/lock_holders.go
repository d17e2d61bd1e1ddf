package internal

import (
	"path/filepath"
	"slices"

	"github.com/go-stdlog/stdlog"
	"github.com/shirou/gopsutil/v3/process"
)

// lookupLockHolders walks the system process table looking for processes that
// currently have path open. flock(2) does not report lock owners, so the
// result is a list of candidates rather than a definitive answer. This is an
// expensive operation, and is only performed after a lock failure.
func lookupLockHolders(path string, log stdlog.Logger) []int32 {
	abs, err := filepath.Abs(path)
	if err != nil {
		log.Warning("Failed resolving path for lock holder lookup", "path", path, "error", err.Error())
		return nil
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	procs, err := process.Processes()
	if err != nil {
		log.Warning("Failed listing processes for lock holder lookup", "error", err.Error())
		return nil
	}

	var holders []int32
	for _, proc := range procs {
		files, err := proc.OpenFiles()
		if err != nil {
			// Processes owned by other users are usually not inspectable.
			continue
		}
		for _, f := range files {
			if f.Path == abs {
				holders = append(holders, proc.Pid)
				break
			}
		}
	}

	slices.Sort(holders)
	log.Debug("Lock holder lookup finished", "path", abs, "holders", holders)
	return holders
}
