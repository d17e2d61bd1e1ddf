package internal

import "github.com/go-stdlog/stdlog"

type Config interface {
	GetLogger() stdlog.Logger
	GetMemoryMapped() bool
	GetLookupLockHolders() bool
}
