package metrics

import (
	"sync/atomic"

	"github.com/heyvito/filecursor/internal/metrics"
)

var hasDelegate atomic.Bool

// InstallDelegate starts forwarding instrumentation readings to the provided
// delegates. Only the first call has any effect; readings produced before a
// delegate is installed are discarded.
func InstallDelegate(del *Delegates) {
	if hasDelegate.Swap(true) {
		return
	}
	go metrics.Dispatch(del)
}

type Delegates struct {
	Cursor CursorInstrumentationDelegate
	Handle HandleInstrumentationDelegate
	Index  IndexInstrumentationDelegate
}

func (d *Delegates) Dispatch(kind metrics.MetricKind, value float64) {
	switch kind {
	case metrics.CursorOpenCalls:
		d.Cursor.OpenCalls(value)
	case metrics.CursorOpenLatency:
		d.Cursor.OpenLatency(value)
	case metrics.CursorOpenFailures:
		d.Cursor.OpenFailures(value)
	case metrics.CursorLockFailures:
		d.Cursor.LockFailures(value)
	case metrics.CursorCloseCalls:
		d.Cursor.CloseCalls(value)
	case metrics.CursorCloneCalls:
		d.Cursor.CloneCalls(value)
	case metrics.CursorResumeCalls:
		d.Cursor.ResumeCalls(value)
	case metrics.HandleReadCalls:
		d.Handle.ReadCalls(value)
	case metrics.HandleReadLatency:
		d.Handle.ReadLatency(value)
	case metrics.HandleReadFailures:
		d.Handle.ReadFailures(value)
	case metrics.HandleBytesRead:
		d.Handle.BytesRead(value)
	case metrics.IndexExtendCalls:
		d.Index.ExtendCalls(value)
	case metrics.IndexExtendLatency:
		d.Index.ExtendLatency(value)
	case metrics.IndexBytesScanned:
		d.Index.BytesScanned(value)
	case metrics.IndexEntriesAppended:
		d.Index.EntriesAppended(value)
	case metrics.IndexRewinds:
		d.Index.Rewinds(value)
	case metrics.IndexCompletions:
		d.Index.Completions(value)
	}
}

type CursorInstrumentationDelegate interface {
	OpenCalls(float64)
	OpenLatency(float64)
	OpenFailures(float64)
	LockFailures(float64)
	CloseCalls(float64)
	CloneCalls(float64)
	ResumeCalls(float64)
}

type HandleInstrumentationDelegate interface {
	ReadCalls(float64)
	ReadLatency(float64)
	ReadFailures(float64)
	BytesRead(float64)
}

type IndexInstrumentationDelegate interface {
	ExtendCalls(float64)
	ExtendLatency(float64)
	BytesScanned(float64)
	EntriesAppended(float64)
	Rewinds(float64)
	Completions(float64)
}
