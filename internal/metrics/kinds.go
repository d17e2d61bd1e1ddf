package metrics

type MetricKind uint8

const (
	CursorOpenCalls MetricKind = iota
	CursorOpenLatency
	CursorOpenFailures
	CursorLockFailures
	CursorCloseCalls
	CursorCloneCalls
	CursorResumeCalls

	HandleReadCalls
	HandleReadLatency
	HandleReadFailures
	HandleBytesRead

	IndexExtendCalls
	IndexExtendLatency
	IndexBytesScanned
	IndexEntriesAppended
	IndexRewinds
	IndexCompletions
)
