package constants

// Default configuration constants
const (
	// DefaultWorkerPoolSize is the number of worker goroutines in the MMAP
	// backend's pool, matching the original fixed-size thread pool.
	DefaultWorkerPoolSize = 10

	// TaskQueueChunkSize is the number of slots the MMAP backend's task
	// queue grows by each time it fills up.
	TaskQueueChunkSize = 1024

	// RetryTimes is the number of times mmap/open calls are retried on
	// transient failure before giving up.
	RetryTimes = 2

	// MaxFileNameLen bounds the length of a request's file path, mirroring
	// the fixed-size path buffer the accessor was originally modeled on.
	MaxFileNameLen = 511

	// DefaultQueueDepth is the default submission queue depth for the AIO
	// backend's ring.
	DefaultQueueDepth = 128

	// DefaultMaxIOSize is the default maximum single I/O size in bytes (1MB).
	DefaultMaxIOSize = 1 << 20
)
