package asyncfile

import "github.com/lliu-dev/asyncfile/internal/constants"

// Re-export internal constants as public API.
const (
	DefaultWorkerPoolSize = constants.DefaultWorkerPoolSize
	TaskQueueChunkSize    = constants.TaskQueueChunkSize
	RetryTimes            = constants.RetryTimes
	MaxFileNameLen        = constants.MaxFileNameLen
	DefaultQueueDepth     = constants.DefaultQueueDepth
	DefaultMaxIOSize      = constants.DefaultMaxIOSize
)
