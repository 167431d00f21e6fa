// Command asyncfile-bench drives a sequence of read/write requests through
// an Accessor and reports the resulting throughput and latency.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lliu-dev/asyncfile"
	"github.com/lliu-dev/asyncfile/internal/logging"
)

func main() {
	var (
		kindStr    = flag.String("backend", "mmap", "Backend to use: mmap or aio")
		sizeStr    = flag.String("size", "64K", "Size of each write/read (e.g., 4K, 1M)")
		iterations = flag.Int("n", 100, "Number of write+read round trips to run")
		workers    = flag.Int("workers", asyncfile.DefaultWorkerPoolSize, "MMAP worker pool size")
		queueDepth = flag.Uint("queue-depth", uint(asyncfile.DefaultQueueDepth), "AIO submission queue depth")
		verbose    = flag.Bool("v", false, "Verbose output")
		dir        = flag.String("dir", "", "Working directory for bench files (default: a temp dir)")
	)
	flag.Parse()

	size, err := parseSize(*sizeStr)
	if err != nil {
		log.Fatalf("invalid size %q: %v", *sizeStr, err)
	}

	var kind asyncfile.Kind
	switch strings.ToLower(*kindStr) {
	case "mmap":
		kind = asyncfile.KindMMAP
	case "aio":
		kind = asyncfile.KindAIO
	default:
		log.Fatalf("unknown backend %q, want mmap or aio", *kindStr)
	}

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	workDir := *dir
	if workDir == "" {
		workDir, err = os.MkdirTemp("", "asyncfile-bench-")
		if err != nil {
			log.Fatalf("failed to create work dir: %v", err)
		}
		defer os.RemoveAll(workDir)
	}

	a, err := asyncfile.NewAccessor(kind, asyncfile.Config{
		WorkerPoolSize: *workers,
		QueueDepth:     uint32(*queueDepth),
		Logger:         logger,
	})
	if err != nil {
		log.Fatalf("failed to create %s accessor: %v", kind, err)
	}
	defer a.ReleaseAll()

	metrics := asyncfile.NewMetrics()
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(i)
	}

	fmt.Printf("backend=%s size=%s iterations=%d\n", kind, formatSize(size), *iterations)

	for i := 0; i < *iterations; i++ {
		path := filepath.Join(workDir, fmt.Sprintf("bench-%d.bin", i))

		start := time.Now()
		wreq, err := a.GetRequest(asyncfile.RequestInfo{Direction: asyncfile.DirectionWrite, Path: path, Size: uint32(size)})
		if err != nil {
			log.Fatalf("GetRequest(write) failed: %v", err)
		}
		buf, err := a.AllocWriteBuf(wreq)
		if err != nil {
			log.Fatalf("AllocWriteBuf failed: %v", err)
		}
		copy(buf, payload)
		if err := a.PutRequest(wreq); err != nil {
			log.Fatalf("PutRequest(write) failed: %v", err)
		}
		if err := a.WaitRequest(wreq, 0); err != nil {
			metrics.RecordWrite(uint64(size), uint64(time.Since(start)), false)
			log.Fatalf("WaitRequest(write) failed: %v", err)
		}
		metrics.RecordWrite(uint64(size), uint64(time.Since(start)), true)

		start = time.Now()
		rreq, err := a.GetRequest(asyncfile.RequestInfo{Direction: asyncfile.DirectionRead, Path: path, Size: uint32(size)})
		if err != nil {
			log.Fatalf("GetRequest(read) failed: %v", err)
		}
		dst := make([]byte, size)
		if err := a.ImportReadBuf(rreq, dst); err != nil {
			log.Fatalf("ImportReadBuf failed: %v", err)
		}
		if err := a.PutRequest(rreq); err != nil {
			log.Fatalf("PutRequest(read) failed: %v", err)
		}
		if err := a.WaitRequest(rreq, 0); err != nil {
			metrics.RecordRead(uint64(size), uint64(time.Since(start)), false)
			log.Fatalf("WaitRequest(read) failed: %v", err)
		}
		metrics.RecordRead(uint64(size), uint64(time.Since(start)), true)
	}

	metrics.Stop()
	snap := metrics.Snapshot()
	fmt.Printf("\nread:  ops=%d bytes=%d iops=%.1f bandwidth=%.1f MB/s\n",
		snap.ReadOps, snap.ReadBytes, snap.ReadIOPS, snap.ReadBandwidth/1e6)
	fmt.Printf("write: ops=%d bytes=%d iops=%.1f bandwidth=%.1f MB/s\n",
		snap.WriteOps, snap.WriteBytes, snap.WriteIOPS, snap.WriteBandwidth/1e6)
	fmt.Printf("latency: avg=%s p50=%s p99=%s\n",
		time.Duration(snap.AvgLatencyNs), time.Duration(snap.LatencyP50Ns), time.Duration(snap.LatencyP99Ns))
}

// parseSize parses a size string like "64K", "1M", "512".
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(s)

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "K"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "M")
	case strings.HasSuffix(s, "G"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "G")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(numStr, 10, 64)
	if err != nil {
		return 0, err
	}
	return num * multiplier, nil
}

// formatSize formats a byte count as a human-readable string.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"K", "M", "G", "T"}
	return fmt.Sprintf("%.1f %sB", float64(bytes)/float64(div), units[exp])
}
