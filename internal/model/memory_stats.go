package model

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"UsersAPI/internal/logger"
)

// logRegistryStats reports registry size next to heap usage and the memory
// limit of the host or container.
func logRegistryStats() {
	limit, source := detectMemoryLimit()
	fields := map[string]any{
		"models":     len(Registry),
		"relations":  countRelations(),
		"heap_alloc": formatBytes(readAllocBytes()),
		"mem_source": source,
	}
	if limit > 0 {
		fields["mem_limit"] = formatBytes(limit)
	}
	logger.Info("registry_ready", fields)
}

func readAllocBytes() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

func countRelations() int {
	n := 0
	for _, m := range Registry {
		n += len(m.Relations)
	}
	return n
}

// detectMemoryLimit reads the cgroup limit, falling back to MemTotal.
// Returns 0 and "unknown" when nothing is readable.
func detectMemoryLimit() (uint64, string) {
	if data, err := os.ReadFile("/sys/fs/cgroup/memory.max"); err == nil {
		if v, ok := parseLimitValue(string(data)); ok {
			return v, "cgroup v2 memory.max"
		}
	}
	if data, err := os.ReadFile("/sys/fs/cgroup/memory/memory.limit_in_bytes"); err == nil {
		if v, ok := parseLimitValue(string(data)); ok {
			return v, "cgroup v1 memory.limit_in_bytes"
		}
	}
	if data, err := os.ReadFile("/proc/meminfo"); err == nil {
		for _, ln := range strings.Split(string(data), "\n") {
			if !strings.HasPrefix(ln, "MemTotal:") {
				continue
			}
			fields := strings.Fields(ln)
			if len(fields) >= 2 {
				if kb, err := strconv.ParseUint(fields[1], 10, 64); err == nil {
					return kb * 1024, "proc meminfo MemTotal"
				}
			}
		}
	}
	return 0, "unknown"
}

func parseLimitValue(raw string) (uint64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "max" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func formatBytes(v uint64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case v >= gb:
		return strconv.FormatFloat(float64(v)/float64(gb), 'f', 2, 64) + " GB"
	case v >= mb:
		return strconv.FormatFloat(float64(v)/float64(mb), 'f', 2, 64) + " MB"
	case v >= kb:
		return strconv.FormatFloat(float64(v)/float64(kb), 'f', 2, 64) + " KB"
	default:
		return strconv.FormatUint(v, 10) + " B"
	}
}
