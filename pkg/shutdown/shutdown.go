package shutdown

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"chatsync/pkg/logger"
)

// Abort logs a fatal error, writes a crash dump next to the cache and
// exits. The dump captures goroutine stacks so a wedged feed worker or
// push loop can be diagnosed after the fact.
func Abort(contextMsg string, err error, dbPath string) {
	logger.Error("startup_fatal", "msg", contextMsg, "error", err)
	if path, derr := writeCrashDump(dbPath, contextMsg, err); derr != nil {
		fmt.Fprintf(os.Stderr, "failed to write crash dump: %v\n", derr)
	} else {
		logger.Error("crash_dump_written", "path", path)
		fmt.Fprintf(os.Stderr, "crash dump written: %s\n", path)
	}
	logger.Sync()
	os.Exit(2)
}

// writeCrashDump writes a human-readable dump under <dbPath>/state/crash.
func writeCrashDump(dbPath, reason string, err error) (string, error) {
	dir := "./crash"
	if dbPath != "" {
		dir = filepath.Join(dbPath, "state", "crash")
	}
	if e := os.MkdirAll(dir, 0o700); e != nil {
		return "", fmt.Errorf("failed to create crash dir: %w", e)
	}

	path := filepath.Join(dir, fmt.Sprintf("crash-%d.log", time.Now().UnixNano()))
	f, ferr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if ferr != nil {
		return "", fmt.Errorf("failed to create crash file: %w", ferr)
	}
	defer func() { _ = f.Close() }()

	fmt.Fprintf(f, "time: %s\n", time.Now().UTC().Format(time.RFC3339Nano))
	fmt.Fprintf(f, "reason: %s\n", reason)
	if err != nil {
		fmt.Fprintf(f, "error: %v\n", err)
	}
	buf := make([]byte, 1<<20)
	n := runtime.Stack(buf, true)
	fmt.Fprintf(f, "\n== goroutines ==\n%s\n", buf[:n])
	return path, nil
}
