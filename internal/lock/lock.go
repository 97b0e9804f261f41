// Package lock serializes migration runs on one machine through a PID
// lock file. The lock is advisory: it guards against a second
// schemaforge process, not against other tools touching the database.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/schemaforge/schemaforge/internal/config"
)

const DefaultPath = "~/.schemaforge/schemaforge.lock"

// Guard is a held lock. Release it when the run finishes.
type Guard struct {
	path string
}

// Status describes the lock file without taking it.
type Status struct {
	Held bool
	PID  int
}

// Acquire takes the migration lock, recording this process's PID. A
// lock left behind by a dead process is reclaimed silently; a live
// holder refuses the acquisition.
func Acquire(path string) (*Guard, error) {
	path = resolve(path)

	if pid, running := holder(path); running {
		return nil, fmt.Errorf("another schemaforge instance is running (PID %d); only one migration can run at a time", pid)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		return nil, fmt.Errorf("writing lock file: %w", err)
	}
	return &Guard{path: path}, nil
}

// Release removes the lock file. A missing file is not an error, so a
// deferred Release stays safe on every exit path.
func (g *Guard) Release() error {
	err := os.Remove(g.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Inspect reports whether a live process holds the lock. The status
// command uses it to surface an in-flight migration; a stale file
// reports not held.
func Inspect(path string) (Status, error) {
	path = resolve(path)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Status{}, nil
		}
		return Status{}, err
	}
	pid, running := holder(path)
	return Status{Held: running, PID: pid}, nil
}

func resolve(path string) string {
	if path == "" {
		path = DefaultPath
	}
	return config.ExpandHome(path)
}

// holder reads the PID recorded in the lock file and reports whether
// that process is alive. A missing or malformed file means no holder.
func holder(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, alive(pid)
}

func alive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}
