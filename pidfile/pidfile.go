// Package pidfile provides the watcher daemon's singleton discipline: a PID
// file under the watch directory, extended with a command-line match check
// so a recycled PID belonging to an unrelated process is never mistaken for
// a live instance of this daemon.
package pidfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

// Alive returns true if process with a given pid is running. It only
// considers positive PIDs.
func Alive(pid int) bool {
	if pid < 1 {
		return false
	}
	switch runtime.GOOS {
	case "darwin":
		err := unix.Kill(pid, 0)
		return err == nil || err == unix.EPERM
	default:
		_, err := os.Stat(filepath.Join("/proc", strconv.Itoa(pid)))
		return err == nil
	}
}

// CmdlineMatches reports whether the running process with the given pid has
// a command line containing programSubstring. Used to distinguish a live
// instance of this daemon from an unrelated process that happens to have
// been assigned a recycled PID.
func CmdlineMatches(pid int, programSubstring string) bool {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	cmdline, err := p.Cmdline()
	if err != nil {
		return false
	}
	return strings.Contains(cmdline, programSubstring)
}

// Read reads the PID file at path, returning the PID if it contains a valid
// PID of a running process, or 0 otherwise. Malformed content is treated as
// "no PID" rather than an error.
func Read(path string) (pid int, err error) {
	pidByte, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err = strconv.Atoi(string(bytes.TrimSpace(pidByte)))
	if err != nil {
		return 0, nil
	}
	if pid != 0 && Alive(pid) {
		return pid, nil
	}
	return 0, nil
}

// ReadMatching reads the PID file at path and additionally requires that the
// running process's command line contains programSubstring. A PID belonging
// to a live but unrelated process (the recycled-PID case) is treated the
// same as a dead one: 0, nil.
func ReadMatching(path, programSubstring string) (pid int, err error) {
	pid, err = Read(path)
	if err != nil || pid == 0 {
		return pid, err
	}
	if !CmdlineMatches(pid, programSubstring) {
		return 0, nil
	}
	return pid, nil
}

// Write writes a PID file at the specified path, recording pid. It returns an error if the file already names a live,
// matching process.
func Write(path string, pid int, programSubstring string) error {
	if pid < 1 {
		return fmt.Errorf("invalid PID (%d): only positive PIDs are allowed", pid)
	}
	oldPID, err := ReadMatching(path, programSubstring)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if oldPID != 0 {
		return fmt.Errorf("process with PID %d is still running", oldPID)
	}
	return os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o644)
}

// Remove deletes the PID file at path. Missing-file is not an error.
func Remove(path string) error {
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
