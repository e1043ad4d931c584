package singleton

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

const killConfirmWait = 2 * time.Second

// executableIdentity returns the base name of the running binary, the identity
// other instances are matched against.
func executableIdentity() string {
	exe, err := os.Executable()
	if err != nil {
		return filepath.Base(os.Args[0])
	}
	return filepath.Base(exe)
}

// matchesIdentity reports whether p looks like another instance of this
// program. Both the process name and the invocation command line must carry
// our binary name; name alone would match unrelated processes.
func matchesIdentity(p *process.Process, identity string) bool {
	name, err := p.Name()
	if err != nil || !strings.EqualFold(name, identity) {
		return false
	}
	cmdline, err := p.Cmdline()
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(cmdline), strings.ToLower(strings.TrimSuffix(identity, ".exe")))
}

// findSiblings enumerates live processes that match our identity, excluding
// selfPID.
func findSiblings(selfPID int) ([]int, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}
	identity := executableIdentity()
	var pids []int
	for _, p := range procs {
		if int(p.Pid) == selfPID {
			continue
		}
		if matchesIdentity(p, identity) {
			pids = append(pids, int(p.Pid))
		}
	}
	return pids, nil
}

// pidAlive reports whether pid refers to a live process.
func pidAlive(pid int) bool {
	ok, err := process.PidExists(int32(pid))
	return err == nil && ok
}

// terminatePID stops the process. Graceful mode sends a termination signal
// and polls for exit up to gracefulWait before escalating to a hard kill;
// fast-kill mode goes straight to the hard kill. An error means the process
// survived the kill, which is fatal to lock acquisition.
func terminatePID(pid int, mode Mode, gracefulWait time.Duration) error {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		// Already gone.
		return nil
	}
	if mode == ModeGraceful {
		if err := p.Terminate(); err == nil {
			if waitGone(p, gracefulWait) {
				return nil
			}
		}
	}
	if err := p.Kill(); err != nil {
		if !pidAlive(pid) {
			return nil
		}
		return fmt.Errorf("kill pid %d: %w", pid, err)
	}
	if !waitGone(p, killConfirmWait) {
		return fmt.Errorf("pid %d still alive after kill", pid)
	}
	return nil
}

func waitGone(p *process.Process, wait time.Duration) bool {
	deadline := time.Now().Add(wait)
	for {
		running, err := p.IsRunning()
		if err != nil || !running {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(50 * time.Millisecond)
	}
}
