//go:build !windows

package supervisor

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcGroup places cmd in a new process group (Setpgid) so terminate
// and kill can reach any grandchildren via a negative pgid (spec.md §4.7:
// "start children with new session id"). exec.Cmd.SysProcAttr is typed as
// *syscall.SysProcAttr, so the struct itself still comes from syscall.
func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminate signals the whole process group with SIGTERM.
func terminate(pid int) {
	unix.Kill(-pid, unix.SIGTERM)
}

// kill signals the whole process group with SIGKILL.
func kill(pid int) {
	unix.Kill(-pid, unix.SIGKILL)
}
