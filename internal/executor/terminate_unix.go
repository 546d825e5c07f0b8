//go:build !windows

package executor

import (
	"os/exec"
	"syscall"
)

// setProcessGroup places the child in its own process group so terminate
// can signal the shell and everything it spawned in one call.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminate kills the child's process group. An error means the group no
// longer exists, i.e. the tree already exited.
func terminate(cmd *exec.Cmd) error {
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
