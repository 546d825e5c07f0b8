//go:build windows

package executor

import "os/exec"

// setProcessGroup is a no-op: there is no Setpgid equivalent wired here,
// the direct child is killed on its own.
func setProcessGroup(cmd *exec.Cmd) {}

// terminate kills the direct child. An error means the process already
// finished.
func terminate(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
