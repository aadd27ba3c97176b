//go:build !windows

package engine

import (
	"os/exec"
	"syscall"
)

// setProcAttr puts the engine in its own process group so cancelling kills any children.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
}
