//go:build !windows

package job

import "os/exec"

// hideWindow is a no-op outside Windows; children never get a console there.
func hideWindow(*exec.Cmd) {}
