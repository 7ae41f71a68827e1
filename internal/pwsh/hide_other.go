//go:build !windows

package pwsh

import "os/exec"

func hideWindow(cmd *exec.Cmd) {}
