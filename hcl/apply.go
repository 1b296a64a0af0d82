// Copyright 2025 Juan Font
// BSD-3-Clause

package hcl

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/juanfont/pgvm/driver"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	DefaultScript = "hclvcenter.ps1"
	DefaultPwsh   = "pwsh"
)

var ErrApplyFailed = errors.New("PowerShell script execution failed")

// Runner runs an external command and returns what it wrote.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExitError is returned by a Runner when the command ran but exited
// non-zero.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExecRunner runs commands on the host.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		err = &ExitError{Code: exitErr.ExitCode()}
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

// Applier pushes an HCL file to vCenter through a PowerShell script.
type Applier struct {
	Fs     afero.Fs
	Runner Runner
	Pwsh   string
	Script string
}

func (a *Applier) command(creds *driver.ConnectConfig, path string) (string, []string) {
	pwsh := a.Pwsh
	if pwsh == "" {
		pwsh = DefaultPwsh
	}
	script := a.Script
	if script == "" {
		script = DefaultScript
	}
	return pwsh, []string{
		"-NoProfile",
		"-ExecutionPolicy", "Bypass",
		"-File", script,
		creds.Host,
		creds.Username,
		creds.Password,
		path,
	}
}

// Apply runs the script with the vCenter credentials and the HCL path as
// arguments and returns its standard output.
func (a *Applier) Apply(ctx context.Context, creds *driver.ConnectConfig, path string) (string, error) {
	if creds == nil || creds.Host == "" || creds.Username == "" || creds.Password == "" {
		return "", errors.New("incomplete credentials, ensure VCENTER_SERVER, VCENTER_USER and VCENTER_PASSWORD are defined")
	}

	exists, err := afero.Exists(a.Fs, path)
	if err != nil {
		return "", errors.Wrapf(err, "stat %s", path)
	}
	if !exists {
		return "", errors.Wrapf(ErrHCLMissing, "%s", path)
	}

	runner := a.Runner
	if runner == nil {
		runner = ExecRunner{}
	}

	name, args := a.command(creds, path)
	log.Debug().Str("command", name).Str("script", args[4]).Str("host", creds.Host).Msg("running PowerShell script")

	stdout, stderr, err := runner.Run(ctx, name, args...)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return "", errors.Wrapf(ErrApplyFailed, "%s", strings.TrimSpace(string(stderr)))
		}
		return "", errors.Wrap(err, "an error occurred while running the PowerShell script")
	}

	log.Info().Msg("PowerShell script executed successfully")
	return string(stdout), nil
}
