// Copyright 2025 Juan Font
// BSD-3-Clause

package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/packer-plugin-sdk/multistep"
	"github.com/juanfont/pgvm/driver"
	"github.com/spf13/afero"
)

type Options struct {
	Source string
	Dest   string
	Backup string
	// Test reports the changes without writing or backing up.
	Test bool
	// UpdateVCenter applies the result with the Applier.
	UpdateVCenter bool
	// Credentials is only called when UpdateVCenter is set.
	Credentials func() (*driver.ConnectConfig, error)
}

func (o *Options) Prepare() []error {
	var errs []error

	if o.Source == "" {
		o.Source = DefaultSource
	}
	if o.Dest == "" {
		o.Dest = DefaultDest
	}
	if o.Backup == "" {
		o.Backup = DefaultBackup
	}
	if o.UpdateVCenter && o.Credentials == nil {
		errs = append(errs, fmt.Errorf("credentials are required to update vCenter"))
	}

	return errs
}

type Result struct {
	Stamp       *Stamp
	Diff        *Diff
	BackupPath  string
	ApplyOutput string
}

// Updater runs prepare, fetch, backup, splice and apply in that order.
type Updater struct {
	Fs      afero.Fs
	Fetcher *Fetcher
	Applier *Applier
}

func (u *Updater) steps(opts Options) []multistep.Step {
	steps := []multistep.Step{
		&StepPrepare{Source: opts.Source, Dest: opts.Dest},
		&StepFetch{Fetcher: u.Fetcher},
	}
	if !opts.Test {
		steps = append(steps, &StepBackup{Path: opts.Dest, Backup: opts.Backup})
	}
	steps = append(steps, &StepSplice{Path: opts.Dest, DryRun: opts.Test})
	if opts.UpdateVCenter {
		steps = append(steps, &StepApply{
			Applier:     u.Applier,
			Path:        opts.Dest,
			Credentials: opts.Credentials,
		})
	}
	return steps
}

func (u *Updater) Run(ctx context.Context, opts Options) (*Result, error) {
	if errs := opts.Prepare(); len(errs) > 0 {
		return nil, errs[0]
	}

	state := new(multistep.BasicStateBag)
	state.Put("fs", u.Fs)

	runner := &multistep.BasicRunner{Steps: u.steps(opts)}
	runner.Run(ctx, state)

	if rawErr, ok := state.GetOk("error"); ok {
		return nil, rawErr.(error)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		Stamp: state.Get("stamp").(*Stamp),
		Diff:  state.Get("diff").(*Diff),
	}
	if v, ok := state.GetOk("backup_path"); ok {
		result.BackupPath = v.(string)
	}
	if v, ok := state.GetOk("apply_output"); ok {
		result.ApplyOutput = v.(string)
	}
	return result, nil
}
