// Copyright 2025 Juan Font
// BSD-3-Clause

package hcl

import (
	"context"

	"github.com/hashicorp/packer-plugin-sdk/multistep"
	"github.com/spf13/afero"
)

// StepBackup saves the working HCL before it is stamped.
type StepBackup struct {
	Path   string
	Backup string
}

func (s *StepBackup) Run(_ context.Context, state multistep.StateBag) multistep.StepAction {
	fs := state.Get("fs").(afero.Fs)

	if err := Backup(fs, s.Path, s.Backup); err != nil {
		state.Put("error", err)
		return multistep.ActionHalt
	}
	state.Put("backup_path", s.Backup)
	return multistep.ActionContinue
}

func (s *StepBackup) Cleanup(_ multistep.StateBag) {}

// StepSplice writes the stamp into the working HCL and records the diff as
// "diff".
type StepSplice struct {
	Path   string
	DryRun bool
}

func (s *StepSplice) Run(_ context.Context, state multistep.StateBag) multistep.StepAction {
	fs := state.Get("fs").(afero.Fs)
	stamp := state.Get("stamp").(*Stamp)

	diff, err := Splice(fs, s.Path, stamp, s.DryRun)
	if err != nil {
		state.Put("error", err)
		return multistep.ActionHalt
	}
	state.Put("diff", diff)
	return multistep.ActionContinue
}

func (s *StepSplice) Cleanup(_ multistep.StateBag) {}
