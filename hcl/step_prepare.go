// Copyright 2025 Juan Font
// BSD-3-Clause

package hcl

import (
	"context"

	"github.com/hashicorp/packer-plugin-sdk/multistep"
	"github.com/spf13/afero"
)

// StepPrepare copies the operator's HCL to the working path.
type StepPrepare struct {
	Source string
	Dest   string
}

func (s *StepPrepare) Run(_ context.Context, state multistep.StateBag) multistep.StepAction {
	fs := state.Get("fs").(afero.Fs)

	if err := Prepare(fs, s.Source, s.Dest); err != nil {
		state.Put("error", err)
		return multistep.ActionHalt
	}
	return multistep.ActionContinue
}

func (s *StepPrepare) Cleanup(_ multistep.StateBag) {}
