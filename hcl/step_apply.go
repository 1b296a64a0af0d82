// Copyright 2025 Juan Font
// BSD-3-Clause

package hcl

import (
	"context"

	"github.com/hashicorp/packer-plugin-sdk/multistep"
	"github.com/juanfont/pgvm/driver"
)

// StepApply runs the PowerShell script against vCenter and records its
// output as "apply_output".
type StepApply struct {
	Applier     *Applier
	Path        string
	Credentials func() (*driver.ConnectConfig, error)
}

func (s *StepApply) Run(ctx context.Context, state multistep.StateBag) multistep.StepAction {
	creds, err := s.Credentials()
	if err != nil {
		state.Put("error", err)
		return multistep.ActionHalt
	}

	out, err := s.Applier.Apply(ctx, creds, s.Path)
	if err != nil {
		state.Put("error", err)
		return multistep.ActionHalt
	}
	state.Put("apply_output", out)
	return multistep.ActionContinue
}

func (s *StepApply) Cleanup(_ multistep.StateBag) {}
