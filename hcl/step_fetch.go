// Copyright 2025 Juan Font
// BSD-3-Clause

package hcl

import (
	"context"

	"github.com/hashicorp/packer-plugin-sdk/multistep"
)

// StepFetch puts the vendor stamp in the state as "stamp".
type StepFetch struct {
	Fetcher *Fetcher
}

func (s *StepFetch) Run(ctx context.Context, state multistep.StateBag) multistep.StepAction {
	stamp, err := s.Fetcher.Fetch(ctx)
	if err != nil {
		state.Put("error", err)
		return multistep.ActionHalt
	}
	state.Put("stamp", stamp)
	return multistep.ActionContinue
}

func (s *StepFetch) Cleanup(_ multistep.StateBag) {}
