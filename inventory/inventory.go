// Copyright 2025 Juan Font
// BSD-3-Clause

// Package inventory exports the virtual machines of a vCenter to a JSON
// file that other lab scripts read.
package inventory

import (
	"context"
	"path/filepath"

	"github.com/juanfont/pgvm/driver"
	"github.com/juanfont/pgvm/jsondoc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const DefaultOutput = "./json/vms.json"

type Lister interface {
	ListVMs(ctx context.Context) ([]driver.VM, error)
}

// Collect lists the VMs and normalizes missing tag lists to empty ones.
func Collect(ctx context.Context, lister Lister) ([]driver.VM, error) {
	vms, err := lister.ListVMs(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "error retrieving VMs from vCenter")
	}
	for i := range vms {
		if vms[i].Tags == nil {
			vms[i].Tags = []string{}
		}
	}
	return vms, nil
}

// Write stores vms as an indented JSON list, creating the parent directory.
func Write(fs afero.Fs, path string, vms []driver.VM) error {
	if vms == nil {
		vms = []driver.VM{}
	}
	for i := range vms {
		if vms[i].Tags == nil {
			vms[i].Tags = []string{}
		}
	}

	data, err := jsondoc.Marshal(vms)
	if err != nil {
		return errors.Wrap(err, "encode vm inventory")
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create directory for %s", path)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	log.Info().Str("path", path).Int("vms", len(vms)).Msg("VM data saved")
	return nil
}

// Export collects and writes in one step.
func Export(ctx context.Context, fs afero.Fs, lister Lister, path string) ([]driver.VM, error) {
	vms, err := Collect(ctx, lister)
	if err != nil {
		return nil, err
	}
	if err := Write(fs, path, vms); err != nil {
		return nil, err
	}
	return vms, nil
}
