// Copyright 2025 Juan Font
// BSD-3-Clause

package main

import (
	"github.com/juanfont/pgvm/driver"
	"github.com/juanfont/pgvm/inventory"
	"github.com/spf13/cobra"
)

var vmsCmd = &cobra.Command{
	Use:   "vms",
	Short: "Export the vCenter VMs and their tags to JSON",
	Long: `Export the vCenter VMs and their tags to JSON.

The vcenter section of the profile's credentials is used to connect. The
result is a list of {"name": ..., "tags": [...]} objects.

Example:
  pgvm vms --profile lab01 --output json/vms.json`,
	RunE: runVMs,
}

func init() {
	rootCmd.AddCommand(vmsCmd)

	vmsCmd.Flags().String("profile", "", "Profile to use for vCenter credentials (defaults to ~/.pgvm/cred.json)")
	vmsCmd.Flags().StringP("output", "o", inventory.DefaultOutput, "JSON output file")
}

func runVMs(cmd *cobra.Command, _ []string) error {
	name, _ := cmd.Flags().GetString("profile")
	output, _ := cmd.Flags().GetString("output")

	store, err := newStore()
	if err != nil {
		return err
	}
	config, err := store.VCenter(name)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	d, err := driver.NewVCenterDriver(ctx, config)
	if err != nil {
		return err
	}
	defer d.Cleanup(ctx)

	vms, err := inventory.Export(ctx, appFs, d, output)
	if err != nil {
		return err
	}
	newConsole().Info("%d VMs saved to %s.", len(vms), output)
	return nil
}
