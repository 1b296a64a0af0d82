// Copyright 2025 Juan Font
// BSD-3-Clause

package main

import (
	"strings"

	"github.com/juanfont/pgvm/driver"
	"github.com/juanfont/pgvm/jsondoc"
	"github.com/juanfont/pgvm/profile"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const defaultVCDOutput = "./json/vcd-vms.json"

var vcdCmd = &cobra.Command{
	Use:   "vcd",
	Short: "Query vCloud Director",
}

var vcdVMsCmd = &cobra.Command{
	Use:   "vms",
	Short: "Export the VMs of a vCD organization to JSON",
	Long: `Export the VMs of a vCD organization to JSON.

Connection settings come from the vcd section of the profile's credentials
(VCD_HOST, VCD_ORG, VCD_USER, VCD_PASSWORD, VCD_TOKEN, VCD_VDC, VCD_INSECURE).
Each of them can be overridden by a PGVM_VCD_* environment variable or a VCD_*
entry in a .env file.

Example:
  pgvm vcd vms --profile lab01 --vdc lab-vdc`,
	RunE: runVCDVMs,
}

func init() {
	rootCmd.AddCommand(vcdCmd)
	vcdCmd.AddCommand(vcdVMsCmd)

	vcdVMsCmd.Flags().String("profile", "", "Profile to read the vcd section from")
	vcdVMsCmd.Flags().String("vdc", "", "Restrict the listing to one VDC")
	vcdVMsCmd.Flags().StringP("output", "o", defaultVCDOutput, "JSON output file")
}

func runVCDVMs(cmd *cobra.Command, _ []string) error {
	name, _ := cmd.Flags().GetString("profile")
	vdc, _ := cmd.Flags().GetString("vdc")
	output, _ := cmd.Flags().GetString("output")

	store, err := newStore()
	if err != nil {
		return err
	}
	creds, err := vcdCredentials(store, name)
	if err != nil {
		return err
	}
	if vdc == "" {
		vdc = creds.VDC
	}

	log.Debug().
		Str("host", creds.Host).
		Str("org", creds.Org).
		Str("user", creds.Username).
		Bool("insecure", creds.InsecureConnection).
		Msg("connecting to vCD")

	d, err := driver.NewVCDDriver(&creds.ConnectConfig)
	if err != nil {
		return err
	}
	defer func() {
		if err := d.Cleanup(); err != nil {
			log.Warn().Err(err).Msg("cleanup")
		}
	}()

	vms, err := d.ListVMs(cmd.Context(), vdc)
	if err != nil {
		return err
	}

	c := newConsole()
	for _, vm := range vms {
		c.Say("%s/%s %s %s", vm.VApp, vm.Name, vm.Status, vm.IPAddress)
	}
	if err := jsondoc.WriteFile(appFs, output, vms); err != nil {
		return err
	}
	c.Info("%d VMs saved to %s.", len(vms), output)
	return nil
}

// vcdCredentials reads the vcd section of a profile and applies the
// environment overrides. A profile without cred.json only uses the
// environment.
func vcdCredentials(store *profile.Store, name string) (*profile.VCDCredentials, error) {
	creds, err := store.VCD(name)
	if err != nil {
		if !errors.Is(err, profile.ErrCredNotFound) {
			return nil, err
		}
		creds = &profile.VCDCredentials{}
	}

	override := func(dst *string, keys ...string) {
		if v := getEnv(keys...); v != "" {
			*dst = v
		}
	}
	override(&creds.Host, "VCD_HOST")
	override(&creds.Org, "VCD_ORG")
	override(&creds.Username, "VCD_USER", "VCD_USERNAME")
	override(&creds.Password, "VCD_PASSWORD")
	override(&creds.Token, "VCD_TOKEN")
	override(&creds.VDC, "VCD_VDC")
	if v := getEnv("VCD_INSECURE"); v != "" {
		creds.InsecureConnection = strings.EqualFold(v, "true")
	}

	return creds, nil
}
