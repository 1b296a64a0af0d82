// Copyright 2025 Juan Font
// BSD-3-Clause

package main

import (
	"context"

	"github.com/juanfont/pgvm/driver"
	"github.com/juanfont/pgvm/hcl"
	"github.com/juanfont/pgvm/jsondoc"
	"github.com/juanfont/pgvm/prompt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var hclCmd = &cobra.Command{
	Use:   "hcl",
	Short: "Manage the custom vSAN hardware compatibility list",
}

var hclUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Stamp the custom HCL with the vendor publication time",
	Long: `Stamp the custom HCL with the vendor publication time.

The custom HCL is copied to --dest, the vendor list is fetched and its
timestamp and jsonUpdatedTime are written into the copy after backing it up.
With --update-vcenter the result is applied to vCenter by a PowerShell script
using the vcenter section of the profile's credentials.

Example:
  pgvm hcl update --test
  pgvm hcl update --hcl-path customhcl --update-vcenter --profile lab01`,
	RunE: runHCLUpdate,
}

func init() {
	rootCmd.AddCommand(hclCmd)
	hclCmd.AddCommand(hclUpdateCmd)

	viper.SetDefault("hcl-url", hcl.DefaultURL)
	viper.SetDefault("hcl-retries", 3)
	viper.SetDefault("pwsh", hcl.DefaultPwsh)
	viper.SetDefault("hcl-script", hcl.DefaultScript)

	f := hclUpdateCmd.Flags()
	f.String("hcl-path", hcl.DefaultSource, "Path to the customhcl file")
	f.String("dest", hcl.DefaultDest, "Where the stamped copy is written")
	f.String("backup", hcl.DefaultBackup, "Backup of the previous stamped copy")
	f.Bool("test", false, "Run in test mode (no changes will be made)")
	f.Bool("update-vcenter", false, "Apply the custom HCL to vCenter")
	f.String("profile", "", "Profile to use for vCenter credentials (defaults to ~/.pgvm/cred.json)")
	f.String("url", hcl.DefaultURL, "Vendor HCL document")
	f.String("script", hcl.DefaultScript, "PowerShell script applying the HCL")
	f.String("pwsh", hcl.DefaultPwsh, "PowerShell binary")
	f.Int("retries", 3, "Retries when fetching the vendor HCL")

	_ = viper.BindPFlag("hcl-url", f.Lookup("url"))
	_ = viper.BindPFlag("hcl-retries", f.Lookup("retries"))
	_ = viper.BindPFlag("hcl-script", f.Lookup("script"))
	_ = viper.BindPFlag("pwsh", f.Lookup("pwsh"))
}

func runHCLUpdate(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	source, _ := f.GetString("hcl-path")
	dest, _ := f.GetString("dest")
	backupPath, _ := f.GetString("backup")
	test, _ := f.GetBool("test")
	updateVCenter, _ := f.GetBool("update-vcenter")
	name, _ := f.GetString("profile")

	store, err := newStore()
	if err != nil {
		return err
	}

	u := &hcl.Updater{
		Fs:      appFs,
		Fetcher: hcl.NewFetcher(viper.GetString("hcl-url"), viper.GetInt("hcl-retries")),
		Applier: &hcl.Applier{
			Fs:     appFs,
			Runner: hcl.ExecRunner{},
			Pwsh:   viper.GetString("pwsh"),
			Script: viper.GetString("hcl-script"),
		},
	}
	opts := hcl.Options{
		Source:        source,
		Dest:          dest,
		Backup:        backupPath,
		Test:          test,
		UpdateVCenter: updateVCenter,
		Credentials: func() (*driver.ConnectConfig, error) {
			return store.VCenter(name)
		},
	}
	return updateHCL(cmd.Context(), newConsole(), u, opts)
}

func updateHCL(ctx context.Context, c *prompt.Console, u *hcl.Updater, opts hcl.Options) error {
	result, err := u.Run(ctx, opts)
	if err != nil {
		return err
	}

	c.Say("Retrieved timestamp: %s", jsondoc.Format(result.Stamp.Timestamp))
	c.Say("Retrieved jsonUpdatedTime: %s", jsondoc.Format(result.Stamp.UpdatedTime))

	if opts.Test {
		d := result.Diff
		c.Say("\n[TEST MODE] The file will not be updated. Changes are:")
		c.Say("  - Old 'timestamp': %s", formatStamp(d.OldTimestamp))
		c.Say("  - New 'timestamp': %s", formatStamp(d.NewTimestamp))
		c.Say("  - Old 'jsonUpdatedTime': %s", formatStamp(d.OldUpdatedTime))
		c.Say("  - New 'jsonUpdatedTime': %s", formatStamp(d.NewUpdatedTime))
	} else {
		c.Info("File %s successfully updated.", opts.Dest)
	}

	if opts.UpdateVCenter {
		c.Info("PowerShell script executed successfully.")
		c.Say("Output:")
		c.Say("%s", result.ApplyOutput)
	}
	return nil
}

func formatStamp(v interface{}) string {
	if v == nil {
		return "(none)"
	}
	return jsondoc.Format(v)
}
