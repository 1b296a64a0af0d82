// Copyright 2025 Juan Font
// BSD-3-Clause

package main

import (
	"path/filepath"

	"github.com/juanfont/pgvm/backup"
	"github.com/juanfont/pgvm/jsondoc"
	"github.com/juanfont/pgvm/merge"
	"github.com/juanfont/pgvm/prompt"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const (
	defaultSetcredBackups = 5
	setcredBackupPrefix   = "backup_"
)

var setcredCmd = &cobra.Command{
	Use:   "setcred",
	Short: "Merge a JSON template into a base credentials file",
	Long: `Merge a JSON template into a base credentials file.

Keys of the template missing from the base file are added. Placeholder values
("", 0, false) are asked for, empty lists can be filled item by item. Values
already in the base file are never overwritten.

The base file is backed up to <dir>/backup/backup_N.json before it is written.

Example:
  pgvm setcred --json-template template.json --base-cred ~/.pgvm/lab01/cred.json --test`,
	RunE: runSetcred,
}

func init() {
	rootCmd.AddCommand(setcredCmd)

	setcredCmd.Flags().String("json-template", "", "Path to the JSON template file")
	setcredCmd.Flags().String("base-cred", "", "Path to the base credentials JSON file")
	setcredCmd.Flags().Bool("test", false, "Show the differences without making changes")
	_ = setcredCmd.MarkFlagRequired("json-template")
	_ = setcredCmd.MarkFlagRequired("base-cred")
}

func runSetcred(cmd *cobra.Command, _ []string) error {
	templatePath, _ := cmd.Flags().GetString("json-template")
	basePath, _ := cmd.Flags().GetString("base-cred")
	test, _ := cmd.Flags().GetBool("test")

	backups, err := backupLimit("setcred-backups")
	if err != nil {
		return err
	}
	return mergeCredentials(appFs, newConsole(), templatePath, basePath, test, backups)
}

func mergeCredentials(fs afero.Fs, c *prompt.Console, templatePath, basePath string, test bool, backups int) error {
	exists, err := afero.Exists(fs, basePath)
	if err != nil {
		return errors.Wrapf(err, "stat %s", basePath)
	}
	if !exists {
		c.Error("File %s does not exist.", basePath)
		create, err := c.Confirm(c.Label("[PROMPT] Would you like to create it? (yes/no): "))
		if err != nil {
			return err
		}
		if !create {
			return nil
		}
		if err := jsondoc.WriteFile(fs, basePath, jsondoc.NewObject()); err != nil {
			return err
		}
		c.Info("Created file: %s", basePath)
	}

	base, err := jsondoc.ReadObject(fs, basePath)
	if err != nil {
		return errors.Wrap(err, "invalid JSON format in base-cred file")
	}
	template, err := jsondoc.ReadObject(fs, templatePath)
	if err != nil {
		return errors.Wrap(err, "invalid JSON format in json-template file")
	}

	changes, err := merge.Template(template, base, c)
	if err != nil {
		return err
	}

	if test {
		out, err := jsondoc.Marshal(changes)
		if err != nil {
			return errors.Wrap(err, "encode changes")
		}
		c.Info("The following changes would be made to base-cred:")
		c.Say("%s", string(out[:len(out)-1]))
		return nil
	}

	r := &backup.Rotator{
		Fs:     fs,
		Dir:    filepath.Join(filepath.Dir(basePath), "backup"),
		Prefix: setcredBackupPrefix,
		Limit:  backups,
		Order:  backup.ByModTime,
		Name:   backup.Sequential(setcredBackupPrefix),
	}
	backupPath, err := r.Rotate(basePath)
	if err != nil {
		return err
	}
	c.Info("Backup created at: %s", backupPath)

	if err := jsondoc.WriteFile(fs, basePath, base); err != nil {
		return err
	}
	c.Info("Updated base-cred successfully at %s", basePath)
	return nil
}
