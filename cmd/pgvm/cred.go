// Copyright 2025 Juan Font
// BSD-3-Clause

package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/juanfont/pgvm/jsondoc"
	"github.com/juanfont/pgvm/merge"
	"github.com/juanfont/pgvm/profile"
	"github.com/juanfont/pgvm/prompt"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var errInvalidChoice = errors.New("invalid choice")

var credCmd = &cobra.Command{
	Use:   "cred",
	Short: "Create or update the credentials of a profile",
	Long: `Create or update the credentials of a profile.

The parameters asked for come from the base structure of a script,
<scripts-dir>/scripts/<script>/<script>-cred.json. Every value is shown with
its current setting; leave the answer empty to keep it. The previous cred.json
is backed up before it is replaced.

Example:
  pgvm cred --script manageVMs
  pgvm cred --script hclupdate --profile lab01`,
	RunE: runCred,
}

var credShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the credentials of a profile with secrets masked",
	RunE:  runCredShow,
}

var credListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	RunE:  runCredList,
}

func init() {
	rootCmd.AddCommand(credCmd)
	credCmd.AddCommand(credShowCmd)
	credCmd.AddCommand(credListCmd)

	credCmd.Flags().String("script", "", "Script whose base structure is used")
	credCmd.Flags().String("profile", "", "Profile to update (asked for when empty)")
	credCmd.Flags().String("scripts-dir", ".", "Directory holding scripts/<script>/<script>-cred.json")

	credShowCmd.Flags().String("profile", "", "Profile to show (default credentials when empty)")
	credShowCmd.Flags().StringP("output", "o", "json", "Output format: json or yaml")
	credShowCmd.Flags().Bool("reveal", false, "Do not mask secrets")
}

func runCred(cmd *cobra.Command, _ []string) error {
	script, _ := cmd.Flags().GetString("script")
	name, _ := cmd.Flags().GetString("profile")
	scriptsDir, _ := cmd.Flags().GetString("scripts-dir")
	if !cmd.Flags().Changed("scripts-dir") && viper.IsSet("scripts-dir") {
		scriptsDir = viper.GetString("scripts-dir")
	}

	store, err := newStore()
	if err != nil {
		return err
	}
	return buildCredentials(appFs, store, newConsole(), profile.BaseStructurePath(scriptsDir, script), name)
}

// buildCredentials fills a profile's cred.json from the base structure at
// basePath. When name is empty the operator picks or creates a profile.
func buildCredentials(fs afero.Fs, store *profile.Store, c *prompt.Console, basePath, name string) error {
	base, err := jsondoc.ReadObject(fs, basePath)
	if err != nil {
		if jsondoc.IsNotExist(err) {
			c.Say("Script does not require credentials")
			return nil
		}
		return errors.Wrap(err, "load base structure")
	}

	create := false
	if name == "" {
		name, create, err = chooseProfile(store, c)
		if err != nil {
			return err
		}
	}

	if !create {
		exists, err := store.Exists(name)
		if err != nil {
			return err
		}
		create = !exists
	}
	if create {
		return createProfile(store, c, base, name)
	}

	credPath := store.CredPath(name)
	existing, err := store.Load(name)
	if errors.Is(err, profile.ErrCredNotFound) {
		// directory left behind by an interrupted run
		existing, err = jsondoc.NewObject(), nil
	}
	if err != nil {
		return err
	}

	if existing.Len() == 0 {
		c.Say("No existing cred.json found. Creating a new one.")
		values, err := merge.Verify(jsondoc.NewObject(), base, c)
		if err != nil {
			return err
		}
		return store.Save(name, values)
	}

	c.Say("Loaded existing cred.json for %s", name)
	updated, err := merge.Verify(existing, base, c)
	if err != nil {
		return err
	}
	if _, err := store.Backup(name); err != nil {
		return err
	}
	if err := store.Save(name, updated); err != nil {
		return err
	}
	c.Say("Updated credentials saved to %s", credPath)
	return nil
}

// chooseProfile lists the profiles and returns the operator's pick. The
// answer "n" asks for a name and reports it as a profile to create.
func chooseProfile(store *profile.Store, c *prompt.Console) (string, bool, error) {
	profiles, err := store.List()
	if err != nil {
		return "", false, err
	}

	c.Say("Available profiles:")
	for i, p := range profiles {
		c.Say("%d. %s", i+1, p)
	}
	c.Say("\nOptions:")
	c.Say("n. Create a new profile")

	choice, err := c.Ask("Choose an existing profile by number or type 'n' to create a new one: ")
	if err != nil {
		return "", false, err
	}

	if strings.EqualFold(choice, "n") {
		name, err := c.Ask("Enter name for the new profile: ")
		if err != nil {
			return "", false, err
		}
		if err := profile.ValidateName(name); err != nil {
			return "", false, err
		}
		return name, true, nil
	}

	idx, err := strconv.Atoi(choice)
	if err != nil || idx < 1 || idx > len(profiles) {
		return "", false, errors.Wrapf(errInvalidChoice, "%q", choice)
	}
	return profiles[idx-1], false, nil
}

func createProfile(store *profile.Store, c *prompt.Console, base *jsondoc.Object, name string) error {
	if _, err := store.Create(name); err != nil {
		return err
	}
	c.Say("Created new profile: %s", name)

	c.Say("Provide values for the following parameters:")
	values, err := merge.Verify(jsondoc.NewObject(), base, c)
	if err != nil {
		return err
	}
	if err := store.Save(name, values); err != nil {
		return err
	}
	c.Say("Saved credentials to %s", store.CredPath(name))
	return nil
}

func runCredShow(cmd *cobra.Command, _ []string) error {
	name, _ := cmd.Flags().GetString("profile")
	output, _ := cmd.Flags().GetString("output")
	reveal, _ := cmd.Flags().GetBool("reveal")

	store, err := newStore()
	if err != nil {
		return err
	}
	return showCredentials(os.Stdout, store, name, output, reveal)
}

func showCredentials(w io.Writer, store *profile.Store, name, output string, reveal bool) error {
	doc, err := store.Load(name)
	if err != nil {
		return err
	}
	if !reveal {
		doc = profile.Mask(doc)
	}

	var out []byte
	switch strings.ToLower(output) {
	case "json", "":
		out, err = jsondoc.Marshal(doc)
	case "yaml", "yml":
		out, err = yaml.Marshal(doc)
	default:
		return errors.Errorf("unknown output format %q", output)
	}
	if err != nil {
		return errors.Wrap(err, "encode credentials")
	}
	_, err = w.Write(out)
	return err
}

func runCredList(_ *cobra.Command, _ []string) error {
	store, err := newStore()
	if err != nil {
		return err
	}
	profiles, err := store.List()
	if err != nil {
		return err
	}
	for _, p := range profiles {
		fmt.Println(p)
	}
	return nil
}
