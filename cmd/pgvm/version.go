// Copyright 2025 Juan Font
// BSD-3-Clause

package main

import (
	"fmt"

	"github.com/juanfont/pgvm/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
