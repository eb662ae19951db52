package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kolkov/memlock/lock"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print runtime version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := lock.GetInfo()
		fmt.Printf("memlock %s\n", info.Version)
		fmt.Printf("protocol: %s\n", info.Protocol)
		fmt.Printf("cell size: %d bytes\n", info.CellBytes)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
