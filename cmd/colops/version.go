package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/chameleon-db/colops/internal/config"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show colops version",
	Long:  "Display the current version of the colops CLI",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("colops v%s\n", version)

		if verbose {
			fmt.Println("\nComponents:")
			fmt.Printf("  Config schema: v%s\n", config.Version)
			fmt.Printf("  Go:            %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
