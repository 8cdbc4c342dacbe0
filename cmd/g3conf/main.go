// Command g3conf validates and watches g3 configuration files.
//
// Usage:
//
//	g3conf check [file]      - Convert a file and print its servers
//	g3conf watch [file]      - Reload a file on every change and log server actions
//	g3conf features          - List the capabilities linked into this binary
//	g3conf version           - Show version information
//
// Without a file argument the default ~/.g3/g3.yaml is used.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/H1Skaak/g3/internal/buildinfo"
	"github.com/H1Skaak/g3/internal/config"
	"github.com/H1Skaak/g3/internal/feature"
	"github.com/H1Skaak/g3/internal/filesys"
)

func main() {
	root := &cobra.Command{
		Use:   "g3conf",
		Short: "g3 configuration checker",
		Long: `g3conf converts g3 YAML configuration files the way the proxy does
and reports the first error with its key path and source position.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("version: %s\n", buildinfo.Version)
			fmt.Printf("commit: %s\n", buildinfo.Commit)
			fmt.Printf("features: %s\n", buildinfo.Features())
		},
	}

	featuresCmd := &cobra.Command{
		Use:   "features",
		Short: "List linked capabilities",
		Long: `List every optional capability and whether this binary was built with it.
Configuration sections of a missing capability fail with "unsupported feature".`,
		Run: func(_ *cobra.Command, _ []string) {
			linked := buildinfo.Features()

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Feature", "Linked", "Requires"})
			table.SetHeaderColor(
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
				tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
			)
			table.SetBorder(false)
			for _, f := range feature.All() {
				state := color.RedString("no")
				if linked.Has(f) {
					state = color.GreenString("yes")
				}
				requires := ""
				if req := f.Requires(); req != 0 {
					requires = req.String()
				}
				table.Append([]string{f.String(), state, requires})
			}
			table.Render()
		},
	}

	root.AddCommand(newCheckCmd(), newWatchCmd(), featuresCmd, versionCmd)
	if err := root.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			color.New(color.FgHiRed, color.Bold).Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// provider returns the provider for the optional file argument.
func provider(args []string) *config.FSProvider {
	if len(args) == 0 {
		return config.New()
	}
	return config.NewWithPath(filesys.OS(), args[0])
}
