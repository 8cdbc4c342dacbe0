package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/H1Skaak/g3/internal/config"
	"github.com/H1Skaak/g3/internal/netconf"
	"github.com/H1Skaak/g3/internal/resolver"
	"github.com/H1Skaak/g3/internal/yamlconf"
)

func newCheckCmd() *cobra.Command {
	var (
		keepGoing bool
		resolve   bool
		timeout   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "check [file]",
		Short: "Validate a configuration file",
		Long: `Convert a configuration file and list its servers.

With --keep-going every server is converted and all failing servers are
reported, instead of stopping at the first error. With --resolve the
upstreams marked "resolve: eager" are looked up with the first configured
resolver.`,
		Example: "g3conf check /etc/g3/g3.yaml --keep-going",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			p := provider(args)
			load := p.Load
			if keepGoing {
				load = p.LoadPartial
			}

			cfg, err := load()
			if cfg == nil {
				return report(p.Path(), err)
			}
			printServers(cfg)

			if resolve {
				if rerr := resolveUpstreams(cfg, timeout); rerr != nil {
					err = multierr.Append(err, rerr)
				}
			}
			if err != nil {
				return report(p.Path(), err)
			}
			color.New(color.FgGreen, color.Bold).Printf("✓ %s is valid ", p.Path())
			color.New(color.FgHiWhite).Printf("(generation %s)\n", cfg.Generation)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&keepGoing, "keep-going", "k", false, "report every failing server instead of stopping at the first")
	cmd.Flags().BoolVar(&resolve, "resolve", false, "resolve eager upstream endpoints")
	cmd.Flags().DurationVar(&timeout, "resolve-timeout", 10*time.Second, "overall timeout of --resolve")
	return cmd
}

// errReported is returned once the failures have been printed.
var errReported = errors.New("configuration check failed")

func report(path string, err error) error {
	errs := causes(err)
	color.New(color.FgHiRed, color.Bold).Printf("✗ %s: %d error(s)\n", path, len(errs))
	for _, e := range errs {
		color.New(color.FgRed).Printf("  %s\n", e)
	}
	return errReported
}

// causes lists the individual failures carried by err, without the
// ErrInvalidConfig wrapper of the loader. A conversion error is one failure
// even though it unwraps to its reason and cause.
func causes(err error) []error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*yamlconf.Error); ok {
		return []error{err}
	}
	w, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	if parts := w.Unwrap(); len(parts) == 2 && parts[0] == config.ErrInvalidConfig {
		return causes(parts[1])
	}
	var out []error
	for _, e := range multierr.Errors(err) {
		out = append(out, causes(e)...)
	}
	return out
}

func printServers(cfg *config.Config) {
	if len(cfg.Servers) == 0 {
		color.Yellow("No servers configured.")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Server", "Type", "Listen", "Upstream", "TLS"})
	table.SetHeaderColor(
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
		tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor},
	)
	table.SetBorder(false)
	table.SetColumnColor(
		tablewriter.Colors{tablewriter.FgHiWhiteColor},
		tablewriter.Colors{tablewriter.FgGreenColor},
		tablewriter.Colors{tablewriter.FgYellowColor},
		tablewriter.Colors{tablewriter.FgHiWhiteColor},
		tablewriter.Colors{tablewriter.FgHiWhiteColor},
	)
	for _, s := range cfg.Servers {
		upstream := "-"
		if s.Upstream != nil {
			upstream = fmt.Sprintf("%s (%s)", s.Upstream, s.Upstream.Resolve)
		}
		tlsInfo := "-"
		if s.TLSServer != nil {
			tlsInfo = s.TLSServer.Backend.String()
		}
		table.Append([]string{s.Name, s.Type.String(), s.Listen.Address.String(), upstream, tlsInfo})
	}
	color.New(color.Bold).Println("SERVERS:")
	table.Render()
}

func resolveUpstreams(cfg *config.Config, timeout time.Duration) error {
	if len(cfg.Resolvers) == 0 {
		return nil
	}
	client := resolver.New(cfg.Resolvers[0])

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs error
	for _, s := range cfg.Servers {
		if s.Upstream == nil || s.Upstream.Resolve != netconf.ResolveEager {
			continue
		}
		addrs, err := client.LookupEndpoint(ctx, *s.Upstream)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("server %s: upstream %s: %w", s.Name, s.Upstream, err))
			continue
		}
		parts := make([]string, len(addrs))
		for i, a := range addrs {
			parts[i] = a.String()
		}
		color.New(color.FgHiWhite).Printf("%s -> %s: ", s.Name, s.Upstream)
		color.New(color.FgGreen).Println(strings.Join(parts, ", "))
	}
	return errs
}
