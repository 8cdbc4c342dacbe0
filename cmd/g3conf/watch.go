package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/H1Skaak/g3/internal/config"
	"github.com/H1Skaak/g3/internal/log"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [file]",
		Short: "Reload a configuration file on change",
		Long: `Load a configuration file, then reload it whenever it changes or on
SIGHUP. A reload that fails to convert is logged and the previous
generation is kept. Stops on SIGINT or SIGTERM.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			p := provider(args)
			cfg, err := p.Load()
			if err != nil {
				return err
			}
			log.SetLevel(cfg.LogLevel)
			defer func() { _ = log.Sync() }()

			store := config.NewStore(cfg)
			w := config.NewWatcher(p, store, config.WithReloadHook(func(_, next *config.Config) {
				log.SetLevel(next.LogLevel)
			}))

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)
			go func() {
				for {
					select {
					case <-ctx.Done():
						return
					case <-hup:
						_ = w.Reload()
					}
				}
			}()

			err = w.Run(ctx)
			log.Info("shutting down…")
			return err
		},
	}
}
