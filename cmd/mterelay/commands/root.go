package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"mterelay/internal/app"
)

var (
	configFile string
	endpoint   string
	wire       *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:           "mterelay",
		Short:         "Protect HTTP requests through an MTE relay",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadFile(configFile)
			if err != nil {
				return err
			}
			w, err := app.NewWire(cfg)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(cfg.Relay.Timeout)*time.Second)
			defer cancel()
			if err := w.Setup(ctx); err != nil {
				_ = w.Close()
				return err
			}
			w.ServeMetrics()
			wire = w
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if wire == nil {
				return nil
			}
			return wire.Close()
		},
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "mterelay.toml", "configuration file")
	root.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "endpoint name (default: first configured)")

	root.AddCommand(pairCmd(), getCmd(), postCmd(), stateCmd())
	return root.ExecuteContext(context.Background())
}
