package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"noisepay/internal/domain"
)

// publish --method m: announce this device's listener for method m.
func publishCmd() *cobra.Command {
	var methods []string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a signed endpoint record to the directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := unlock()
			if err != nil {
				return err
			}
			defer a.Close()
			if a.Directory == nil {
				return fmt.Errorf("no directory configured. use --directory")
			}
			loc, err := a.Locator(cfg.ListenAddr)
			if err != nil {
				return err
			}
			for _, m := range methods {
				if _, err := a.Publish(cmd.Context(), domain.MethodID(m), loc); err != nil {
					return err
				}
				fmt.Printf("published %s -> %s\n", m, loc)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&methods, "method", nil, "payment method id (repeatable)")
	cmd.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "listener address whose port is advertised")
	cmd.Flags().StringVar(&cfg.PublicHost, "public-host", cfg.PublicHost, "host advertised in the locator")
	_ = cmd.MarkFlagRequired("method")
	return cmd
}
