package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"noisepay/internal/crypto"
	"noisepay/internal/endpoint"
	"noisepay/internal/services/identity"
)

func whoamiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Print public key, fingerprint and current transport key",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := unlock()
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Printf("Public key:    %s\n", a.Keys.Owner)
			fmt.Printf("URI:           %s%s\n", identity.PubkyScheme, a.Keys.Owner)
			fmt.Printf("Fingerprint:   %s\n", identity.Fingerprint(a.ID))
			fmt.Printf("Device:        %s (epoch %d)\n", a.Keys.DeviceID, a.Keys.Epoch)
			fmt.Printf("Transport key: %s\n", a.Keys.Public.Hex())
			fmt.Printf("Transport fp:  %s\n", crypto.FingerprintX25519(a.Keys.Public))
			if loc, err := a.Locator(cfg.ListenAddr); err == nil {
				fmt.Printf("Locator:       %s\n", endpoint.Format(loc.Host, loc.Port, loc.RemoteStatic))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "listener address used for the printed locator")
	cmd.Flags().StringVar(&cfg.PublicHost, "public-host", cfg.PublicHost, "host used for the printed locator")
	return cmd
}
