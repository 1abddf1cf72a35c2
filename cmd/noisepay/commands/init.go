package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"noisepay/internal/domain"
	"noisepay/internal/store"
)

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate identity keys and store them securely",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			if store.NewIdentityFileStore(cfg.Home).Exists() && !force {
				return fmt.Errorf("identity already exists in %s (use --force to replace it)", cfg.Home)
			}
			id, fp, err := wire.Identity.GenerateIdentity(passphrase, domain.DeviceID(cfg.DeviceID))
			if err != nil {
				return err
			}
			fmt.Printf("Identity created.\nPublic key:  %s\nFingerprint: %s\n", id.PublicKey(), fp)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing identity")
	return cmd
}
