package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"noisepay/internal/app"
)

const passphraseEnv = "NOISEPAY_PASSPHRASE"

var (
	cfg        = app.DefaultConfig()
	passphrase string
	wire       *app.Wire
)

func Execute() error {
	root := &cobra.Command{
		Use:          "noisepay",
		Short:        "Authenticated peer-to-peer payment receipts over Noise",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				passphrase = os.Getenv(passphraseEnv)
			}
			w, err := app.NewWire(cfg, os.Stderr)
			if err != nil {
				return err
			}
			wire = w
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if wire != nil {
				return wire.Close()
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfg.Home, "home", cfg.Home, "config dir")
	pf.StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the identity (or $"+passphraseEnv+")")
	pf.StringVar(&cfg.DirectoryURL, "directory", cfg.DirectoryURL, "directory base URL")
	pf.StringVar(&cfg.DeviceID, "device", cfg.DeviceID, "device id used at init")
	pf.Uint32Var(&cfg.Epoch, "epoch", 0, "transport key epoch")
	pf.StringVar(&cfg.ReceiptBackend, "receipts-backend", cfg.ReceiptBackend, "receipt store: file or bolt")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "trace, debug, info, warn or error")
	pf.BoolVar(&cfg.LogJSON, "log-json", false, "log JSON instead of console output")
	pf.DurationVar(&cfg.Payment.Connect, "connect-timeout", cfg.Payment.Connect, "TCP connect timeout")
	pf.DurationVar(&cfg.Payment.Handshake, "handshake-timeout", cfg.Payment.Handshake, "Noise handshake timeout")
	pf.DurationVar(&cfg.Payment.Confirmation, "confirm-timeout", cfg.Payment.Confirmation, "wait for the payee's answer")
	pf.DurationVar(&cfg.Payment.Request, "request-timeout", cfg.Payment.Request, "payee wait for the payment request")

	root.AddCommand(
		initCmd(),
		whoamiCmd(),
		publishCmd(),
		payCmd(),
		payDirectCmd(),
		receiveCmd(),
		receiptsCmd(),
	)
	return root.Execute()
}

func unlock() (*app.App, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase required (-p or $%s)", passphraseEnv)
	}
	return wire.Unlock(passphrase)
}
