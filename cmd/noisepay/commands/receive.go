package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"noisepay/internal/domain"
	"noisepay/internal/metadata"
	"noisepay/internal/services/payment"
)

// receive: listen for payments until interrupted.
func receiveCmd() *cobra.Command {
	var (
		methods   []string
		maxAmount int64
		require   metadata.Validator
	)
	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Listen for payments and confirm them",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := unlock()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", cfg.ListenAddr)
			if err != nil {
				return err
			}
			loc, err := a.Locator(ln.Addr().String())
			if err != nil {
				_ = ln.Close()
				return err
			}
			for _, m := range methods {
				if _, err := a.Publish(ctx, domain.MethodID(m), loc); err != nil {
					_ = ln.Close()
					return err
				}
			}
			fmt.Printf("Listening on %s\nLocator: %s\n", ln.Addr(), loc)

			if cfg.MetricsAddr != "" {
				ms := &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux(a.Metrics.Handler()), ReadHeaderTimeout: 5 * time.Second}
				go func() {
					if err := ms.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.Logger.Error().Err(err).Msg("metrics server")
					}
				}()
				defer func() {
					sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = ms.Shutdown(sctx)
				}()
			}

			a.Status.OnChange(func(s payment.StatusInfo) {
				a.Logger.Debug().Str("side", s.Side.String()).Str("receipt_id", s.ReceiptID).
					Str("status", s.Status.String()).Msg("payment status")
			})
			gen := limitGenerator(maxAmount)
			if !require.Zero() {
				gen = payment.ValidatingGenerator(require, gen)
			}
			srv := a.Server(gen)
			srv.OnResult = func(r payment.Result) {
				if r.Err == nil {
					fmt.Printf("confirmed %s: %s %s via %s from %s\n",
						r.Receipt.ID, r.Receipt.Amount, r.Receipt.Currency, r.Receipt.MethodID, r.Receipt.Payer.Short())
				}
			}
			return srv.Serve(ctx, ln)
		},
	}
	cmd.Flags().StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "address to accept payments on")
	cmd.Flags().StringVar(&cfg.PublicHost, "public-host", cfg.PublicHost, "host advertised in published locators")
	cmd.Flags().StringSliceVar(&methods, "publish", nil, "publish the locator for these method ids")
	cmd.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().IntVar(&cfg.RateLimit, "rate-limit", 0, "handshakes per minute per IP (0 disables)")
	cmd.Flags().Int64Var(&maxAmount, "max-amount", 0, "decline integer amounts above this (0 accepts all)")
	cmd.Flags().BoolVar(&require.RequireOrderID, "require-order-id", false, "decline requests without an order id")
	cmd.Flags().BoolVar(&require.RequireShipping, "require-shipping", false, "decline requests without a shipping address")
	cmd.Flags().BoolVar(&require.RequireTax, "require-tax", false, "decline requests without tax details")
	return cmd
}

func metricsMux(h http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	return mux
}

func limitGenerator(max int64) payment.ReceiptGenerator {
	if max <= 0 {
		return payment.AcceptAll
	}
	return payment.GeneratorFunc(func(ctx context.Context, r domain.Receipt) (domain.Receipt, error) {
		n, err := strconv.ParseInt(r.Amount, 10, 64)
		if err != nil {
			return domain.Receipt{}, payment.Decline("amount is not an integer")
		}
		if n > max {
			return domain.Receipt{}, payment.Decline(fmt.Sprintf("amount exceeds %d", max))
		}
		return payment.AcceptAll.GenerateReceipt(ctx, r)
	})
}
