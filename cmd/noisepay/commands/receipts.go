package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"noisepay/internal/app"
	"noisepay/internal/domain"
	"noisepay/internal/services/identity"
)

func receiptsCmd() *cobra.Command {
	var (
		status string
		peer   string
		method string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "receipts",
		Short: "List stored receipts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := domain.ReceiptFilter{
				Status:   domain.ReceiptStatus(status),
				MethodID: domain.MethodID(method),
				Limit:    limit,
			}
			if peer != "" {
				pk, err := identity.ParsePublicKey(peer)
				if err != nil {
					return err
				}
				f.Peer = pk
			}
			rs, err := wire.Receipts.ListReceipts(f)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tMETHOD\tAMOUNT\tPAYER\tPAYEE\tCREATED")
			for _, r := range rs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s\t%s\t%s\t%s\n",
					r.ID, r.Status, r.MethodID, r.Amount, r.Currency,
					r.Payer.Short(), r.Payee.Short(), time.Unix(r.CreatedAt, 0).Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "provisional, confirmed or failed")
	cmd.Flags().StringVar(&peer, "peer", "", "only receipts with this payer or payee")
	cmd.Flags().StringVar(&method, "method", "", "only receipts for this method")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of receipts")
	cmd.AddCommand(pruneCmd())
	return cmd
}

func pruneCmd() *cobra.Command {
	var (
		status    string
		olderThan time.Duration
	)
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old receipts with a given status (bolt backend)",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := wire.Receipts.(app.Pruner)
			if !ok {
				return fmt.Errorf("receipt backend %q does not support pruning", cfg.ReceiptBackend)
			}
			n, err := p.Prune(domain.ReceiptStatus(status), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Printf("pruned %d receipts\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", string(domain.ReceiptFailed), "status to prune")
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "minimum age")
	return cmd
}
