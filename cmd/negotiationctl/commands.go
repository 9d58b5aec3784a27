package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	appNegotiation "github.com/homematch/negotiation-engine/internal/application/negotiation"
	"github.com/homematch/negotiation-engine/internal/domain/negotiation"
	"github.com/homematch/negotiation-engine/internal/domain/pairing"
)

type pairingWriter interface {
	Upsert(ctx context.Context, p *pairing.Pairing) error
}

type backend struct {
	svc      *appNegotiation.Service
	pairings pairingWriter
	close    func()
}

type opener func(ctx context.Context, logger zerolog.Logger) (*backend, error)

type cli struct {
	open     opener
	logLevel string
	timeout  time.Duration
}

func newRootCommand(open opener) *cobra.Command {
	c := &cli{open: open}
	root := &cobra.Command{
		Use:          "negotiationctl",
		Short:        "Inspect and maintain negotiation records",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second, "Overall command timeout")

	root.AddCommand(c.newVerifyCommand())
	root.AddCommand(c.newStaleCommand())
	root.AddCommand(c.newPairingCommand())
	return root
}

// run opens the backend, runs fn and releases the backend.
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, b *backend) error) error {
	level, err := zerolog.ParseLevel(c.logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()
	b, err := c.open(ctx, logger)
	if err != nil {
		return err
	}
	if b.close != nil {
		defer b.close()
	}
	return fn(ctx, b)
}

func (c *cli) newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <negotiation-id>...",
		Short: "Replay event logs and compare them with the stored records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]uuid.UUID, 0, len(args))
			for _, a := range args {
				id, err := uuid.Parse(a)
				if err != nil {
					return fmt.Errorf("invalid negotiation id %q", a)
				}
				ids = append(ids, id)
			}
			return c.run(cmd, func(ctx context.Context, b *backend) error {
				out := cmd.OutOrStdout()
				failed := 0
				for _, id := range ids {
					h, err := b.svc.Verify(ctx, id)
					var negErr *negotiation.Error
					switch {
					case err == nil:
						fmt.Fprintf(out, "OK      %s status=%s version=%d events=%d\n", id, h.Negotiation.Status, h.Negotiation.Version, len(h.Events))
					case errors.As(err, &negErr):
						failed++
						fmt.Fprintf(out, "FAILED  %s %s: %s\n", id, negErr.Code, negErr.Message)
					default:
						return err
					}
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d negotiations failed verification", failed, len(ids))
				}
				return nil
			})
		},
	}
}

func (c *cli) newStaleCommand() *cobra.Command {
	var (
		olderThan time.Duration
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "stale",
		Short: "List open negotiations with no activity for a while",
		Long: `List PENDING and NEGOTIATING negotiations whose last transition is older
than --older-than. Nothing is expired automatically; this only reports.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			return c.run(cmd, func(ctx context.Context, b *backend) error {
				items, err := b.svc.ListStale(ctx, olderThan, limit)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NEGOTIATION\tPAIRING\tSTATUS\tVERSION\tUPDATED")
				for _, n := range items {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", n.NegotiationID, n.PairingID, n.Status, n.Version, n.UpdatedAt.Format(time.RFC3339))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 7*24*time.Hour, "Minimum idle time")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum rows")
	return cmd
}

func (c *cli) newPairingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pairing",
		Short: "Maintain the pairing read model",
	}

	var (
		providerID string
		seekerID   string
		inactive   bool
	)
	put := &cobra.Command{
		Use:   "put <pairing-id>",
		Short: "Create or update a pairing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := &pairing.Pairing{
				PairingID:  strings.TrimSpace(args[0]),
				ProviderID: strings.TrimSpace(providerID),
				SeekerID:   strings.TrimSpace(seekerID),
				Active:     !inactive,
			}
			if p.PairingID == "" || p.ProviderID == "" || p.SeekerID == "" {
				return fmt.Errorf("pairing id, --provider and --seeker are required")
			}
			if p.ProviderID == p.SeekerID {
				return fmt.Errorf("provider and seeker must differ")
			}
			return c.run(cmd, func(ctx context.Context, b *backend) error {
				if err := b.pairings.Upsert(ctx, p); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pairing %s saved (active=%t)\n", p.PairingID, p.Active)
				return nil
			})
		},
	}
	put.Flags().StringVar(&providerID, "provider", "", "Provider participant id")
	put.Flags().StringVar(&seekerID, "seeker", "", "Seeker participant id")
	put.Flags().BoolVar(&inactive, "inactive", false, "Mark the pairing inactive")

	cmd.AddCommand(put)
	return cmd
}
