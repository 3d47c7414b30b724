package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"thde.io/nationbuilder"
)

func (a *app) donationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "donations",
		Aliases: []string{"donation"},
		Short:   "Manage donations",
	}

	cmd.AddCommand(
		a.donationsListCmd(),
		a.donationsSearchCmd(),
		a.donationsCreateCmd(),
		a.donationsDestroyCmd(),
	)

	return cmd
}

func (a *app) donationsListCmd() *cobra.Command {
	var ff filterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List donations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.compile(a)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			donations, err := collect(ctx, a, f, ff.all,
				func() (*nationbuilder.Page[nationbuilder.Donation], error) {
					return a.client.Donations(ctx, nationbuilder.LimitParams{Limit: ff.limit})
				},
			)
			if err != nil {
				return err
			}

			return a.render(donations, donationsTable(donations))
		},
	}
	ff.register(cmd)

	return cmd
}

func (a *app) donationsSearchCmd() *cobra.Command {
	var (
		ff             filterFlags
		donorID        int64
		succeededSince string
		succeededUntil string
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search donations by donor and date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := ff.compile(a)
			if err != nil {
				return err
			}

			params := nationbuilder.DonationSearchParams{
				DonorID: nationbuilder.ID(donorID),
				Limit:   ff.limit,
			}
			if params.SucceededSince, err = parseTimeFlag("succeeded-since", succeededSince); err != nil {
				return err
			}
			if params.SucceededUntil, err = parseTimeFlag("succeeded-until", succeededUntil); err != nil {
				return err
			}

			ctx := cmd.Context()
			donations, err := collect(ctx, a, f, ff.all,
				func() (*nationbuilder.Page[nationbuilder.Donation], error) {
					return a.client.SearchDonations(ctx, params)
				},
			)
			if err != nil {
				return err
			}

			return a.render(donations, donationsTable(donations))
		},
	}
	ff.register(cmd)
	cmd.Flags().Int64Var(&donorID, "donor-id", 0, "id of the donor")
	cmd.Flags().StringVar(&succeededSince, "succeeded-since", "", "RFC 3339 timestamp or YYYY-MM-DD")
	cmd.Flags().StringVar(&succeededUntil, "succeeded-until", "", "RFC 3339 timestamp or YYYY-MM-DD")

	return cmd
}

func (a *app) donationsCreateCmd() *cobra.Command {
	var (
		d           nationbuilder.Donation
		donorID     int64
		succeededAt string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a donation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if d.AmountInCents <= 0 {
				return fmt.Errorf("--amount-cents must be positive")
			}
			if donorID == 0 && d.Email == "" {
				return fmt.Errorf("--donor-id or --email is required")
			}
			d.DonorID = nationbuilder.ID(donorID)

			var err error
			if d.SucceededAt, err = parseTimeFlag("succeeded-at", succeededAt); err != nil {
				return err
			}
			if d.SucceededAt.IsZero() {
				d.SucceededAt = nationbuilder.NewTime(time.Now())
			}

			resp, err := a.client.CreateDonation(cmd.Context(), d)
			if err != nil {
				return err
			}

			a.logger.Info().Stringer("id", resp.Donation.ID).Msg("donation created")
			donations := []nationbuilder.Donation{resp.Donation}
			return a.render(resp.Donation, donationsTable(donations))
		},
	}
	cmd.Flags().Int64Var(&donorID, "donor-id", 0, "id of the donor")
	cmd.Flags().StringVar(&d.Email, "email", "", "email of the donor if no id is known")
	cmd.Flags().IntVar(&d.AmountInCents, "amount-cents", 0, "amount in cents")
	cmd.Flags().StringVar(&d.PaymentTypeName, "payment-type", "", "payment type, e.g. Cash or Check")
	cmd.Flags().StringVar(&d.CheckNumber, "check-number", "", "check number")
	cmd.Flags().StringVar(&d.Note, "note", "", "note")
	cmd.Flags().StringVar(&succeededAt, "succeeded-at", "", "RFC 3339 timestamp or YYYY-MM-DD (default now)")

	return cmd
}

func (a *app) donationsDestroyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "destroy <id>",
		Short: "Remove a donation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}

			if err := a.client.DestroyDonation(cmd.Context(), ids[0]); err != nil {
				return err
			}

			a.logger.Info().Stringer("id", ids[0]).Msg("donation destroyed")
			return nil
		},
	}
}

// parseTimeFlag parses the value of a timestamp flag. Empty values give the zero time.
func parseTimeFlag(name, value string) (nationbuilder.Time, error) {
	if value == "" {
		return nationbuilder.Time{}, nil
	}

	t, err := parseTimestamp(value)
	if err != nil {
		return nationbuilder.Time{}, fmt.Errorf("invalid --%s: %w", name, err)
	}

	return nationbuilder.NewTime(t), nil
}
