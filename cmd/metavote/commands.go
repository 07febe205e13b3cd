package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/metapool/go-metavote/common/types"
	"github.com/metapool/go-metavote/orchestrator"
	"github.com/metapool/go-metavote/signing"
	"github.com/metapool/go-metavote/voter"
	"github.com/metapool/go-metavote/vpower"
)

func init() {
	statusCmd.Flags().Bool("watch", false, "keep refreshing on the configured poll interval")
	withdrawCmd.Flags().Bool("all", false, "withdraw every fully released position")
	withdrawCmd.Flags().String("from-balance", "", "amount to withdraw from the free balance")
	relockCmd.Flags().String("from-balance", "", "amount to lock from the free balance")

	rootCmd.AddCommand(
		initCmd,
		statusCmd,
		previewCmd,
		lockCmd,
		unlockCmd,
		relockCmd,
		withdrawCmd,
		voteCmd,
		unvoteCmd,
		totalVotesCmd,
	)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "generate a signing key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(conf.KeyFile), 0o700); err != nil {
			return fmt.Errorf("creating key directory: %w", err)
		}
		signer, err := signing.NewEdSigner(signing.ToFile(conf.KeyFile))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "key file:    %s\n", conf.KeyFile)
		fmt.Fprintf(cmd.OutOrStdout(), "public key:  %s\n", signer.PublicKey())
		fmt.Fprintf(cmd.OutOrStdout(), "account:     %s\n", signer.AccountID())
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "show voting power, balances, positions and votes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		snap, err := app.orch.Refresh(ctx)
		if err != nil {
			return err
		}
		dec := app.decimals(ctx)
		out := cmd.OutOrStdout()
		renderStatus(out, snap, dec, time.Now())

		watch, _ := cmd.Flags().GetBool("watch")
		if !watch {
			return nil
		}

		// keep the snapshot fresh in the background and re-render whenever a
		// newer version lands
		eg, ctx := errgroup.WithContext(ctx)
		eg.Go(func() error { return app.orch.Run(ctx) })
		eg.Go(func() error {
			last := app.store.Version()
			ticker := time.NewTicker(time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					if v := app.store.Version(); v != last {
						last = v
						fmt.Fprintln(out)
						renderStatus(out, app.store.Current(), dec, time.Now())
					}
				}
			}
		})
		return eg.Wait()
	},
}

func renderStatus(out io.Writer, snap *voter.Snapshot, dec uint8, now time.Time) {
	fmt.Fprintf(out, "account: %s\n\n", snap.Voter)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "voting power available\t%s\n", formatTokens(snap.VotingPower, dec))
	fmt.Fprintf(w, "voting power in use\t%s\n", formatTokens(snap.InUseVPower, dec))
	fmt.Fprintf(w, "locked\t%s\n", formatTokens(snap.MetaLocked(now), dec))
	fmt.Fprintf(w, "unlocking\t%s\n", formatTokens(snap.MetaUnlocking(now), dec))
	fmt.Fprintf(w, "ready to withdraw\t%s\n", formatTokens(snap.MetaToWithdraw(now), dec))
	fmt.Fprintf(w, "wallet balance\t%s\n", formatTokens(snap.TokenBalance, dec))
	w.Flush()

	if len(snap.Positions) > 0 {
		fmt.Fprintf(out, "\npositions:\n")
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "INDEX\tAMOUNT\tDAYS\tPOWER\tSTATUS\tREMAINING")
		for _, pos := range snap.Positions {
			remaining := "-"
			if d, err := pos.RemainingUnlockTime(now); err == nil {
				remaining = formatRemaining(d)
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
				pos.Index,
				formatTokens(pos.Amount, dec),
				pos.LockingPeriodDays,
				formatTokens(pos.VotingPower, dec),
				pos.Status(now),
				remaining,
			)
		}
		w.Flush()
	}

	if len(snap.Votes) > 0 {
		fmt.Fprintf(out, "\nvotes:\n")
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "PLATFORM\tOBJECT\tPOWER")
		for _, vote := range snap.Votes {
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				vote.PlatformContractID,
				vote.VotableObjectID,
				formatTokens(vote.CurrentVotes, dec),
			)
		}
		w.Flush()
	}
}

var previewCmd = &cobra.Command{
	Use:   "preview <amount> <days>",
	Short: "preview the voting power a lock would mint, offline",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		const decimals = 24
		amount, err := parseTokens(args[0], decimals)
		if err != nil {
			return err
		}
		days, err := parseDays(args[1])
		if err != nil {
			return err
		}
		bounds := conf.Locking
		if !bounds.Contains(days) {
			return fmt.Errorf("%w: %d days outside [%d, %d]",
				vpower.ErrPeriodOutOfBounds, days, bounds.MinLockDays, bounds.MaxLockDays)
		}
		power := vpower.Compute(amount, days, bounds)
		fmt.Fprintf(cmd.OutOrStdout(), "multiplier:   %sx\n", formatScaled(vpower.Multiplier(days, bounds), decimals))
		fmt.Fprintf(cmd.OutOrStdout(), "voting power: %s\n", formatTokens(power, decimals))
		return nil
	},
}

var lockCmd = &cobra.Command{
	Use:   "lock <amount> <days>",
	Short: "lock tokens into a new voting position",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd, true)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		amount, err := parseTokens(args[0], app.decimals(ctx))
		if err != nil {
			return err
		}
		days, err := parseDays(args[1])
		if err != nil {
			return err
		}
		if _, err := app.orch.Refresh(ctx); err != nil {
			return err
		}
		return app.orch.Do(ctx, orchestrator.Lock{Amount: amount, Days: days})
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock <index> [amount]",
	Short: "start releasing a locked position, in full or in part",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd, true)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		index, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		var action orchestrator.Action = orchestrator.Unlock{Index: index}
		if len(args) == 2 {
			amount, err := parseTokens(args[1], app.decimals(ctx))
			if err != nil {
				return err
			}
			action = orchestrator.UnlockPartial{Index: index, Amount: amount}
		}
		if _, err := app.orch.Refresh(ctx); err != nil {
			return err
		}
		return app.orch.Do(ctx, action)
	},
}

var relockCmd = &cobra.Command{
	Use:   "relock [index] <days>",
	Short: "cancel a pending release and lock the position again",
	Long: `Cancel a pending release and lock the position again for a new period.

With an index, the unlocking position is recommitted; --from-balance tops it
up from the free balance. Without an index, --from-balance alone funds a
brand new locking position.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd, true)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		var fromBalance types.Amount
		if raw, _ := cmd.Flags().GetString("from-balance"); raw != "" {
			if fromBalance, err = parseTokens(raw, app.decimals(ctx)); err != nil {
				return err
			}
		}

		var action orchestrator.Action
		if len(args) == 1 {
			if fromBalance.IsZero() {
				return fmt.Errorf("relocking without a position index requires --from-balance")
			}
			days, err := parseDays(args[0])
			if err != nil {
				return err
			}
			action = orchestrator.RelockFromBalance{Amount: fromBalance, Days: days}
		} else {
			index, err := parseIndex(args[0])
			if err != nil {
				return err
			}
			days, err := parseDays(args[1])
			if err != nil {
				return err
			}
			action = orchestrator.Relock{Index: index, Days: days, AmountFromBalance: fromBalance}
		}
		if _, err := app.orch.Refresh(ctx); err != nil {
			return err
		}
		return app.orch.Do(ctx, action)
	},
}

var withdrawCmd = &cobra.Command{
	Use:   "withdraw [index ...]",
	Short: "withdraw fully released positions back to the wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd, true)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		all, _ := cmd.Flags().GetBool("all")
		if all && len(args) > 0 {
			return fmt.Errorf("--all cannot be combined with explicit indices")
		}
		var action orchestrator.Action
		if all {
			action = orchestrator.WithdrawAll{}
		} else {
			indices := make([]uint64, 0, len(args))
			for _, arg := range args {
				index, err := parseIndex(arg)
				if err != nil {
					return err
				}
				indices = append(indices, index)
			}
			var fromBalance types.Amount
			if raw, _ := cmd.Flags().GetString("from-balance"); raw != "" {
				if fromBalance, err = parseTokens(raw, app.decimals(ctx)); err != nil {
					return err
				}
			}
			action = orchestrator.Withdraw{Indices: indices, AmountFromBalance: fromBalance}
		}
		if _, err := app.orch.Refresh(ctx); err != nil {
			return err
		}
		return app.orch.Do(ctx, action)
	},
}

var voteCmd = &cobra.Command{
	Use:   "vote <platform> <object-id> <power>",
	Short: "commit voting power to a votable object",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd, true)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		power, err := parseTokens(args[2], app.decimals(ctx))
		if err != nil {
			return err
		}
		if _, err := app.orch.Refresh(ctx); err != nil {
			return err
		}
		return app.orch.Do(ctx, orchestrator.Vote{
			VotingPower: power,
			Platform:    types.AccountID(args[0]),
			ObjectID:    types.VotableObjectID(args[1]),
		})
	},
}

var unvoteCmd = &cobra.Command{
	Use:   "unvote <platform> <object-id>",
	Short: "take back the full vote on a votable object",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd, true)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if _, err := app.orch.Refresh(ctx); err != nil {
			return err
		}
		return app.orch.Do(ctx, orchestrator.Unvote{
			Platform: types.AccountID(args[0]),
			ObjectID: types.VotableObjectID(args[1]),
		})
	},
}

var totalVotesCmd = &cobra.Command{
	Use:   "total-votes <platform> <object-id>",
	Short: "show the total power all voters committed to an object",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd, false)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		total, err := app.client.TotalVotes(ctx, types.AccountID(args[0]), types.VotableObjectID(args[1]))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), formatTokens(total, app.decimals(ctx)))
		return nil
	},
}

func parseDays(s string) (uint16, error) {
	days, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("malformed locking period %q", s)
	}
	return uint16(days), nil
}

func parseIndex(s string) (uint64, error) {
	index, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed position index %q", s)
	}
	return index, nil
}

func formatRemaining(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return "<1h"
	}
}
