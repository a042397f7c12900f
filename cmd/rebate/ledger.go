package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rebateLedger/internal/model"
)

func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

func idFlag(cmd *cobra.Command, name string) (model.ID, error) {
	raw, _ := cmd.Flags().GetString(name)
	if raw == "" {
		return model.ID{}, fmt.Errorf("%s is required", name)
	}
	id, err := model.ParseID(raw)
	if err != nil {
		return model.ID{}, fmt.Errorf("%s: %w", name, err)
	}
	return id, nil
}

func actorFlags(cmd *cobra.Command) (model.ID, model.ID, error) {
	poolID, err := idFlag(cmd, "pool")
	if err != nil {
		return model.ID{}, model.ID{}, err
	}
	participantID, err := idFlag(cmd, "participant")
	if err != nil {
		return model.ID{}, model.ID{}, err
	}
	return poolID, participantID, nil
}

func runPoolInit(cmd *cobra.Command, _ []string) error {
	poolID, err := idFlag(cmd, "pool")
	if err != nil {
		return err
	}
	assetA, err := idFlag(cmd, "asset-a")
	if err != nil {
		return err
	}
	assetB, err := idFlag(cmd, "asset-b")
	if err != nil {
		return err
	}
	feeRate, _ := cmd.Flags().GetUint64("fee-rate")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		pool, err := a.ledger.InitializePool(ctx, poolID, feeRate, assetA, assetB)
		if err != nil {
			return err
		}
		return printJSON(cmd, pool)
	})
}

func runParticipantInit(cmd *cobra.Command, _ []string) error {
	poolID, participantID, err := actorFlags(cmd)
	if err != nil {
		return err
	}
	balance, _ := cmd.Flags().GetUint64("balance")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		participant, err := a.ledger.InitializeParticipant(ctx, poolID, participantID, balance)
		if err != nil {
			return err
		}
		return printJSON(cmd, participant)
	})
}

func runProvide(cmd *cobra.Command, _ []string) error {
	poolID, participantID, err := actorFlags(cmd)
	if err != nil {
		return err
	}
	amount, _ := cmd.Flags().GetUint64("amount")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		event, err := a.ledger.ProvideLiquidity(ctx, poolID, participantID, amount)
		if err != nil {
			return err
		}
		return printJSON(cmd, event)
	})
}

func runStake(cmd *cobra.Command, _ []string) error {
	poolID, participantID, err := actorFlags(cmd)
	if err != nil {
		return err
	}
	amount, _ := cmd.Flags().GetUint64("amount")
	lockSeconds, _ := cmd.Flags().GetInt64("lock-seconds")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		position, _, err := a.ledger.StakeWithLock(ctx, poolID, participantID, amount, lockSeconds)
		if err != nil {
			return err
		}
		return printJSON(cmd, position)
	})
}

func runTrade(cmd *cobra.Command, _ []string) error {
	poolID, participantID, err := actorFlags(cmd)
	if err != nil {
		return err
	}
	amount, _ := cmd.Flags().GetUint64("amount")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		record, event, err := a.ledger.TradeWithSlippage(ctx, poolID, participantID, amount)
		if err != nil {
			return err
		}
		return printJSON(cmd, struct {
			Record model.TradeRecord `json:"record"`
			Event  model.TradeEvent  `json:"event"`
		}{record, event})
	})
}

func runUnstake(cmd *cobra.Command, _ []string) error {
	poolID, participantID, err := actorFlags(cmd)
	if err != nil {
		return err
	}
	positionID, _ := cmd.Flags().GetString("position")
	if positionID == "" {
		return fmt.Errorf("position is required")
	}
	amount, _ := cmd.Flags().GetUint64("amount")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		event, err := a.ledger.Unstake(ctx, poolID, participantID, positionID, amount)
		if err != nil {
			return err
		}
		return printJSON(cmd, event)
	})
}

func runAdjustFee(cmd *cobra.Command, _ []string) error {
	poolID, err := idFlag(cmd, "pool")
	if err != nil {
		return err
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		event, changed, err := a.ledger.AdjustFeeRate(ctx, poolID)
		if err != nil {
			return err
		}
		if !changed {
			a.logger.Info("pool has no liquidity, fee rate unchanged")
			return nil
		}
		return printJSON(cmd, event)
	})
}

func runQuote(cmd *cobra.Command, _ []string) error {
	poolID, err := idFlag(cmd, "pool")
	if err != nil {
		return err
	}
	amount, _ := cmd.Flags().GetUint64("amount")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		quote, err := a.ledger.Quote(ctx, poolID, amount)
		if err != nil {
			return err
		}
		return printJSON(cmd, quote)
	})
}

func runShow(cmd *cobra.Command, _ []string) error {
	poolID, err := idFlag(cmd, "pool")
	if err != nil {
		return err
	}
	rawParticipant, _ := cmd.Flags().GetString("participant")

	return withApp(cmd, func(ctx context.Context, a *app) error {
		pool, err := a.ledger.Pool(ctx, poolID)
		if err != nil {
			return err
		}
		out := struct {
			Pool        model.PoolState         `json:"pool"`
			Participant *model.ParticipantState `json:"participant,omitempty"`
			Positions   []model.StakePosition   `json:"positions,omitempty"`
		}{Pool: pool}

		if rawParticipant != "" {
			participantID, err := model.ParseID(rawParticipant)
			if err != nil {
				return fmt.Errorf("participant: %w", err)
			}
			participant, err := a.ledger.Participant(ctx, poolID, participantID)
			if err != nil {
				return err
			}
			positions, err := a.ledger.StakePositions(ctx, poolID, participantID)
			if err != nil {
				return err
			}
			out.Participant = &participant
			out.Positions = positions
		}
		return printJSON(cmd, out)
	})
}
