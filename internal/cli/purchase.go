package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/matshelf/matshelf/internal/logger"
)

// NewPurchaseCmd creates the purchase command.
func NewPurchaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purchase <ASSET-ID>",
		Short: "Purchase an asset with account credits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			assetID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid asset id %q: %w", args[0], err)
			}
			return runPurchase(cmd, assetID)
		},
	}

	return cmd
}

func runPurchase(cmd *cobra.Command, assetID int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	idx := openIndex(cfg)
	client := newClient(cfg)

	balance, err := client.GetUserBalance(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch balance: %w", err)
	}

	if err := client.PurchaseAsset(cmd.Context(), assetID); err != nil {
		return fmt.Errorf("purchase failed: %w", err)
	}

	if err := idx.MarkPurchased(assetID); err != nil {
		// The asset may not be indexed yet; the next sync fixes that.
		logger.Debug("Purchased asset not in index", logger.Fields{"asset_id": assetID})
	}
	saveIndex(idx)

	logger.Success("Asset purchased", logger.Fields{
		"asset_id":       assetID,
		"credits_before": balance.Credits,
	})
	return nil
}
