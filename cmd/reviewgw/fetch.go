package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/storelens/reviewgateway/internal/app"
	"github.com/storelens/reviewgateway/internal/config"
	"github.com/storelens/reviewgateway/internal/domain"
	"github.com/storelens/reviewgateway/internal/service"
	"github.com/storelens/reviewgateway/internal/validation"
	"github.com/storelens/reviewgateway/pkg/logger"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [app_id...]",
	Short: "Fetch reviews for one or more apps and print them as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFetch,
}

func init() {
	fetchCmd.Flags().Int("limit", 0, "Reviews per app (0 uses DEFAULT_REVIEW_LIMIT)")
	fetchCmd.Flags().Bool("metadata", false, "Include app metadata")
	fetchCmd.Flags().String("country", validation.DefaultCountry, "Two-letter storefront code")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.ServiceName, cfg.LogLevel)

	limit, _ := cmd.Flags().GetInt("limit")
	includeMetadata, _ := cmd.Flags().GetBool("metadata")
	country, _ := cmd.Flags().GetString("country")

	var limitPtr *float64
	if cmd.Flags().Changed("limit") {
		l := float64(limit)
		limitPtr = &l
	}
	limits := validation.Limits{Default: cfg.DefaultReviewLimit, Max: cfg.MaxReviewsPerApp}

	ctx, cancel := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src, _ := app.NewSource(cfg, log)
	svc := service.NewReviewService(src, cfg.BatchConcurrency, log)

	var out any
	if len(args) == 1 {
		req := domain.ReviewsRequest{AppID: args[0], Limit: limitPtr, IncludeMetadata: includeMetadata, Country: country}
		if err := validation.ValidateSingle(req); err != nil {
			return err
		}
		out, err = svc.GetReviews(ctx, validation.SanitizeSingle(req, limits))
	} else {
		req := domain.BatchReviewsRequest{AppIDs: args, Limit: limitPtr, IncludeMetadata: includeMetadata, Country: country}
		if err := validation.ValidateBatch(req); err != nil {
			return err
		}
		out, err = svc.GetBatchReviews(ctx, validation.SanitizeBatch(req, limits))
	}
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
