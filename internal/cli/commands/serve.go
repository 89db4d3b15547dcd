package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Harley062/projeto-IA-Adega/internal/cli/config"
	"github.com/Harley062/projeto-IA-Adega/internal/cli/output"
	"github.com/Harley062/projeto-IA-Adega/internal/predict"
	"github.com/Harley062/projeto-IA-Adega/internal/server"
	"github.com/Harley062/projeto-IA-Adega/internal/trainer"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var noState, watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the prediction API",
		Long: `Serve churn predictions, sales forecasts and recommendations over HTTP.

The server starts even when no model has been trained or the data files are
missing; the affected routes answer 503 until they are available. Prometheus
metrics are exposed on /metrics.

With --watch, a model saved by 'adega train' is picked up without a restart.`,
		Example: `  adega serve --addr :9090
  adega serve --watch`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := config.GetConfig(ctx)
			logger := config.GetLogger(ctx)
			r := output.FromContext(ctx)

			sc := server.Config{
				Addr:              cfg.Server.Addr,
				ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
				Logger:            logger,
			}

			p, err := loadPredictor(ctx, cfg)
			switch {
			case err == nil:
				sc.Predictor = p
				logger.Info("model loaded", "model", p.Bundle().Name)
			case errors.Is(err, trainer.ErrModelNotFound):
				r.Warning("No trained model found; run 'adega train' to enable predictions")
			default:
				return err
			}

			if h, err := loadHistory(ctx, cfg); err != nil {
				r.Warning("Purchase history unavailable, sales routes disabled: %v", err)
			} else {
				sc.Sales = predict.NewSalesPredictor(h.customers, h.records)
				sc.Products = predict.NewProductRecommender(h.records)
			}

			if !noState {
				store, err := openStore(ctx, cfg)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				sc.Store = store
			}

			if watch {
				if err := os.MkdirAll(cfg.ModelsDir, 0o755); err != nil {
					return fmt.Errorf("failed to create models directory: %w", err)
				}
				sc.WatchDir = cfg.ModelsDir
				sc.Reload = func() (*predict.ChurnPredictor, error) {
					return loadPredictor(ctx, cfg)
				}
			}

			r.Success("Listening on %s", sc.Addr)
			return server.New(sc).Serve(ctx)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default "+config.DefaultAddr+")")
	cmd.Flags().BoolVar(&noState, "no-state", false, "Do not open the state database")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Reload the model when a new one is saved")
	return cmd
}
