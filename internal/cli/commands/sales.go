package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Harley062/projeto-IA-Adega/internal/cli/config"
	"github.com/Harley062/projeto-IA-Adega/internal/cli/output"
	"github.com/Harley062/projeto-IA-Adega/internal/predict"
)

// Default sizes for the sales commands.
const (
	DefaultRecommendTop  = 5
	DefaultRevenueMonths = 3
)

// NewNextPurchaseCommand creates the next-purchase command.
func NewNextPurchaseCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "next-purchase <customer-id>",
		Short:   "Forecast a customer's next purchase",
		Long:    `Estimate when a customer will buy again and what the purchase will be worth, from the average interval between their past purchases.`,
		Example: `  adega next-purchase 42`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCustomerID(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			r := output.FromContext(ctx)

			h, err := loadHistory(ctx, config.GetConfig(ctx))
			if err != nil {
				return err
			}
			np := predict.NewSalesPredictor(h.customers, h.records).PredictNextPurchase(id)
			if err := r.Emit(np, func() { renderNextPurchase(r, np) }); err != nil {
				return err
			}
			if np.Status == predict.StatusNotFound {
				return fmt.Errorf("customer %d not found", id)
			}
			return nil
		},
	}
}

func renderNextPurchase(r *output.Renderer, np predict.NextPurchase) {
	r.Title(fmt.Sprintf("Customer %d", np.CustomerID))
	if np.Status != predict.StatusOK {
		r.Warning("%s", np.Message)
		if np.Suggestion != "" {
			r.Line("%s", np.Suggestion)
		}
		return
	}
	r.Table([]string{"Field", "Value"}, [][]any{
		{"Last purchase", np.LastPurchase},
		{"Next purchase", np.NextPurchaseDate},
		{"Days until next", np.DaysUntilNext},
		{"Expected value", fmt.Sprintf("%.2f", np.PredictedValue)},
		{"Expected quantity", np.PredictedQuantity},
		{"Average interval (days)", fmt.Sprintf("%.1f", np.AvgIntervalDays)},
		{"Purchases so far", np.HistoricalPurchase},
		{"Favorite grape", np.FavoriteGrape},
		{"Lifetime value", fmt.Sprintf("%.2f", np.LifetimeValue)},
	})
}

// NewRecommendCommand creates the recommend command.
func NewRecommendCommand() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "recommend <customer-id>",
		Short: "Suggest products for a customer",
		Long: `Suggest products the customer has not bought yet, preferring the grape
types they buy most and ranking by how many customers bought each product.`,
		Example: `  adega recommend 42 --top 3`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCustomerID(args[0])
			if err != nil {
				return err
			}
			if top < 1 {
				return fmt.Errorf("--top must be at least 1, got %d", top)
			}
			ctx := cmd.Context()
			r := output.FromContext(ctx)

			h, err := loadHistory(ctx, config.GetConfig(ctx))
			if err != nil {
				return err
			}
			recs := predict.NewProductRecommender(h.records).RecommendProducts(id, top)
			return r.Emit(recs, func() {
				r.Title(fmt.Sprintf("Recommendations for customer %d", id))
				if len(recs) == 0 {
					r.Line("%s", r.Muted("no products to recommend"))
					return
				}
				rows := make([][]any, 0, len(recs))
				for _, s := range recs {
					rows = append(rows, []any{s.ProductID, s.Name, s.GrapeType, s.Country, fmt.Sprintf("%.2f", s.AvgPrice), s.PopularityScore, s.Reason})
				}
				r.Table([]string{"Product", "Name", "Grape", "Country", "Avg price", "Buyers", "Reason"}, rows)
			})
		},
	}

	cmd.Flags().IntVarP(&top, "top", "n", DefaultRecommendTop, "Number of products to suggest")
	return cmd
}

// NewRevenueCommand creates the revenue command.
func NewRevenueCommand() *cobra.Command {
	var months int

	cmd := &cobra.Command{
		Use:     "revenue",
		Short:   "Forecast revenue for the coming months",
		Long:    `Project total revenue from the historical monthly average and the recent growth trend.`,
		Example: `  adega revenue --months 6`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if months < 1 {
				return fmt.Errorf("--months must be at least 1, got %d", months)
			}
			ctx := cmd.Context()
			r := output.FromContext(ctx)

			h, err := loadHistory(ctx, config.GetConfig(ctx))
			if err != nil {
				return err
			}
			f := predict.NewSalesPredictor(h.customers, h.records).PredictRevenue(months)
			return r.Emit(f, func() {
				r.Title(fmt.Sprintf("Revenue forecast, next %d months", f.MonthsAhead))
				r.Table([]string{"Field", "Value"}, [][]any{
					{"Total", fmt.Sprintf("%.2f", f.PredictedTotalRevenue)},
					{"Monthly average", fmt.Sprintf("%.2f", f.PredictedMonthlyAvg)},
					{"Historical monthly average", fmt.Sprintf("%.2f", f.HistoricalMonthlyAvg)},
					{"Growth rate", fmt.Sprintf("%.3f", f.GrowthRate)},
					{"Confidence", f.Confidence},
				})
			})
		},
	}

	cmd.Flags().IntVarP(&months, "months", "m", DefaultRevenueMonths, "Months ahead to forecast")
	return cmd
}
