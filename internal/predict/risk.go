package predict

import (
	"fmt"
	"strings"

	"github.com/Harley062/projeto-IA-Adega/internal/features"
)

// RiskTier buckets a churn probability.
type RiskTier string

// Risk tiers.
const (
	RiskHigh   RiskTier = "High"
	RiskMedium RiskTier = "Medium"
	RiskLow    RiskTier = "Low"
)

// Tier thresholds on the churn probability, inclusive.
const (
	HighRiskThreshold   = 0.70
	MediumRiskThreshold = 0.40
)

// ClassifyRisk maps p to High at 0.70 and above, Medium from 0.40 and Low
// below that.
func ClassifyRisk(p float64) RiskTier {
	switch {
	case p >= HighRiskThreshold:
		return RiskHigh
	case p >= MediumRiskThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Color is the display color of the tier.
func (t RiskTier) Color() string {
	switch t {
	case RiskHigh:
		return "red"
	case RiskMedium:
		return "orange"
	default:
		return "green"
	}
}

// Recommendation thresholds.
const (
	LowEngagement = 5.0
	HighValue     = 300.0
)

// Recommendations returns the retention actions for a scored customer, in
// display order: tier actions, then subscription, engagement, value and
// city suggestions.
func Recommendations(tier RiskTier, in CustomerInput) []string {
	var recs []string
	switch tier {
	case RiskHigh:
		recs = append(recs,
			"URGENT: contact the customer immediately",
			"Offer a special discount or a free upgrade",
			"Call personally to understand the dissatisfaction",
		)
	case RiskMedium:
		recs = append(recs,
			"Monitor this customer closely",
			"Send an email with personalized offers",
			"Consider enrolling the customer in the loyalty program",
		)
	default:
		recs = append(recs,
			"Satisfied customer: keep the engagement going",
			"Upsell opportunity",
		)
	}

	if isNo(in.Subscriber) {
		recs = append(recs, "Promote the benefits of the subscribers' club")
	}
	if in.Engagement < LowEngagement {
		recs = append(recs, "Low engagement: send educational content about wine")
	}
	if in.Value > HighValue {
		recs = append(recs, "High-value customer: VIP treatment")
	}
	if city := strings.TrimSpace(in.City); city != "" {
		recs = append(recs, fmt.Sprintf("Exclusive event in %s", city))
	}
	return recs
}

func isNo(v string) bool {
	switch strings.ToLower(features.Normalize(v)) {
	case "não", "nao", "no", "n", "false", "0":
		return true
	}
	return false
}
