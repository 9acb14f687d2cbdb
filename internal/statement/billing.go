// Package statement assembles the response shapes served to billing and
// reconciliation clients from aggregated buckets. Builders are pure and
// deterministic; handlers cache their output as a whole.
package statement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/croftje/billingd/internal/aggregate"
	"github.com/croftje/billingd/internal/pricing"
)

// BillingItem is one result-code line inside a billing tier.
type BillingItem struct {
	ResultCode    string `json:"result_code"`
	ResultMessage string `json:"result_message"`
	Count         int64  `json:"count"`
	Valid         bool   `json:"valid"`
}

// BillingTier groups the lines for one authentication mode with its totals
// and priced amount.
type BillingTier struct {
	AuthMode            string          `json:"auth_mode"`
	Items               []BillingItem   `json:"items"`
	Total               int64           `json:"total"`
	ValidTotal          int64           `json:"valid_total"`
	UnitPriceMinorUnits int64           `json:"unit_price_minor_units"`
	Amount              decimal.Decimal `json:"amount"`
}

// Billing is a complete billing statement for one organization and period.
type Billing struct {
	ID              string          `json:"id"`
	OrgID           string          `json:"org_id"`
	OrgName         string          `json:"org_name"`
	PeriodStart     string          `json:"period_start"`
	PeriodEnd       string          `json:"period_end"`
	TwoFactor       BillingTier     `json:"two_factor"`
	ThreeFactor     BillingTier     `json:"three_factor"`
	TotalValidCount int64           `json:"total_valid_count"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	GeneratedAt     string          `json:"generated_at"`
}

// BillingInput carries everything BuildBilling needs. Buckets must be grouped
// without the date dimension.
type BillingInput struct {
	OrgID            string
	OrgName          string
	PeriodStart      string
	PeriodEnd        string
	Buckets          []aggregate.Bucket
	Validity         aggregate.Validity
	TwoFactorPrice   int64
	ThreeFactorPrice int64
	Now              time.Time
}

// BuildBilling partitions buckets into the two billable tiers, prices each,
// and totals the statement. Buckets with an unrecognized auth mode are
// dropped; only the two known factor modes are billable.
func BuildBilling(in BillingInput) Billing {
	var two, three []aggregate.Bucket
	for _, b := range in.Buckets {
		switch b.AuthMode {
		case aggregate.ModeTwoFactor:
			two = append(two, b)
		case aggregate.ModeThreeFactor:
			three = append(three, b)
		}
	}

	twoTier := buildTier(aggregate.ModeTwoFactor, two, in.Validity, in.TwoFactorPrice)
	threeTier := buildTier(aggregate.ModeThreeFactor, three, in.Validity, in.ThreeFactorPrice)

	return Billing{
		ID:              uuid.NewString(),
		OrgID:           in.OrgID,
		OrgName:         in.OrgName,
		PeriodStart:     in.PeriodStart,
		PeriodEnd:       in.PeriodEnd,
		TwoFactor:       twoTier,
		ThreeFactor:     threeTier,
		TotalValidCount: twoTier.ValidTotal + threeTier.ValidTotal,
		TotalAmount:     pricing.Sum(twoTier.Amount, threeTier.Amount),
		GeneratedAt:     in.Now.UTC().Format(time.RFC3339),
	}
}

func buildTier(mode string, buckets []aggregate.Bucket, validity aggregate.Validity, priceMinor int64) BillingTier {
	aggregate.SortForBilling(buckets)
	items := make([]BillingItem, 0, len(buckets))
	var total, validTotal int64
	for _, b := range buckets {
		valid := validity.Valid(b.ResultCode)
		items = append(items, BillingItem{
			ResultCode:    b.ResultCode,
			ResultMessage: b.ResultMessage,
			Count:         b.Count,
			Valid:         valid,
		})
		total += b.Count
		if valid {
			validTotal += b.Count
		}
	}
	return BillingTier{
		AuthMode:            mode,
		Items:               items,
		Total:               total,
		ValidTotal:          validTotal,
		UnitPriceMinorUnits: priceMinor,
		Amount:              pricing.Amount(validTotal, priceMinor),
	}
}
