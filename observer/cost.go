package observer

// PagePricing is the USD price of analyzing one thousand pages with a model.
type PagePricing struct {
	PerThousandPages float64
}

// DefaultPricing holds list prices for the Document Intelligence models.
// Override or extend via [observer.pricing] in kitabi.toml.
var DefaultPricing = map[string]PagePricing{
	"prebuilt-read":     {1.50},
	"prebuilt-layout":   {10.00},
	"prebuilt-document": {10.00},
}

// CostCalculator computes USD cost from analyzed page counts.
type CostCalculator struct {
	pricing map[string]PagePricing
}

// NewCostCalculator creates a calculator with default pricing, optionally merged with overrides.
func NewCostCalculator(overrides map[string]PagePricing) *CostCalculator {
	merged := make(map[string]PagePricing, len(DefaultPricing)+len(overrides))
	for k, v := range DefaultPricing {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return &CostCalculator{pricing: merged}
}

// Calculate returns the cost in USD of analyzing pages pages with model.
// Returns 0.0 for unknown models.
func (c *CostCalculator) Calculate(model string, pages int) float64 {
	p, ok := c.pricing[model]
	if !ok || pages <= 0 {
		return 0.0
	}
	return float64(pages) / 1000 * p.PerThousandPages
}
