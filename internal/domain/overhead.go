package domain

// OverheadConfig holds the user-editable cost knobs used in reporting.
type OverheadConfig struct {
	EvalCost      float64 `json:"evalCost"`
	EvalsPerMonth float64 `json:"evalsPerMonth"`
	PAFees        float64 `json:"paFees"`
	CommRate      float64 `json:"commRate"` // per contract, round trip
	RiskUnit      float64 `json:"riskUnit"`
}

func DefaultOverhead() OverheadConfig {
	return OverheadConfig{
		EvalCost:      39,
		EvalsPerMonth: 1,
		PAFees:        0,
		CommRate:      2.53,
		RiskUnit:      150,
	}
}

// Sanitize clamps negative or non-finite values back to defaults.
func (c OverheadConfig) Sanitize() OverheadConfig {
	def := DefaultOverhead()
	if c.EvalCost < 0 || isBad(c.EvalCost) {
		c.EvalCost = def.EvalCost
	}
	if c.EvalsPerMonth < 0 || isBad(c.EvalsPerMonth) {
		c.EvalsPerMonth = def.EvalsPerMonth
	}
	if c.PAFees < 0 || isBad(c.PAFees) {
		c.PAFees = def.PAFees
	}
	if c.CommRate < 0 || isBad(c.CommRate) {
		c.CommRate = def.CommRate
	}
	if c.RiskUnit <= 0 || isBad(c.RiskUnit) {
		c.RiskUnit = def.RiskUnit
	}
	return c
}

// MonthlyOverhead is the fixed cost of evaluations and PA fees per month.
func (c OverheadConfig) MonthlyOverhead() float64 {
	return c.EvalCost*c.EvalsPerMonth + c.PAFees
}
