package domain

// Report is the aggregated performance view over a filtered trade list.
type Report struct {
	TotalTrades  int     `json:"totalTrades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	GrossProfit  float64 `json:"grossProfit"`
	GrossLoss    float64 `json:"grossLoss"` // positive magnitude
	NetPnL       float64 `json:"netPnL"`
	WinRate      float64 `json:"winRate"` // 0..100
	ProfitFactor float64 `json:"profitFactor"`
	// ProfitFactorDefined is false when there were no losses; ProfitFactor
	// then carries GrossProfit and is not a real ratio.
	ProfitFactorDefined bool    `json:"profitFactorDefined"`
	AvgWin              float64 `json:"avgWin"`
	AvgLoss             float64 `json:"avgLoss"`
	Expectancy          float64 `json:"expectancy"`
	ExpectancyR         float64 `json:"expectancyR"`
	MaxDrawdown         float64 `json:"maxDrawdown"`
	TotalFees           float64 `json:"totalFees"`
	MonthlyOverhead     float64 `json:"monthlyOverhead"`
	NetAfterOverhead    float64 `json:"netAfterOverhead"`
	StartingBalance     float64 `json:"startingBalance"`
	EndingBalance       float64 `json:"endingBalance"`

	EquityCurve []float64      `json:"equityCurve"`
	Sessions    []SessionStat  `json:"sessions"`
	Durations   []DurationStat `json:"durations"`
	Strategies  []StrategyStat `json:"strategies"`
	Tickers     []TickerStat   `json:"tickers"`
	Weekdays    []WeekdayStat  `json:"weekdays"`
	Mistakes    []MistakeStat  `json:"mistakes"`
	Insights    []string       `json:"insights"`
	PainPoints  []string       `json:"painPoints"`
	Display     ReportDisplay  `json:"display"`
	SummaryText string         `json:"summaryText"`
}

// ReportDisplay carries the headline scalars as fixed-point strings.
type ReportDisplay struct {
	NetPnL       string `json:"netPnL"`
	WinRate      string `json:"winRate"`
	ProfitFactor string `json:"profitFactor"`
	MaxDrawdown  string `json:"maxDrawdown"`
	Expectancy   string `json:"expectancy"`
	AvgWin       string `json:"avgWin"`
	AvgLoss      string `json:"avgLoss"`
}

type SessionStat struct {
	Name  string  `json:"name"`
	PnL   float64 `json:"pnl"`
	Count int     `json:"count"`
}

type DurationStat struct {
	Name    string  `json:"name"`
	Wins    int     `json:"wins"`
	Total   int     `json:"total"`
	WinRate float64 `json:"winRate"`
}

type StrategyStat struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Wins    int     `json:"wins"`
	PnL     float64 `json:"pnl"`
	WinRate float64 `json:"winRate"`
	Rating  string  `json:"rating"` // A, B, C, F or "-" below the sample minimum
}

type TickerStat struct {
	Ticker string  `json:"ticker"`
	PnL    float64 `json:"pnl"`
	Wins   int     `json:"wins"`
	Count  int     `json:"count"`
}

type WeekdayStat struct {
	Day   int     `json:"day"` // 0=Sunday
	Name  string  `json:"name"`
	PnL   float64 `json:"pnl"`
	Count int     `json:"count"`
}

type MistakeStat struct {
	Mistake Mistake `json:"mistake"`
	Count   int     `json:"count"`
	PnL     float64 `json:"pnl"`
}

// DayPnL is one cell of the P&L calendar.
type DayPnL struct {
	Date   string  `json:"date"`
	PnL    float64 `json:"pnl"`
	Trades int     `json:"trades"`
}
