package usecase

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"journal-backend/internal/domain"
)

const (
	SessionLateNight = "Late Night"
	SessionMorning   = "Morning"
	SessionNYAM      = "NY AM"
	SessionNYPM      = "NY PM"

	// strategies with fewer trades are not rated
	minStrategySample = 3
)

var sessionOrder = []string{SessionLateNight, SessionMorning, SessionNYAM, SessionNYPM}

var durationBuckets = []struct {
	name string
	max  float64 // inclusive upper bound in minutes
}{
	{"< 2m", 2},
	{"2-10m", 10},
	{"10-60m", 60},
	{"> 60m", math.Inf(1)},
}

var weekdayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// SessionFor buckets an hour of day into a trading session.
func SessionFor(hour int) string {
	switch {
	case hour >= 18 || hour < 2:
		return SessionLateNight
	case hour < 8:
		return SessionMorning
	case hour < 12:
		return SessionNYAM
	default:
		return SessionNYPM
	}
}

func durationBucket(minutes float64) int {
	if minutes < 2 {
		return 0
	}
	for i := 1; i < len(durationBuckets); i++ {
		if minutes <= durationBuckets[i].max {
			return i
		}
	}
	return len(durationBuckets) - 1
}

// StrategyRating grades a setup. Small samples get "-".
func StrategyRating(count int, pnl, winRate float64) string {
	switch {
	case count < minStrategySample:
		return "-"
	case pnl > 0 && winRate > 50:
		return "A"
	case pnl > 0:
		return "B"
	case winRate > 50:
		return "C"
	default:
		return "F"
	}
}

// ComputeReport aggregates the trades matching filters. It returns nil when
// nothing matches or when the computation fails for any reason.
func ComputeReport(trades []domain.Trade, balance float64, cfg domain.OverheadConfig, filters domain.Filters) (report *domain.Report) {
	defer func() {
		if r := recover(); r != nil {
			report = nil
		}
	}()

	filtered := filters.Apply(trades)
	if len(filtered) == 0 {
		return nil
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].SortKey() < filtered[j].SortKey()
	})

	cfg = cfg.Sanitize()
	r := &domain.Report{
		TotalTrades:     len(filtered),
		StartingBalance: domain.RoundCents(balance),
		EquityCurve:     make([]float64, 0, len(filtered)+1),
	}

	sessions := make(map[string]*domain.SessionStat, len(sessionOrder))
	for _, name := range sessionOrder {
		sessions[name] = &domain.SessionStat{Name: name}
	}
	durations := make([]domain.DurationStat, len(durationBuckets))
	for i, b := range durationBuckets {
		durations[i].Name = b.name
	}
	weekdays := make([]domain.WeekdayStat, len(weekdayNames))
	for i, name := range weekdayNames {
		weekdays[i] = domain.WeekdayStat{Day: i, Name: name}
	}
	strategies := map[string]*domain.StrategyStat{}
	tickers := map[string]*domain.TickerStat{}
	mistakes := map[domain.Mistake]*domain.MistakeStat{}

	equity, peak, maxDD := balance, balance, 0.0
	r.EquityCurve = append(r.EquityCurve, domain.RoundCents(equity))

	var grossProfit, grossLoss, fees float64
	for _, t := range filtered {
		pnl := t.PnL
		if math.IsNaN(pnl) || math.IsInf(pnl, 0) {
			pnl = 0
		}
		win := pnl > 0

		equity += pnl
		r.EquityCurve = append(r.EquityCurve, domain.RoundCents(equity))
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > maxDD {
			maxDD = dd
		}

		if win {
			r.Wins++
			grossProfit += pnl
		} else {
			r.Losses++
			grossLoss += math.Abs(pnl)
		}
		fees += t.Fees

		s := sessions[SessionFor(t.Hour())]
		s.PnL += pnl
		s.Count++

		if t.Duration.Valid {
			d := &durations[durationBucket(t.Duration.Value)]
			d.Total++
			if win {
				d.Wins++
			}
		}

		name := t.SetupName()
		st, ok := strategies[name]
		if !ok {
			st = &domain.StrategyStat{Name: name}
			strategies[name] = st
		}
		st.Count++
		st.PnL += pnl
		if win {
			st.Wins++
		}

		tk, ok := tickers[t.Ticker]
		if !ok {
			tk = &domain.TickerStat{Ticker: t.Ticker}
			tickers[t.Ticker] = tk
		}
		tk.Count++
		tk.PnL += pnl
		if win {
			tk.Wins++
		}

		if day, ok := t.Weekday(); ok {
			weekdays[day].PnL += pnl
			weekdays[day].Count++
		}

		if t.Mistake != "" && t.Mistake != domain.MistakeNone {
			m, ok := mistakes[t.Mistake]
			if !ok {
				m = &domain.MistakeStat{Mistake: t.Mistake}
				mistakes[t.Mistake] = m
			}
			m.Count++
			m.PnL += pnl
		}
	}

	total := float64(r.TotalTrades)
	netPnL := grossProfit - grossLoss
	winRate := float64(r.Wins) / total * 100

	var avgWin, avgLoss float64
	if r.Wins > 0 {
		avgWin = grossProfit / float64(r.Wins)
	}
	if r.Losses > 0 {
		avgLoss = grossLoss / float64(r.Losses)
	}

	profitFactor := grossProfit
	if grossLoss > 0 {
		profitFactor = grossProfit / grossLoss
		r.ProfitFactorDefined = true
	}

	wr := float64(r.Wins) / total
	expectancy := wr*avgWin - (1-wr)*avgLoss

	r.GrossProfit = domain.RoundCents(grossProfit)
	r.GrossLoss = domain.RoundCents(grossLoss)
	r.NetPnL = domain.RoundCents(netPnL)
	r.WinRate = domain.RoundCents(winRate)
	r.ProfitFactor = domain.RoundCents(profitFactor)
	r.AvgWin = domain.RoundCents(avgWin)
	r.AvgLoss = domain.RoundCents(avgLoss)
	r.Expectancy = domain.RoundCents(expectancy)
	r.ExpectancyR = domain.RoundCents(expectancy / cfg.RiskUnit)
	r.MaxDrawdown = domain.RoundCents(maxDD)
	r.TotalFees = domain.RoundCents(fees)
	r.MonthlyOverhead = domain.RoundCents(cfg.MonthlyOverhead())
	r.NetAfterOverhead = domain.RoundCents(netPnL - cfg.MonthlyOverhead())
	r.EndingBalance = domain.RoundCents(balance + netPnL)

	r.Sessions = make([]domain.SessionStat, 0, len(sessionOrder))
	for _, name := range sessionOrder {
		s := *sessions[name]
		s.PnL = domain.RoundCents(s.PnL)
		r.Sessions = append(r.Sessions, s)
	}

	for i := range durations {
		if durations[i].Total > 0 {
			durations[i].WinRate = domain.RoundCents(float64(durations[i].Wins) / float64(durations[i].Total) * 100)
		}
	}
	r.Durations = durations

	r.Strategies = make([]domain.StrategyStat, 0, len(strategies))
	for _, st := range strategies {
		s := *st
		s.PnL = domain.RoundCents(s.PnL)
		s.WinRate = domain.RoundCents(float64(s.Wins) / float64(s.Count) * 100)
		s.Rating = StrategyRating(s.Count, s.PnL, s.WinRate)
		r.Strategies = append(r.Strategies, s)
	}
	sort.Slice(r.Strategies, func(i, j int) bool {
		a, b := r.Strategies[i], r.Strategies[j]
		if a.PnL != b.PnL {
			return a.PnL > b.PnL
		}
		return a.Name < b.Name
	})

	r.Tickers = make([]domain.TickerStat, 0, len(tickers))
	for _, tk := range tickers {
		s := *tk
		s.PnL = domain.RoundCents(s.PnL)
		r.Tickers = append(r.Tickers, s)
	}
	sort.Slice(r.Tickers, func(i, j int) bool {
		a, b := r.Tickers[i], r.Tickers[j]
		if a.PnL != b.PnL {
			return a.PnL > b.PnL
		}
		return a.Ticker < b.Ticker
	})

	for i := range weekdays {
		weekdays[i].PnL = domain.RoundCents(weekdays[i].PnL)
	}
	r.Weekdays = weekdays

	r.Mistakes = make([]domain.MistakeStat, 0, len(mistakes))
	for _, m := range mistakes {
		s := *m
		s.PnL = domain.RoundCents(s.PnL)
		r.Mistakes = append(r.Mistakes, s)
	}
	sort.Slice(r.Mistakes, func(i, j int) bool {
		a, b := r.Mistakes[i], r.Mistakes[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Mistake < b.Mistake
	})

	r.Display = domain.ReportDisplay{
		NetPnL:       domain.FormatCents(r.NetPnL),
		WinRate:      decimal.NewFromFloat(winRate).StringFixed(1),
		ProfitFactor: domain.FormatCents(r.ProfitFactor),
		MaxDrawdown:  domain.FormatCents(r.MaxDrawdown),
		Expectancy:   domain.FormatCents(r.Expectancy),
		AvgWin:       domain.FormatCents(r.AvgWin),
		AvgLoss:      domain.FormatCents(r.AvgLoss),
	}

	r.Insights, r.PainPoints = buildInsights(r, filtered)
	r.SummaryText = buildSummary(r)
	return r
}

// DailyPnL sums net pnl per calendar day for the last days days ending at
// now, oldest first. Days without trades are included with zero values.
func DailyPnL(trades []domain.Trade, days int, now time.Time) []domain.DayPnL {
	if days <= 0 {
		return []domain.DayPnL{}
	}

	byDate := make(map[string]*domain.DayPnL, days)
	out := make([]domain.DayPnL, days)
	start := now.AddDate(0, 0, -(days - 1))
	for i := range out {
		out[i].Date = start.AddDate(0, 0, i).Format(domain.DateLayout)
		byDate[out[i].Date] = &out[i]
	}

	for _, t := range trades {
		if cell, ok := byDate[t.Date]; ok {
			cell.PnL += t.PnL
			cell.Trades++
		}
	}
	for i := range out {
		out[i].PnL = domain.RoundCents(out[i].PnL)
	}
	return out
}

// FilterOptions lists the values the report filters can take, each prefixed
// with "All", plus the mistake tags a trade can carry.
type FilterOptions struct {
	Accounts []string         `json:"accounts"`
	Tickers  []string         `json:"tickers"`
	Setups   []string         `json:"setups"`
	Mistakes []domain.Mistake `json:"mistakes"`
}

func BuildFilterOptions(trades []domain.Trade, accounts []string) FilterOptions {
	tickers := map[string]bool{}
	setups := map[string]bool{}
	for _, t := range trades {
		if t.Ticker != "" {
			tickers[t.Ticker] = true
		}
		setups[t.SetupName()] = true
	}

	return FilterOptions{
		Accounts: append([]string{domain.FilterAll}, accounts...),
		Tickers:  withAll(tickers),
		Setups:   withAll(setups),
		Mistakes: domain.Mistakes(),
	}
}

func withAll(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return append([]string{domain.FilterAll}, out...)
}
