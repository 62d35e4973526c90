package usecase

import (
	"fmt"
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"time"

	"journal-backend/internal/domain"
)

func trade(id int64, date, tm string, pnl float64) domain.Trade {
	return domain.Trade{
		ID:        id,
		Date:      date,
		Time:      tm,
		Ticker:    "MNQ",
		Direction: domain.Long,
		Size:      1,
		PnL:       pnl,
		Setup:     domain.DefaultSetup,
		Mistake:   domain.MistakeNone,
		Account:   domain.DefaultAccount,
	}
}

func TestComputeReportTwoTradeScenario(t *testing.T) {
	trades := []domain.Trade{
		trade(2, "2025-03-10", "13:00", -50),
		trade(1, "2025-03-10", "09:30", 100),
	}

	r := ComputeReport(trades, 1000, domain.DefaultOverhead(), domain.Filters{})
	if r == nil {
		t.Fatal("ComputeReport returned nil")
	}

	if want := []float64{1000, 1100, 1050}; !reflect.DeepEqual(r.EquityCurve, want) {
		t.Errorf("EquityCurve = %v, want %v", r.EquityCurve, want)
	}
	if r.MaxDrawdown != 50 {
		t.Errorf("MaxDrawdown = %v, want 50", r.MaxDrawdown)
	}
	if r.WinRate != 50 || r.Display.WinRate != "50.0" {
		t.Errorf("WinRate = %v (%s)", r.WinRate, r.Display.WinRate)
	}
	if r.ProfitFactor != 2 || !r.ProfitFactorDefined || r.Display.ProfitFactor != "2.00" {
		t.Errorf("ProfitFactor = %v defined=%v (%s)", r.ProfitFactor, r.ProfitFactorDefined, r.Display.ProfitFactor)
	}
	if r.NetPnL != 50 || r.Display.NetPnL != "50.00" {
		t.Errorf("NetPnL = %v (%s)", r.NetPnL, r.Display.NetPnL)
	}
	if r.GrossProfit != 100 || r.GrossLoss != 50 {
		t.Errorf("gross = %v / %v", r.GrossProfit, r.GrossLoss)
	}
	if r.AvgWin != 100 || r.AvgLoss != 50 || r.Expectancy != 25 {
		t.Errorf("avgWin %v avgLoss %v expectancy %v", r.AvgWin, r.AvgLoss, r.Expectancy)
	}
	if r.EndingBalance != 1050 {
		t.Errorf("EndingBalance = %v", r.EndingBalance)
	}
	if r.MonthlyOverhead != 39 || r.NetAfterOverhead != 11 {
		t.Errorf("overhead %v, after %v", r.MonthlyOverhead, r.NetAfterOverhead)
	}

	wantInsights := []string{
		"Account Green: net P&L $50.00.",
		"High win rate: 50.0% of trades closed green.",
		"Average win $100.00 is more than 1.5x the average loss $50.00.",
		"Best session: NY AM ($100.00 over 1 trades).",
	}
	if !reflect.DeepEqual(r.Insights, wantInsights) {
		t.Errorf("Insights = %q\nwant %q", r.Insights, wantInsights)
	}
	wantPains := []string{"Worst session: NY PM (-$50.00 over 1 trades)."}
	if !reflect.DeepEqual(r.PainPoints, wantPains) {
		t.Errorf("PainPoints = %q\nwant %q", r.PainPoints, wantPains)
	}

	if r.Weekdays[1].Count != 2 || r.Weekdays[1].PnL != 50 {
		t.Errorf("Monday = %+v", r.Weekdays[1])
	}
	if !strings.Contains(r.SummaryText, "Net: 50.00, WR: 50.0%") {
		t.Errorf("SummaryText missing headline:\n%s", r.SummaryText)
	}
}

func TestComputeReportEmpty(t *testing.T) {
	if r := ComputeReport(nil, 1000, domain.DefaultOverhead(), domain.Filters{}); r != nil {
		t.Errorf("ComputeReport(nil) = %+v, want nil", r)
	}

	trades := []domain.Trade{trade(1, "2025-03-10", "09:30", 100)}
	if r := ComputeReport(trades, 1000, domain.DefaultOverhead(), domain.Filters{Account: "Other"}); r != nil {
		t.Error("ComputeReport with no matching trades should be nil")
	}
}

func TestComputeReportNoLosses(t *testing.T) {
	trades := []domain.Trade{
		trade(1, "2025-03-10", "09:30", 100),
		trade(2, "2025-03-11", "09:30", 60),
	}
	r := ComputeReport(trades, 1000, domain.DefaultOverhead(), domain.Filters{})
	if r.ProfitFactorDefined {
		t.Error("ProfitFactorDefined = true with no losses")
	}
	if r.ProfitFactor != 160 {
		t.Errorf("ProfitFactor = %v, want gross profit 160", r.ProfitFactor)
	}
	if r.WinRate != 100 || r.Losses != 0 || r.AvgLoss != 0 {
		t.Errorf("WinRate %v Losses %d AvgLoss %v", r.WinRate, r.Losses, r.AvgLoss)
	}
	if !strings.Contains(r.SummaryText, "n/a (no losses)") {
		t.Error("summary should flag undefined profit factor")
	}
}

func TestComputeReportBreakevenCountsAsLoss(t *testing.T) {
	trades := []domain.Trade{trade(1, "2025-03-10", "09:30", 0)}
	r := ComputeReport(trades, 1000, domain.DefaultOverhead(), domain.Filters{})
	if r.Wins != 0 || r.Losses != 1 || r.WinRate != 0 {
		t.Errorf("wins %d losses %d wr %v", r.Wins, r.Losses, r.WinRate)
	}
	if want := []string{steadyTrading}; !reflect.DeepEqual(r.Insights, want) || len(r.PainPoints) != 0 {
		t.Errorf("Insights %q PainPoints %q", r.Insights, r.PainPoints)
	}
}

func TestComputeReportPainPoints(t *testing.T) {
	trades := []domain.Trade{
		trade(1, "2025-03-10", "09:30", 200),
		trade(2, "2025-03-10", "10:00", -300),
		trade(3, "2025-03-10", "10:30", -400),
		trade(4, "2025-03-10", "11:00", -100),
	}
	trades[1].Mistake = domain.MistakeFOMO
	trades[2].Mistake = domain.MistakeFOMO
	trades[3].Mistake = domain.MistakeRevenge

	r := ComputeReport(trades, 10000, domain.DefaultOverhead(), domain.Filters{})
	joined := strings.Join(r.PainPoints, "\n")
	for _, want := range []string{
		"Account Red: net P&L -$600.00.",
		"Average loss $266.67 is larger than average win $200.00.",
		"Max drawdown $800.00 exceeds 5% of the $10000.00 balance.",
		"Most frequent mistake: FOMO (2 trades, -$700.00).",
		"Worst session: NY AM (-$600.00 over 4 trades).",
		"Losing streak of 3 trades in a row.",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("PainPoints missing %q; got\n%s", want, joined)
		}
	}
	if len(r.Mistakes) != 2 || r.Mistakes[0].Mistake != domain.MistakeFOMO {
		t.Errorf("Mistakes = %+v", r.Mistakes)
	}
	for _, s := range r.Insights {
		for _, p := range r.PainPoints {
			if s == p {
				t.Errorf("%q in both lists", s)
			}
		}
	}
}

func TestComputeReportFilters(t *testing.T) {
	a := trade(1, "2025-03-10", "09:30", 100)
	b := trade(2, "2025-03-10", "09:45", -40)
	b.Account = "Apex"
	b.Ticker = "ES"
	c := trade(3, "2025-03-10", "10:00", 30)
	c.Account = ""
	c.Setup = "ORB"

	trades := []domain.Trade{a, b, c}
	tests := []struct {
		filters domain.Filters
		want    int
	}{
		{domain.Filters{}, 3},
		{domain.Filters{Account: "All", Ticker: "All", Setup: "All"}, 3},
		{domain.Filters{Account: "Main"}, 2},
		{domain.Filters{Account: "Apex"}, 1},
		{domain.Filters{Ticker: "MNQ"}, 2},
		{domain.Filters{Setup: "ORB"}, 1},
		{domain.Filters{Setup: "Unknown", Account: "Main"}, 1},
	}
	for _, tt := range tests {
		r := ComputeReport(trades, 1000, domain.DefaultOverhead(), tt.filters)
		if r == nil || r.TotalTrades != tt.want {
			t.Errorf("filters %+v: got %+v, want %d trades", tt.filters, r, tt.want)
		}
	}
}

func TestComputeReportBreakdowns(t *testing.T) {
	mk := func(id int64, tm string, pnl, dur float64, setup string) domain.Trade {
		tr := trade(id, "2025-03-12", tm, pnl)
		tr.Duration = domain.NewNumber(dur)
		tr.Setup = setup
		return tr
	}
	trades := []domain.Trade{
		mk(1, "01:15", 10, 1, "ORB"),
		mk(2, "05:00", -10, 5, "ORB"),
		mk(3, "09:00", 50, 30, "ORB"),
		mk(4, "14:00", 20, 90, "VWAP"),
		mk(5, "19:30", -5, 2, "VWAP"),
	}
	trades = append(trades, trade(6, "2025-03-12", "bad", 7))

	r := ComputeReport(trades, 1000, domain.DefaultOverhead(), domain.Filters{})

	sessions := map[string]domain.SessionStat{}
	for _, s := range r.Sessions {
		sessions[s.Name] = s
	}
	if s := sessions[SessionLateNight]; s.Count != 2 || s.PnL != 5 {
		t.Errorf("Late Night = %+v", s)
	}
	if s := sessions[SessionMorning]; s.Count != 1 || s.PnL != -10 {
		t.Errorf("Morning = %+v", s)
	}
	if s := sessions[SessionNYAM]; s.Count != 1 {
		t.Errorf("NY AM = %+v", s)
	}
	if s := sessions[SessionNYPM]; s.Count != 2 || s.PnL != 27 {
		t.Errorf("NY PM = %+v (malformed time counts as noon)", s)
	}

	wantDur := []domain.DurationStat{
		{Name: "< 2m", Wins: 1, Total: 1, WinRate: 100},
		{Name: "2-10m", Wins: 0, Total: 2, WinRate: 0},
		{Name: "10-60m", Wins: 1, Total: 1, WinRate: 100},
		{Name: "> 60m", Wins: 1, Total: 1, WinRate: 100},
	}
	if !reflect.DeepEqual(r.Durations, wantDur) {
		t.Errorf("Durations = %+v", r.Durations)
	}

	if len(r.Strategies) != 3 {
		t.Fatalf("Strategies = %+v", r.Strategies)
	}
	if s := r.Strategies[0]; s.Name != "ORB" || s.Rating != "A" || s.Count != 3 {
		t.Errorf("top strategy = %+v", s)
	}
	if s := r.Strategies[1]; s.Name != "VWAP" || s.Rating != "-" {
		t.Errorf("second strategy = %+v", s)
	}
}

func TestComputeReportInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var trades []domain.Trade
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 200; i++ {
		day := start.AddDate(0, 0, i/5)
		// increasing within a day so prefixes stay chronological
		tm := fmt.Sprintf("%02d:%02d", 8+(i%5)*2, rng.Intn(60))
		pnl := float64(rng.Intn(80000)-40000) / 100
		trades = append(trades, trade(int64(i+1), day.Format(domain.DateLayout), tm, pnl))
	}

	prevDD := 0.0
	for n := 1; n <= len(trades); n += 7 {
		r := ComputeReport(trades[:n], 50000, domain.DefaultOverhead(), domain.Filters{})
		if r == nil {
			t.Fatalf("nil report for %d trades", n)
		}
		if diff := r.NetPnL - (r.GrossProfit - r.GrossLoss); diff > 0.011 || diff < -0.011 {
			t.Errorf("n=%d: net %v != gross %v - %v", n, r.NetPnL, r.GrossProfit, r.GrossLoss)
		}
		if r.GrossProfit < 0 || r.GrossLoss < 0 {
			t.Errorf("n=%d: negative gross", n)
		}
		if r.WinRate < 0 || r.WinRate > 100 {
			t.Errorf("n=%d: winRate %v", n, r.WinRate)
		}
		if (r.WinRate == 100) != (r.Losses == 0 && r.Wins > 0) {
			t.Errorf("n=%d: winRate %v with %d wins %d losses", n, r.WinRate, r.Wins, r.Losses)
		}
		if r.MaxDrawdown < 0 {
			t.Errorf("n=%d: negative drawdown", n)
		}
		if r.MaxDrawdown < prevDD {
			t.Errorf("n=%d: drawdown shrank from %v to %v after appending", n, prevDD, r.MaxDrawdown)
		}
		prevDD = r.MaxDrawdown
		if len(r.EquityCurve) != n+1 {
			t.Errorf("n=%d: equity curve has %d points", n, len(r.EquityCurve))
		}
	}

	a := ComputeReport(trades, 50000, domain.DefaultOverhead(), domain.Filters{})
	b := ComputeReport(trades, 50000, domain.DefaultOverhead(), domain.Filters{})
	if !reflect.DeepEqual(a, b) {
		t.Error("ComputeReport is not deterministic")
	}
}

func TestComputeReportDoesNotReorderInput(t *testing.T) {
	trades := []domain.Trade{
		trade(1, "2025-03-11", "09:00", 10),
		trade(2, "2025-03-10", "09:00", 20),
	}
	ComputeReport(trades, 1000, domain.DefaultOverhead(), domain.Filters{})
	if trades[0].ID != 1 || trades[1].ID != 2 {
		t.Error("input slice was reordered")
	}
}

func TestSessionFor(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, SessionLateNight}, {1, SessionLateNight}, {2, SessionMorning}, {7, SessionMorning},
		{8, SessionNYAM}, {11, SessionNYAM}, {12, SessionNYPM}, {17, SessionNYPM},
		{18, SessionLateNight}, {23, SessionLateNight},
	}
	for _, tt := range tests {
		if got := SessionFor(tt.hour); got != tt.want {
			t.Errorf("SessionFor(%d) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestDurationBucket(t *testing.T) {
	tests := []struct {
		minutes float64
		want    int
	}{
		{0, 0}, {1.99, 0}, {2, 1}, {10, 1}, {10.01, 2}, {60, 2}, {60.5, 3}, {600, 3},
	}
	for _, tt := range tests {
		if got := durationBucket(tt.minutes); got != tt.want {
			t.Errorf("durationBucket(%v) = %d, want %d", tt.minutes, got, tt.want)
		}
	}
}

func TestStrategyRating(t *testing.T) {
	tests := []struct {
		count   int
		pnl, wr float64
		want    string
	}{
		{2, 500, 100, "-"},
		{3, 100, 60, "A"},
		{3, 100, 50, "B"},
		{3, -100, 60, "C"},
		{3, -100, 40, "F"},
		{3, 0, 50, "F"},
	}
	for _, tt := range tests {
		if got := StrategyRating(tt.count, tt.pnl, tt.wr); got != tt.want {
			t.Errorf("StrategyRating(%d, %v, %v) = %q, want %q", tt.count, tt.pnl, tt.wr, got, tt.want)
		}
	}
}

func TestDailyPnL(t *testing.T) {
	now := time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)
	trades := []domain.Trade{
		trade(1, "2025-03-14", "09:00", 100),
		trade(2, "2025-03-14", "10:00", -30.5),
		trade(3, "2025-03-12", "10:00", 40),
		trade(4, "2025-01-01", "10:00", 999),
	}

	cal := DailyPnL(trades, 28, now)
	if len(cal) != 28 {
		t.Fatalf("len = %d", len(cal))
	}
	if cal[0].Date != "2025-02-15" || cal[27].Date != "2025-03-14" {
		t.Errorf("range %s..%s", cal[0].Date, cal[27].Date)
	}
	if cal[27].PnL != 69.5 || cal[27].Trades != 2 {
		t.Errorf("today = %+v", cal[27])
	}
	if cal[25].PnL != 40 || cal[26].Trades != 0 {
		t.Errorf("cells = %+v %+v", cal[25], cal[26])
	}

	if got := DailyPnL(trades, 0, now); len(got) != 0 {
		t.Errorf("DailyPnL(0) = %v", got)
	}
}

func TestBuildFilterOptions(t *testing.T) {
	a := trade(1, "2025-03-10", "09:00", 1)
	b := trade(2, "2025-03-10", "09:00", 1)
	b.Ticker = "ES"
	b.Setup = "ORB"
	c := trade(3, "2025-03-10", "09:00", 1)
	c.Setup = ""

	opts := BuildFilterOptions([]domain.Trade{a, b, c}, []string{"Main", "Apex"})
	if want := []string{"All", "Main", "Apex"}; !reflect.DeepEqual(opts.Accounts, want) {
		t.Errorf("Accounts = %v", opts.Accounts)
	}
	if want := []string{"All", "ES", "MNQ"}; !reflect.DeepEqual(opts.Tickers, want) {
		t.Errorf("Tickers = %v", opts.Tickers)
	}
	if want := []string{"All", "ORB", "Unknown"}; !reflect.DeepEqual(opts.Setups, want) {
		t.Errorf("Setups = %v", opts.Setups)
	}
	if len(opts.Mistakes) != 7 || opts.Mistakes[0] != domain.MistakeNone {
		t.Errorf("Mistakes = %v", opts.Mistakes)
	}
}
