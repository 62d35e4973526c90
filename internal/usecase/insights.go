package usecase

import (
	"fmt"
	"strings"

	"journal-backend/internal/domain"
)

const (
	steadyTrading = "Steady trading. Keep managing risk."

	drawdownAlertPct    = 0.05
	lossStreakAlert     = 3
	mistakeRepeatsAlert = 2
)

// buildInsights evaluates each coaching rule independently. trades must be
// in chronological order.
func buildInsights(r *domain.Report, trades []domain.Trade) (insights, pains []string) {
	insights = []string{}
	pains = []string{}

	if r.NetPnL > 0 {
		insights = append(insights, fmt.Sprintf("Account Green: net P&L %s.", money(r.NetPnL)))
	}
	if r.WinRate >= 50 {
		insights = append(insights, fmt.Sprintf("High win rate: %s%% of trades closed green.", r.Display.WinRate))
	}
	if r.ProfitFactorDefined && r.ProfitFactor > 2 {
		insights = append(insights, fmt.Sprintf("Profit factor %s: winners pay for losers more than twice over.", r.Display.ProfitFactor))
	}
	if r.AvgWin > 1.5*r.AvgLoss {
		insights = append(insights, fmt.Sprintf("Average win %s is more than 1.5x the average loss %s.", money(r.AvgWin), money(r.AvgLoss)))
	}
	if best, ok := bestSession(r.Sessions); ok && best.PnL > 0 {
		insights = append(insights, fmt.Sprintf("Best session: %s (%s over %d trades).", best.Name, money(best.PnL), best.Count))
	}
	if len(r.Strategies) > 0 && r.Strategies[0].Rating == "A" {
		s := r.Strategies[0]
		insights = append(insights, fmt.Sprintf("Strategy %q is rated A (%s, %.1f%% win rate).", s.Name, money(s.PnL), s.WinRate))
	}

	if r.NetPnL < 0 {
		pains = append(pains, fmt.Sprintf("Account Red: net P&L %s.", money(r.NetPnL)))
	}
	if r.Losses > 0 && r.AvgLoss > r.AvgWin {
		pains = append(pains, fmt.Sprintf("Average loss %s is larger than average win %s.", money(r.AvgLoss), money(r.AvgWin)))
	}
	if r.MaxDrawdown > drawdownAlertPct*r.StartingBalance {
		pains = append(pains, fmt.Sprintf("Max drawdown %s exceeds 5%% of the %s balance.", money(r.MaxDrawdown), money(r.StartingBalance)))
	}
	if len(r.Mistakes) > 0 && r.Mistakes[0].Count >= mistakeRepeatsAlert {
		m := r.Mistakes[0]
		pains = append(pains, fmt.Sprintf("Most frequent mistake: %s (%d trades, %s).", m.Mistake, m.Count, money(m.PnL)))
	}
	if worst, ok := worstSession(r.Sessions); ok && worst.PnL < 0 {
		pains = append(pains, fmt.Sprintf("Worst session: %s (%s over %d trades).", worst.Name, money(worst.PnL), worst.Count))
	}
	if streak := longestLossStreak(trades); streak >= lossStreakAlert {
		pains = append(pains, fmt.Sprintf("Losing streak of %d trades in a row.", streak))
	}

	if len(insights) == 0 && len(pains) == 0 {
		insights = append(insights, steadyTrading)
	}
	return insights, pains
}

func bestSession(sessions []domain.SessionStat) (domain.SessionStat, bool) {
	var best domain.SessionStat
	found := false
	for _, s := range sessions {
		if s.Count == 0 {
			continue
		}
		if !found || s.PnL > best.PnL {
			best, found = s, true
		}
	}
	return best, found
}

func worstSession(sessions []domain.SessionStat) (domain.SessionStat, bool) {
	var worst domain.SessionStat
	found := false
	for _, s := range sessions {
		if s.Count == 0 {
			continue
		}
		if !found || s.PnL < worst.PnL {
			worst, found = s, true
		}
	}
	return worst, found
}

func longestLossStreak(trades []domain.Trade) int {
	longest, cur := 0, 0
	for _, t := range trades {
		if t.PnL > 0 {
			cur = 0
			continue
		}
		cur++
		if cur > longest {
			longest = cur
		}
	}
	return longest
}

func money(v float64) string {
	if v < 0 {
		return "-$" + domain.FormatCents(-v)
	}
	return "$" + domain.FormatCents(v)
}

// buildSummary renders the downloadable plain-text report.
func buildSummary(r *domain.Report) string {
	var b strings.Builder

	b.WriteString("TRADING PERFORMANCE REPORT\n")
	b.WriteString("==========================\n\n")
	fmt.Fprintf(&b, "Net: %s, WR: %s%%\n\n", r.Display.NetPnL, r.Display.WinRate)

	fmt.Fprintf(&b, "Total trades:       %d (%d W / %d L)\n", r.TotalTrades, r.Wins, r.Losses)
	fmt.Fprintf(&b, "Net P&L:            %s\n", money(r.NetPnL))
	fmt.Fprintf(&b, "Gross profit:       %s\n", money(r.GrossProfit))
	fmt.Fprintf(&b, "Gross loss:         %s\n", money(r.GrossLoss))
	fmt.Fprintf(&b, "Win rate:           %s%%\n", r.Display.WinRate)
	if r.ProfitFactorDefined {
		fmt.Fprintf(&b, "Profit factor:      %s\n", r.Display.ProfitFactor)
	} else {
		b.WriteString("Profit factor:      n/a (no losses)\n")
	}
	fmt.Fprintf(&b, "Avg win / loss:     %s / %s\n", money(r.AvgWin), money(r.AvgLoss))
	fmt.Fprintf(&b, "Expectancy:         %s (%sR)\n", money(r.Expectancy), domain.FormatCents(r.ExpectancyR))
	fmt.Fprintf(&b, "Max drawdown:       %s\n", money(r.MaxDrawdown))
	fmt.Fprintf(&b, "Fees:               %s\n", money(r.TotalFees))
	fmt.Fprintf(&b, "Monthly overhead:   %s\n", money(r.MonthlyOverhead))
	fmt.Fprintf(&b, "Net after overhead: %s\n", money(r.NetAfterOverhead))
	fmt.Fprintf(&b, "Balance:            %s -> %s\n", money(r.StartingBalance), money(r.EndingBalance))

	b.WriteString("\nSESSIONS\n")
	for _, s := range r.Sessions {
		fmt.Fprintf(&b, "  %-10s %4d trades  %s\n", s.Name, s.Count, money(s.PnL))
	}

	if len(r.Strategies) > 0 {
		b.WriteString("\nSTRATEGIES\n")
		for _, s := range r.Strategies {
			fmt.Fprintf(&b, "  [%s] %-16s %4d trades  %5.1f%%  %s\n", s.Rating, s.Name, s.Count, s.WinRate, money(s.PnL))
		}
	}

	b.WriteString("\nINSIGHTS\n")
	for _, s := range r.Insights {
		fmt.Fprintf(&b, "  + %s\n", s)
	}
	if len(r.PainPoints) > 0 {
		b.WriteString("\nPAIN POINTS\n")
		for _, s := range r.PainPoints {
			fmt.Fprintf(&b, "  - %s\n", s)
		}
	}
	return b.String()
}
