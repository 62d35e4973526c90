package usecase

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"journal-backend/internal/domain"
)

// ErrUnrecognizedFormat is returned when the header row matches no known
// broker export.
var ErrUnrecognizedFormat = errors.New("unknown CSV format: headers do not match NinjaTrader, TradingView or Topstep exports")

// Dialect identifies which broker produced a CSV export.
type Dialect int

const (
	DialectUnknown Dialect = iota
	DialectNinjaTrader
	DialectTradingView
	DialectTopstep
)

func (d Dialect) String() string {
	switch d {
	case DialectNinjaTrader:
		return "NinjaTrader"
	case DialectTradingView:
		return "TradingView"
	case DialectTopstep:
		return "Topstep"
	default:
		return "Unknown"
	}
}

func (d Dialect) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ImportOptions carries everything the importer would otherwise read from
// ambient state.
type ImportOptions struct {
	Account string // already resolved, see domain.ImportAccount
	BaseID  int64  // row i gets id BaseID+i
	Now     time.Time
}

type ImportResult struct {
	BatchID  uuid.UUID      `json:"batchId"`
	Dialect  Dialect        `json:"dialect"`
	Trades   []domain.Trade `json:"trades"`
	Skipped  int            `json:"skipped"`
	Warnings []string       `json:"warnings"`
}

// ReadCSVText decodes an uploaded export to a string. UTF-16 files (with
// BOM) are transcoded and a UTF-8 BOM is dropped.
func ReadCSVText(r io.Reader) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	b, err := io.ReadAll(transform.NewReader(r, dec))
	if err != nil {
		return "", fmt.Errorf("reading csv: %w", err)
	}
	return string(b), nil
}

// SplitCSVLine splits one line on commas outside double quotes. Quote
// characters are dropped and tokens trimmed; escaped quotes are not
// supported.
func SplitCSVLine(line string) []string {
	var res []string
	var cur strings.Builder
	inQuote := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ',' && !inQuote:
			res = append(res, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(res, strings.TrimSpace(cur.String()))
}

// DetectDialect classifies a header row. First match wins.
func DetectDialect(headers []string) Dialect {
	has := func(name string) bool {
		for _, h := range headers {
			if h == name {
				return true
			}
		}
		return false
	}

	switch {
	case has("Instrument") && has("Market pos."):
		return DialectNinjaTrader
	case has("Open Time") && has("Close Time"):
		return DialectTradingView
	case has("ContractName") || has("PnL") || has("P&L"):
		return DialectTopstep
	}
	for _, h := range headers {
		if strings.Contains(h, "PnL") {
			return DialectTopstep
		}
	}
	return DialectUnknown
}

type field int

const (
	colTicker field = iota
	colDirection
	colSize
	colEntry
	colExit
	colOpened
	colClosed
	colPnL
	colFees
)

// column matches exact names first, then substrings. Case-sensitive.
type column struct {
	exact    []string
	contains []string
}

func (c column) index(headers []string) int {
	for _, name := range c.exact {
		for i, h := range headers {
			if h == name {
				return i
			}
		}
	}
	for i, h := range headers {
		for _, sub := range c.contains {
			if strings.Contains(h, sub) {
				return i
			}
		}
	}
	return -1
}

var dialectColumns = map[Dialect]map[field]column{
	DialectNinjaTrader: {
		colTicker:    {exact: []string{"Instrument"}},
		colDirection: {exact: []string{"Market pos."}},
		colSize:      {exact: []string{"Qty"}},
		colEntry:     {exact: []string{"Entry price"}},
		colExit:      {exact: []string{"Exit price"}},
		colOpened:    {exact: []string{"Entry time"}},
		colClosed:    {exact: []string{"Exit time"}},
		colPnL:       {exact: []string{"Profit", "P/L"}},
		colFees:      {exact: []string{"Commission"}},
	},
	DialectTradingView: {
		colTicker:    {exact: []string{"Symbol"}},
		colDirection: {exact: []string{"Side"}},
		colSize:      {exact: []string{"Qty", "Quantity"}},
		colEntry:     {exact: []string{"Entry Price"}},
		colExit:      {exact: []string{"Exit Price"}},
		colOpened:    {exact: []string{"Open Time"}},
		colClosed:    {exact: []string{"Close Time"}},
		colPnL:       {exact: []string{"Profit", "Net Profit"}},
		colFees:      {exact: []string{"Commission"}},
	},
	DialectTopstep: {
		colTicker:    {contains: []string{"Contract", "Symbol", "Instrument", "Ticker"}},
		colDirection: {contains: []string{"Side", "Direction", "Type"}},
		colSize:      {exact: []string{"Size", "Qty"}},
		colEntry:     {exact: []string{"EntryPrice", "Entry Price", "Entry"}},
		colExit:      {exact: []string{"ExitPrice", "Exit Price", "Exit"}},
		colOpened:    {exact: []string{"EnteredAt"}, contains: []string{"Date", "Time"}},
		colClosed:    {exact: []string{"ExitedAt"}},
		colPnL:       {exact: []string{"PnL", "Profit/Loss", "P&L"}, contains: []string{"PnL"}},
		colFees:      {exact: []string{"Fees", "Commissions"}},
	},
}

// ImportCSV normalizes a broker export into trades. Rows are deterministic:
// ids, the account and "today" all come from opts. Only BatchID is random.
func ImportCSV(text string, opts ImportOptions) (*ImportResult, error) {
	res := &ImportResult{
		BatchID:  uuid.New(),
		Trades:   []domain.Trade{},
		Warnings: []string{},
	}

	lines := splitLines(text)
	if len(lines) < 2 {
		return res, nil
	}

	headers := SplitCSVLine(lines[0])
	res.Dialect = DetectDialect(headers)
	if res.Dialect == DialectUnknown {
		return nil, ErrUnrecognizedFormat
	}

	cols := make(map[field]int, len(dialectColumns[res.Dialect]))
	for f, c := range dialectColumns[res.Dialect] {
		cols[f] = c.index(headers)
	}
	cell := func(row []string, f field) string {
		i, ok := cols[f]
		if !ok || i < 0 || i >= len(row) {
			return ""
		}
		return row[i]
	}

	account := opts.Account
	if account == "" {
		account = domain.DefaultAccount
	}
	today := opts.Now.Format(domain.DateLayout)

	for i := 1; i < len(lines); i++ {
		row := SplitCSVLine(lines[i])
		if len(row) < len(headers) {
			res.Skipped++
			continue
		}
		rawPnL := cell(row, colPnL)
		if res.Dialect == DialectTopstep && rawPnL == "" {
			res.Skipped++
			continue
		}

		pnl, ok := ParsePnL(rawPnL)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("row %d: unparseable P&L %q, recorded as 0", i+1, rawPnL))
		}

		t := domain.Trade{
			ID:      opts.BaseID + int64(i),
			Date:    today,
			Time:    domain.DefaultTime,
			Entry:   domain.ParseNumber(stripMoney(cell(row, colEntry))),
			Exit:    domain.ParseNumber(stripMoney(cell(row, colExit))),
			PnL:     domain.RoundCents(pnl),
			Setup:   domain.ImportedSetup,
			Mistake: domain.MistakeNone,
			Account: account,
			Notes:   res.Dialect.String() + " Import",
		}

		opened, openedOK := ParseTimestamp(cell(row, colOpened))
		if openedOK {
			t.Date = opened.Format(domain.DateLayout)
			t.Time = opened.Format("15:04")
		}
		if closed, ok := ParseTimestamp(cell(row, colClosed)); ok && openedOK && !closed.Before(opened) {
			t.Duration = domain.NewNumber(domain.RoundCents(closed.Sub(opened).Minutes()))
		}

		t.Ticker = cell(row, colTicker)
		if t.Ticker == "" && res.Dialect == DialectTopstep {
			t.Ticker = "UNK"
		}
		t.PointValue = domain.PointValueFor(t.Ticker)

		if cols[colDirection] >= 0 {
			t.Direction, _ = domain.ParseDirection(cell(row, colDirection))
		} else if pnl >= 0 {
			t.Direction = domain.Long
		} else {
			t.Direction = domain.Short
		}

		t.Size = 1
		if n := domain.ParseNumber(cell(row, colSize)); n.Valid && n.Value > 0 {
			t.Size = math.Abs(n.Value)
		}
		if fees, ok := ParsePnL(cell(row, colFees)); ok {
			t.Fees = domain.RoundCents(math.Abs(fees))
		}

		res.Trades = append(res.Trades, t)
	}
	return res, nil
}

// ParsePnL parses broker money cells such as "$1,234.50", "(45.00)" or
// "-45". A sign is only a leading "-", "$-" or parentheses around the
// whole value. Empty input is 0 and ok; malformed input is 0 and not ok.
func ParsePnL(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}

	neg := false
	switch {
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		neg = true
		s = s[1 : len(s)-1]
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "$-"):
		neg = true
		s = s[2:]
	}

	clean := stripMoney(s)
	if !isDecimal(clean) {
		return 0, false
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

// isDecimal accepts digits with at most one decimal point.
func isDecimal(s string) bool {
	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

func stripMoney(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '$', ',', ' ', '\t':
			return -1
		}
		return r
	}, s)
}

var timestampLayouts = []string{
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	time.RFC3339Nano,
	"2006-01-02 15:04:05 -07:00",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05 MST",
	"1/2/2006",
	"2006-01-02",
}

// ParseTimestamp reads a broker timestamp as wall-clock time; any zone in
// the input is kept, not converted.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}
