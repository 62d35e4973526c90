package domain

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultAccount = "Main"
	DefaultSetup   = "Unknown"
	ImportedSetup  = "Imported"
	DefaultTime    = "12:00"
	FilterAll      = "All"

	DateLayout = "2006-01-02"
)

var (
	ErrTradeNotFound    = errors.New("trade not found")
	ErrDuplicateTradeID = errors.New("trade id already exists")
)

// Direction is the side of a trade.
type Direction string

const (
	Long  Direction = "Long"
	Short Direction = "Short"
)

// ParseDirection maps broker side labels onto Long/Short.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy", "bid", "b", "l":
		return Long, true
	case "short", "sell", "ask", "s":
		return Short, true
	}
	return Long, false
}

// Mistake tags an execution error.
type Mistake string

const (
	MistakeNone       Mistake = "None"
	MistakeFOMO       Mistake = "FOMO"
	MistakeRevenge    Mistake = "Revenge"
	MistakeNoPlan     Mistake = "No Plan"
	MistakeHesitation Mistake = "Hesitation"
	MistakeMovedStop  Mistake = "Moved Stop"
	MistakeEarlyExit  Mistake = "Early Exit"
)

var mistakes = []Mistake{
	MistakeNone, MistakeFOMO, MistakeRevenge, MistakeNoPlan,
	MistakeHesitation, MistakeMovedStop, MistakeEarlyExit,
}

// Mistakes lists the known tags in display order.
func Mistakes() []Mistake {
	out := make([]Mistake, len(mistakes))
	copy(out, mistakes)
	return out
}

// ParseMistake returns MistakeNone for anything unrecognised.
func ParseMistake(s string) Mistake {
	s = strings.TrimSpace(s)
	for _, m := range mistakes {
		if strings.EqualFold(string(m), s) {
			return m
		}
	}
	return MistakeNone
}

// dollars per point per contract
var pointValues = map[string]float64{
	"MNQ": 2,
	"NQ":  20,
	"ES":  50,
	"MES": 5,
	"GC":  100,
	"CL":  1000,
	"RTY": 50,
}

// PointValueFor looks up the contract multiplier for a ticker. Broker
// symbols such as "MNQ 03-25" or "MNQH5" resolve by their root.
func PointValueFor(ticker string) float64 {
	root := TickerRoot(ticker)
	if v, ok := pointValues[root]; ok {
		return v
	}
	return 1
}

// TickerRoot strips contract month suffixes from a futures symbol.
func TickerRoot(ticker string) string {
	t := strings.ToUpper(strings.TrimSpace(ticker))
	if i := strings.IndexAny(t, " ."); i > 0 {
		t = t[:i]
	}
	if _, ok := pointValues[t]; ok {
		return t
	}
	// MNQH5, ESZ24: root + month code + year digits
	for n := len(t) - 1; n >= 2; n-- {
		if _, ok := pointValues[t[:n]]; ok && isContractSuffix(t[n:]) {
			return t[:n]
		}
	}
	return t
}

func isContractSuffix(s string) bool {
	if len(s) < 2 || !strings.ContainsRune("FGHJKMNQUVXZ", rune(s[0])) {
		return false
	}
	for _, r := range s[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Trade is a canonical journal record.
type Trade struct {
	ID         int64     `json:"id"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Ticker     string    `json:"ticker"`
	Direction  Direction `json:"direction"`
	Entry      Number    `json:"entry"`
	Exit       Number    `json:"exit"`
	Stop       Number    `json:"stop"`
	Size       float64   `json:"size"`
	PointValue float64   `json:"pointValue"`
	Fees       float64   `json:"fees"`
	PnL        float64   `json:"pnl"`
	Duration   Number    `json:"duration"`
	Setup      string    `json:"setup"`
	Mistake    Mistake   `json:"mistake"`
	Account    string    `json:"account"`
	Notes      string    `json:"notes"`
	ChartImage string    `json:"chartImage,omitempty"`
}

// AccountName returns the account, treating empty as Main.
func (t Trade) AccountName() string {
	if t.Account == "" {
		return DefaultAccount
	}
	return t.Account
}

// SetupName returns the setup, treating empty as Unknown.
func (t Trade) SetupName() string {
	if t.Setup == "" {
		return DefaultSetup
	}
	return t.Setup
}

// Hour parses the hour of Time; malformed times count as noon.
func (t Trade) Hour() int {
	s := t.Time
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	h, ok := atoi(strings.TrimSpace(s))
	if !ok || h < 0 || h > 23 {
		return 12
	}
	return h
}

// Weekday of the trade date, 0=Sunday. ok is false for malformed dates.
func (t Trade) Weekday() (int, bool) {
	d, err := time.Parse(DateLayout, t.Date)
	if err != nil {
		return 0, false
	}
	return int(d.Weekday()), true
}

// SortKey orders trades chronologically.
func (t Trade) SortKey() string {
	tm := t.Time
	if tm == "" {
		tm = DefaultTime
	}
	if len(tm) == 4 && tm[1] == ':' {
		tm = "0" + tm
	}
	return t.Date + " " + tm
}

// RMultiple expresses pnl in units of the configured risk.
func (t Trade) RMultiple(riskUnit float64) float64 {
	if riskUnit <= 0 {
		riskUnit = 1
	}
	return RoundCents(t.PnL / riskUnit)
}

// TradeInput is a manually entered or edited trade before defaults apply.
type TradeInput struct {
	Date       string `json:"date"`
	Time       string `json:"time"`
	Ticker     string `json:"ticker"`
	Direction  string `json:"direction"`
	Entry      Number `json:"entry"`
	Exit       Number `json:"exit"`
	Stop       Number `json:"stop"`
	Size       Number `json:"size"`
	PointValue Number `json:"pointValue"`
	Fees       Number `json:"fees"`
	PnL        Number `json:"pnl"`
	Duration   Number `json:"duration"`
	Setup      string `json:"setup"`
	Mistake    string `json:"mistake"`
	Account    string `json:"account"`
	Notes      string `json:"notes"`
	ChartImage string `json:"chartImage"`
}

// Build applies the defaulting rules and computes the net pnl.
func (in TradeInput) Build(id int64, cfg OverheadConfig, now time.Time) Trade {
	t := Trade{
		ID:         id,
		Date:       strings.TrimSpace(in.Date),
		Time:       strings.TrimSpace(in.Time),
		Ticker:     strings.ToUpper(strings.TrimSpace(in.Ticker)),
		Entry:      in.Entry,
		Exit:       in.Exit,
		Stop:       in.Stop,
		Duration:   in.Duration,
		Setup:      strings.TrimSpace(in.Setup),
		Mistake:    ParseMistake(in.Mistake),
		Account:    strings.TrimSpace(in.Account),
		Notes:      in.Notes,
		ChartImage: in.ChartImage,
	}
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		t.Date = now.Format(DateLayout)
	}
	if t.Time == "" {
		t.Time = DefaultTime
	}
	t.Direction, _ = ParseDirection(in.Direction)
	if t.Setup == "" {
		t.Setup = DefaultSetup
	}
	if t.Account == "" {
		t.Account = DefaultAccount
	}

	t.Size = in.Size.Or(1)
	if t.Size <= 0 || isBad(t.Size) {
		t.Size = 1
	}
	t.PointValue = in.PointValue.Or(0)
	if t.PointValue <= 0 || isBad(t.PointValue) {
		t.PointValue = PointValueFor(t.Ticker)
	}
	t.Fees = in.Fees.Or(t.Size * cfg.CommRate)
	if isBad(t.Fees) {
		t.Fees = 0
	}
	t.Fees = RoundCents(t.Fees)

	t.PnL = ComputePnL(t.Direction, t.Entry, t.Exit, t.PointValue, t.Size, t.Fees, in.PnL)
	return t
}

// ComputePnL derives net pnl from prices when both entry and exit are set,
// otherwise falls back to the raw value. The result is never NaN.
func ComputePnL(dir Direction, entry, exit Number, pointValue, size, fees float64, raw Number) float64 {
	var pnl float64
	if entry.Valid && exit.Valid {
		diff := exit.Value - entry.Value
		if dir == Short {
			diff = entry.Value - exit.Value
		}
		pnl = diff*pointValue*size - fees
	} else {
		pnl = raw.Or(0)
	}
	if isBad(pnl) {
		return 0
	}
	return RoundCents(pnl)
}

// RoundCents rounds half away from zero to two decimals.
func RoundCents(v float64) float64 {
	if isBad(v) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// FormatCents renders v with two decimals.
func FormatCents(v float64) string {
	if isBad(v) {
		v = 0
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

func isBad(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
		if n > 1000 {
			return 0, false
		}
	}
	return n, true
}
