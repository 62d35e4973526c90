package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"journal-backend/internal/domain"
	"journal-backend/internal/repository"
)

var fixedNow = time.Date(2025, 3, 14, 15, 4, 5, 0, time.UTC)

func newTestService(t *testing.T) *JournalService {
	t.Helper()
	svc := NewJournalService(repository.NewInMemoryJournalRepository(), 50000, nil, nil)
	svc.SetClock(func() time.Time { return fixedNow })
	return svc
}

func mustAdd(t *testing.T, svc *JournalService, in domain.TradeInput) *domain.Trade {
	t.Helper()
	tr, err := svc.AddTrade(context.Background(), in)
	if err != nil {
		t.Fatalf("AddTrade: %v", err)
	}
	return tr
}

func TestAddTradeAppliesDefaults(t *testing.T) {
	svc := newTestService(t)

	tr := mustAdd(t, svc, domain.TradeInput{
		Ticker:    "mnq",
		Direction: "Long",
		Entry:     domain.NewNumber(20000),
		Exit:      domain.NewNumber(20010),
		Size:      domain.NewNumber(2),
	})

	if tr.ID != fixedNow.UnixMilli() {
		t.Errorf("ID = %d, want %d", tr.ID, fixedNow.UnixMilli())
	}
	if tr.Date != "2025-03-14" || tr.Time != domain.DefaultTime {
		t.Errorf("date/time = %s %s", tr.Date, tr.Time)
	}
	if tr.Ticker != "MNQ" || tr.PointValue != 2 {
		t.Errorf("ticker %q pointValue %v", tr.Ticker, tr.PointValue)
	}
	if tr.Fees != 5.06 || tr.PnL != 34.94 {
		t.Errorf("fees %v pnl %v, want 5.06 and 34.94", tr.Fees, tr.PnL)
	}
	if tr.Setup != domain.DefaultSetup || tr.Account != domain.DefaultAccount || tr.Mistake != domain.MistakeNone {
		t.Errorf("defaults %q %q %q", tr.Setup, tr.Account, tr.Mistake)
	}
	if svc.Version() != 1 {
		t.Errorf("Version = %d, want 1", svc.Version())
	}
}

func TestAddTradeIDsAreUnique(t *testing.T) {
	svc := newTestService(t)
	a := mustAdd(t, svc, domain.TradeInput{Ticker: "ES", PnL: domain.NewNumber(10)})
	b := mustAdd(t, svc, domain.TradeInput{Ticker: "ES", PnL: domain.NewNumber(10)})
	if a.ID == b.ID {
		t.Fatalf("duplicate id %d", a.ID)
	}
	if b.ID != a.ID+1 {
		t.Errorf("second id = %d, want %d", b.ID, a.ID+1)
	}
}

func TestEditTrade(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	orig := mustAdd(t, svc, domain.TradeInput{Ticker: "ES", PnL: domain.NewNumber(10), Notes: "first"})

	edited, err := svc.EditTrade(ctx, orig.ID, domain.TradeInput{Ticker: "NQ", PnL: domain.NewNumber(-25), Mistake: "FOMO"})
	if err != nil {
		t.Fatalf("EditTrade: %v", err)
	}
	if edited.ID != orig.ID || edited.Ticker != "NQ" || edited.PnL != -25 || edited.Notes != "" {
		t.Errorf("edited = %+v", edited)
	}
	if edited.Mistake != domain.MistakeFOMO {
		t.Errorf("mistake = %q", edited.Mistake)
	}

	got, err := svc.GetTrade(ctx, orig.ID)
	if err != nil {
		t.Fatalf("GetTrade: %v", err)
	}
	if got.Ticker != "NQ" {
		t.Errorf("stored ticker = %q", got.Ticker)
	}

	if _, err := svc.EditTrade(ctx, 12345, domain.TradeInput{}); !errors.Is(err, domain.ErrTradeNotFound) {
		t.Errorf("EditTrade(missing) err = %v", err)
	}
}

func TestDeleteAndReaddGivesSameMetrics(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := []domain.TradeInput{
		{Date: "2025-03-10", Time: "09:30", Ticker: "MNQ", PnL: domain.NewNumber(120)},
		{Date: "2025-03-10", Time: "10:30", Ticker: "MNQ", PnL: domain.NewNumber(-45)},
		{Date: "2025-03-11", Time: "14:00", Ticker: "ES", PnL: domain.NewNumber(60)},
	}
	var added []*domain.Trade
	for _, ti := range in {
		added = append(added, mustAdd(t, svc, ti))
	}

	before, err := svc.Report(ctx, domain.Filters{})
	if err != nil || before == nil {
		t.Fatalf("Report: %v %v", before, err)
	}

	if err := svc.DeleteTrade(ctx, added[1].ID); err != nil {
		t.Fatalf("DeleteTrade: %v", err)
	}
	readded := mustAdd(t, svc, in[1])
	if readded.ID == added[1].ID {
		t.Error("re-added trade reused the deleted id")
	}

	after, _ := svc.Report(ctx, domain.Filters{})
	if after.NetPnL != before.NetPnL || after.WinRate != before.WinRate ||
		after.MaxDrawdown != before.MaxDrawdown || after.ProfitFactor != before.ProfitFactor {
		t.Errorf("metrics changed:\nbefore %+v\nafter  %+v", before, after)
	}

	if err := svc.DeleteTrade(ctx, added[1].ID); !errors.Is(err, domain.ErrTradeNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestListTradesNewestFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustAdd(t, svc, domain.TradeInput{Date: "2025-03-10", Time: "9:30", Ticker: "ES", PnL: domain.NewNumber(300)})
	mustAdd(t, svc, domain.TradeInput{Date: "2025-03-12", Time: "09:30", Ticker: "NQ", PnL: domain.NewNumber(-75)})
	mustAdd(t, svc, domain.TradeInput{Date: "2025-03-10", Time: "11:00", Ticker: "ES", PnL: domain.NewNumber(15)})

	views, err := svc.ListTrades(ctx, domain.Filters{})
	if err != nil {
		t.Fatalf("ListTrades: %v", err)
	}
	if len(views) != 3 {
		t.Fatalf("len = %d", len(views))
	}
	if views[0].Ticker != "NQ" || views[1].PnL != 15 || views[2].PnL != 300 {
		t.Errorf("order = %+v", views)
	}
	if views[0].RMultiple != -0.5 || views[2].RMultiple != 2 {
		t.Errorf("rMultiple = %v, %v", views[0].RMultiple, views[2].RMultiple)
	}

	es, _ := svc.ListTrades(ctx, domain.Filters{Ticker: "ES"})
	if len(es) != 2 {
		t.Errorf("ES filter returned %d trades", len(es))
	}
}

const ninjaExport = "Trade number,Instrument,Account,Market pos.,Qty,Entry price,Exit price,Entry time,Exit time,Profit\n" +
	"1,MNQ 03-25,Sim101,Long,1,21000,21010,3/13/2025 9:35:00 AM,3/13/2025 9:40:00 AM,$20.00\n" +
	"2,MNQ 03-25,Sim101,Short,1,21010,21015,3/13/2025 9:45:00 AM,3/13/2025 9:50:00 AM,($10.00)\n"

func TestImport(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, err := svc.AddAccount(ctx, "Apex"); err != nil {
		t.Fatal(err)
	}

	res, err := svc.Import(ctx, ninjaExport, "Apex")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(res.Trades) != 2 || res.Dialect != DialectNinjaTrader {
		t.Fatalf("result = %+v", res)
	}

	views, _ := svc.ListTrades(ctx, domain.Filters{Account: "Apex"})
	if len(views) != 2 {
		t.Fatalf("stored %d Apex trades", len(views))
	}

	// "All" files rows under the first account
	res, err = svc.Import(ctx, ninjaExport, domain.FilterAll)
	if err != nil {
		t.Fatalf("Import(All): %v", err)
	}
	if res.Trades[0].Account != domain.DefaultAccount {
		t.Errorf("account = %q", res.Trades[0].Account)
	}

	all, _ := svc.ListTrades(ctx, domain.Filters{})
	seen := map[int64]bool{}
	for _, v := range all {
		if seen[v.ID] {
			t.Fatalf("duplicate id %d after two imports in the same millisecond", v.ID)
		}
		seen[v.ID] = true
	}
}

func TestImportUnrecognizedAddsNothing(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustAdd(t, svc, domain.TradeInput{Ticker: "ES", PnL: domain.NewNumber(10)})
	v := svc.Version()

	_, err := svc.Import(ctx, "Foo,Bar\n1,2\n", "Main")
	if !errors.Is(err, ErrUnrecognizedFormat) {
		t.Fatalf("err = %v", err)
	}
	all, _ := svc.ListTrades(ctx, domain.Filters{})
	if len(all) != 1 || svc.Version() != v {
		t.Errorf("import mutated state: %d trades, version %d", len(all), svc.Version())
	}

	res, err := svc.Import(ctx, "Instrument,Market pos.\n", "Main")
	if err != nil || len(res.Trades) != 0 || svc.Version() != v {
		t.Errorf("header-only import = %+v, %v", res, err)
	}
}

func TestAccountsLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddAccount(ctx, "Apex"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AddAccount(ctx, "Apex"); !errors.Is(err, domain.ErrAccountExists) {
		t.Errorf("duplicate add err = %v", err)
	}
	mustAdd(t, svc, domain.TradeInput{Ticker: "ES", PnL: domain.NewNumber(10), Account: "Apex"})
	mustAdd(t, svc, domain.TradeInput{Ticker: "ES", PnL: domain.NewNumber(20)})

	n, err := svc.RenameAccount(ctx, "Apex", " Topstep ")
	if err != nil {
		t.Fatalf("RenameAccount: %v", err)
	}
	if n != 1 {
		t.Errorf("renamed %d trades, want 1", n)
	}
	accounts, _ := svc.Accounts(ctx)
	if strings.Join(accounts, ",") != "Main,Topstep" {
		t.Errorf("accounts = %v", accounts)
	}
	moved, _ := svc.ListTrades(ctx, domain.Filters{Account: "Topstep"})
	if len(moved) != 1 || moved[0].PnL != 10 {
		t.Errorf("Topstep trades = %+v", moved)
	}

	if _, err := svc.RenameAccount(ctx, domain.DefaultAccount, "Other"); !errors.Is(err, domain.ErrDefaultAccount) {
		t.Errorf("rename Main err = %v", err)
	}
	if _, err := svc.DeleteAccount(ctx, domain.DefaultAccount); !errors.Is(err, domain.ErrDefaultAccount) {
		t.Errorf("delete Main err = %v", err)
	}

	accounts, err = svc.DeleteAccount(ctx, "Topstep")
	if err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if len(accounts) != 1 {
		t.Errorf("accounts after delete = %v", accounts)
	}
	// orphaned trades keep their account and still count under All
	r, _ := svc.Report(ctx, domain.Filters{Account: domain.FilterAll})
	if r.TotalTrades != 2 {
		t.Errorf("All report has %d trades", r.TotalTrades)
	}
	orphan, _ := svc.ListTrades(ctx, domain.Filters{Account: "Topstep"})
	if len(orphan) != 1 {
		t.Errorf("orphaned trades = %d", len(orphan))
	}
}

func TestUpdateOverheadAffectsNewTrades(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cfg, err := svc.UpdateOverhead(ctx, domain.OverheadConfig{EvalCost: 150, EvalsPerMonth: 2, CommRate: 1, RiskUnit: -5})
	if err != nil {
		t.Fatalf("UpdateOverhead: %v", err)
	}
	if cfg.RiskUnit != domain.DefaultOverhead().RiskUnit {
		t.Errorf("RiskUnit = %v, want default after sanitize", cfg.RiskUnit)
	}
	if got := svc.Overhead(ctx); got != cfg {
		t.Errorf("Overhead() = %+v, want %+v", got, cfg)
	}

	tr := mustAdd(t, svc, domain.TradeInput{Ticker: "ES", Size: domain.NewNumber(3), PnL: domain.NewNumber(100)})
	if tr.Fees != 3 {
		t.Errorf("fees = %v, want 3", tr.Fees)
	}
	r, _ := svc.Report(ctx, domain.Filters{})
	if r.MonthlyOverhead != 300 {
		t.Errorf("MonthlyOverhead = %v", r.MonthlyOverhead)
	}
}

func TestExportCSV(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustAdd(t, svc, domain.TradeInput{Date: "2025-03-10", Time: "09:30", Ticker: "MNQ", Direction: "Short",
		Entry: domain.NewNumber(21000.5), Exit: domain.NewNumber(20990.5), Fees: domain.NewNumber(0)})
	mustAdd(t, svc, domain.TradeInput{Date: "2025-03-11", Time: "10:00", Ticker: "ES", PnL: domain.NewNumber(-62.5), Account: "Apex, LLC"})

	var buf bytes.Buffer
	if err := svc.ExportCSV(ctx, &buf); err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	rows, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("exported csv does not parse: %v\n%s", err, buf.String())
	}
	want := [][]string{
		{"Date", "Time", "Ticker", "Direction", "Entry", "Exit", "PnL", "Account"},
		{"2025-03-10", "09:30", "MNQ", "Short", "21000.5", "20990.5", "20.00", "Main"},
		{"2025-03-11", "10:00", "ES", "Long", "", "", "-62.50", "Apex, LLC"},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows = %v", rows)
	}
	for i := range want {
		if strings.Join(rows[i], "|") != strings.Join(want[i], "|") {
			t.Errorf("row %d = %q, want %q", i, rows[i], want[i])
		}
	}
}

func TestExportReimports(t *testing.T) {
	src := newTestService(t)
	ctx := context.Background()
	mustAdd(t, src, domain.TradeInput{Date: "2025-03-10", Time: "09:30", Ticker: "MNQ", Direction: "Short",
		Entry: domain.NewNumber(21000), Exit: domain.NewNumber(20990), Fees: domain.NewNumber(0)})
	mustAdd(t, src, domain.TradeInput{Date: "2025-03-11", Time: "10:00", Ticker: "ES", PnL: domain.NewNumber(-62.5)})

	var buf bytes.Buffer
	if err := src.ExportCSV(ctx, &buf); err != nil {
		t.Fatal(err)
	}

	dst := newTestService(t)
	res, err := dst.Import(ctx, buf.String(), "Main")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(res.Trades) != 2 {
		t.Fatalf("reimported %d trades", len(res.Trades))
	}
	a, b := res.Trades[0], res.Trades[1]
	if a.Ticker != "MNQ" || a.Direction != domain.Short || a.PnL != 20 || a.Date != "2025-03-10" {
		t.Errorf("first = %+v", a)
	}
	if a.Entry.Value != 21000 || a.Exit.Value != 20990 {
		t.Errorf("prices = %v / %v", a.Entry, a.Exit)
	}
	if b.Ticker != "ES" || b.PnL != -62.5 {
		t.Errorf("second = %+v", b)
	}
}

func TestExportReport(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var buf bytes.Buffer
	if err := svc.ExportReport(ctx, domain.Filters{}, &buf); !errors.Is(err, ErrNoReport) {
		t.Errorf("empty ExportReport err = %v", err)
	}

	mustAdd(t, svc, domain.TradeInput{Ticker: "ES", PnL: domain.NewNumber(100)})
	buf.Reset()
	if err := svc.ExportReport(ctx, domain.Filters{}, &buf); err != nil {
		t.Fatalf("ExportReport: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "TRADING PERFORMANCE REPORT") {
		t.Errorf("report = %q", buf.String())
	}
}

func TestCalendarAndFilterOptions(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustAdd(t, svc, domain.TradeInput{Ticker: "ES", PnL: domain.NewNumber(100), Setup: "ORB"})
	mustAdd(t, svc, domain.TradeInput{Date: "2025-03-13", Ticker: "NQ", PnL: domain.NewNumber(-40)})

	cal, err := svc.Calendar(ctx, domain.Filters{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(cal) != DefaultCalendarDays {
		t.Fatalf("calendar has %d days", len(cal))
	}
	if last := cal[len(cal)-1]; last.Date != "2025-03-14" || last.PnL != 100 {
		t.Errorf("today = %+v", last)
	}

	es, _ := svc.Calendar(ctx, domain.Filters{Ticker: "NQ"}, 7)
	if len(es) != 7 || es[5].PnL != -40 || es[6].Trades != 0 {
		t.Errorf("NQ calendar = %+v", es)
	}

	opts, err := svc.FilterOptions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(opts.Tickers, ",") != "All,ES,NQ" || strings.Join(opts.Setups, ",") != "All,ORB,Unknown" {
		t.Errorf("options = %+v", opts)
	}
}

type fakeSender struct {
	enabled bool
	err     error

	mu     sync.Mutex
	sent   []string // titles
	calls  int
	single int // calls through SendNotification
}

func (f *fakeSender) IsEnabled() bool { return f.enabled }

func (f *fakeSender) SendNotification(ctx context.Context, token, title, body string, data map[string]string) error {
	f.mu.Lock()
	f.single++
	f.mu.Unlock()
	return f.SendMulticast(ctx, []string{token}, title, body, data)
}

func (f *fakeSender) SendMulticast(_ context.Context, tokens []string, title, body string, data map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, title)
	return nil
}

type staticTokens []string

func (s staticTokens) GetAllTokens() []string { return s }

func TestMutationsPushCoachAlerts(t *testing.T) {
	sender := &fakeSender{enabled: true}
	alerts := NewCoachAlerter(sender, staticTokens{"device-1"}, time.Hour, nil)
	alerts.now = func() time.Time { return fixedNow }

	svc := NewJournalService(repository.NewInMemoryJournalRepository(), 1000, alerts, nil)
	svc.SetClock(func() time.Time { return fixedNow })

	mustAdd(t, svc, domain.TradeInput{Ticker: "ES", Time: "10:00", PnL: domain.NewNumber(-200)})
	if len(sender.sent) == 0 {
		t.Fatal("no alert after a losing trade")
	}
	first := len(sender.sent)
	found := false
	for _, title := range sender.sent {
		if title == "Coach: Account Red" {
			found = true
		}
	}
	if !found {
		t.Errorf("sent = %v, want Account Red", sender.sent)
	}

	// same rules again within the cooldown
	mustAdd(t, svc, domain.TradeInput{Ticker: "ES", Time: "10:30", PnL: domain.NewNumber(-10)})
	for _, title := range sender.sent[first:] {
		if title == "Coach: Account Red" {
			t.Errorf("Account Red re-sent inside cooldown: %v", sender.sent)
		}
	}
}

// failingRenameStore fails the trade half of an account rename.
type failingRenameStore struct {
	*repository.InMemoryJournalRepository
}

func (failingRenameStore) RenameTradeAccount(context.Context, string, string) (int, error) {
	return 0, errors.New("disk full")
}

func TestRenameAccountRestoresSetWhenTradesFail(t *testing.T) {
	ctx := context.Background()
	store := failingRenameStore{repository.NewInMemoryJournalRepository()}
	svc := NewJournalService(store, 50000, nil, nil)
	svc.SetClock(func() time.Time { return fixedNow })

	if _, err := svc.AddAccount(ctx, "Apex"); err != nil {
		t.Fatal(err)
	}
	version := svc.Version()

	if _, err := svc.RenameAccount(ctx, "Apex", "Apex PA"); err == nil {
		t.Fatal("RenameAccount succeeded with a failing trade rename")
	}
	accounts, _ := svc.Accounts(ctx)
	if len(accounts) != 2 || accounts[1] != "Apex" {
		t.Errorf("accounts = %v, want the original set", accounts)
	}
	if svc.Version() != version {
		t.Error("version bumped for a failed rename")
	}
}
