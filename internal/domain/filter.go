package domain

// Filters narrows the trade list. Empty or "All" disables a field.
type Filters struct {
	Account string `json:"account"`
	Ticker  string `json:"ticker"`
	Setup   string `json:"setup"`
}

func (f Filters) Match(t Trade) bool {
	if active(f.Account) && t.AccountName() != f.Account {
		return false
	}
	if active(f.Ticker) && t.Ticker != f.Ticker {
		return false
	}
	if active(f.Setup) && t.SetupName() != f.Setup {
		return false
	}
	return true
}

// Apply returns the matching trades in input order.
func (f Filters) Apply(trades []Trade) []Trade {
	out := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

func active(v string) bool {
	return v != "" && v != FilterAll
}
