package domain

import (
	"errors"
	"strings"
)

var (
	ErrAccountExists      = errors.New("account already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrDefaultAccount     = errors.New("the Main account cannot be removed or renamed")
	ErrInvalidAccountName = errors.New("account name must not be empty or \"All\"")
)

// NormalizeAccounts dedupes names, drops blanks and guarantees Main is
// present at the front when missing.
func NormalizeAccounts(names []string) []string {
	seen := make(map[string]bool, len(names)+1)
	out := make([]string, 0, len(names)+1)
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || n == FilterAll || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	if !seen[DefaultAccount] {
		out = append([]string{DefaultAccount}, out...)
	}
	return out
}

// AddAccount appends name to the set.
func AddAccount(set []string, name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == FilterAll {
		return nil, ErrInvalidAccountName
	}
	for _, a := range set {
		if a == name {
			return nil, ErrAccountExists
		}
	}
	out := make([]string, len(set), len(set)+1)
	copy(out, set)
	return append(out, name), nil
}

// RenameAccount replaces from with to in place, keeping order.
func RenameAccount(set []string, from, to string) ([]string, error) {
	to = strings.TrimSpace(to)
	if to == "" || to == FilterAll {
		return nil, ErrInvalidAccountName
	}
	if from == DefaultAccount {
		return nil, ErrDefaultAccount
	}
	idx := -1
	for i, a := range set {
		if a == to && a != from {
			return nil, ErrAccountExists
		}
		if a == from {
			idx = i
		}
	}
	if idx < 0 {
		return nil, ErrAccountNotFound
	}
	out := make([]string, len(set))
	copy(out, set)
	out[idx] = to
	return out, nil
}

// RemoveAccount drops name from the set. Trades keep their stale name.
func RemoveAccount(set []string, name string) ([]string, error) {
	if name == DefaultAccount {
		return nil, ErrDefaultAccount
	}
	out := make([]string, 0, len(set))
	found := false
	for _, a := range set {
		if a == name {
			found = true
			continue
		}
		out = append(out, a)
	}
	if !found {
		return nil, ErrAccountNotFound
	}
	return out, nil
}

// ImportAccount picks the account imported rows are filed under.
func ImportAccount(selected string, accounts []string) string {
	selected = strings.TrimSpace(selected)
	if selected != "" && selected != FilterAll {
		return selected
	}
	if len(accounts) > 0 && accounts[0] != "" {
		return accounts[0]
	}
	return DefaultAccount
}
