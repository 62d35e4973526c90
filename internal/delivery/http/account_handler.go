package http

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"journal-backend/internal/usecase"
)

// AccountHandler manages the account set.
type AccountHandler struct {
	svc    *usecase.JournalService
	logger *zap.Logger
}

func NewAccountHandler(svc *usecase.JournalService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{svc: svc, logger: loggerOrNop(logger)}
}

type accountRequest struct {
	Name string `json:"name"`
}

type renameAccountRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type accountsResponse struct {
	Accounts []string `json:"accounts"`
}

// HandleAccounts handles GET (list) and POST (add) on /api/accounts
func (h *AccountHandler) HandleAccounts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		accounts, err := h.svc.Accounts(r.Context())
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, accountsResponse{Accounts: accounts})

	case http.MethodPost:
		var req accountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		accounts, err := h.svc.AddAccount(r.Context(), req.Name)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, accountsResponse{Accounts: accounts})

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// RenameAccount handles POST /api/accounts/rename
func (h *AccountHandler) RenameAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req renameAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	moved, err := h.svc.RenameAccount(r.Context(), req.From, req.To)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	accounts, err := h.svc.Accounts(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accounts":    accounts,
		"tradesMoved": moved,
	})
}

// DeleteAccount handles DELETE /api/accounts/delete?name={name}
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "Missing name parameter", http.StatusBadRequest)
		return
	}

	accounts, err := h.svc.DeleteAccount(r.Context(), name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, accountsResponse{Accounts: accounts})
}
