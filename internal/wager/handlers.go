package wager

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/crickbet/wager-engine/internal/account"
	"github.com/crickbet/wager-engine/internal/market"
	"github.com/crickbet/wager-engine/internal/model"
)

// --- Request/Response types ---

// OpenMarketRequest is the JSON body for POST /markets.
type OpenMarketRequest struct {
	MarketID string `json:"market_id"` // OU-{runs} or MW-{matchKey}
	SideA    string `json:"side_a"`    // team markets only
	SideB    string `json:"side_b"`
}

// StakeRequest is the JSON body for POST /stakes.
type StakeRequest struct {
	ActorID  string          `json:"actor_id"`
	MarketID string          `json:"market_id"`
	Side     string          `json:"side"`
	Amount   decimal.Decimal `json:"amount"`
}

// SettleRequest is the JSON body for POST /markets/{marketID}/settle.
// Exactly one of winning_side or runs is used; runs resolves threshold
// markets from the final score.
type SettleRequest struct {
	WinningSide string `json:"winning_side,omitempty"`
	Runs        *int   `json:"runs,omitempty"`
}

// BalanceResponse is the JSON body for GET /actors/{actorID}/balance.
type BalanceResponse struct {
	ActorID string          `json:"actor_id"`
	Balance decimal.Decimal `json:"balance"`
}

// ReferralRequest is the JSON body for POST /referrals.
type ReferralRequest struct {
	ReferrerID string `json:"referrer_id"`
	NewActorID string `json:"new_actor_id"`
}

// ReferralResponse is the JSON body returned from POST /referrals.
type ReferralResponse struct {
	Rewarded bool `json:"rewarded"`
}

// --- HTTP Handlers ---

// HandleOpenMarket handles POST /api/v1/markets
func (s *Service) HandleOpenMarket(w http.ResponseWriter, r *http.Request) {
	var req OpenMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	m, err := s.OpenMarket(r.Context(), req.MarketID, req.SideA, req.SideB)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(m)
}

// HandleListMarkets handles GET /api/v1/markets
func (s *Service) HandleListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := s.Markets(r.Context())
	if err != nil {
		writeError(w, "failed to list markets", http.StatusInternalServerError)
		return
	}
	if markets == nil {
		markets = []model.Market{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(markets)
}

// HandleGetMarket handles GET /api/v1/markets/{marketID}
func (s *Service) HandleGetMarket(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")

	m, err := s.store.GetMarket(r.Context(), marketID)
	if err != nil {
		writeError(w, "market not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m)
}

// HandleGetOdds handles GET /api/v1/markets/{marketID}/odds
func (s *Service) HandleGetOdds(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")

	pair, err := s.Odds(r.Context(), marketID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pair)
}

// HandleMarketStakes handles GET /api/v1/markets/{marketID}/stakes
func (s *Service) HandleMarketStakes(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")

	records, err := s.StakesForMarket(r.Context(), marketID)
	if err != nil {
		writeError(w, "failed to load stakes", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []model.StakeRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// HandlePlaceStake handles POST /api/v1/stakes
func (s *Service) HandlePlaceStake(w http.ResponseWriter, r *http.Request) {
	var req StakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ActorID == "" {
		writeError(w, "actor_id is required", http.StatusBadRequest)
		return
	}

	conf, err := s.PlaceStake(r.Context(), req.ActorID, req.MarketID, req.Side, req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(conf)
}

// HandleSettle handles POST /api/v1/markets/{marketID}/settle
func (s *Service) HandleSettle(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")

	var req SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	winningSide := req.WinningSide
	if req.Runs != nil {
		id, err := market.ParseID(marketID)
		if err != nil || id.Family != model.FamilyThreshold {
			writeError(w, "runs-based settlement applies to threshold markets only", http.StatusBadRequest)
			return
		}
		winningSide = market.OutcomeForRuns(*req.Runs)
	}

	report, err := s.Settle(r.Context(), marketID, winningSide)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}

// HandleCloseMarket handles POST /api/v1/markets/{marketID}/close
func (s *Service) HandleCloseMarket(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")

	if err := s.CloseMarket(r.Context(), marketID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "closed"})
}

// HandleActorStakes handles GET /api/v1/actors/{actorID}/stakes
func (s *Service) HandleActorStakes(w http.ResponseWriter, r *http.Request) {
	actorID := chi.URLParam(r, "actorID")

	records, err := s.StakesForActor(r.Context(), actorID)
	if err != nil {
		writeError(w, "failed to load stakes", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []model.StakeRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// HandleBalance handles GET /api/v1/actors/{actorID}/balance
func (s *Service) HandleBalance(w http.ResponseWriter, r *http.Request) {
	actorID := chi.URLParam(r, "actorID")

	bal, err := s.accounts.Balance(r.Context(), actorID)
	if err != nil {
		writeError(w, "failed to load balance", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(BalanceResponse{ActorID: actorID, Balance: bal})
}

// HandleLeaderboard handles GET /api/v1/leaderboard
func (s *Service) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := s.accounts.Leaderboard(r.Context(), 10)
	if err != nil {
		writeError(w, "failed to load leaderboard", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []account.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entries)
}

// HandleReferral handles POST /api/v1/referrals
func (s *Service) HandleReferral(w http.ResponseWriter, r *http.Request) {
	var req ReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ReferrerID == "" || req.NewActorID == "" || req.ReferrerID == req.NewActorID {
		writeError(w, "referrer_id and new_actor_id must be distinct and non-empty", http.StatusBadRequest)
		return
	}

	rewarded, err := s.accounts.RecordReferral(r.Context(), req.ReferrerID, req.NewActorID)
	if err != nil {
		writeError(w, "failed to record referral", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ReferralResponse{Rewarded: rewarded})
}

// HandleExportSnapshot handles GET /api/v1/snapshot
func (s *Service) HandleExportSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.ExportState(r.Context())
	if err != nil {
		writeError(w, "failed to export state", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

// HandleImportSnapshot handles POST /api/v1/snapshot
// Replaces the whole engine state with the posted snapshot.
func (s *Service) HandleImportSnapshot(w http.ResponseWriter, r *http.Request) {
	var snap model.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeError(w, "invalid snapshot body", http.StatusBadRequest)
		return
	}

	if err := s.ImportState(r.Context(), &snap); err != nil {
		writeError(w, "failed to import state", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "imported"})
}

// writeServiceError maps engine errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidSide),
		errors.Is(err, market.ErrInvalidID):
		writeError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrMarketNotFound):
		writeError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrMarketClosed),
		errors.Is(err, ErrMarketExists),
		errors.Is(err, ErrNoStakes),
		errors.Is(err, account.ErrInsufficientFunds):
		writeError(w, err.Error(), http.StatusConflict)
	default:
		writeError(w, "internal error", http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
