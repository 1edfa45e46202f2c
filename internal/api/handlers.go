package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/go-chi/chi/v5"

	"github.com/nativestake/custody-ledger/internal/ledger"
	"github.com/nativestake/custody-ledger/internal/types"
)

type stakeRequestBody struct {
	Amount    string `json:"amount"`
	Mode      string `json:"mode"`
	Validator string `json:"validator,omitempty"`
}

type requestView struct {
	ID            uint64 `json:"id"`
	User          string `json:"user"`
	Amount        string `json:"amount,omitempty"`
	Mode          string `json:"mode"`
	Validator     string `json:"validator,omitempty"`
	Timestamp     string `json:"timestamp"`
	UnbondingEnd  string `json:"unbonding_end,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Processed     bool   `json:"processed"`
}

func stakeRequestView(req ledger.StakeRequest) requestView {
	return requestView{
		ID:        req.ID,
		User:      req.User,
		Amount:    req.Amount.String(),
		Mode:      string(req.Mode),
		Validator: req.Validator,
		Timestamp: req.Timestamp.UTC().Format(time.RFC3339),
		Processed: req.Processed,
	}
}

func unstakeRequestView(req ledger.UnstakeRequest) requestView {
	v := requestView{
		ID:            req.ID,
		User:          req.User,
		Amount:        req.Amount.String(),
		Mode:          string(req.Mode),
		Validator:     req.Validator,
		Timestamp:     req.Timestamp.UTC().Format(time.RFC3339),
		CorrelationID: req.CorrelationID,
		Processed:     req.Processed,
	}
	if !req.UnbondingEnd.IsZero() {
		v.UnbondingEnd = req.UnbondingEnd.UTC().Format(time.RFC3339)
	}
	return v
}

func claimRequestView(req ledger.RewardClaimRequest) requestView {
	v := requestView{
		ID:        req.ID,
		User:      req.User,
		Mode:      string(req.Mode),
		Timestamp: req.Timestamp.UTC().Format(time.RFC3339),
		Processed: req.Processed,
	}
	// Amount is resolved at fulfillment time.
	if !req.Amount.IsNil() {
		v.Amount = req.Amount.String()
	}
	return v
}

func pathID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, types.NewValidationError(errors.New("request id must be a non-negative integer"))
	}
	return id, nil
}

// Two-phase request side.

func (s *Server) handleRequestStake(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body stakeRequestBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := s.service.RequestStake(r.Context(), p, amount, types.StakingMode(body.Mode), body.Validator)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stakeRequestView(req))
}

func (s *Server) handleRequestUnstake(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body stakeRequestBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := s.service.RequestUnstake(r.Context(), p, amount, types.StakingMode(body.Mode), body.Validator)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, unstakeRequestView(req))
}

func (s *Server) handleRequestClaimRewards(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Mode string `json:"mode"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	req, err := s.service.RequestClaimRewards(r.Context(), p, types.StakingMode(body.Mode))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, claimRequestView(req))
}

func (s *Server) handleGetStakeRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := s.service.StakeRequest(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errorBody{
			Category: types.Validation.String(),
			Message:  err.Error(),
		}})
		return
	}
	writeJSON(w, http.StatusOK, stakeRequestView(req))
}

func (s *Server) handleGetUnstakeRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := s.service.UnstakeRequest(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errorBody{
			Category: types.Validation.String(),
			Message:  err.Error(),
		}})
		return
	}
	writeJSON(w, http.StatusOK, unstakeRequestView(req))
}

func (s *Server) handleGetClaimRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := s.service.ClaimRequest(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: errorBody{
			Category: types.Validation.String(),
			Message:  err.Error(),
		}})
		return
	}
	writeJSON(w, http.StatusOK, claimRequestView(req))
}

// Fulfillment side.

func (s *Server) handleFulfillStake(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := s.service.FulfillStake(r.Context(), p, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stakeRequestView(req))
}

func (s *Server) handleFulfillUnstake(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := s.service.FulfillUnstake(r.Context(), p, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, unstakeRequestView(req))
}

func (s *Server) handleFulfillClaimRewards(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := s.service.FulfillClaimRewards(r.Context(), p, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claimRequestView(req))
}

// Direct APR path.

func (s *Server) handleStakeAPR(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Amount    string `json:"amount"`
		Validator string `json:"validator"`
		Native    bool   `json:"native,omitempty"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.service.StakeAPR(r.Context(), p, amount, body.Validator, body.Native)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"amount":    result.Amount.String(),
		"validator": result.Validator,
		"reported":  result.Reported.String(),
	})
}

func (s *Server) handleUnstakeAPR(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Amount    string `json:"amount"`
		Validator string `json:"validator"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.service.UnstakeAPR(r.Context(), p, amount, body.Validator)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]string{"correlation_id": result.CorrelationID}
	if !result.UnbondingEnd.IsZero() {
		resp["unbonding_end"] = result.UnbondingEnd.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClaimUnstakeAPR(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		CorrelationID string `json:"correlation_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	result, err := s.service.ClaimUnstakeAPR(r.Context(), p, body.CorrelationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"amount":    result.Amount.String(),
		"validator": result.Validator,
	})
}

func (s *Server) handleClaimRewardsAPR(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Validator string `json:"validator,omitempty"`
		Amount    string `json:"amount,omitempty"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	// A validator-scoped claim names both the bucket and the amount; a plain
	// claim drains the whole balance.
	if body.Validator != "" {
		amount, err := parseAmount(body.Amount)
		if err != nil {
			writeError(w, err)
			return
		}
		paid, err := s.service.ClaimRewardsAPRForValidator(r.Context(), p, body.Validator, amount)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"paid": paid.String(), "validator": body.Validator})
		return
	}
	paid, err := s.service.ClaimRewardsAPR(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"paid": paid.String()})
}

func (s *Server) handleGetClaimableRewards(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if validator := r.URL.Query().Get("validator"); validator != "" {
		claimable := s.service.ClaimableRewardsForValidator(p, validator)
		writeJSON(w, http.StatusOK, map[string]string{
			"claimable": claimable.String(),
			"validator": validator,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"claimable": s.service.ClaimableRewards(p).String(),
	})
}

// Vault.

func (s *Server) handleGetVaultStats(w http.ResponseWriter, r *http.Request) {
	totalAssets, totalShares, assetsPerShare := s.service.VaultStats()
	writeJSON(w, http.StatusOK, map[string]string{
		"total_assets":     totalAssets.String(),
		"total_shares":     totalShares.String(),
		"assets_per_share": assetsPerShare.String(),
	})
}

func (s *Server) handleGetShareBalance(w http.ResponseWriter, r *http.Request) {
	holder := chi.URLParam(r, "holder")
	writeJSON(w, http.StatusOK, map[string]string{
		"holder": holder,
		"shares": s.service.ShareBalance(holder).String(),
	})
}

func bodyAmount(r *http.Request) (sdkmath.Int, error) {
	var body struct {
		Amount string `json:"amount"`
	}
	if err := decodeBody(r, &body); err != nil {
		return sdkmath.Int{}, err
	}
	return parseAmount(body.Amount)
}

// vaultAmountOp covers the amount-in, int-out vault operations.
func (s *Server) vaultAmountOp(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, principal string, amount sdkmath.Int) (sdkmath.Int, error),
	key string,
) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := bodyAmount(r)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := op(r.Context(), p, amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{key: out.String()})
}

func (s *Server) handleSeedVault(w http.ResponseWriter, r *http.Request) {
	s.vaultAmountOp(w, r, s.service.SeedVault, "shares")
}

func (s *Server) handleVaultDeposit(w http.ResponseWriter, r *http.Request) {
	s.vaultAmountOp(w, r, s.service.VaultDeposit, "shares")
}

func (s *Server) handleVaultRedeem(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Shares string `json:"shares"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	shares, err := parseAmount(body.Shares)
	if err != nil {
		writeError(w, err)
		return
	}
	payout, err := s.service.VaultRedeem(r.Context(), p, shares)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"amount": payout.String()})
}

func (s *Server) handleCompoundVaultRewards(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := bodyAmount(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.service.CompoundVaultRewards(r.Context(), p, amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSettleVaultRedemptions(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	amount, err := bodyAmount(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.service.SettleVaultRedemptions(r.Context(), p, amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTransferShares(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		To     string `json:"to"`
		Shares string `json:"shares"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	shares, err := parseAmount(body.Shares)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.service.TransferShares(r.Context(), p, body.To, shares); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Oracle reads.

func (s *Server) handleGetOraclePrice(w http.ResponseWriter, r *http.Request) {
	asset := chi.URLParam(r, "asset")
	price, err := s.service.OraclePrice(r.Context(), asset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"asset": asset, "price": price.String()})
}

func (s *Server) handleGetCurrentAPR(w http.ResponseWriter, r *http.Request) {
	rate, err := s.service.CurrentAPR(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"apr": rate.String()})
}

func (s *Server) handleGetCurrentAPY(w http.ResponseWriter, r *http.Request) {
	rate, err := s.service.CurrentAPY(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"apy": rate.String()})
}

func (s *Server) handleGetUnbondingPeriod(w http.ResponseWriter, r *http.Request) {
	period, err := s.service.UnbondingPeriod(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"unbonding_period": period.String()})
}

// Control plane.

func freezeView(window ledger.FreezeWindow) map[string]any {
	v := map[string]any{"frozen": !window.FrozenUntil.IsZero()}
	if !window.FrozenUntil.IsZero() {
		v["frozen_until"] = window.FrozenUntil.UTC().Format(time.RFC3339)
	}
	return v
}

func (s *Server) handleGetFreeze(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, freezeView(s.service.FreezeStatus()))
}

func (s *Server) handleSetFreeze(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Duration string `json:"duration"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	duration, err := time.ParseDuration(body.Duration)
	if err != nil {
		writeError(w, types.NewValidationError(errors.New("duration must be a Go duration string")))
		return
	}
	window, err := s.service.SetFreeze(r.Context(), p, duration)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, freezeView(window))
}

func (s *Server) handleThaw(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	window, err := s.service.Thaw(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, freezeView(window))
}

func (s *Server) handleUpdateRewards(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		User      string `json:"user"`
		Validator string `json:"validator,omitempty"`
		Amount    string `json:"amount"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	amount, err := parseAmount(body.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.service.UpdateRewards(r.Context(), p, body.User, body.Validator, amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.service.Pause(p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "paused"})
}

func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.service.Unpause(p); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}
