package model

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/nativestake/custody-ledger/internal/ledger"
	"github.com/nativestake/custody-ledger/internal/types"
)

const (
	StakeRequestCollection       = "stake_requests"
	UnstakeRequestCollection     = "unstake_requests"
	RewardClaimRequestCollection = "reward_claim_requests"
)

// Amounts are stored as base-10 strings: BSON numbers cannot hold the full
// 256-bit range of sdkmath.Int.
type StakeRequestDocument struct {
	ID        uint64    `bson:"_id"`
	User      string    `bson:"user"`
	Amount    string    `bson:"amount"`
	Mode      string    `bson:"mode"`
	Validator string    `bson:"validator,omitempty"`
	Timestamp time.Time `bson:"timestamp"`
	Processed bool      `bson:"processed"`
}

type UnstakeRequestDocument struct {
	ID            uint64    `bson:"_id"`
	User          string    `bson:"user"`
	Amount        string    `bson:"amount"`
	Mode          string    `bson:"mode"`
	Validator     string    `bson:"validator,omitempty"`
	Timestamp     time.Time `bson:"timestamp"`
	UnbondingEnd  time.Time `bson:"unbonding_end,omitempty"`
	CorrelationID string    `bson:"correlation_id,omitempty"`
	Processed     bool      `bson:"processed"`
}

type RewardClaimRequestDocument struct {
	ID        uint64    `bson:"_id"`
	User      string    `bson:"user"`
	Mode      string    `bson:"mode"`
	Timestamp time.Time `bson:"timestamp"`
	Amount    string    `bson:"amount,omitempty"`
	Processed bool      `bson:"processed"`
}

func NewStakeRequestDocument(r ledger.StakeRequest) *StakeRequestDocument {
	return &StakeRequestDocument{
		ID:        r.ID,
		User:      r.User,
		Amount:    r.Amount.String(),
		Mode:      string(r.Mode),
		Validator: r.Validator,
		Timestamp: r.Timestamp,
		Processed: r.Processed,
	}
}

func (d *StakeRequestDocument) ToRequest() (ledger.StakeRequest, error) {
	amount, err := parseAmount(d.Amount)
	if err != nil {
		return ledger.StakeRequest{}, fmt.Errorf("stake request %d: %w", d.ID, err)
	}
	return ledger.StakeRequest{
		ID:        d.ID,
		User:      d.User,
		Amount:    amount,
		Mode:      types.StakingMode(d.Mode),
		Validator: d.Validator,
		Timestamp: d.Timestamp,
		Processed: d.Processed,
	}, nil
}

func NewUnstakeRequestDocument(r ledger.UnstakeRequest) *UnstakeRequestDocument {
	return &UnstakeRequestDocument{
		ID:            r.ID,
		User:          r.User,
		Amount:        r.Amount.String(),
		Mode:          string(r.Mode),
		Validator:     r.Validator,
		Timestamp:     r.Timestamp,
		UnbondingEnd:  r.UnbondingEnd,
		CorrelationID: r.CorrelationID,
		Processed:     r.Processed,
	}
}

func (d *UnstakeRequestDocument) ToRequest() (ledger.UnstakeRequest, error) {
	amount, err := parseAmount(d.Amount)
	if err != nil {
		return ledger.UnstakeRequest{}, fmt.Errorf("unstake request %d: %w", d.ID, err)
	}
	return ledger.UnstakeRequest{
		ID:            d.ID,
		User:          d.User,
		Amount:        amount,
		Mode:          types.StakingMode(d.Mode),
		Validator:     d.Validator,
		Timestamp:     d.Timestamp,
		UnbondingEnd:  d.UnbondingEnd,
		CorrelationID: d.CorrelationID,
		Processed:     d.Processed,
	}, nil
}

func NewRewardClaimRequestDocument(r ledger.RewardClaimRequest) *RewardClaimRequestDocument {
	doc := &RewardClaimRequestDocument{
		ID:        r.ID,
		User:      r.User,
		Mode:      string(r.Mode),
		Timestamp: r.Timestamp,
		Processed: r.Processed,
	}
	if !r.Amount.IsNil() {
		doc.Amount = r.Amount.String()
	}
	return doc
}

func (d *RewardClaimRequestDocument) ToRequest() (ledger.RewardClaimRequest, error) {
	r := ledger.RewardClaimRequest{
		ID:        d.ID,
		User:      d.User,
		Mode:      types.StakingMode(d.Mode),
		Timestamp: d.Timestamp,
		Processed: d.Processed,
	}
	if d.Amount != "" {
		amount, err := parseAmount(d.Amount)
		if err != nil {
			return ledger.RewardClaimRequest{}, fmt.Errorf("claim request %d: %w", d.ID, err)
		}
		r.Amount = amount
	}
	return r, nil
}

func parseAmount(s string) (sdkmath.Int, error) {
	amount, ok := sdkmath.NewIntFromString(s)
	if !ok {
		return sdkmath.Int{}, fmt.Errorf("malformed amount %q", s)
	}
	return amount, nil
}
