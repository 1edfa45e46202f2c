package types

// Enum values for request state. A request is created once, settled once,
// and never deleted; there is no cancelled or expired state.
type RequestState string

const (
	RequestStateCreated   RequestState = "CREATED"
	RequestStateProcessed RequestState = "PROCESSED"
)

func (s RequestState) String() string {
	return string(s)
}

// QualifiedStatesForFulfillment returns the states a request may be in for a
// fulfiller to settle it.
func QualifiedStatesForFulfillment() []RequestState {
	return []RequestState{RequestStateCreated}
}

// RequestKind distinguishes the three request books of the ledger.
type RequestKind string

const (
	RequestKindStake        RequestKind = "STAKE"
	RequestKindUnstake      RequestKind = "UNSTAKE"
	RequestKindClaimRewards RequestKind = "CLAIM_REWARDS"
)

func (k RequestKind) String() string {
	return string(k)
}
