package model

const RewardEntryCollection = "reward_entries"

// RewardEntryDocument mirrors one user's claimable reward balances. The user
// is the _id so an upsert replaces the whole entry atomically.
type RewardEntryDocument struct {
	User         string            `bson:"_id"`
	Global       string            `bson:"global"`
	PerValidator map[string]string `bson:"per_validator,omitempty"`
}
