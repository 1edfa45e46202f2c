package model

import "time"

const FreezeWindowCollection = "freeze_window"

// FreezeWindowID is the _id of the singleton freeze document.
const FreezeWindowID = "freeze"

type FreezeWindowDocument struct {
	ID          string        `bson:"_id"`
	FrozenUntil time.Time     `bson:"frozen_until"`
	Duration    time.Duration `bson:"duration"`
}
