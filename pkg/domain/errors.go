package domain

import "errors"

// ErrUnknownTrigger is returned when a requested trigger is absent from the
// current state's available transitions.
var ErrUnknownTrigger = errors.New("unknown trigger")

// ErrTriggerBlocked is returned when a trigger is valid for the current
// state but denied by a guard rail.
var ErrTriggerBlocked = errors.New("trigger blocked by guard rail")

// ErrUnknownStage is returned when a stage switch targets a stage absent
// from the configuration.
var ErrUnknownStage = errors.New("unknown stage")

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")
