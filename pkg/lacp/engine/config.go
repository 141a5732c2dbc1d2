// Package engine implements C5: the Receive, Periodic Transmission, and Mux
// state machines, plus the Selection Logic, driven by the dispatcher (C6).
package engine

import "github.com/newtron-network/lacpd/pkg/lacp/wire"

// Timer constants, in 100 ms ticks, from spec.md §6.
const (
	FastPeriodicTime   = 10  // 1s
	SlowPeriodicTime   = 300 // 30s
	ShortTimeoutTime   = 30  // 3s
	LongTimeoutTime    = 900 // 90s
	AggregateWaitTime  = 20  // 2s
)

// DefaultActorSystemPriority re-exports wire's default for convenience.
const DefaultActorSystemPriority = wire.DefaultActorSystemPriority

// Config is the engine configuration record (spec.md §9's "Global mutable
// configuration"), owned by the dispatcher and passed by reference into every
// handler. A changed ActorSystemID must trigger Engine.Restart for every port,
// since the actor SystemId is embedded in every emitted PDU.
type Config struct {
	ActorSystemID wire.SystemId

	// AllowCrossKeyPreemption preserves the source behavior of permitting
	// PRIORITY_MATCH to preempt across different partner keys when the
	// incoming actor priority is strictly higher (spec.md §9, Open
	// Question 1). Defaults to true to match the original, unconditional
	// behavior; set false to restrict port-priority preemption to same-key
	// matches. A strictly better (numerically smaller) incoming partner
	// system priority still preempts across keys either way.
	AllowCrossKeyPreemption bool
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig(systemMAC wire.MacAddr) Config {
	return Config{
		ActorSystemID:           wire.SystemId{Priority: DefaultActorSystemPriority, MAC: systemMAC},
		AllowCrossKeyPreemption: true,
	}
}
