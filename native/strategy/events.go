package strategy

import (
	"math/big"

	"vaultchain/core/types"
	"vaultchain/crypto"
	"vaultchain/native/fees"
)

const (
	EventTypeHarvested = "strategy.harvested"
	EventTypePaused    = "strategy.paused"
	EventTypeUnpaused  = "strategy.unpaused"
	EventTypePanicked  = "strategy.panicked"
	EventTypeRetired   = "strategy.retired"
)

// NewHarvestedEvent returns the canonical payload for a completed harvest.
func NewHarvestedEvent(caller crypto.Address, wantOut *big.Int, split fees.Split) *types.Event {
	return &types.Event{
		Type: EventTypeHarvested,
		Attributes: map[string]string{
			"caller":        caller.String(),
			"compounded":    amountString(wantOut),
			"totalFee":      amountString(split.TotalFee),
			"callFee":       amountString(split.CallFee),
			"strategistFee": amountString(split.Strategist),
			"treasuryFee":   amountString(split.Treasury),
		},
	}
}

// NewPausedEvent returns the payload emitted when the strategy pauses.
func NewPausedEvent() *types.Event {
	return &types.Event{Type: EventTypePaused, Attributes: map[string]string{}}
}

// NewUnpausedEvent returns the payload emitted when the strategy resumes.
func NewUnpausedEvent() *types.Event {
	return &types.Event{Type: EventTypeUnpaused, Attributes: map[string]string{}}
}

// NewPanickedEvent returns the payload emitted by the emergency stop.
func NewPanickedEvent() *types.Event {
	return &types.Event{Type: EventTypePanicked, Attributes: map[string]string{}}
}

// NewRetiredEvent returns the payload emitted when the strategy retires,
// recording the want forwarded back to the vault.
func NewRetiredEvent(forwarded *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeRetired,
		Attributes: map[string]string{
			"forwarded": amountString(forwarded),
		},
	}
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
