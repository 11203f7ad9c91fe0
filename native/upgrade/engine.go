package upgrade

import (
	"errors"
	"strconv"

	"vaultchain/core/types"
)

var (
	// ErrNilState signals the engine was used before wiring its state.
	ErrNilState = errors.New("upgrade engine: state not configured")
	// ErrCooldownNotElapsed rejects an upgrade attempted without a completed
	// cooldown, whether the cooldown is pending or was never initiated.
	ErrCooldownNotElapsed = errors.New("upgrade engine: cooldown not elapsed")
	// ErrInvalidDuration rejects a zero timelock duration.
	ErrInvalidDuration = errors.New("upgrade engine: timelock duration must be positive")
)

const (
	// EventTypeCooldownInitiated is emitted whenever the cooldown clock is
	// started or restarted.
	EventTypeCooldownInitiated = "upgrade.cooldown_initiated"
	// EventTypeExecuted is emitted when an upgrade completes.
	EventTypeExecuted = "upgrade.executed"
)

// Record is the persisted timelock state. Pending distinguishes an armed
// cooldown from the idle state; LogicVersion counts executed upgrades.
type Record struct {
	Pending      bool   `json:"pending"`
	InitiatedAt  uint64 `json:"initiatedAt"`
	LogicVersion uint64 `json:"logicVersion"`
}

type engineState interface {
	GetUpgrade() (*Record, error)
	PutUpgrade(*Record) error
}

// Engine gates logic upgrades behind a mandatory cooldown. Every upgrade
// requires a fresh cooldown cycle; executing an upgrade returns the state
// machine to idle.
type Engine struct {
	state    engineState
	duration uint64
	emit     func(*types.Event)
}

// NewEngine constructs a timelock engine with the given cooldown duration in
// seconds.
func NewEngine(duration uint64) (*Engine, error) {
	if duration == 0 {
		return nil, ErrInvalidDuration
	}
	return &Engine{duration: duration}, nil
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter wires the event sink.
func (e *Engine) SetEmitter(emit func(*types.Event)) {
	if e == nil {
		return
	}
	e.emit = emit
}

// Duration reports the configured cooldown in seconds.
func (e *Engine) Duration() uint64 {
	if e == nil {
		return 0
	}
	return e.duration
}

// Initiate arms the cooldown at the supplied timestamp. Re-initiating while a
// cooldown is already pending restarts the clock, so any last-minute restart
// pays a fresh waiting period.
func (e *Engine) Initiate(now uint64) (*Record, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	record, err := e.ensureRecord()
	if err != nil {
		return nil, err
	}
	record.Pending = true
	record.InitiatedAt = now
	if err := e.state.PutUpgrade(record); err != nil {
		return nil, err
	}
	e.emitEvent(&types.Event{
		Type: EventTypeCooldownInitiated,
		Attributes: map[string]string{
			"initiatedAt": strconv.FormatUint(now, 10),
			"readyAt":     strconv.FormatUint(now+e.duration, 10),
		},
	})
	return record, nil
}

// Execute performs the upgrade when the cooldown has fully elapsed. On
// success the state machine returns to idle and the logic version is bumped;
// the next upgrade needs a fresh cooldown.
func (e *Engine) Execute(now uint64) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	record, err := e.ensureRecord()
	if err != nil {
		return 0, err
	}
	if !record.Pending || now < record.InitiatedAt+e.duration {
		return 0, ErrCooldownNotElapsed
	}
	record.Pending = false
	record.InitiatedAt = 0
	record.LogicVersion++
	if err := e.state.PutUpgrade(record); err != nil {
		return 0, err
	}
	e.emitEvent(&types.Event{
		Type: EventTypeExecuted,
		Attributes: map[string]string{
			"logicVersion": strconv.FormatUint(record.LogicVersion, 10),
			"executedAt":   strconv.FormatUint(now, 10),
		},
	})
	return record.LogicVersion, nil
}

// Status reports the current timelock record and, when pending, the timestamp
// at which execution becomes permitted.
func (e *Engine) Status() (*Record, uint64, error) {
	if e == nil || e.state == nil {
		return nil, 0, ErrNilState
	}
	record, err := e.ensureRecord()
	if err != nil {
		return nil, 0, err
	}
	var readyAt uint64
	if record.Pending {
		readyAt = record.InitiatedAt + e.duration
	}
	return record, readyAt, nil
}

func (e *Engine) ensureRecord() (*Record, error) {
	record, err := e.state.GetUpgrade()
	if err != nil {
		return nil, err
	}
	if record == nil {
		record = &Record{}
	}
	return record, nil
}

func (e *Engine) emitEvent(event *types.Event) {
	if e.emit != nil && event != nil {
		e.emit(event)
	}
}
