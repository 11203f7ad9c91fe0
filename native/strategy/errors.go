package strategy

import "errors"

var (
	// ErrNilState signals the engine was used before wiring its state.
	ErrNilState = errors.New("strategy engine: state not configured")
	// ErrNotInitialised signals the strategy record is missing from state.
	ErrNotInitialised = errors.New("strategy engine: strategy not initialised")
	// ErrInvalidAmount rejects zero or negative requests.
	ErrInvalidAmount = errors.New("strategy engine: amount must be positive")
	// ErrPaused rejects deposits and harvests while the strategy is paused.
	ErrPaused = errors.New("strategy engine: strategy paused")
	// ErrNotPaused rejects an unpause of a strategy that is not paused.
	ErrNotPaused = errors.New("strategy engine: strategy not paused")
	// ErrRetired rejects any mutating operation on a retired strategy except
	// withdrawals of remaining idle funds.
	ErrRetired = errors.New("strategy engine: strategy retired")
	// ErrInsufficientLiquidity signals the farm released less want than the
	// withdrawal requires; the whole operation fails rather than remitting a
	// partial amount.
	ErrInsufficientLiquidity = errors.New("strategy engine: insufficient liquidity")
	// ErrFarmNotConfigured signals the farming adapter was not wired.
	ErrFarmNotConfigured = errors.New("strategy engine: farming adapter not configured")
	// ErrRouterNotConfigured signals the swap adapter was not wired.
	ErrRouterNotConfigured = errors.New("strategy engine: swap adapter not configured")
	// ErrLendingNotConfigured signals leverage management was requested
	// without a lending adapter.
	ErrLendingNotConfigured = errors.New("strategy engine: lending adapter not configured")
	// ErrFeeOutOfRange rejects fee parameters outside their caps.
	ErrFeeOutOfRange = errors.New("strategy engine: fee out of range")
	// ErrLTVOutOfRange rejects leverage targets outside the safe band.
	ErrLTVOutOfRange = errors.New("strategy engine: target LTV out of range")
	// ErrWantNotSweepable refuses to sweep the want token out of the
	// strategy.
	ErrWantNotSweepable = errors.New("strategy engine: want token cannot be swept")
)
