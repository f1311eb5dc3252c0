package vault

import (
	"fmt"
	"time"
)

// Code classifies why the vault rejected an operation. Every rejection is a
// pure decision: no counter moves, no nonce advances, no history is written.
type Code string

const (
	CodePaused                   Code = "paused"
	CodeDeadlineExpired          Code = "deadline_expired"
	CodeStaleNonce               Code = "stale_or_replayed_nonce"
	CodeDeadmanTriggered         Code = "deadman_triggered"
	CodeInvalidAuthorization     Code = "invalid_authorization"
	CodeInvalidAmount            Code = "invalid_amount"
	CodeExceedsPerTransactionCap Code = "exceeds_per_transaction_cap"
	CodeCooldownActive           Code = "cooldown_active"
	CodeNotWhitelisted           Code = "not_whitelisted"
	CodeRecipientInactive        Code = "recipient_inactive"
	CodeExceedsDailyLimit        Code = "exceeds_daily_limit"
	CodeExceedsMonthlyLimit      Code = "exceeds_monthly_limit"
	CodeExceedsPoolDailyCap      Code = "exceeds_pool_daily_cap"
	CodeInsufficientBalance      Code = "insufficient_balance"
	CodeTimelockNotElapsed       Code = "timelock_not_elapsed"
	CodeDuplicateRecipient       Code = "duplicate_recipient"
	CodeUnknownRecipient         Code = "unknown_recipient"
	CodeInvalidLimits            Code = "invalid_limits"
	CodeRotationPending          Code = "rotation_pending"
	CodeNoPendingRotation        Code = "no_pending_rotation"
	CodeNothingToDrain           Code = "nothing_to_drain"
	CodeInvalidParameter         Code = "invalid_parameter"
	CodeTransferFailed           Code = "transfer_failed"
)

// GuardrailError is a structured rejection. Limit, Remaining, ResetAt, and
// RetryAt are populated where they help the caller build an actionable
// message without re-querying vault state; zero values mean "not applicable".
type GuardrailError struct {
	Code      Code
	Reason    string
	Limit     int64
	Remaining int64
	ResetAt   time.Time
	RetryAt   time.Time
}

func (e *GuardrailError) Error() string {
	return fmt.Sprintf("guardrail %s: %s", e.Code, e.Reason)
}

// reject builds a bare GuardrailError.
func reject(code Code, format string, args ...any) *GuardrailError {
	return &GuardrailError{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// rejectLimit builds a GuardrailError describing an exhausted allowance.
func rejectLimit(code Code, limit, remaining int64, resetAt time.Time, format string, args ...any) *GuardrailError {
	return &GuardrailError{
		Code:      code,
		Reason:    fmt.Sprintf(format, args...),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
