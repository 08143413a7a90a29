package enums

type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var outboxDLQErrorReasons = enumOf("dead letter reason",
	OutboxDLQReasonMaxAttempts,
	OutboxDLQReasonNonRetryable,
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return outboxDLQErrorReasons.has(r)
}
