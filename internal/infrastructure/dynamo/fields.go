package dynamo

// DynamoDB attribute names used in key, condition and update expressions.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldUserID      = "user_id"
	fieldPhoneNumber = "phone_number"
	fieldTokenID     = "token_id"
	fieldCodeHash    = "code_hash"
	fieldExpiresAt   = "expires_at"
	fieldUsedAt      = "used_at"
	fieldReminderID  = "reminder_id"
	fieldText        = "text"
	fieldRemindAt    = "remind_at"
	fieldCreatedAt   = "created_at"
	fieldSentAt      = "sent_at"
	fieldCancelledAt = "cancelled_at"
	fieldPending     = "pending"
)

const (
	indexUsersByPhone      = "phone_number-index"
	indexPendingByRemindAt = "pending-remind_at-index"
	indexRemindersByUser   = "user_id-created_at-index"
)

// pendingCondition holds while a reminder is neither sent nor cancelled.
const pendingCondition = "attribute_exists(" + fieldReminderID + ") AND attribute_not_exists(" + fieldSentAt +
	") AND attribute_not_exists(" + fieldCancelledAt + ")"
