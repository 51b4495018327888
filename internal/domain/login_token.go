package domain

import "time"

// LoginToken stores the SHA-256 hash of a one-time ledger login code.
// PK: phone_number, SK: token_id (ULID, so SK order is creation order).
// ExpiresAt doubles as the DynamoDB TTL attribute.
type LoginToken struct {
	TokenID     string     `json:"id" dynamodbav:"token_id"`
	PhoneNumber string     `json:"phone_number" dynamodbav:"phone_number"`
	CodeHash    string     `json:"-" dynamodbav:"code_hash"`
	ExpiresAt   time.Time  `json:"expires_at" dynamodbav:"expires_at,unixtime"`
	UsedAt      *time.Time `json:"used_at,omitempty" dynamodbav:"used_at,omitempty,unixtime"`
	CreatedAt   time.Time  `json:"created_at" dynamodbav:"created_at,unixtime"`
}

// Live reports whether the token can still be redeemed at now.
func (t *LoginToken) Live(now time.Time) bool {
	return t.UsedAt == nil && t.ExpiresAt.After(now)
}
