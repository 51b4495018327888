package domain

import (
	"strings"
	"time"
)

// User is a WhatsApp account. Rows are created by the chat onboarding flow;
// the ledger only reads them.
type User struct {
	UserID      string    `json:"id" dynamodbav:"user_id"`
	PhoneNumber string    `json:"phone_number" dynamodbav:"phone_number"`
	Name        *string   `json:"name" dynamodbav:"name,omitempty"`
	Onboarded   bool      `json:"onboarded" dynamodbav:"onboarded"`
	Timezone    string    `json:"timezone" dynamodbav:"timezone"`
	CreatedAt   time.Time `json:"created" dynamodbav:"created_at"`
}

// FirstName returns the first word of the user's name, or fallback when no name is set.
func (u *User) FirstName(fallback string) string {
	if u == nil || u.Name == nil {
		return fallback
	}
	fields := strings.Fields(*u.Name)
	if len(fields) == 0 {
		return fallback
	}
	return fields[0]
}

// Identity is what a successful OTP verification proves.
type Identity struct {
	UserID      string  `json:"id"`
	PhoneNumber string  `json:"phone_number"`
	Name        *string `json:"name"`
}
