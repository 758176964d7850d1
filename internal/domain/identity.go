package domain

import "time"

// Identity key prefixes. An identity row is keyed by the value it was
// upserted under: either a verified email or an anonymous session id.
// Using the upsert key as the partition key makes the find-or-create-then-merge
// sequence a single atomic UpdateItem, and guarantees at most one row per email.
const (
	identityEmailPrefix   = "email#"
	identitySessionPrefix = "session#"
)

// Identity represents one end-user, keyed eventually by verified email.
type Identity struct {
	IdentityKey   string    `json:"id" dynamodbav:"identity_key"`
	SessionID     string    `json:"session_id" dynamodbav:"session_id"`
	Name          string    `json:"name" dynamodbav:"name"`
	Email         string    `json:"email,omitempty" dynamodbav:"email"`
	EmailVerified bool      `json:"email_verified" dynamodbav:"email_verified"`
	CreatedAt     time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time `json:"updated" dynamodbav:"updated_at"`
}

// EmailKey returns the identity partition key for a verified email.
func EmailKey(email string) string { return identityEmailPrefix + email }

// SessionKey returns the identity partition key for an anonymous session.
func SessionKey(sessionID string) string { return identitySessionPrefix + sessionID }

type UpdateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email" validate:"omitempty,email"`
}
