package domain

import "time"

// Session is the opaque server-issued identifier correlating requests from
// one anonymous client. It carries no credentials; identity is only bound
// to it after email verification.
type Session struct {
	SessionID string    `json:"id" dynamodbav:"session_id"`
	Enable    bool      `json:"enable" dynamodbav:"enable"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}
