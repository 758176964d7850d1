package domain

import "time"

// Verification channels. Only email has an HTTP route; the schema carries
// sms so records issued through other entry points remain representable.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// OtpCode is one issued, single-use verification code. Records are
// append-only: issuing never touches prior records for the same
// session+channel+target, and verification only ever considers the
// most recently created match.
// Lookup is the GSI hash key "<session>#<channel>#<target>"; the ULID otp_id
// is the range key, so the latest record is a single descending query.
// ExpiresAt doubles as the DynamoDB TTL attribute, which sweeps
// unconsumed garbage records without any application-level job.
type OtpCode struct {
	OtpID     string    `json:"id" dynamodbav:"otp_id"`
	SessionID string    `json:"session_id" dynamodbav:"session_id"`
	Channel   string    `json:"channel" dynamodbav:"channel"`
	Target    string    `json:"target" dynamodbav:"target"`
	Code      string    `json:"-" dynamodbav:"code"`
	Lookup    string    `json:"-" dynamodbav:"lookup"`
	ExpiresAt int64     `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
}

// OtpLookup builds the composite GSI hash key for an OtpCode.
func OtpLookup(sessionID, channel, target string) string {
	return sessionID + "#" + channel + "#" + target
}
