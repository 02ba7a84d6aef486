package stepup

import (
	"errors"
	"time"
)

var (
	// ErrNotEnrolled indicates the user has no TOTP secret provisioned
	ErrNotEnrolled = errors.New("user is not enrolled in step-up verification")
	// ErrNoChallenge indicates no outstanding challenge for the user
	ErrNoChallenge = errors.New("no active step-up challenge")
	// ErrInvalidCode indicates the supplied TOTP code did not verify
	ErrInvalidCode = errors.New("invalid verification code")
)

// Enrollment is the provisioning material returned when a user enrolls.
// The secret is shown exactly once; only its stored copy is used afterwards.
type Enrollment struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// Challenge is an issued step-up challenge. The ID is for client
// correlation only; the server tracks the pending challenge by user.
type Challenge struct {
	ID        string    `json:"challenge_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ChallengeResponse is the HTTP 428 body. The code field distinguishes it
// from 401 and 403 bodies so clients can route to the verification flow.
type ChallengeResponse struct {
	Error       string `json:"error"`
	Code        string `json:"code"`
	ChallengeID string `json:"challenge_id,omitempty"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
	VerifyPath  string `json:"verify_path"`
}

func grantKey(tenantID, userID string) string {
	return "grant:" + tenantID + ":" + userID
}

func challengeKey(tenantID, userID string) string {
	return "challenge:" + tenantID + ":" + userID
}
