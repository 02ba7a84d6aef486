// Package stepup gates super-admin access to sensitive settings behind a
// second factor.
//
// The flow is a small state machine: a super admin touching a sensitive
// category without a valid grant receives an HTTP 428 challenge; supplying
// a correct TOTP code stores a short-lived grant; the grant expires and
// the cycle repeats. Regular tenant roles never pass through this gate.
//
// Every ambiguous state resolves to "not verified". A missing secret, an
// unreachable grant store, or an expired grant all produce a challenge,
// never a pass.
package stepup
