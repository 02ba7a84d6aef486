package stepup

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/oakline/warden/pkg/audit"
	"github.com/oakline/warden/pkg/config"
	"github.com/oakline/warden/pkg/httputil"
	"github.com/oakline/warden/pkg/observability"
	"github.com/oakline/warden/pkg/tenant"
)

// Gate decides whether a super admin has recently proven a second factor.
// Verification state lives in the grant store; TOTP secrets live in the
// secret store. Any error on the read path means "not verified".
type Gate struct {
	secrets SecretStore
	grants  GrantStore
	auditor audit.Logger
	logger  *observability.Logger
	metrics *observability.Metrics

	issuer       string
	grantTTL     time.Duration
	challengeTTL time.Duration
}

// NewGate creates a step-up gate
func NewGate(secrets SecretStore, grants GrantStore, auditor audit.Logger, logger *observability.Logger, metrics *observability.Metrics, cfg config.StepUpConfig) *Gate {
	if auditor == nil {
		auditor = audit.NopLogger{}
	}
	return &Gate{
		secrets:      secrets,
		grants:       grants,
		auditor:      auditor,
		logger:       logger.WithComponent("stepup"),
		metrics:      metrics,
		issuer:       cfg.Issuer,
		grantTTL:     cfg.GrantTTL,
		challengeTTL: cfg.ChallengeTTL,
	}
}

// Enroll provisions a fresh TOTP secret for the user and returns the
// otpauth URL for authenticator apps. The previous secret, if any, stops
// working immediately.
func (g *Gate) Enroll(ctx context.Context, tc *tenant.Context) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      g.issuer,
		AccountName: tc.UserEmail,
		Period:      30,
		SecretSize:  32,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}

	if err := g.secrets.SaveSecret(ctx, tc.TenantID, tc.UserID, key.Secret()); err != nil {
		return nil, err
	}

	g.logger.WithFields(map[string]interface{}{
		"tenant_id": tc.TenantID,
		"user_id":   tc.UserID,
	}).Info("step-up secret enrolled")

	return &Enrollment{Secret: key.Secret(), URL: key.URL()}, nil
}

// VerifySuperAdminStepUp reports whether the user holds a live grant.
// Non-super-admin contexts never pass: they have no step-up flow, and the
// gate must not become an alternate allow path for them.
func (g *Gate) VerifySuperAdminStepUp(ctx context.Context, tc *tenant.Context) bool {
	if tc == nil || !tc.Authenticated() || !tc.IsSuperAdmin {
		return false
	}

	ok, err := g.grants.Valid(ctx, grantKey(tc.TenantID, tc.UserID))
	if err != nil {
		g.logger.WithError(err).WithField("user_id", tc.UserID).
			Warn("grant store unavailable, treating as not verified")
		return false
	}
	return ok
}

// IssueChallenge opens a challenge window for the user. Verification is
// only accepted while the challenge is outstanding.
func (g *Gate) IssueChallenge(ctx context.Context, tc *tenant.Context) (*Challenge, error) {
	if err := g.grants.Put(ctx, challengeKey(tc.TenantID, tc.UserID), g.challengeTTL); err != nil {
		return nil, err
	}

	if g.metrics != nil {
		g.metrics.StepUpChallengesTotal.Inc()
	}
	g.record(ctx, tc, audit.EventTypeStepUpChallenge, audit.EventStatusSuccess, nil)

	return &Challenge{
		ID:        uuid.NewString(),
		ExpiresAt: time.Now().UTC().Add(g.challengeTTL),
	}, nil
}

// VerifyCode validates a TOTP code against the user's secret and, on
// success, stores a grant and consumes the challenge. Every failure path
// returns an error; nil means verified.
func (g *Gate) VerifyCode(ctx context.Context, tc *tenant.Context, code string) error {
	secret, err := g.secrets.GetSecret(ctx, tc.TenantID, tc.UserID)
	if err != nil {
		g.verificationFailed(ctx, tc, "secret store unavailable")
		return err
	}
	if secret == "" {
		g.verificationFailed(ctx, tc, "not enrolled")
		return ErrNotEnrolled
	}

	pending, err := g.grants.Valid(ctx, challengeKey(tc.TenantID, tc.UserID))
	if err != nil {
		g.verificationFailed(ctx, tc, "grant store unavailable")
		return err
	}
	if !pending {
		g.verificationFailed(ctx, tc, "no active challenge")
		return ErrNoChallenge
	}

	if !totp.Validate(code, secret) {
		g.verificationFailed(ctx, tc, "code mismatch")
		return ErrInvalidCode
	}

	if err := g.grants.Put(ctx, grantKey(tc.TenantID, tc.UserID), g.grantTTL); err != nil {
		g.verificationFailed(ctx, tc, "grant write failed")
		return err
	}
	// Challenge is single-use; the next verification needs a new one
	if err := g.grants.Revoke(ctx, challengeKey(tc.TenantID, tc.UserID)); err != nil {
		g.logger.WithError(err).Warn("failed to consume step-up challenge")
	}

	if g.metrics != nil {
		g.metrics.StepUpVerificationsTotal.WithLabelValues("success").Inc()
	}
	g.record(ctx, tc, audit.EventTypeStepUpVerified, audit.EventStatusSuccess, nil)
	return nil
}

// Revoke drops the user's grant, forcing a fresh challenge on the next
// sensitive access
func (g *Gate) Revoke(ctx context.Context, tc *tenant.Context) error {
	return g.grants.Revoke(ctx, grantKey(tc.TenantID, tc.UserID))
}

// WriteChallenge issues a challenge and writes the 428 response. A grant
// store failure still yields 428: the caller stays blocked either way.
func (g *Gate) WriteChallenge(w http.ResponseWriter, r *http.Request, tc *tenant.Context) {
	resp := ChallengeResponse{
		Error:      "step-up verification required for this operation",
		Code:       httputil.CodeStepUpRequired,
		VerifyPath: "/api/v1/stepup/verify",
	}

	challenge, err := g.IssueChallenge(r.Context(), tc)
	if err != nil {
		g.logger.WithError(err).WithField("user_id", tc.UserID).
			Error("failed to issue step-up challenge")
	} else {
		resp.ChallengeID = challenge.ID
		resp.ExpiresIn = int(g.challengeTTL.Seconds())
	}

	httputil.WriteJSON(w, http.StatusPreconditionRequired, resp)
}

func (g *Gate) verificationFailed(ctx context.Context, tc *tenant.Context, reason string) {
	if g.metrics != nil {
		g.metrics.StepUpVerificationsTotal.WithLabelValues("failure").Inc()
	}
	g.logger.WithFields(map[string]interface{}{
		"tenant_id": tc.TenantID,
		"user_id":   tc.UserID,
		"reason":    reason,
	}).Warn("step-up verification failed")
	g.record(ctx, tc, audit.EventTypeStepUpFailed, audit.EventStatusFailure, map[string]interface{}{
		"reason": reason,
	})
}

func (g *Gate) record(ctx context.Context, tc *tenant.Context, eventType audit.EventType, status audit.EventStatus, details map[string]interface{}) {
	event := audit.NewEvent(tc.TenantID, eventType, status)
	event.UserID = tc.UserID
	event.UserEmail = tc.UserEmail
	event.Role = string(tc.Role)
	event.RequestID = tc.RequestID
	for k, v := range details {
		event.Details[k] = v
	}

	if err := g.auditor.Log(context.WithoutCancel(ctx), event); err != nil {
		g.logger.WithError(err).WithField("event_type", string(eventType)).
			Warn("failed to record step-up audit event")
	}
}
