package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/interfaces"
	"github.com/nexaflow/nexaflow/pkg/domain/model"
	"github.com/nexaflow/nexaflow/pkg/domain/model/auth"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
	"github.com/nexaflow/nexaflow/pkg/utils/metrics"
)

// Claims carried by email approval links
const (
	linkTokenClaim    = "tok"
	linkDecisionClaim = "dec"
	linkVersionClaim  = "ver"
	linkIssuer        = "nexaflow"

	// EmailLinkPath is where approval links point to
	EmailLinkPath = "/approvals/email"

	// DefaultEmailLinkTTL is how long approval links stay valid
	DefaultEmailLinkTTL = 7 * 24 * time.Hour
)

// EmailLinkConfig configures signed approval links
type EmailLinkConfig struct {
	Secret  []byte
	BaseURL string
	TTL     time.Duration
}

type ApprovalUseCase struct {
	repo         interfaces.Repository
	deliverables *DeliverableUseCase
	links        *EmailLinkConfig
	clock        func() time.Time
}

func NewApprovalUseCase(repo interfaces.Repository, deliverables *DeliverableUseCase, links *EmailLinkConfig, clock func() time.Time) *ApprovalUseCase {
	return &ApprovalUseCase{
		repo:         repo,
		deliverables: deliverables,
		links:        links,
		clock:        clock,
	}
}

// InAppInput is a decision made in the dashboard
type InAppInput struct {
	DeliverableID string
	Decision      types.Decision
	Reason        string
	RequestMeta
}

// EmailInput is a decision made through a signed email link
type EmailInput struct {
	LinkToken string
	Reason    string
	RequestMeta
}

// WhatsAppInput is an inbound WhatsApp message
type WhatsAppInput struct {
	From string
	Text string
}

// EmailLinks are the approve and reject URLs sent to one recipient
type EmailLinks struct {
	ApproveURL string
	RejectURL  string
	ExpiresAt  time.Time
}

// EmailLink is the verified content of an approval link
type EmailLink struct {
	Deliverable *model.Deliverable
	Decision    types.Decision
	Recipient   *model.Profile
	// VersionID is the version the link was issued for
	VersionID string
}

// DecideInApp approves or rejects the pending version as the session user
func (uc *ApprovalUseCase) DecideInApp(ctx context.Context, session *auth.Session, input InAppInput) (*model.Deliverable, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if !input.Decision.IsValid() {
		return nil, goerr.Wrap(ErrValidation, "unknown decision", goerr.V("decision", input.Decision))
	}

	return uc.decide(ctx, session, model.ApprovalDecision{
		DeliverableID: input.DeliverableID,
		Decision:      input.Decision,
		Reason:        input.Reason,
		Signer: model.Signer{
			SignerID:  session.UserID,
			Method:    types.SignerMethodInApp,
			IPAddress: input.IPAddress,
			UserAgent: input.UserAgent,
		},
	})
}

// IssueEmailLinks signs approve and reject links for recipientID. The recipient
// must be allowed to decide on the project.
func (uc *ApprovalUseCase) IssueEmailLinks(ctx context.Context, session *auth.Session, deliverableID, recipientID string) (*EmailLinks, error) {
	if err := requireSession(session); err != nil {
		return nil, err
	}
	if uc.links == nil || len(uc.links.Secret) == 0 {
		return nil, goerr.New("email approval links are not configured")
	}

	d, project, err := uc.deliverables.load(ctx, deliverableID)
	if err != nil {
		return nil, err
	}
	if !session.CanManageProject(project) {
		return nil, goerr.Wrap(ErrAccessDenied, "not allowed to send approval links",
			goerr.V(DeliverableIDKey, deliverableID), goerr.V(UserIDKey, session.UserID))
	}
	if d.Status != types.DeliverableStatusReview || d.PendingVersion() == nil {
		return nil, goerr.Wrap(model.ErrInvalidTransition, "deliverable is not awaiting approval",
			goerr.V(DeliverableIDKey, deliverableID), goerr.V("status", d.Status))
	}

	recipient, err := loadProfile(ctx, uc.repo, recipientID)
	if err != nil {
		return nil, err
	}
	if !auth.FromProfile(recipient).CanDecide(project) {
		return nil, goerr.Wrap(ErrValidation, "recipient may not approve this deliverable",
			goerr.V(ProfileIDKey, recipientID), goerr.V(DeliverableIDKey, deliverableID))
	}

	ttl := uc.links.TTL
	if ttl <= 0 {
		ttl = DefaultEmailLinkTTL
	}
	now := uc.clock()
	expiresAt := now.Add(ttl)

	links := &EmailLinks{ExpiresAt: expiresAt}
	for _, decision := range []types.Decision{types.DecisionApprove, types.DecisionReject} {
		signed, err := uc.signLink(d.ApprovalToken, d.PendingVersion().ID, decision, recipientID, now, expiresAt)
		if err != nil {
			return nil, err
		}
		link := strings.TrimRight(uc.links.BaseURL, "/") + EmailLinkPath + "?t=" + url.QueryEscape(signed)
		if decision == types.DecisionApprove {
			links.ApproveURL = link
		} else {
			links.RejectURL = link
		}
	}
	return links, nil
}

// VerifyEmailLink checks a link token and returns what it would decide
func (uc *ApprovalUseCase) VerifyEmailLink(ctx context.Context, linkToken string) (*EmailLink, error) {
	if uc.links == nil || len(uc.links.Secret) == 0 {
		return nil, goerr.Wrap(ErrInvalidLink, "email approval links are not configured")
	}

	token, err := jwt.Parse([]byte(linkToken),
		jwt.WithKey(jwa.HS256, uc.links.Secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(linkIssuer),
		jwt.WithClock(jwt.ClockFunc(uc.clock)),
	)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidLink, "failed to verify link token", goerr.V("cause", err.Error()))
	}

	approvalToken, err := model.ParseApprovalToken(stringClaim(token, linkTokenClaim))
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidLink, "link carries no valid approval token")
	}
	decision, err := types.ParseDecision(stringClaim(token, linkDecisionClaim))
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidLink, "link carries no valid decision")
	}

	recipient, err := loadProfile(ctx, uc.repo, token.Subject())
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, goerr.Wrap(ErrInvalidLink, "link recipient no longer exists")
		}
		return nil, err
	}

	d, err := uc.resolveToken(ctx, approvalToken)
	if err != nil {
		return nil, err
	}

	versionID := stringClaim(token, linkVersionClaim)
	if versionID == "" || versionID != d.PendingVersion().ID {
		return nil, goerr.Wrap(ErrInvalidLink, "link was issued for another version",
			goerr.V(DeliverableIDKey, d.ID), goerr.V("version_id", versionID))
	}

	return &EmailLink{Deliverable: d, Decision: decision, Recipient: recipient, VersionID: versionID}, nil
}

// DecideByEmail applies the decision of a signed link as its recipient
func (uc *ApprovalUseCase) DecideByEmail(ctx context.Context, input EmailInput) (*model.Deliverable, error) {
	link, err := uc.VerifyEmailLink(ctx, input.LinkToken)
	if err != nil {
		metrics.DecisionsTotal.WithLabelValues(types.SignerMethodEmail.String(), metrics.ResultRejected).Inc()
		return nil, err
	}

	reason := strings.TrimSpace(input.Reason)
	if link.Decision == types.DecisionReject && reason == "" {
		reason = model.DefaultRejectReason
	}

	d, err := uc.decide(ctx, auth.FromProfile(link.Recipient), model.ApprovalDecision{
		DeliverableID: link.Deliverable.ID,
		Decision:      link.Decision,
		Reason:        reason,
		VersionID:     link.VersionID,
		Signer: model.Signer{
			SignerID:  link.Recipient.ID,
			Method:    types.SignerMethodEmail,
			IPAddress: input.IPAddress,
			UserAgent: input.UserAgent,
		},
	})
	if errors.Is(err, model.ErrVersionMismatch) {
		return nil, goerr.Wrap(ErrInvalidLink, "link was issued for another version",
			goerr.V(DeliverableIDKey, link.Deliverable.ID), goerr.V("version_id", link.VersionID))
	}
	return d, err
}

// DecideByWhatsApp parses an inbound message and applies it as the profile
// registered with the sender's phone number
func (uc *ApprovalUseCase) DecideByWhatsApp(ctx context.Context, input WhatsAppInput) (*model.Deliverable, error) {
	cmd, err := model.ParseWhatsAppCommand(input.Text)
	if err != nil {
		metrics.DecisionsTotal.WithLabelValues(types.SignerMethodWhatsApp.String(), metrics.ResultRejected).Inc()
		return nil, err
	}

	d, err := uc.resolveToken(ctx, cmd.Token)
	if err != nil {
		metrics.DecisionsTotal.WithLabelValues(types.SignerMethodWhatsApp.String(), metrics.ResultRejected).Inc()
		return nil, err
	}

	sender, err := uc.repo.Profile().GetByPhone(ctx, input.From)
	if err != nil {
		metrics.DecisionsTotal.WithLabelValues(types.SignerMethodWhatsApp.String(), metrics.ResultRejected).Inc()
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, goerr.Wrap(ErrAccessDenied, "sender is not a known user", goerr.V("from", input.From))
		}
		return nil, backendError(err, "failed to look up sender", goerr.V("from", input.From))
	}

	return uc.decide(ctx, auth.FromProfile(sender), model.ApprovalDecision{
		DeliverableID: d.ID,
		Decision:      cmd.Decision,
		Reason:        cmd.Reason,
		Signer: model.Signer{
			SignerID: sender.ID,
			Method:   types.SignerMethodWhatsApp,
		},
	})
}

// Reply is the WhatsApp answer to a message handled by DecideByWhatsApp
func Reply(d *model.Deliverable, err error) string {
	switch {
	case err == nil:
		return confirmation(d)
	case errors.Is(err, model.ErrTokenMissing):
		return `Please include the approval code of the deliverable, e.g. "APPROVE APP-1A2B3C" or "REJECT APP-1A2B3C <reason>".`
	case errors.Is(err, model.ErrAmbiguousCommand):
		return `Please reply with either APPROVE or REJECT followed by a single approval code, e.g. "APPROVE APP-1A2B3C".`
	case errors.Is(err, ErrTokenNotFound), errors.Is(err, model.ErrInvalidTransition):
		return "No deliverable is awaiting approval with this code. It may have been decided already."
	case errors.Is(err, ErrAccessDenied):
		return "This number is not allowed to approve this deliverable."
	case errors.Is(err, ErrStaleTransition):
		return "This deliverable was just updated by someone else. Please check the latest version before deciding."
	default:
		return "Sorry, your reply could not be processed. Please try again later."
	}
}

func confirmation(d *model.Deliverable) string {
	label := ""
	if v := d.CurrentVersion(); v != nil {
		label = " " + v.Label
	}
	switch d.Status {
	case types.DeliverableStatusApproved:
		return fmt.Sprintf("Approved %s (%s%s). Thank you!", d.ApprovalToken, d.Title, label)
	case types.DeliverableStatusRejected:
		reason := ""
		if v := d.CurrentVersion(); v != nil {
			reason = v.RejectionReason
		}
		return fmt.Sprintf("Rejected %s (%s%s). Reason: %s", d.ApprovalToken, d.Title, label, reason)
	default:
		return fmt.Sprintf("Recorded your decision on %s (%s%s).", d.ApprovalToken, d.Title, label)
	}
}

func (uc *ApprovalUseCase) decide(ctx context.Context, session *auth.Session, decision model.ApprovalDecision) (*model.Deliverable, error) {
	method := decision.Signer.Method.String()
	d, err := uc.deliverables.Transition(ctx, session, decision.DeliverableID, decision.Event())
	if err != nil {
		result := metrics.ResultRejected
		switch {
		case errors.Is(err, ErrStaleTransition):
			result = metrics.ResultStale
		case errors.Is(err, ErrBackend):
			result = metrics.ResultError
		}
		metrics.DecisionsTotal.WithLabelValues(method, result).Inc()
		return nil, err
	}
	metrics.DecisionsTotal.WithLabelValues(method, metrics.ResultOK).Inc()
	return d, nil
}

// resolveToken finds the deliverable a token refers to. Only deliverables in
// review with a pending version can be decided on from outside the app.
func (uc *ApprovalUseCase) resolveToken(ctx context.Context, token model.ApprovalToken) (*model.Deliverable, error) {
	d, err := uc.repo.Deliverable().GetByToken(ctx, token)
	if err != nil {
		return nil, notFoundOrBackend(err, ErrTokenNotFound, "deliverable for token", goerr.V(TokenKey, token))
	}
	if d.Status != types.DeliverableStatusReview || d.PendingVersion() == nil {
		return nil, goerr.Wrap(ErrTokenNotFound, "deliverable is not awaiting approval",
			goerr.V(TokenKey, token), goerr.V("status", d.Status))
	}
	return d, nil
}

func (uc *ApprovalUseCase) signLink(token model.ApprovalToken, versionID string, decision types.Decision, recipientID string, now, expiresAt time.Time) (string, error) {
	t, err := jwt.NewBuilder().
		Issuer(linkIssuer).
		Subject(recipientID).
		IssuedAt(now).
		Expiration(expiresAt).
		Claim(linkTokenClaim, token.String()).
		Claim(linkDecisionClaim, decision.String()).
		Claim(linkVersionClaim, versionID).
		Build()
	if err != nil {
		return "", goerr.Wrap(err, "failed to build link token")
	}

	signed, err := jwt.Sign(t, jwt.WithKey(jwa.HS256, uc.links.Secret))
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign link token")
	}
	return string(signed), nil
}
