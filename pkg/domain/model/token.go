package model

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// ApprovalToken is the short code a client quotes to approve or reject a deliverable
// from outside the application, e.g. "APP-1A2B3C".
type ApprovalToken string

const (
	approvalTokenPrefix = "APP-"
	approvalTokenLength = 6
)

var approvalTokenPattern = regexp.MustCompile(`^APP-[A-Z0-9]{6}$`)

// NewApprovalToken derives the token of a deliverable: "APP-" followed by the last
// six alphanumeric characters of the id, upper-cased. Ids shorter than six are
// left-padded with zeros.
func NewApprovalToken(deliverableID string) ApprovalToken {
	var b strings.Builder
	for _, r := range strings.ToUpper(deliverableID) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	chars := b.String()
	if len(chars) > approvalTokenLength {
		chars = chars[len(chars)-approvalTokenLength:]
	}
	if len(chars) < approvalTokenLength {
		chars = strings.Repeat("0", approvalTokenLength-len(chars)) + chars
	}
	return ApprovalToken(approvalTokenPrefix + chars)
}

// ParseApprovalToken validates a token case-insensitively and returns its canonical form.
func ParseApprovalToken(s string) (ApprovalToken, error) {
	t := strings.ToUpper(strings.TrimSpace(s))
	if !approvalTokenPattern.MatchString(t) {
		return "", goerr.Wrap(ErrInvalidToken, "malformed approval token", goerr.V(TokenKey, s))
	}
	return ApprovalToken(t), nil
}

// String returns the string representation of the token
func (t ApprovalToken) String() string {
	return string(t)
}
