package types

import (
	"fmt"
	"strings"
)

// SignerMethod is the channel through which a version was signed off
type SignerMethod string

const (
	SignerMethodInApp    SignerMethod = "in-app"
	SignerMethodWhatsApp SignerMethod = "whatsapp"
	SignerMethodEmail    SignerMethod = "email"
)

// AllSignerMethods returns all valid signer methods
func AllSignerMethods() []SignerMethod {
	return []SignerMethod{
		SignerMethodInApp,
		SignerMethodWhatsApp,
		SignerMethodEmail,
	}
}

// IsValid checks if the signer method is valid
func (m SignerMethod) IsValid() bool {
	switch m {
	case SignerMethodInApp,
		SignerMethodWhatsApp,
		SignerMethodEmail:
		return true
	default:
		return false
	}
}

// String returns the string representation of the signer method
func (m SignerMethod) String() string {
	return string(m)
}

// Decision is the outcome a reviewer chose for a pending version
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// IsValid checks if the decision is valid
func (d Decision) IsValid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// String returns the string representation of the decision
func (d Decision) String() string {
	return string(d)
}

// ParseDecision parses a decision case-insensitively
func ParseDecision(s string) (Decision, error) {
	d := Decision(strings.ToLower(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", fmt.Errorf("invalid decision: %s", s)
	}
	return d, nil
}
