package model

import (
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/nexaflow/nexaflow/pkg/domain/types"
)

// DefaultRejectReason is recorded when a rejection arrives without any explanation
const DefaultRejectReason = "No reason provided"

var (
	commandTokenPattern = regexp.MustCompile(`(?i)\bAPP-[A-Z0-9]{6}\b`)
	rejectPrefixPattern = regexp.MustCompile(`(?i)\breject\w*\b[\s:,\-]*APP-[A-Z0-9]{6}\b`)
	rejectWordPattern   = regexp.MustCompile(`(?i)\breject\w*\b`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
)

// reasonSeparators may sit between the command and the reason
const reasonSeparators = " \t\r\n:,-"

// WhatsAppCommand is a parsed approval reply
type WhatsAppCommand struct {
	Token    ApprovalToken
	Decision types.Decision
	Reason   string
}

// ParseWhatsAppCommand parses free text such as "APPROVE APP-1A2B3C" or
// "REJECT APP-1A2B3C colors are off". A message without a token never resolves
// to a deliverable, whatever sentiment it carries.
func ParseWhatsAppCommand(text string) (*WhatsAppCommand, error) {
	found := commandTokenPattern.FindAllString(text, -1)
	if len(found) == 0 {
		return nil, goerr.Wrap(ErrTokenMissing, "message does not quote an approval token")
	}

	token, err := ParseApprovalToken(found[0])
	if err != nil {
		return nil, err
	}
	for _, other := range found[1:] {
		if !strings.EqualFold(other, token.String()) {
			return nil, goerr.Wrap(ErrAmbiguousCommand, "message quotes more than one approval token",
				goerr.V(TokenKey, found))
		}
	}

	// The token itself may spell a command word, so search without it.
	words := strings.ToLower(commandTokenPattern.ReplaceAllString(text, " "))
	hasApprove := strings.Contains(words, "approve")
	hasReject := strings.Contains(words, "reject")
	if hasApprove == hasReject {
		return nil, goerr.Wrap(ErrAmbiguousCommand, "message must contain exactly one of approve or reject",
			goerr.V(TokenKey, token))
	}

	cmd := &WhatsAppCommand{Token: token, Decision: types.DecisionApprove}
	if hasReject {
		cmd.Decision = types.DecisionReject
		cmd.Reason = rejectReason(text)
	}
	return cmd, nil
}

func rejectReason(text string) string {
	var reason string
	if loc := rejectPrefixPattern.FindStringIndex(text); loc != nil {
		reason = text[loc[1]:]
	} else {
		reason = commandTokenPattern.ReplaceAllString(text, " ")
		reason = replaceFirst(rejectWordPattern, reason, " ")
	}

	reason = whitespacePattern.ReplaceAllString(reason, " ")
	reason = strings.TrimSpace(strings.TrimLeft(reason, reasonSeparators))
	if reason == "" {
		return DefaultRejectReason
	}
	return reason
}

func replaceFirst(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}
