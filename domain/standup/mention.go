package standup

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
)

const (
	vacationTrigger  = "vacation: <@"
	adminSkipTrigger = "skip: <@"
)

// MentionScanner finds every "vacation: <@ID>" and "skip: <@ID>" in a message.
type MentionScanner struct {
	matcher *goahocorasick.Machine
}

func NewMentionScanner() (MentionScanner, error) {
	m := new(goahocorasick.Machine)
	if err := m.Build([][]rune{[]rune(vacationTrigger), []rune(adminSkipTrigger)}); err != nil {
		return MentionScanner{}, err
	}
	return MentionScanner{matcher: m}, nil
}

// Scan returns mentions in order of appearance. Matching is case insensitive,
// ids are read from the original text so they keep their case.
func (s MentionScanner) Scan(text string) []Mention {
	original := []rune(text)
	lowered := make([]rune, len(original))
	for i, r := range original {
		lowered[i] = unicode.ToLower(r)
	}

	var mentions []Mention
	for _, term := range s.matcher.MultiPatternSearch(lowered, false) {
		kind := KindAdminSkip
		if string(term.Word) == vacationTrigger {
			kind = KindVacation
		}
		target := readMemberID(original[term.Pos+len(term.Word):])
		if target == "" {
			continue
		}
		mentions = append(mentions, Mention{Kind: kind, Target: target})
	}
	return mentions
}

// readMemberID reads "U123>" or "U123|name>" and returns U123.
func readMemberID(rest []rune) MemberID {
	for i, r := range rest {
		if r == '>' || r == '|' {
			return MemberID(rest[:i])
		}
		if unicode.IsSpace(r) {
			return ""
		}
	}
	return ""
}
