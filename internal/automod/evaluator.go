package automod

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/CreeperRick/Discord-Bot/internal/storage"
	"github.com/CreeperRick/Discord-Bot/internal/utils"
)

type Rule string

const (
	RuleBlacklist Rule = "blacklist"
	RuleLink      Rule = "link"
	RuleCaps      Rule = "caps"
	RuleDuplicate Rule = "duplicate"
)

// capsMinLength exempts short messages so acronyms don't trip the caps rule.
const capsMinLength = 5

type Message struct {
	GuildID  string
	AuthorID string
	Content  string
	FromBot  bool
}

// Verdict is the evaluator's decision for one message. The zero value is
// Allow.
type Verdict struct {
	Violation bool
	Rule      Rule
	Matched   string
}

func Allow() Verdict {
	return Verdict{}
}

func violation(rule Rule, matched string) Verdict {
	return Verdict{Violation: true, Rule: rule, Matched: matched}
}

// Evaluator checks a guild's content rules against one message. Rules run in
// fixed priority order and the first match wins. The evaluator never mutates
// the config; its only side effect is the injected fingerprint cache, which
// it updates after every evaluation, allowed or not.
type Evaluator struct {
	fingerprints *Fingerprints
	now          func() time.Time
}

func NewEvaluator(fingerprints *Fingerprints) *Evaluator {
	return &Evaluator{fingerprints: fingerprints, now: time.Now}
}

func (e *Evaluator) Evaluate(cfg storage.GuildConfig, msg Message) Verdict {
	if msg.FromBot {
		return Allow()
	}

	verdict := Allow()
	lowered := strings.ToLower(msg.Content)
	for _, word := range cfg.Blacklist {
		if word != "" && strings.Contains(lowered, word) {
			verdict = violation(RuleBlacklist, word)
			break
		}
	}

	if !verdict.Violation && cfg.LinkFilter {
		if url, ok := utils.FirstURL(msg.Content); ok {
			verdict = violation(RuleLink, url)
		}
	}

	if !verdict.Violation && cfg.CapsThreshold > 0 && utf8.RuneCountInString(msg.Content) >= capsMinLength {
		if ratio, ok := capsRatio(msg.Content); ok && ratio >= cfg.CapsThreshold {
			verdict = violation(RuleCaps, msg.Content)
		}
	}

	// The fingerprint is recorded on every message, even on a violation, so
	// duplicate detection always compares against the immediately preceding
	// message.
	duplicate := e.fingerprints.Observe(msg.GuildID, msg.AuthorID, msg.Content, e.now())
	if !verdict.Violation && duplicate {
		verdict = violation(RuleDuplicate, msg.Content)
	}

	return verdict
}

// capsRatio returns uppercase letters as a percentage of all letters.
// Non-letters count toward neither side; a message with no letters cannot
// trigger the rule.
func capsRatio(content string) (int, bool) {
	var letters, upper int
	for _, r := range content {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters == 0 {
		return 0, false
	}
	return upper * 100 / letters, true
}
