// Package intent recognises conversational filler so it can be answered
// without paying for retrieval.
package intent

import (
	"regexp"
	"strings"
)

// Intent is the kind of small talk a message was recognised as.
type Intent string

const (
	None      Intent = ""
	Greeting  Intent = "greeting"
	Thanks    Intent = "thanks"
	Farewell  Intent = "farewell"
	HowAreYou Intent = "how_are_you"
)

type rule struct {
	intent  Intent
	pattern *regexp.Regexp
}

// Patterns are anchored on both ends: only messages that are entirely small
// talk match. Order matters, first match wins.
var rules = []rule{
	{Greeting, regexp.MustCompile(`(?i)^(?:hi+|hello+|hey+|hiya|howdy|yo|greetings|hola|good\s+(?:morning|afternoon|evening|day))(?:\s+(?:there|all|everyone|team|bot))?[\s!.,?]*$`)},
	{HowAreYou, regexp.MustCompile(`(?i)^(?:(?:hi|hello|hey)[\s,!]+)?(?:how\s+are\s+(?:you|u)(?:\s+doing)?(?:\s+today)?|how'?s\s+it\s+going|how\s+is\s+it\s+going|what'?s\s+up|sup|how\s+do\s+you\s+do)[\s!.,?]*$`)},
	{Thanks, regexp.MustCompile(`(?i)^(?:thanks?(?:\s+(?:you|so\s+much|a\s+lot|again))*|thank\s+you(?:\s+(?:so\s+much|very\s+much|again))?|thx|ty|cheers|much\s+appreciated|appreciate\s+it)[\s!.,?]*$`)},
	{Farewell, regexp.MustCompile(`(?i)^(?:bye+|goodbye|good\s+bye|bye\s+bye|see\s+(?:you|ya)(?:\s+later)?|later|take\s+care|have\s+a\s+(?:good|nice|great)\s+(?:day|one|night|evening)|good\s+night)[\s!.,?]*$`)},
}

// Classify returns the intent of msg, or None when it is not small talk.
func Classify(msg string) Intent {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return None
	}
	for _, r := range rules {
		if r.pattern.MatchString(msg) {
			return r.intent
		}
	}
	return None
}

// IsConversational reports whether msg is greeting-style small talk.
func IsConversational(msg string) bool {
	return Classify(msg) != None
}
