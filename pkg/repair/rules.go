package repair

import (
	"strings"
	"unicode"

	"github.com/matzehuels/flowmend/pkg/workflow"
)

// primaryPort marks a target handle synonym that maps to the target node's
// primary input port rather than to a fixed name.
const primaryPort = "@primary"

// SourceHandleSynonyms maps semantic field names emitted by generators to
// canonical source ports. Keys are lower-case.
var SourceHandleSynonyms = map[string]string{
	"data":     workflow.HandleOutput,
	"message":  workflow.HandleOutput,
	"result":   workflow.HandleOutput,
	"response": workflow.HandleOutput,
	"body":     workflow.HandleOutput,
	"out":      workflow.HandleOutput,
	"main":     workflow.HandleOutput,
	"yes":      workflow.HandleTrue,
	"no":       workflow.HandleFalse,
}

// TargetHandleSynonyms maps semantic field names to canonical target ports.
// Keys are lower-case.
var TargetHandleSynonyms = map[string]string{
	"data":       workflow.HandleInput,
	"text":       workflow.HandleInput,
	"content":    workflow.HandleInput,
	"body":       workflow.HandleInput,
	"in":         workflow.HandleInput,
	"main":       workflow.HandleInput,
	"user_input": primaryPort,
	"userinput":  primaryPort,
	"prompt":     primaryPort,
	"query":      primaryPort,
}

// Branch polarity keywords matched against whole words of a target node's
// label. Negative words are checked first so "not valid" reads as false.
var (
	NegativeBranchWords = []string{
		"false", "not", "no", "invalid", "reject", "rejected", "deny", "denied",
		"decline", "declined", "fail", "failed", "failure", "error",
	}
	PositiveBranchWords = []string{
		"true", "yes", "valid", "approve", "approved", "accept", "accepted",
		"success", "pass", "passed",
	}
)

// polarityFromLabel infers a branch polarity from label text. It returns ""
// when no keyword matches.
func polarityFromLabel(label string) string {
	words := strings.FieldsFunc(strings.ToLower(label), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if containsWord(words, NegativeBranchWords) {
		return workflow.HandleFalse
	}
	if containsWord(words, PositiveBranchWords) {
		return workflow.HandleTrue
	}
	return ""
}

func containsWord(words, keywords []string) bool {
	for _, w := range words {
		for _, k := range keywords {
			if w == k {
				return true
			}
		}
	}
	return false
}

func isPolarity(h string) bool {
	return h == workflow.HandleTrue || h == workflow.HandleFalse
}
