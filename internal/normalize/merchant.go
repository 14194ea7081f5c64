package normalize

import (
	"sort"
	"strings"
	"unicode"
)

// Payment-processor boilerplate and filler words that carry no merchant
// signal. Mirrors the vocabulary seen in Swiss and US card exports.
var stopwords = map[string]bool{
	"the": true, "and": true, "payment": true, "pending": true,
	"card": true, "karte": true, "transaction": true, "transaktions": true,
	"chf": true, "usd": true, "eur": true,
	"gmbh": true, "ltd": true, "company": true,
	"paypal": true, "pos": true, "tst": true, "sqc": true,
	"debit": true, "credit": true, "purchase": true,
}

// Processor prefixes stripped from the front of a description when merchant
// text follows them ("PAYPAL *NETFLIX" -> "netflix").
var processorPrefixes = []string{"paypal", "pp", "sq", "tst", "pos", "sumup", "zettle"}

// Token derives the normalized merchant token from a raw description:
// lower-cased, punctuation collapsed, processor prefixes and trailing numeric
// reference groups removed.
func Token(description string) string {
	words := splitWords(description)
	words = stripProcessorPrefix(words)
	words = stripReferenceSuffix(words)

	kept := words[:0]
	for _, w := range words {
		if w == "pending" {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// Fields returns the sorted, de-duplicated token set used for token-pattern
// rule matching: alphanumeric runs of 3+ characters, minus stopwords and
// pure numbers.
func Fields(description string) []string {
	seen := make(map[string]bool)
	for _, w := range splitWords(description) {
		if len(w) < 3 || stopwords[w] || allDigits(w) {
			continue
		}
		seen[w] = true
	}
	fields := make([]string, 0, len(seen))
	for w := range seen {
		fields = append(fields, w)
	}
	sort.Strings(fields)
	return fields
}

// splitWords lower-cases and splits on anything that is not a letter, digit,
// or in-word dot ("netflix.com" stays one word).
func splitWords(s string) []string {
	lower := strings.ToLower(s)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.'
	})
	out := words[:0]
	for _, w := range words {
		w = strings.Trim(w, ".")
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

func stripProcessorPrefix(words []string) []string {
	if len(words) < 2 {
		return words
	}
	for _, prefix := range processorPrefixes {
		if words[0] == prefix {
			return words[1:]
		}
	}
	return words
}

// stripReferenceSuffix drops trailing words that look like transaction
// reference numbers: all digits, or long digit-heavy codes.
func stripReferenceSuffix(words []string) []string {
	end := len(words)
	for end > 1 {
		w := words[end-1]
		if allDigits(w) || (len(w) > 6 && digitCount(w)*2 > len(w)) {
			end--
			continue
		}
		break
	}
	return words[:end]
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
