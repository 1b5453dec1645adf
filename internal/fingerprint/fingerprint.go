// Package fingerprint derives the comparable identity of an article: a content
// hash over the normalized body, a normalized title, and a capped set of key
// phrases. All functions are pure; empty input yields a valid, comparable value.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"unicode"
)

const (
	// MaxKeyPhrases bounds the phrase set so later overlap comparisons stay cheap.
	MaxKeyPhrases = 10
	// phraseWordCount is the n-gram width for key phrases.
	phraseWordCount = 3
	// minTokenLength filters out tokens too short to carry signal.
	minTokenLength = 3
)

// Fingerprint is the derived (hash, normalized title, key phrases) triple used
// for all duplicate comparisons.
type Fingerprint struct {
	ContentHash     string
	TitleNormalized string
	KeyPhrases      []string
	FingerprintHash string
}

// Compute derives a fingerprint from a raw title and body. HTML bodies are
// reduced to text before normalization.
func Compute(title, body string) Fingerprint {
	text := body
	if looksLikeHTML(body) {
		text = htmlToText(body)
	}

	normBody := NormalizeContent(text)
	normTitle := NormalizeTitle(title)
	phrases := ExtractKeyPhrases(normTitle, normBody)

	return Fingerprint{
		ContentHash:     hashString(normBody),
		TitleNormalized: normTitle,
		KeyPhrases:      phrases,
		FingerprintHash: hashString(normTitle + "\n" + strings.Join(phrases, "\n")),
	}
}

// hashString returns the hex-encoded SHA-256 of s.
func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// NormalizeContent case-folds and collapses all whitespace runs to single spaces.
func NormalizeContent(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// NormalizeTitle case-folds, strips punctuation, and removes stop words.
func NormalizeTitle(s string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)

	words := strings.Fields(stripped)
	kept := words[:0]
	for _, w := range words {
		if stopWords[w] {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// ExtractKeyPhrases builds the key-phrase set: stop-word-filtered word trigrams
// over the normalized body (title tokens are used when the body is too short),
// ranked by frequency and then by first occurrence, capped at MaxKeyPhrases.
func ExtractKeyPhrases(normTitle, normBody string) []string {
	tokens := contentTokens(normBody)
	if len(tokens) < phraseWordCount {
		tokens = append(contentTokens(normTitle), tokens...)
	}
	if len(tokens) < phraseWordCount {
		return nil
	}

	type phraseStat struct {
		phrase string
		count  int
		first  int
	}

	stats := make(map[string]*phraseStat)
	order := make([]*phraseStat, 0)
	for i := 0; i+phraseWordCount <= len(tokens); i++ {
		phrase := strings.Join(tokens[i:i+phraseWordCount], " ")
		if st, ok := stats[phrase]; ok {
			st.count++
			continue
		}
		st := &phraseStat{phrase: phrase, count: 1, first: i}
		stats[phrase] = st
		order = append(order, st)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].count != order[j].count {
			return order[i].count > order[j].count
		}
		return order[i].first < order[j].first
	})

	limit := len(order)
	if limit > MaxKeyPhrases {
		limit = MaxKeyPhrases
	}
	phrases := make([]string, 0, limit)
	for _, st := range order[:limit] {
		phrases = append(phrases, st.phrase)
	}
	return phrases
}

// contentTokens splits normalized text into tokens worth keeping.
func contentTokens(s string) []string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) < minTokenLength || stopWords[w] {
			continue
		}
		kept = append(kept, w)
	}
	return kept
}
