// Package filter redacts personal contact details from message text before
// it is persisted. Filtering is deterministic: the same input always yields
// the same output.
package filter

import "regexp"

// RedactionToken replaces every matched contact detail.
const RedactionToken = "[contact hidden]"

// Match records one redacted fragment and the category that caught it.
type Match struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Result is the outcome of running the filter over a piece of text.
type Result struct {
	Filtered    string  `json:"filtered"`
	WasFiltered bool    `json:"was_filtered"`
	Matches     []Match `json:"matches,omitempty"`
}

type category struct {
	name string
	re   *regexp.Regexp
}

// Categories are applied in order and all of them always run; a single input
// may accumulate matches from several categories.
var categories = []category{
	// Phone numbers: contiguous local formats (010..., 02...) and
	// dashed/spaced/international groupings.
	{"phone", regexp.MustCompile(`(?:\+\d{1,3}[-. ]?)?(?:\(\d{2,4}\)[-. ]?)?\d{2,4}[-. ]\d{3,4}[-. ]\d{4}\b|\b0\d{8,10}\b|\+\d{9,13}\b`)},
	// Email addresses.
	{"email", regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)},
	// URLs and bare domains.
	{"url", regexp.MustCompile(`(?i)\bhttps?://[^\s]+|\bwww\.[^\s]+|\b[a-z0-9\-]+\.(?:com|net|org|io|co|kr|me|app)(?:/[^\s]*)?\b`)},
	// Social handles and "<platform>: name" mentions.
	{"social", regexp.MustCompile(`(?i)@[A-Za-z0-9_.]{3,}|\b(?:insta(?:gram)?|telegram|whatsapp|kakao(?:talk)?|twitter|snap(?:chat)?)\s*[:\-]?\s*[A-Za-z0-9_.]{2,}`)},
	// "call/text/contact me (at) <digits>" prompts that slip past the
	// plain phone patterns.
	{"contact_prompt", regexp.MustCompile(`(?i)\b(?:call|text|contact|reach)\s+me\s+(?:at\s+|on\s+)?\+?[\d][\d\-. ]{6,}`)},
}

// Apply runs every category over text, replacing all matches with the
// redaction token. It never consults external state.
func Apply(text string) Result {
	res := Result{Filtered: text}
	for _, c := range categories {
		found := c.re.FindAllString(res.Filtered, -1)
		if len(found) == 0 {
			continue
		}
		for _, f := range found {
			res.Matches = append(res.Matches, Match{Category: c.name, Text: f})
		}
		res.Filtered = c.re.ReplaceAllString(res.Filtered, RedactionToken)
		res.WasFiltered = true
	}
	return res
}
