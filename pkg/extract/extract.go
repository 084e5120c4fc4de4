// Package extract derives best-effort lead and summary values from raw
// transcript text. It is used only when the model did not report the data
// through its tools before the conversation ended.
//
// All functions are pure: the same message sequence always yields the same
// result.
package extract

import (
	"regexp"
	"strings"

	"github.com/haivivi/voiceagent/pkg/lead"
)

var (
	emailPattern = regexp.MustCompile(`(?i)[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}`)
	phonePattern = regexp.MustCompile(`(?:\+?1[-.\s]?)?\(?[0-9]{3}\)?[-.\s]?[0-9]{3}[-.\s]?[0-9]{4}`)

	// Introductions and company phrasings match in any case; a spoken
	// "my name is dana" is as common in transcripts as the capitalized form.
	// The "X here" phrasing alone needs a capitalized name.
	namePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:my name is|i'm|i am|this is|call me)\s+([a-z]{2,}(?:\s+[a-z]{2,})?)`),
		regexp.MustCompile(`(?i)\b(?:it's|it is)\s+([a-z]{2,}(?:\s+[a-z]{2,})?)\s+(?:here|speaking|calling)`),
		regexp.MustCompile(`\b([A-Z][a-z]{2,}(?:\s+[A-Z][a-z]{2,})?)\s+(?i:here|speaking)\b`),
	}

	companyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:work for|work at|from|with|at)\s+([a-z][a-z0-9\s&]+?)(?:\.|,|$|\s+and\b|\s+i\b)`),
		regexp.MustCompile(`(?i)\b(?:company is|business is)\s+([a-z][a-z0-9\s&]+?)(?:\.|,|$)`),
	}
)

// notNames holds words that introduction phrasings frequently capture but
// which are never a caller's name.
var notNames = map[string]bool{
	"yes": true, "no": true, "ok": true, "okay": true, "sure": true,
	"thanks": true, "thank": true, "you": true, "please": true, "hello": true,
	"hi": true, "hey": true, "good": true, "great": true, "fine": true,
	"well": true, "her": true, "him": true, "them": true, "tomorrow": true,
	"today": true, "tonight": true, "now": true, "here": true, "there": true,
	"this": true, "that": true, "the": true, "sorry": true, "interested": true,
	"call": true, "back": true, "morning": true, "afternoon": true,
	"evening": true, "night": true, "time": true, "available": true,
	"free": true, "busy": true, "just": true, "not": true, "looking": true,
	"calling": true, "monday": true, "tuesday": true, "wednesday": true,
	"thursday": true, "friday": true, "saturday": true, "sunday": true,
	"next": true, "week": true, "really": true, "actually": true,
	"going": true, "trying": true, "wondering": true, "hoping": true,
	"planning": true, "thinking": true, "ready": true, "glad": true,
	"happy": true, "curious": true, "also": true, "still": true,
	"very": true, "about": true, "with": true, "from": true,
	"excited": true, "pleased": true, "unsure": true, "open": true,
}

// notNameParts ends a two-word name candidate at a connecting word, so
// "dana and" yields "Dana".
var notNameParts = map[string]bool{
	"and": true, "but": true, "or": true, "so": true, "my": true,
	"from": true, "with": true, "at": true, "here": true, "speaking": true,
	"calling": true, "the": true, "an": true, "to": true, "for": true,
	"in": true, "on": true, "of": true, "is": true,
}

// notCompanies holds first words a company phrasing captures when the
// caller is not naming a business ("help with my website").
var notCompanies = map[string]bool{
	"my": true, "our": true, "your": true, "the": true, "a": true, "an": true,
	"this": true, "that": true, "it": true, "me": true, "us": true,
	"you": true, "them": true, "home": true, "work": true, "school": true,
	"least": true, "all": true, "some": true, "any": true, "first": true,
	"last": true, "once": true, "night": true, "noon": true,
}

const (
	minCompanyLen = 3
	maxCompanyLen = 49
)

// Lead extracts contact fields from caller-authored messages.
func Lead(messages []lead.Message) lead.Data {
	text := callerText(messages)
	var d lead.Data
	if m := emailPattern.FindString(text); m != "" {
		d.Email = m
	}
	if m := phonePattern.FindString(text); m != "" {
		d.Phone = strings.TrimSpace(m)
	}
	d.Name = findName(text)
	d.Company = findCompany(text)
	return d
}

func findName(text string) string {
	for _, p := range namePatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			words := strings.Fields(m[1])
			if len(words) == 0 || notNames[strings.ToLower(words[0])] || len(words[0]) < 3 {
				continue
			}
			if len(words) > 1 && (notNameParts[strings.ToLower(words[1])] || notNames[strings.ToLower(words[1])] || len(words[1]) < 3) {
				words = words[:1]
			}
			return titleCase(strings.Join(words, " "))
		}
	}
	return ""
}

func findCompany(text string) string {
	for _, p := range companyPatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			candidate := strings.TrimSpace(m[1])
			if len(candidate) < minCompanyLen || len(candidate) > maxCompanyLen {
				continue
			}
			first, _, _ := strings.Cut(candidate, " ")
			first = strings.ToLower(first)
			if notCompanies[first] || notNames[first] {
				continue
			}
			return titleCase(candidate)
		}
	}
	return ""
}

// titleCase capitalizes each word of an all-lowercase phrase. Text with any
// capital letter is kept as spoken.
func titleCase(s string) string {
	if strings.ToLower(s) != s {
		return s
	}
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func callerText(messages []lead.Message) string {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		if m.Role == lead.RoleUser {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, " ")
}
