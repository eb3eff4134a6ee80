package tools

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Task is one actionable item lifted out of free-form meeting text.
type Task struct {
	Title      string  `json:"title"`
	Owner      string  `json:"owner"`
	Due        string  `json:"due"`
	Raw        string  `json:"raw"`
	Confidence float64 `json:"confidence"`
}

// minActionConfidence is the score below which a sentence is not considered
// actionable.
const minActionConfidence = 0.3

// namePattern matches one or two capitalized-ish words, the shape people
// names take in meeting notes.
const namePattern = `[A-Za-z][a-zA-Z\-]+(?:\s+[A-Za-z][a-zA-Z\-]+)?`

var ownerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)owner:\s*(` + namePattern + `)`),
	regexp.MustCompile(`(?i)assign(?:ed)?(?: to)?\s+(` + namePattern + `)`),
	regexp.MustCompile(`^\s*(` + namePattern + `)\s*,\s+`),
	regexp.MustCompile(`(` + namePattern + `)\s*\(`),
	regexp.MustCompile(`([A-Za-z][a-zA-Z\-]+)\s+(?:will|shall|should|can|must)\b`),
	regexp.MustCompile(`(?i)\b([A-Za-z][a-zA-Z\-]+)\s*,?\s+to\s+\w+`),
}

// ownerBlacklist rejects candidates that are really verbs, articles, or
// collective nouns rather than assignees.
var ownerBlacklist = map[string]struct{}{
	"needs": {}, "need": {}, "requires": {}, "require": {}, "should": {},
	"could": {}, "would": {}, "will": {}, "must": {}, "may": {}, "maybe": {},
	"the": {}, "a": {}, "an": {}, "this": {}, "that": {}, "to": {}, "be": {},
	"based": {}, "user": {}, "users": {}, "team": {}, "client": {},
	"clients": {}, "workflow": {}, "we": {}, "us": {},
}

var (
	dueByRe        = regexp.MustCompile(`(?i)by\s+([A-Z][a-z]+\b|\d{1,2}/\d{1,2}/\d{2,4}|\d{4}-\d{2}-\d{2})`)
	dueOnRe        = regexp.MustCompile(`(?i)due\s+(on\s+)?([A-Z][a-z]+\b|\d{1,2}/\d{1,2}/\d{2,4})`)
	dueInRe        = regexp.MustCompile(`(?i)in\s+(\d+)\s+days?`)
	dueWithinRe    = regexp.MustCompile(`(?i)within\s+(\d+)\s+days?`)
	dueFromNowRe   = regexp.MustCompile(`(?i)(\d+)\s+days?\s+from\s+now`)
	dueTomorrowRe  = regexp.MustCompile(`(?i)tomorrow\b`)
	dueTodayRe     = regexp.MustCompile(`(?i)today\b`)
	dueEndOfWeekRe = regexp.MustCompile(`(?i)end\s+of\s+week|end\s+of\s+this\s+week|by\s+end\s+of\s+week`)
)

// conditionalMarkers disqualify hypothetical phrasing outright; a sentence
// weighing options is not a commitment.
var conditionalMarkers = []string{" if ", " might ", " could ", " maybe ", " may ", " if we ", "when we ", "when the "}

var strongVerbs = []string{
	"assign", "implement", "create", "prepare", "fix", "verify", "test",
	"review", "document", "schedule", "deliver", "investigate",
	"follow up", "follow-up", "follow-up:",
}

var imperativeVerbs = map[string]struct{}{
	"prepare": {}, "create": {}, "assign": {}, "investigate": {},
	"implement": {}, "fix": {}, "verify": {}, "test": {}, "review": {},
	"document": {}, "schedule": {},
}

var (
	imperativeStartRe = regexp.MustCompile(`^([A-Za-z]+)\s`)
	speakerPrefixRe   = regexp.MustCompile(`^[A-Za-z]+\s*\([^\)]*\):?\s*`)
	whitespaceRe      = regexp.MustCompile(`\s+`)
)

// ExtractTasks mines up to maxTasks actionable items from free-form text
// using deterministic owner, due-date, and verb heuristics. A sentence that
// yields nothing is simply not a task; there is no error path.
func ExtractTasks(text string, maxTasks int) []Task {
	if maxTasks <= 0 {
		return nil
	}
	var tasks []Task
	for _, sent := range splitSentences(text) {
		score := scoreActionSentence(sent)
		if score < minActionConfidence {
			continue
		}
		title := strings.TrimSpace(speakerPrefixRe.ReplaceAllString(sent, ""))
		if utf8.RuneCountInString(title) > 200 {
			head := string([]rune(title)[:197])
			title = strings.TrimRightFunc(head, unicode.IsSpace) + "..."
		}
		tasks = append(tasks, Task{
			Title:      title,
			Owner:      findOwner(sent),
			Due:        findDue(sent),
			Raw:        sent,
			Confidence: math.Round(score*100) / 100,
		})
		if len(tasks) >= maxTasks {
			break
		}
	}
	return tasks
}

// splitSentences collapses whitespace and cuts after sentence-ending
// punctuation followed by a space.
func splitSentences(text string) []string {
	txt := strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
	if txt == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i+1 < len(txt); i++ {
		c := txt[i]
		if (c == '.' || c == '?' || c == '!') && txt[i+1] == ' ' {
			if s := strings.TrimSpace(txt[start : i+1]); s != "" {
				out = append(out, s)
			}
			start = i + 2
		}
	}
	if s := strings.TrimSpace(txt[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// findOwner tries the owner patterns in precedence order and returns the
// first candidate that survives validation, or "".
func findOwner(sentence string) string {
	for _, re := range ownerPatterns {
		m := re.FindStringSubmatch(sentence)
		if m == nil {
			continue
		}
		cand := strings.TrimSpace(m[1])
		if len(cand) <= 1 {
			continue
		}
		if _, banned := ownerBlacklist[strings.ToLower(cand)]; banned {
			continue
		}
		return cand
	}
	return ""
}

// findDue extracts a deadline from the sentence: explicit dates and weekday
// words pass through verbatim, relative phrases resolve against today to an
// ISO date. Returns "" when nothing matches.
func findDue(sentence string) string {
	if m := dueByRe.FindStringSubmatch(sentence); m != nil {
		return m[1]
	}
	if m := dueOnRe.FindStringSubmatch(sentence); m != nil {
		return m[2]
	}
	today := time.Now()
	for _, re := range []*regexp.Regexp{dueInRe, dueWithinRe, dueFromNowRe} {
		m := re.FindStringSubmatch(sentence)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			return isoDate(today.AddDate(0, 0, n))
		}
	}
	if dueTomorrowRe.MatchString(sentence) {
		return isoDate(today.AddDate(0, 0, 1))
	}
	if dueTodayRe.MatchString(sentence) {
		return isoDate(today)
	}
	if dueEndOfWeekRe.MatchString(sentence) {
		// Monday-based weekday; the week closes on Sunday.
		weekday := (int(today.Weekday()) + 6) % 7
		return isoDate(today.AddDate(0, 0, 6-weekday))
	}
	return ""
}

func isoDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// scoreActionSentence rates how actionable a sentence is on [0,1]: owner
// +0.4, due date +0.2, strong verb +0.3, imperative opener +0.1, with a
// -0.2 penalty past 400 characters. Conditional phrasing scores zero.
func scoreActionSentence(sentence string) float64 {
	s := strings.TrimSpace(sentence)
	if s == "" {
		return 0
	}
	low := strings.ToLower(s)

	if strings.HasPrefix(low, "if ") {
		return 0
	}
	for _, marker := range conditionalMarkers {
		if strings.Contains(low, marker) {
			return 0
		}
	}

	score := 0.0
	if findOwner(s) != "" {
		score += 0.4
	}
	if findDue(s) != "" {
		score += 0.2
	}
	for _, v := range strongVerbs {
		if strings.Contains(low, v) {
			score += 0.3
			break
		}
	}
	if m := imperativeStartRe.FindStringSubmatch(s); m != nil {
		if _, ok := imperativeVerbs[strings.ToLower(m[1])]; ok {
			score += 0.1
		}
	}
	if len(s) > 400 {
		score = math.Max(0, score-0.2)
	}
	return math.Min(score, 1.0)
}
