// Package parser converts free-text model output into post records.
//
// Model output is not machine structured, so parsing is pattern based: a
// primary pass splits on "POST #<n>" header lines, and a paragraph scan is
// used as a fallback when the primary pass finds nothing. Callers depend on
// the Parser interface so the matching strategy can be swapped.
package parser

import (
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/BTreeMap/PostPipe/internal/models"
)

// Mode selects calendar or article parsing rules.
type Mode int

const (
	// ModeCalendar expects a date label on each post header.
	ModeCalendar Mode = iota
	// ModeArticle expects undated posts.
	ModeArticle
)

// String returns the log-friendly name of the mode.
func (m Mode) String() string {
	if m == ModeArticle {
		return "article"
	}
	return "calendar"
}

// Strategy names the pass that produced a result.
type Strategy string

const (
	StrategyPrimary  Strategy = "primary"
	StrategyFallback Strategy = "fallback"
	StrategyNone     Strategy = "none"
)

// Result holds the posts extracted from a response.
type Result struct {
	Posts    []models.Post
	Found    int // posts found before truncation
	Strategy Strategy
}

// Parser extracts post records from a raw model response.
type Parser interface {
	// ParseBatch returns at most expected posts in text order.
	ParseBatch(raw string, expected int, mode Mode) Result
	// ParseSingle splits a one-post response into content and graphic.
	// ok is false when no graphic delimiter was present.
	ParseSingle(raw string) (content, graphic string, ok bool)
}

var (
	// headerRe matches "POST #3" anywhere a word starts, tolerating markdown decoration.
	headerRe = regexp.MustCompile(`(?i)[ \t>*_#]*\bPOST\s*#\s*(\d+)`)
	// graphicRe matches the graphic delimiter line, e.g. "GRAPHIC:" or "**Graphic Concept:**".
	graphicRe = regexp.MustCompile(`(?im)^[ \t>*_#]*GRAPHIC(?:\s+CONCEPT)?[ \t*_]*:[ \t*_]*`)
	// inlineGraphicRe matches a graphic delimiter in the middle of a line.
	inlineGraphicRe = regexp.MustCompile(`(?i)[ \t*_]*\bGRAPHIC(?:\s+CONCEPT)?[ \t*_]*:[ \t*_]*`)
	// fallbackHeaderRe matches looser headers such as "Post 2 - Tuesday, May 6:".
	fallbackHeaderRe = regexp.MustCompile(`(?i)^[ \t>*_#]*post\s*#?\s*(\d+)\b(.*)$`)
	paragraphRe      = regexp.MustCompile(`\n[ \t]*\n`)
	ruleLineRe       = regexp.MustCompile(`^[\s\-*_=]+$`)
)

// RegexParser is the default Parser implementation.
type RegexParser struct{}

// New creates a RegexParser.
func New() *RegexParser {
	return &RegexParser{}
}

// ParseBatch runs the primary pass, falls back to the paragraph scan when it
// finds nothing, and truncates to expected posts.
func (p *RegexParser) ParseBatch(raw string, expected int, mode Mode) Result {
	raw = normalizeNewlines(raw)

	posts := parsePrimary(raw, mode)
	strategy := StrategyPrimary
	if len(posts) == 0 {
		slog.Warn("RegexParser.ParseBatch: primary parsing found no posts, trying fallback", "mode", mode.String(), "length", len(raw))
		posts = parseFallback(raw, mode)
		strategy = StrategyFallback
	}
	if len(posts) == 0 {
		strategy = StrategyNone
	}

	found := len(posts)
	if expected >= 0 && len(posts) > expected {
		posts = posts[:expected]
	}
	slog.Debug("RegexParser.ParseBatch: parsed response", "mode", mode.String(), "strategy", strategy, "found", found, "expected", expected, "kept", len(posts))
	return Result{Posts: posts, Found: found, Strategy: strategy}
}

// ParseSingle splits a refinement response into content and graphic.
func (p *RegexParser) ParseSingle(raw string) (string, string, bool) {
	raw = normalizeNewlines(raw)
	if loc := headerRe.FindStringSubmatchIndex(raw); loc != nil && strings.TrimSpace(raw[:loc[0]]) == "" {
		// Drop a leading "POST #1" header line if the model echoed one.
		rest := raw[loc[1]:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		} else {
			rest = ""
		}
		raw = rest
	}

	content, graphic, ok := splitGraphic(raw)
	return cleanText(content), cleanText(graphic), ok
}

// parsePrimary splits raw on POST #<n> headers. Headers need not start a line.
func parsePrimary(raw string, mode Mode) []models.Post {
	matches := headerRe.FindAllStringSubmatchIndex(raw, -1)
	var posts []models.Post
	for i, m := range matches {
		end := len(raw)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body, graphic, _ := splitGraphic(raw[m[1]:end])

		// The rest of the header line carries the date label (calendar) or
		// punctuation only (article).
		remainder, rest := body, ""
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			remainder, rest = body[:nl], body[nl+1:]
		}

		post, ok := buildPost(len(posts)+1, remainder, rest, graphic, mode)
		if !ok {
			slog.Debug("parsePrimary: skipping empty post body", "declared", raw[m[2]:m[3]])
			continue
		}
		posts = append(posts, post)
	}
	return posts
}

// buildPost assembles a post from its header remainder, body text and graphic.
func buildPost(number int, remainder, text, graphic string, mode Mode) (models.Post, bool) {
	date, lead := splitHeader(remainder, mode)
	if lead != "" {
		text = lead + "\n" + text
	}

	if mode == ModeCalendar && date == "" {
		date, text = extractDateLine(text)
	}

	content := cleanText(text)
	if content == "" {
		return models.Post{}, false
	}
	return models.NewPost(number, cleanLabel(date), content, cleanText(graphic)), true
}

// splitHeader separates the text after "POST #n" into a date label and any
// post text that followed on the same line.
func splitHeader(remainder string, mode Mode) (date, lead string) {
	s := strings.TrimSpace(StripMarkdown(remainder))
	colonLed := strings.HasPrefix(s, ":")
	s = strings.TrimLeft(s, "-–—:.) \t")
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}

	if mode == ModeArticle {
		return "", s
	}
	switch {
	case strings.HasSuffix(s, ":"):
		date = strings.TrimSpace(strings.TrimSuffix(s, ":"))
	case strings.Contains(s, ": "):
		idx := strings.Index(s, ": ")
		date, lead = strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+2:])
	default:
		date = s
	}

	// "POST #1: Big news today" carries post text, not a label.
	if colonLed && !looksLikeDate(date) {
		return "", s
	}
	return date, lead
}

// looksLikeDate reports whether a header label names a day.
func looksLikeDate(s string) bool {
	if ContainsMonth(s) || weekdayRe.MatchString(s+" ") {
		return true
	}
	_, ok := ParseDateLabel(s, time.Now())
	return ok
}

// extractDateLine pulls a date label out of the body when the header had
// none: the first line naming a month, otherwise the first non-empty line
// provided some content remains after it.
func extractDateLine(text string) (string, string) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if ContainsMonth(line) {
			return strings.TrimSpace(line), strings.Join(append(lines[:i:i], lines[i+1:]...), "\n")
		}
	}
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		remaining := strings.Join(lines[i+1:], "\n")
		if strings.TrimSpace(remaining) == "" {
			return "", text
		}
		return strings.TrimSpace(line), remaining
	}
	return "", text
}

// splitGraphic splits text at the first graphic delimiter line, or at an
// inline delimiter when no line starts with one.
func splitGraphic(text string) (content, graphic string, ok bool) {
	loc := graphicRe.FindStringIndex(text)
	if loc == nil {
		loc = inlineGraphicRe.FindStringIndex(text)
	}
	if loc == nil {
		return text, "", false
	}
	return text[:loc[0]], text[loc[1]:], true
}

// parseFallback scans blank-line separated paragraphs for post headers.
func parseFallback(raw string, mode Mode) []models.Post {
	var posts []models.Post
	var current *fallbackPost

	flush := func() {
		if current == nil {
			return
		}
		content := cleanText(current.content.String())
		if content != "" {
			posts = append(posts, models.NewPost(len(posts)+1, cleanLabel(current.date), content, cleanText(current.graphic.String())))
		}
		current = nil
	}

	for _, para := range paragraphRe.Split(raw, -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		firstLine, rest := para, ""
		if nl := strings.IndexByte(para, '\n'); nl >= 0 {
			firstLine, rest = para[:nl], para[nl+1:]
		}

		if m := fallbackHeaderRe.FindStringSubmatch(firstLine); m != nil {
			flush()
			date, lead := splitHeader(m[2], mode)
			current = &fallbackPost{date: date}
			current.appendContent(lead)
			current.appendSection(rest)
			continue
		}
		if current == nil {
			continue
		}
		current.appendSection(para)
	}
	flush()
	return posts
}

// fallbackPost accumulates paragraphs for one post during the fallback scan.
type fallbackPost struct {
	date      string
	content   strings.Builder
	graphic   strings.Builder
	inGraphic bool
}

// appendSection routes a block of text to content or graphic depending on
// whether a graphic delimiter has been seen.
func (f *fallbackPost) appendSection(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if !f.inGraphic {
		content, graphic, ok := splitGraphic(text)
		f.appendContent(content)
		if !ok {
			return
		}
		f.inGraphic = true
		text = graphic
	}
	appendParagraph(&f.graphic, text)
}

func (f *fallbackPost) appendContent(text string) {
	appendParagraph(&f.content, text)
}

func appendParagraph(b *strings.Builder, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString(text)
}

// cleanText trims, strips emphasis markup, and drops horizontal rules at the edges.
func cleanText(s string) string {
	lines := strings.Split(StripMarkdown(strings.TrimSpace(s)), "\n")
	for len(lines) > 0 && ruleLineRe.MatchString(lines[len(lines)-1]) {
		lines = lines[:len(lines)-1]
	}
	for len(lines) > 0 && ruleLineRe.MatchString(lines[0]) {
		lines = lines[1:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// cleanLabel normalizes a date label: no markdown, brackets, or trailing colon.
func cleanLabel(s string) string {
	s = strings.TrimSpace(StripMarkdown(s))
	s = strings.Trim(s, "[]()")
	s = strings.TrimSuffix(strings.TrimSpace(s), ":")
	return strings.TrimSpace(s)
}

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
