// Package prompt builds generation requests from brand profiles.
//
// Prompt wording lives in text templates under templates/, embedded at
// compile time. The wording fixes the "POST #<n>" and "GRAPHIC:" delimiters
// the parser relies on, so template edits must keep them intact.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/BTreeMap/PostPipe/internal/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Generation sizing constants
const (
	// CalendarOvergenerationFactor is how many posts are requested per post the caller wants.
	CalendarOvergenerationFactor = 2
	// MaxArticleLength is the longest article text sent to the backend, in characters.
	MaxArticleLength = 8000
	// ArticleTruncationSuffix is appended to truncated article text.
	ArticleTruncationSuffix = "... [article truncated]"
	// MaxOutputTokens caps the output-token ceiling of any request.
	MaxOutputTokens = 4096
	// RefineMaxTokens is the ceiling for post and combined refinements.
	RefineMaxTokens = 1000
	// RefineGraphicMaxTokens is the ceiling for graphic-only refinements.
	RefineGraphicMaxTokens = 500

	calendarTokensPerPost = 300
	articleTokensPerPost  = 350
	baseTokens            = 500
)

// Mode selects the transport the generation client uses for a prompt.
type Mode int

const (
	// ModeText is a plain chat completion.
	ModeText Mode = iota
	// ModeWeb requires the backend to incorporate the content at URL.
	ModeWeb
)

// String returns the log-friendly name of the mode.
func (m Mode) String() string {
	if m == ModeWeb {
		return "web"
	}
	return "text"
}

// Prompt is a fully assembled generation request.
type Prompt struct {
	System         string
	User           string
	RequestedCount int // posts the backend is asked for
	MaxTokens      int
	Mode           Mode
	URL            string // set for ModeWeb
}

// CalendarRequest holds the parameters of a calendar batch.
type CalendarRequest struct {
	Focus          string
	PostsPerPeriod int
	SpecialEvents  string
}

// ArticleRequest holds the parameters of an article batch. At least one of
// ArticleText and WebsiteURL must be set.
type ArticleRequest struct {
	ArticleText string
	WebsiteURL  string
	Count       int
}

// Opts holds configuration for a Builder.
type Opts struct {
	Now func() time.Time
}

// Option configures a Builder.
type Option func(*Opts)

// WithClock overrides the clock used to pick the calendar month.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) {
		o.Now = now
	}
}

// Builder renders calendar, article, and refinement prompts.
type Builder struct {
	tmpl *template.Template
	now  func() time.Time
}

// NewBuilder parses the embedded templates.
func NewBuilder(opts ...Option) *Builder {
	cfg := Opts{Now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Builder{
		tmpl: template.Must(template.ParseFS(templateFS, "templates/*.tmpl")),
		now:  cfg.Now,
	}
}

// Calendar builds the prompt for a calendar batch. The backend is asked for
// CalendarOvergenerationFactor times the caller's count.
func (b *Builder) Calendar(brand *models.Brand, req CalendarRequest) (Prompt, error) {
	if brand == nil {
		return Prompt{}, fmt.Errorf("%w: %w", models.ErrInvalidInput, models.ErrMissingBrand)
	}
	if req.PostsPerPeriod < 1 || req.PostsPerPeriod > models.MaxPostsPerPeriod {
		return Prompt{}, fmt.Errorf("%w: %w: %d", models.ErrInvalidInput, models.ErrInvalidPostCount, req.PostsPerPeriod)
	}
	if len(req.Focus) > models.MaxFocusLength {
		return Prompt{}, fmt.Errorf("%w: %w", models.ErrInvalidInput, models.ErrFocusTooLong)
	}

	now := b.now()
	count := req.PostsPerPeriod * CalendarOvergenerationFactor
	data := map[string]interface{}{
		"Brand":         brand,
		"Count":         count,
		"Focus":         req.Focus,
		"SpecialEvents": strings.TrimSpace(req.SpecialEvents),
		"Month":         now.Month().String(),
		"Year":          now.Year(),
		"Weekdays":      WeekdaysInMonth(now.Year(), now.Month()),
	}

	system, err := b.render("calendar_system.tmpl", data)
	if err != nil {
		return Prompt{}, err
	}
	user, err := b.render("calendar_user.tmpl", data)
	if err != nil {
		return Prompt{}, err
	}

	slog.Debug("Builder.Calendar: built calendar prompt", "brand", brand.Name, "postsPerPeriod", req.PostsPerPeriod, "requested", count)
	return Prompt{
		System:         system,
		User:           user,
		RequestedCount: count,
		MaxTokens:      tokenCeiling(count, calendarTokensPerPost),
		Mode:           ModeText,
	}, nil
}

// Article builds the prompt for an article batch. A URL without article
// text selects ModeWeb.
func (b *Builder) Article(brand *models.Brand, req ArticleRequest) (Prompt, error) {
	if brand == nil {
		return Prompt{}, fmt.Errorf("%w: %w", models.ErrInvalidInput, models.ErrMissingBrand)
	}
	text := strings.TrimSpace(req.ArticleText)
	url := strings.TrimSpace(req.WebsiteURL)
	if text == "" && url == "" {
		return Prompt{}, fmt.Errorf("%w: %w", models.ErrInvalidInput, models.ErrMissingSource)
	}
	if url != "" {
		if err := models.ValidateWebsiteURL(url); err != nil {
			return Prompt{}, fmt.Errorf("%w: %w", models.ErrInvalidInput, err)
		}
	}
	if req.Count < 1 || req.Count > models.MaxArticlePosts {
		return Prompt{}, fmt.Errorf("%w: %w: %d", models.ErrInvalidInput, models.ErrInvalidPostCount, req.Count)
	}

	data := map[string]interface{}{
		"Brand":       brand,
		"Count":       req.Count,
		"URL":         url,
		"ArticleText": TruncateArticle(text),
	}
	system, err := b.render("article_system.tmpl", data)
	if err != nil {
		return Prompt{}, err
	}
	user, err := b.render("article_user.tmpl", data)
	if err != nil {
		return Prompt{}, err
	}

	mode := ModeText
	if text == "" {
		mode = ModeWeb
	}
	slog.Debug("Builder.Article: built article prompt", "brand", brand.Name, "count", req.Count, "mode", mode.String(), "textLength", len(text))
	return Prompt{
		System:         system,
		User:           user,
		RequestedCount: req.Count,
		MaxTokens:      tokenCeiling(req.Count, articleTokensPerPost),
		Mode:           mode,
		URL:            url,
	}, nil
}

// Refine builds the prompt for a single-post refinement.
func (b *Builder) Refine(post models.Post, feedback string, target models.RefineTarget) (Prompt, error) {
	var systemName string
	maxTokens := RefineMaxTokens
	switch target {
	case models.RefineBoth:
		systemName = "refine_both.tmpl"
	case models.RefinePost:
		systemName = "refine_post.tmpl"
	case models.RefineGraphic:
		systemName = "refine_graphic.tmpl"
		maxTokens = RefineGraphicMaxTokens
	default:
		return Prompt{}, fmt.Errorf("%w: unknown refine target %q", models.ErrInvalidInput, target)
	}

	data := map[string]interface{}{
		"Post":     post,
		"Feedback": strings.TrimSpace(feedback),
		"Target":   string(target),
	}
	system, err := b.render(systemName, data)
	if err != nil {
		return Prompt{}, err
	}
	user, err := b.render("refine_user.tmpl", data)
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{
		System:         system,
		User:           user,
		RequestedCount: 1,
		MaxTokens:      maxTokens,
		Mode:           ModeText,
	}, nil
}

func (b *Builder) render(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := b.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Builder.render: template execution failed", "template", name, "error", err)
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// TruncateArticle shortens article text to MaxArticleLength characters.
func TruncateArticle(text string) string {
	if utf8.RuneCountInString(text) <= MaxArticleLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:MaxArticleLength]) + ArticleTruncationSuffix
}

// WeekdaysInMonth counts Monday–Friday dates in the given month.
func WeekdaysInMonth(year int, month time.Month) int {
	count := 0
	for d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC); d.Month() == month; d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	return count
}

func tokenCeiling(count, perPost int) int {
	n := perPost*count + baseTokens
	if n > MaxOutputTokens {
		return MaxOutputTokens
	}
	return n
}
