package content

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/PostPipe/internal/models"
	"github.com/BTreeMap/PostPipe/internal/parser"
	"github.com/BTreeMap/PostPipe/internal/prompt"
)

// BatchResult is the outcome of a batch generation. Posts always has
// Requested entries unless Err is set, in which case it is empty.
type BatchResult struct {
	Posts     []models.Post
	Parsed    int // posts parsed from the response and kept
	Requested int // caller-visible count
	Internal  int // count requested from the backend
	Status    string
	Err       error
}

// Opts holds configuration for a Generator.
type Opts struct {
	Builder *prompt.Builder
	Parser  parser.Parser
}

// Option configures a Generator.
type Option func(*Opts)

// WithBuilder sets the prompt builder.
func WithBuilder(b *prompt.Builder) Option {
	return func(o *Opts) {
		o.Builder = b
	}
}

// WithParser sets the response parser.
func WithParser(p parser.Parser) Option {
	return func(o *Opts) {
		o.Parser = p
	}
}

// Generator produces post batches and single-post refinements.
type Generator struct {
	builder *prompt.Builder
	client  *GenerationClient
	parser  parser.Parser
}

// NewGenerator creates a Generator that sends prompts through client.
func NewGenerator(client *GenerationClient, opts ...Option) *Generator {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Builder == nil {
		cfg.Builder = prompt.NewBuilder()
	}
	if cfg.Parser == nil {
		cfg.Parser = parser.New()
	}
	return &Generator{builder: cfg.Builder, client: client, parser: cfg.Parser}
}

// GenerateCalendar generates postsPerPeriod dated posts for brand. The
// backend is asked for twice as many and the surplus is dropped.
func (g *Generator) GenerateCalendar(ctx context.Context, brand *models.Brand, focus string, postsPerPeriod int, specialEvents string) BatchResult {
	p, err := g.builder.Calendar(brand, prompt.CalendarRequest{
		Focus:          focus,
		PostsPerPeriod: postsPerPeriod,
		SpecialEvents:  specialEvents,
	})
	if err != nil {
		return invalidResult(postsPerPeriod, err)
	}
	slog.Debug("Generator.GenerateCalendar: generating", "brand", brand.Name, "focus", focus, "postsPerPeriod", postsPerPeriod, "internal", p.RequestedCount)
	return g.run(ctx, p, postsPerPeriod, parser.ModeCalendar)
}

// GenerateFromArticle generates count posts from article text, a URL, or
// both. A nil brand uses the generic brand profile.
func (g *Generator) GenerateFromArticle(ctx context.Context, brand *models.Brand, articleText, websiteURL string, count int) BatchResult {
	if brand == nil {
		brand = models.GenericBrand()
	}
	p, err := g.builder.Article(brand, prompt.ArticleRequest{
		ArticleText: articleText,
		WebsiteURL:  websiteURL,
		Count:       count,
	})
	if err != nil {
		return invalidResult(count, err)
	}
	slog.Debug("Generator.GenerateFromArticle: generating", "brand", brand.Name, "count", count, "mode", p.Mode.String())
	return g.run(ctx, p, count, parser.ModeArticle)
}

// run generates, parses, and fits the result to want posts.
func (g *Generator) run(ctx context.Context, p prompt.Prompt, want int, mode parser.Mode) BatchResult {
	result := BatchResult{Requested: want, Internal: p.RequestedCount}

	raw, err := g.client.Generate(ctx, p)
	if err != nil {
		result.Posts = []models.Post{}
		result.Err = err
		result.Status = fmt.Sprintf("Generation failed: %v", err)
		return result
	}

	parsed := g.parser.ParseBatch(raw, p.RequestedCount, mode)
	result.Posts = fitBatch(parsed.Posts, want)
	result.Parsed = min(len(parsed.Posts), want)
	result.Status = fmt.Sprintf("Parsed %d of %d posts", result.Parsed, want)

	if result.Parsed < want {
		slog.Warn("Generator.run: short batch padded with placeholders", "mode", mode.String(), "parsed", result.Parsed, "requested", want, "strategy", parsed.Strategy)
	} else {
		slog.Debug("Generator.run: batch complete", "mode", mode.String(), "found", parsed.Found, "requested", want)
	}
	return result
}

// fitBatch truncates posts to want in text order, or pads with placeholder
// posts numbered after the last parsed one.
func fitBatch(posts []models.Post, want int) []models.Post {
	out := make([]models.Post, 0, want)
	for i := 0; i < len(posts) && i < want; i++ {
		out = append(out, posts[i])
	}
	for len(out) < want {
		out = append(out, models.NewPlaceholderPost(len(out)+1))
	}
	return out
}

func invalidResult(want int, err error) BatchResult {
	slog.Warn("Generator: invalid input", "error", err)
	return BatchResult{
		Posts:     []models.Post{},
		Requested: want,
		Status:    fmt.Sprintf("Invalid input: %v", err),
		Err:       err,
	}
}
