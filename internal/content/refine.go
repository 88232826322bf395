package content

import (
	"context"
	"log/slog"
	"strings"

	"github.com/BTreeMap/PostPipe/internal/models"
	"github.com/BTreeMap/PostPipe/internal/parser"
)

// Refine rewrites the content, graphic, or both of post according to
// feedback. Number, date, and selection are always carried over and the
// transient refinement fields are cleared. On backend failure the original
// post is returned together with the *GenerationError.
func (g *Generator) Refine(ctx context.Context, post models.Post, feedback string, target models.RefineTarget) (models.Post, error) {
	if target == models.RefineNone || strings.TrimSpace(feedback) == "" {
		slog.Debug("Generator.Refine: nothing to refine", "number", post.Number, "target", target)
		return post, nil
	}

	p, err := g.builder.Refine(post, feedback, target)
	if err != nil {
		return post, err
	}
	raw, err := g.client.Generate(ctx, p)
	if err != nil {
		slog.Error("Generator.Refine: refinement failed, keeping original", "number", post.Number, "target", target, "error", err)
		return post, err
	}

	out := post
	out.ClearTransient()
	switch target {
	case models.RefinePost:
		out.Content = cleanVerbatim(raw)
	case models.RefineGraphic:
		out.Graphic = strings.TrimSpace(raw)
	case models.RefineBoth:
		content, graphic, ok := g.parser.ParseSingle(raw)
		if content != "" {
			out.Content = content
		}
		if ok && graphic != "" {
			out.Graphic = graphic
		} else {
			slog.Warn("Generator.Refine: no graphic delimiter in response, updating content only", "number", post.Number)
		}
	}

	// Only the fields being refined may change.
	out.Number = post.Number
	out.Date = post.Date
	out.Selected = post.Selected
	slog.Debug("Generator.Refine: post refined", "number", post.Number, "target", target)
	return out, nil
}

// RefineFromFlags refines post using the feedback and flags stored on it.
func (g *Generator) RefineFromFlags(ctx context.Context, post models.Post) (models.Post, error) {
	target, feedback := RefineFeedback(post)
	return g.Refine(ctx, post, feedback, target)
}

// RefineFeedback derives the refinement target from the post's flags and the
// feedback text to send with it. Feedback wins when set. Otherwise the
// per-part feedback is used, and both parts are labelled and combined when
// the post and graphic are refined together.
func RefineFeedback(post models.Post) (models.RefineTarget, string) {
	target := models.RefineTargetFromFlags(post.RefinePost, post.RefineGraphic)
	if feedback := strings.TrimSpace(post.Feedback); feedback != "" {
		return target, feedback
	}
	postFeedback := strings.TrimSpace(post.PostFeedback)
	graphicFeedback := strings.TrimSpace(post.GraphicFeedback)
	switch target {
	case models.RefinePost:
		return target, postFeedback
	case models.RefineGraphic:
		return target, graphicFeedback
	case models.RefineBoth:
		var parts []string
		if postFeedback != "" {
			parts = append(parts, "Post: "+postFeedback)
		}
		if graphicFeedback != "" {
			parts = append(parts, "Graphic: "+graphicFeedback)
		}
		return target, strings.Join(parts, "\n")
	}
	return target, ""
}

func cleanVerbatim(s string) string {
	return strings.TrimSpace(parser.StripMarkdown(strings.TrimSpace(s)))
}
