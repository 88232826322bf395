package content

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/BTreeMap/PostPipe/internal/models"
)

func refinablePost() models.Post {
	p := models.NewPost(2, "Tuesday, October 7, 2025", "We roast every morning.", "Photo of beans")
	p.Selected = false
	p.Feedback = "more casual"
	p.RefinePost = true
	return p
}

func TestRefine_PostOnlyIsolation(t *testing.T) {
	mock := &mockBackend{responses: []string{"  Fresh beans, **every** single morning!  "}}
	g := newTestGenerator(mock)
	in := refinablePost()

	out, err := g.Refine(context.Background(), in, "more casual", models.RefinePost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Content != "Fresh beans, every single morning!" {
		t.Errorf("unexpected content %q", out.Content)
	}
	if out.Graphic != in.Graphic || out.Number != in.Number || out.Date != in.Date || out.Selected != in.Selected {
		t.Errorf("non-target fields changed: in=%+v out=%+v", in, out)
	}
	if out.Feedback != "" || out.RefinePost {
		t.Errorf("transient fields not cleared: %+v", out)
	}
	if mock.calls[0].maxTokens != 1000 {
		t.Errorf("expected 1000 token ceiling, got %d", mock.calls[0].maxTokens)
	}
}

func TestRefine_GraphicOnly(t *testing.T) {
	g := newTestGenerator(&mockBackend{responses: []string{"A hand-drawn sketch of a roaster"}})
	in := refinablePost()
	out, err := g.Refine(context.Background(), in, "hand drawn", models.RefineGraphic)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Graphic != "A hand-drawn sketch of a roaster" || out.Content != in.Content {
		t.Errorf("unexpected refinement: %+v", out)
	}
}

func TestRefine_BothWithDelimiter(t *testing.T) {
	g := newTestGenerator(&mockBackend{responses: []string{"New copy here.\n\nGRAPHIC:\nNew visual"}})
	out, err := g.Refine(context.Background(), refinablePost(), "bolder", models.RefineBoth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Content != "New copy here." || out.Graphic != "New visual" {
		t.Errorf("unexpected refinement: %+v", out)
	}
}

func TestRefine_BothWithoutDelimiterUpdatesContentOnly(t *testing.T) {
	g := newTestGenerator(&mockBackend{responses: []string{"Only new copy came back."}})
	in := refinablePost()
	out, err := g.Refine(context.Background(), in, "bolder", models.RefineBoth)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Content != "Only new copy came back." || out.Graphic != in.Graphic {
		t.Errorf("unexpected refinement: %+v", out)
	}
}

func TestRefine_NoTargetIsNoOp(t *testing.T) {
	mock := &mockBackend{responses: []string{"unused"}}
	g := newTestGenerator(mock)
	in := refinablePost()

	out, err := g.Refine(context.Background(), in, "more casual", models.RefineNone)
	if err != nil || out != in {
		t.Errorf("expected unchanged post, got %+v, %v", out, err)
	}
	out, err = g.Refine(context.Background(), in, "   ", models.RefinePost)
	if err != nil || out != in {
		t.Errorf("expected unchanged post for empty feedback, got %+v, %v", out, err)
	}
	if len(mock.calls) != 0 {
		t.Errorf("backend called %d times", len(mock.calls))
	}
}

func TestRefine_FailureReturnsOriginal(t *testing.T) {
	boom := errors.New("timeout")
	g := newTestGenerator(&mockBackend{err: boom})
	in := refinablePost()
	out, err := g.Refine(context.Background(), in, "more casual", models.RefineBoth)
	var genErr *GenerationError
	if !errors.As(err, &genErr) || !errors.Is(err, boom) {
		t.Fatalf("expected GenerationError wrapping backend error, got %v", err)
	}
	if out != in {
		t.Errorf("expected original post, got %+v", out)
	}
}

func TestRefineFromFlags(t *testing.T) {
	mock := &mockBackend{responses: []string{"Sketch"}}
	g := newTestGenerator(mock)
	in := models.NewPost(1, "", "Body", "Photo")
	in.RefineGraphic = true
	in.GraphicFeedback = "illustrated"

	out, err := g.RefineFromFlags(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Graphic != "Sketch" || out.GraphicFeedback != "" || out.RefineGraphic {
		t.Errorf("unexpected refinement: %+v", out)
	}
	if mock.calls[0].maxTokens != 500 {
		t.Errorf("expected 500 token ceiling, got %d", mock.calls[0].maxTokens)
	}
}

func TestRefineFromFlags_BothCombinesSplitFeedback(t *testing.T) {
	mock := &mockBackend{responses: []string{"Shorter copy.\n\nGRAPHIC:\nA blue banner"}}
	g := newTestGenerator(mock)
	in := models.NewPost(1, "", "Body of post 1.", "Visual for post 1")
	in.RefinePost = true
	in.RefineGraphic = true
	in.PostFeedback = "shorter"
	in.GraphicFeedback = "blue"

	out, err := g.RefineFromFlags(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mock.calls) != 1 {
		t.Fatalf("expected one backend call, got %d", len(mock.calls))
	}
	if !strings.Contains(mock.calls[0].user, "Post: shorter\nGraphic: blue") {
		t.Errorf("combined feedback missing from prompt: %q", mock.calls[0].user)
	}
	if out.Content != "Shorter copy." || out.Graphic != "A blue banner" {
		t.Errorf("unexpected refinement: %+v", out)
	}
	if out.PostFeedback != "" || out.GraphicFeedback != "" || out.RefinePost || out.RefineGraphic {
		t.Errorf("transient fields not cleared: %+v", out)
	}
}

func TestRefineFeedback(t *testing.T) {
	tests := []struct {
		name         string
		post         models.Post
		wantTarget   models.RefineTarget
		wantFeedback string
	}{
		{"general feedback wins", models.Post{Feedback: " punchier ", PostFeedback: "shorter", RefinePost: true}, models.RefinePost, "punchier"},
		{"post only", models.Post{PostFeedback: "shorter", GraphicFeedback: "blue", RefinePost: true}, models.RefinePost, "shorter"},
		{"graphic only", models.Post{PostFeedback: "shorter", GraphicFeedback: "blue", RefineGraphic: true}, models.RefineGraphic, "blue"},
		{"both combined", models.Post{PostFeedback: "shorter", GraphicFeedback: "blue", RefinePost: true, RefineGraphic: true}, models.RefineBoth, "Post: shorter\nGraphic: blue"},
		{"both with one part", models.Post{GraphicFeedback: "blue", RefinePost: true, RefineGraphic: true}, models.RefineBoth, "Graphic: blue"},
		{"post target without post feedback", models.Post{GraphicFeedback: "blue", RefinePost: true}, models.RefinePost, ""},
		{"no target", models.Post{Feedback: "x"}, models.RefineNone, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, feedback := RefineFeedback(tt.post)
			if target != tt.wantTarget || feedback != tt.wantFeedback {
				t.Errorf("RefineFeedback() = (%s, %q), want (%s, %q)", target, feedback, tt.wantTarget, tt.wantFeedback)
			}
		})
	}
}
