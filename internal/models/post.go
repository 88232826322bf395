package models

import "time"

// Post is a single generated social-media post within a batch.
type Post struct {
	Number   int    `json:"number"`  // 1-based position within the batch
	Date     string `json:"date"`    // date label; empty for article posts
	Content  string `json:"content"` // post body, free of emphasis markup
	Graphic  string `json:"graphic"` // graphic concept, never empty once parsed
	Selected bool   `json:"selected"`

	// Placeholder marks posts inserted to fill a short batch.
	Placeholder bool `json:"placeholder,omitempty"`

	// Transient refinement inputs; cleared whenever a refinement is applied.
	Feedback        string `json:"feedback,omitempty"`
	PostFeedback    string `json:"post_feedback,omitempty"`
	GraphicFeedback string `json:"graphic_feedback,omitempty"`
	RefinePost      bool   `json:"refine_post,omitempty"`
	RefineGraphic   bool   `json:"refine_graphic,omitempty"`
}

// NewPost creates a selected post, substituting the default graphic when none is given.
func NewPost(number int, date, content, graphic string) Post {
	if graphic == "" {
		graphic = DefaultGraphic
	}
	return Post{
		Number:   number,
		Date:     date,
		Content:  content,
		Graphic:  graphic,
		Selected: true,
	}
}

// NewPlaceholderPost creates the stand-in used when the model produced too few posts.
func NewPlaceholderPost(number int) Post {
	p := NewPost(number, "", PlaceholderContent, DefaultGraphic)
	p.Placeholder = true
	return p
}

// ClearTransient resets the refinement inputs on the post.
func (p *Post) ClearTransient() {
	p.Feedback = ""
	p.PostFeedback = ""
	p.GraphicFeedback = ""
	p.RefinePost = false
	p.RefineGraphic = false
}

// PostEdit carries user edits to a post in a batch. Nil fields are left unchanged.
type PostEdit struct {
	Content  *string `json:"content,omitempty"`
	Graphic  *string `json:"graphic,omitempty"`
	Selected *bool   `json:"selected,omitempty"`
}

// Apply writes the non-nil fields of the edit onto the post.
func (e PostEdit) Apply(p *Post) {
	if e.Content != nil {
		p.Content = *e.Content
	}
	if e.Graphic != nil {
		p.Graphic = *e.Graphic
	}
	if e.Selected != nil {
		p.Selected = *e.Selected
	}
}

// SavedPost is the flattened record written to the post store.
type SavedPost struct {
	ID             string     `json:"id"`
	BrandID        string     `json:"brand_id"`
	UserID         string     `json:"user_id,omitempty"`
	Content        string     `json:"content"`
	GraphicConcept string     `json:"graphic_concept"`
	Type           string     `json:"type"`
	Date           string     `json:"date,omitempty"`
	ScheduledFor   *time.Time `json:"scheduled_for,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// RefineTarget selects which part of a post a refinement rewrites.
type RefineTarget string

const (
	RefineNone    RefineTarget = "none"
	RefinePost    RefineTarget = "post"
	RefineGraphic RefineTarget = "graphic"
	RefineBoth    RefineTarget = "both"
)

// RefineTargetFromFlags maps the two refinement checkboxes to a target.
func RefineTargetFromFlags(refinePost, refineGraphic bool) RefineTarget {
	switch {
	case refinePost && refineGraphic:
		return RefineBoth
	case refinePost:
		return RefinePost
	case refineGraphic:
		return RefineGraphic
	default:
		return RefineNone
	}
}
