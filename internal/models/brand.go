package models

import "time"

// Brand is the brand profile interpolated into generation prompts.
type Brand struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id,omitempty"`
	Name           string    `json:"name"`
	BrandVoice     string    `json:"brand_voice"`
	Portrayal      string    `json:"portrayal"`
	OverallVoice   string    `json:"overall_voice"`
	BrandPhrases   string    `json:"brand_phrases"`
	PreviousPosts  string    `json:"previous_posts"`
	Website        string    `json:"website,omitempty"`
	LinkedInURL    string    `json:"linkedin_url,omitempty"`
	AdditionalInfo string    `json:"additional_info,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Validate checks the fields a brand needs before it can be stored.
func (b *Brand) Validate() error {
	if b.Name == "" {
		return ErrEmptyBrandName
	}
	return nil
}

// GenericBrand returns the neutral profile used for article posts when no brand is selected.
func GenericBrand() *Brand {
	return &Brand{
		Name:         "Generic Brand",
		BrandVoice:   "Professional and engaging",
		OverallVoice: "Informative and approachable",
	}
}
