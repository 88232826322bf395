// Package models defines the core data structures for PostPipe.
//
// It includes the post and brand types shared by the generation pipeline,
// the store, and the HTTP API, plus the common API response envelope.
package models

import (
	"errors"
	"strings"
	"time"
)

// Default text values used when generation output is missing or incomplete.
const (
	// DefaultGraphic is used whenever the model supplies no graphic concept.
	DefaultGraphic = "No graphic suggestion provided."
	// PlaceholderContent marks posts inserted to fill a short batch.
	PlaceholderContent = "This post was not generated properly. Please regenerate or edit it."
)

// Validation constants for input validation
const (
	// MaxPostsPerPeriod bounds the caller-visible calendar batch size.
	MaxPostsPerPeriod = 31
	// MaxArticlePosts bounds the article-to-posts batch size.
	MaxArticlePosts = 10
	// MaxFocusLength bounds the free-text focus field.
	MaxFocusLength = 500
)

// Error variables for better error handling and testability
var (
	// ErrInvalidInput is returned when a caller supplies unusable input; no backend call is made.
	ErrInvalidInput      = errors.New("invalid input")
	ErrMissingBrand      = errors.New("brand is required")
	ErrMissingSource     = errors.New("either article text or a website URL is required")
	ErrInvalidURL        = errors.New("website URL must start with http:// or https://")
	ErrInvalidPostCount  = errors.New("post count out of range")
	ErrFocusTooLong      = errors.New("focus exceeds maximum length")
	ErrEmptyBrandName    = errors.New("brand name cannot be empty")
	ErrPostIndexNotFound = errors.New("post not found in batch")
)

// BatchKind distinguishes calendar batches from article-derived batches.
type BatchKind string

const (
	// BatchKindCalendar is a dated batch produced from a brand and focus.
	BatchKindCalendar BatchKind = "calendar"
	// BatchKindArticle is an undated batch produced from an article.
	BatchKindArticle BatchKind = "article"
)

// TypeTag returns the saved-post type label for posts of this kind.
func (k BatchKind) TypeTag() string {
	if k == BatchKindArticle {
		return "LinkedIn Article Posts"
	}
	return "LinkedIn Calendar Posts"
}

// IsValidBatchKind checks if the given batch kind is supported.
func IsValidBatchKind(k BatchKind) bool {
	switch k {
	case BatchKindCalendar, BatchKindArticle:
		return true
	default:
		return false
	}
}

// ValidateWebsiteURL checks the scheme of a user-supplied article URL.
func ValidateWebsiteURL(u string) error {
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return ErrInvalidURL
	}
	return nil
}

// SaveReport summarizes a save-selected operation.
type SaveReport struct {
	Saved   int       `json:"saved"`
	Failed  int       `json:"failed"`
	Skipped int       `json:"skipped"`
	Time    time.Time `json:"time"`
}

// API Response types for consistent JSON responses

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
	// APIStatusPartial indicates a generation request completed with placeholder posts.
	APIStatusPartial APIStatus = "partial"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Partial creates a response for a batch that had to be padded.
func Partial(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusPartial).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}
