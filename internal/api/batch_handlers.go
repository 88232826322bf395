package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BTreeMap/PostPipe/internal/content"
	"github.com/BTreeMap/PostPipe/internal/export"
	"github.com/BTreeMap/PostPipe/internal/models"
)

// CalendarBatchRequest is the body of POST /batches/calendar.
type CalendarBatchRequest struct {
	BrandID        string `json:"brand_id"`
	UserID         string `json:"user_id,omitempty"`
	Focus          string `json:"focus"`
	PostsPerPeriod int    `json:"posts_per_period"`
	SpecialEvents  string `json:"special_events,omitempty"`
}

// ArticleBatchRequest is the body of POST /batches/article. Without a
// brand_id the generic brand profile is used.
type ArticleBatchRequest struct {
	BrandID     string `json:"brand_id,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	ArticleText string `json:"article_text,omitempty"`
	WebsiteURL  string `json:"website_url,omitempty"`
	Count       int    `json:"count"`
}

// RefineRequest is the body of POST /batches/{id}/posts/{n}/refine.
type RefineRequest struct {
	Feedback        string `json:"feedback,omitempty"`
	PostFeedback    string `json:"post_feedback,omitempty"`
	GraphicFeedback string `json:"graphic_feedback,omitempty"`
	RefinePost      bool   `json:"refine_post"`
	RefineGraphic   bool   `json:"refine_graphic"`
}

// SaveRequest is the body of POST /batches/{id}/save.
type SaveRequest struct {
	UserID string `json:"user_id,omitempty"`
}

// SelectAllRequest is the body of POST /batches/{id}/select-all. An empty
// body selects every post.
type SelectAllRequest struct {
	Selected *bool `json:"selected,omitempty"`
}

// GenerationResponse is the result of a batch generation request. BatchID is
// empty when generation failed.
type GenerationResponse struct {
	BatchID   string           `json:"batch_id,omitempty"`
	Kind      models.BatchKind `json:"kind"`
	BrandName string           `json:"brand_name"`
	Posts     []models.Post    `json:"posts"`
	Parsed    int              `json:"parsed"`
	Requested int              `json:"requested"`
}

// calendarBatchHandler handles POST /batches/calendar.
func (s *Server) calendarBatchHandler(w http.ResponseWriter, r *http.Request) {
	var req CalendarBatchRequest
	if !decodeJSON(w, r, "calendarBatchHandler", &req) {
		return
	}
	if strings.TrimSpace(req.BrandID) == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrMissingBrand.Error()))
		return
	}
	brand, ok := s.loadBrand(w, r, "calendarBatchHandler", req.BrandID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.generationTimeout)
	defer cancel()
	slog.Debug("Server.calendarBatchHandler: generating calendar batch", "brandID", brand.ID, "postsPerPeriod", req.PostsPerPeriod)
	result := s.gen.GenerateCalendar(ctx, brand, req.Focus, req.PostsPerPeriod, req.SpecialEvents)
	s.writeGeneration(w, models.BatchKindCalendar, brand, req.UserID, result)
}

// articleBatchHandler handles POST /batches/article.
func (s *Server) articleBatchHandler(w http.ResponseWriter, r *http.Request) {
	var req ArticleBatchRequest
	if !decodeJSON(w, r, "articleBatchHandler", &req) {
		return
	}
	brand := models.GenericBrand()
	if strings.TrimSpace(req.BrandID) != "" {
		var ok bool
		if brand, ok = s.loadBrand(w, r, "articleBatchHandler", req.BrandID); !ok {
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.generationTimeout)
	defer cancel()
	slog.Debug("Server.articleBatchHandler: generating article batch", "brandID", brand.ID, "count", req.Count, "hasText", req.ArticleText != "", "url", req.WebsiteURL)
	result := s.gen.GenerateFromArticle(ctx, brand, req.ArticleText, req.WebsiteURL, req.Count)
	s.writeGeneration(w, models.BatchKindArticle, brand, req.UserID, result)
}

// loadBrand fetches a brand, writing a 404 or 500 response when it cannot.
func (s *Server) loadBrand(w http.ResponseWriter, r *http.Request, handler, id string) (*models.Brand, bool) {
	brand, err := s.st.GetBrand(r.Context(), id)
	if err != nil {
		slog.Error("Server."+handler+": failed to load brand", "error", err, "brandID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load brand"))
		return nil, false
	}
	if brand == nil {
		slog.Warn("Server."+handler+": brand not found", "brandID", id)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Brand not found"))
		return nil, false
	}
	return brand, true
}

// writeGeneration registers a successful batch and writes the generation
// response. Short batches are reported as partial.
func (s *Server) writeGeneration(w http.ResponseWriter, kind models.BatchKind, brand *models.Brand, userID string, result content.BatchResult) {
	resp := GenerationResponse{
		Kind:      kind,
		BrandName: brand.Name,
		Posts:     result.Posts,
		Parsed:    result.Parsed,
		Requested: result.Requested,
	}

	if result.Err != nil {
		status := http.StatusBadGateway
		if errors.Is(result.Err, models.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		slog.Warn("Server.writeGeneration: generation failed", "kind", kind, "status", status, "error", result.Err)
		writeJSONResponse(w, status, models.NewAPIResponseBuilder().
			WithStatus(models.APIStatusError).
			WithMessage(result.Status).
			WithResult(resp).
			Build())
		return
	}

	batch := s.sessions.Create(kind, brand, userID, result.Posts)
	resp.BatchID = batch.ID
	resp.Posts = batch.Posts
	slog.Info("Server.writeGeneration: batch created", "batchID", batch.ID, "kind", kind, "parsed", result.Parsed, "requested", result.Requested)

	if result.Parsed < result.Requested {
		writeJSONResponse(w, http.StatusCreated, models.Partial(result.Status, resp))
		return
	}
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage(result.Status, resp))
}

// getBatchHandler handles GET /batches/{id}.
func (s *Server) getBatchHandler(w http.ResponseWriter, r *http.Request) {
	batch, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Failed to load batch")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(batch))
}

// deleteBatchHandler handles DELETE /batches/{id}.
func (s *Server) deleteBatchHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.sessions.Delete(id) {
		writeJSONResponse(w, http.StatusNotFound, models.Error(content.ErrBatchNotFound.Error()))
		return
	}
	slog.Debug("Server.deleteBatchHandler: batch discarded", "batchID", id)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Batch discarded", nil))
}

// updatePostHandler handles PUT /batches/{id}/posts/{n}.
func (s *Server) updatePostHandler(w http.ResponseWriter, r *http.Request) {
	n, ok := postNumber(w, r, "updatePostHandler")
	if !ok {
		return
	}
	var edit models.PostEdit
	if !decodeJSON(w, r, "updatePostHandler", &edit) {
		return
	}
	post, err := s.sessions.UpdatePost(r.PathValue("id"), n, edit.Apply)
	if err != nil {
		writeError(w, err, "Failed to update post")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(post))
}

// refinePostHandler handles POST /batches/{id}/posts/{n}/refine.
func (s *Server) refinePostHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	n, ok := postNumber(w, r, "refinePostHandler")
	if !ok {
		return
	}
	var req RefineRequest
	if !decodeJSON(w, r, "refinePostHandler", &req) {
		return
	}

	post, err := s.sessions.Post(id, n)
	if err != nil {
		writeError(w, err, "Failed to load post")
		return
	}
	post.Feedback = req.Feedback
	post.PostFeedback = req.PostFeedback
	post.GraphicFeedback = req.GraphicFeedback
	post.RefinePost = req.RefinePost
	post.RefineGraphic = req.RefineGraphic

	target, feedback := content.RefineFeedback(post)
	if target == models.RefineNone {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Select the post, the graphic, or both to refine"))
		return
	}
	if feedback == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Feedback is required for the selected part"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.generationTimeout)
	defer cancel()
	refined, err := s.gen.RefineFromFlags(ctx, post)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, models.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		slog.Warn("Server.refinePostHandler: refinement failed", "batchID", id, "number", n, "error", err)
		writeJSONResponse(w, status, models.Error(fmt.Sprintf("Refinement failed: %v", err)))
		return
	}

	updated, err := s.sessions.UpdatePost(id, n, func(p *models.Post) {
		refined.Selected = p.Selected
		*p = refined
	})
	if err != nil {
		writeError(w, err, "Failed to update post")
		return
	}
	slog.Info("Server.refinePostHandler: post refined", "batchID", id, "number", n)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Post refined", updated))
}

// selectAllHandler handles POST /batches/{id}/select-all.
func (s *Server) selectAllHandler(w http.ResponseWriter, r *http.Request) {
	var req SelectAllRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, "selectAllHandler", &req) {
		return
	}
	selected := req.Selected == nil || *req.Selected
	batch, err := s.sessions.SelectAll(r.PathValue("id"), selected)
	if err != nil {
		writeError(w, err, "Failed to update selection")
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(batch))
}

// saveBatchHandler handles POST /batches/{id}/save. Each selected post is
// written to the store; one failed write does not stop the rest.
func (s *Server) saveBatchHandler(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, "saveBatchHandler", &req) {
		return
	}
	batch, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Failed to load batch")
		return
	}

	userID := req.UserID
	if userID == "" {
		userID = batch.UserID
	}
	now := s.now()
	report := models.SaveReport{Time: now}
	for _, p := range batch.Posts {
		if !p.Selected {
			report.Skipped++
			continue
		}
		date := p.Date
		if batch.Kind == models.BatchKindArticle && date == "" {
			date = now.Format("2006-01-02")
		}
		saved := &models.SavedPost{
			BrandID:        batch.BrandID,
			UserID:         userID,
			Content:        p.Content,
			GraphicConcept: p.Graphic,
			Type:           batch.Kind.TypeTag(),
			Date:           date,
		}
		if err := s.st.SavePost(r.Context(), saved); err != nil {
			slog.Error("Server.saveBatchHandler: failed to save post", "batchID", batch.ID, "number", p.Number, "error", err)
			report.Failed++
			continue
		}
		report.Saved++
	}

	slog.Info("Server.saveBatchHandler: batch saved", "batchID", batch.ID, "saved", report.Saved, "failed", report.Failed, "skipped", report.Skipped)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage(fmt.Sprintf("Saved %d posts", report.Saved), report))
}

// exportBatchHandler handles GET /batches/{id}/export?format=. Only selected
// posts are exported.
func (s *Server) exportBatchHandler(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}
	batch, err := s.sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err, "Failed to load batch")
		return
	}

	now := s.now()
	var buf bytes.Buffer
	if err := export.Write(&buf, format, batch.SelectedPosts(), batch.BrandName, now); err != nil {
		slog.Error("Server.exportBatchHandler: export failed", "batchID", batch.ID, "format", format, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to export posts"))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(batch.BrandName, format, now)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("Server.exportBatchHandler: failed to write export", "batchID", batch.ID, "error", err)
	}
}
