package api

import (
	"log/slog"
	"net/http"

	"github.com/BTreeMap/PostPipe/internal/models"
)

// listBrandsHandler handles GET /brands, optionally filtered by ?user_id=.
func (s *Server) listBrandsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	brands, err := s.st.ListBrands(r.Context(), userID)
	if err != nil {
		slog.Error("Server.listBrandsHandler: failed to list brands", "error", err, "userID", userID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list brands"))
		return
	}
	if brands == nil {
		brands = []models.Brand{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(brands))
}

// createBrandHandler handles POST /brands.
func (s *Server) createBrandHandler(w http.ResponseWriter, r *http.Request) {
	var b models.Brand
	if !decodeJSON(w, r, "createBrandHandler", &b) {
		return
	}
	b.ID = ""
	if err := s.st.CreateBrand(r.Context(), &b); err != nil {
		slog.Warn("Server.createBrandHandler: failed to create brand", "error", err, "name", b.Name)
		writeError(w, err, "Failed to create brand")
		return
	}
	slog.Info("Server.createBrandHandler: brand created", "brandID", b.ID, "name", b.Name)
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Brand created", b))
}

// getBrandHandler handles GET /brands/{id}.
func (s *Server) getBrandHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	b, err := s.st.GetBrand(r.Context(), id)
	if err != nil {
		slog.Error("Server.getBrandHandler: failed to load brand", "error", err, "brandID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load brand"))
		return
	}
	if b == nil {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Brand not found"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(b))
}

// updateBrandHandler handles PUT /brands/{id}. The body replaces every
// editable field of the brand.
func (s *Server) updateBrandHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var b models.Brand
	if !decodeJSON(w, r, "updateBrandHandler", &b) {
		return
	}
	b.ID = id
	if err := s.st.UpdateBrand(r.Context(), &b); err != nil {
		slog.Warn("Server.updateBrandHandler: failed to update brand", "error", err, "brandID", id)
		writeError(w, err, "Failed to update brand")
		return
	}
	updated, err := s.st.GetBrand(r.Context(), id)
	if err != nil || updated == nil {
		slog.Error("Server.updateBrandHandler: failed to reload brand", "error", err, "brandID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load brand"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Brand updated", updated))
}

// deleteBrandHandler handles DELETE /brands/{id}.
func (s *Server) deleteBrandHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.st.DeleteBrand(r.Context(), id); err != nil {
		slog.Warn("Server.deleteBrandHandler: failed to delete brand", "error", err, "brandID", id)
		writeError(w, err, "Failed to delete brand")
		return
	}
	slog.Info("Server.deleteBrandHandler: brand deleted", "brandID", id)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Brand deleted", nil))
}

// listBrandPostsHandler handles GET /brands/{id}/posts.
func (s *Server) listBrandPostsHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	posts, err := s.st.ListPosts(r.Context(), id)
	if err != nil {
		slog.Error("Server.listBrandPostsHandler: failed to list posts", "error", err, "brandID", id)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list saved posts"))
		return
	}
	if posts == nil {
		posts = []models.SavedPost{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(posts))
}
