package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/camden-git/imagestudio/services"
)

type AIHandler struct {
	Media *services.MediaService
}

func NewAIHandler(mediaService *services.MediaService) *AIHandler {
	return &AIHandler{Media: mediaService}
}

type GeneratePayload struct {
	Prompt string `json:"prompt"`
}

func (h *AIHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var payload GeneratePayload
	if err := decodeJSON(r, &payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	user := UserFromContext(r.Context())
	img, err := h.Media.Generate(r.Context(), user.ID, payload.Prompt)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Image generated successfully", img)
}

func (h *AIHandler) RemoveBackground(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	img, err := h.Media.RemoveBackground(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Background removed successfully", img)
}
