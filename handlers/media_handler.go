package handlers

import (
	"net/http"

	"github.com/camden-git/imagestudio/services"
)

// multipart parts beyond this are spooled to disk
const multipartMemory = 8 << 20

type MediaHandler struct {
	Media *services.MediaService
}

func NewMediaHandler(mediaService *services.MediaService) *MediaHandler {
	return &MediaHandler{Media: mediaService}
}

type UploadURLPayload struct {
	URL string `json:"url"`
}

// Upload stores the multipart field "file" as a new image.
func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.Media.MaxUploadSize > 0 {
		// leave room for the multipart envelope
		r.Body = http.MaxBytesReader(w, r.Body, h.Media.MaxUploadSize+multipartMemory)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeBadRequest, "Invalid multipart form: "+err.Error())
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeBadRequest, "Missing form field 'file'")
		return
	}
	defer file.Close()

	user := UserFromContext(r.Context())
	img, err := h.Media.Upload(r.Context(), user.ID, file)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "File uploaded successfully", img)
}

func (h *MediaHandler) UploadFromURL(w http.ResponseWriter, r *http.Request) {
	var payload UploadURLPayload
	if err := decodeJSON(r, &payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	user := UserFromContext(r.Context())
	img, err := h.Media.UploadFromURL(r.Context(), user.ID, payload.URL)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "File uploaded successfully", img)
}

func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if err := h.Media.Delete(r.Context(), user.ID, r.URL.Query().Get("publicId")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "File deleted successfully", nil)
}
