package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/camden-git/imagestudio/database"
	"github.com/camden-git/imagestudio/models"
	"github.com/camden-git/imagestudio/repository"
	"github.com/camden-git/imagestudio/services"
	"github.com/camden-git/imagestudio/transform"
)

type ImageHandler struct {
	Images     repository.ImageRepositoryInterface
	Transforms *services.TransformService
}

func NewImageHandler(images repository.ImageRepositoryInterface, transforms *services.TransformService) *ImageHandler {
	return &ImageHandler{Images: images, Transforms: transforms}
}

// ImageCreatePayload registers an already stored original.
type ImageCreatePayload struct {
	PublicID    string `json:"publicId"`
	OriginalURL string `json:"originalUrl"`
	Size        int64  `json:"size"`
	Format      string `json:"format"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

type ImageUpdatePayload struct {
	OriginalURL *string `json:"originalUrl,omitempty"`
	Width       *int    `json:"width,omitempty"`
	Height      *int    `json:"height,omitempty"`
	Transformed *bool   `json:"transformed,omitempty"`
}

func (p ImageCreatePayload) validate() *transform.ValidationError {
	var errs []transform.FieldError
	required := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, transform.FieldError{Field: field, Message: "must not be empty"})
		}
	}
	positive := func(field string, value int64) {
		if value <= 0 {
			errs = append(errs, transform.FieldError{Field: field, Value: strconv.FormatInt(value, 10), Message: "must be greater than or equal to 1"})
		}
	}
	required("publicId", p.PublicID)
	required("originalUrl", p.OriginalURL)
	required("format", p.Format)
	positive("size", p.Size)
	positive("width", int64(p.Width))
	positive("height", int64(p.Height))
	if len(errs) == 0 {
		return nil
	}
	return &transform.ValidationError{Errors: errs}
}

func (h *ImageHandler) CreateImage(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var payload ImageCreatePayload
	if err := decodeJSON(r, &payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if verr := payload.validate(); verr != nil {
		WriteValidationError(w, verr)
		return
	}

	img := &models.Image{
		UserID:      user.ID,
		PublicID:    payload.PublicID,
		OriginalURL: payload.OriginalURL,
		Size:        payload.Size,
		Format:      payload.Format,
		Width:       payload.Width,
		Height:      payload.Height,
	}
	if err := h.Images.Create(img); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Image created successfully", img)
}

func (h *ImageHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	sortOrder, ok := sortParam(w, r)
	if !ok {
		return
	}
	images, err := h.Images.ListAll(sortOrder)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Images retrieved successfully", images)
}

func (h *ImageHandler) ListUserImages(w http.ResponseWriter, r *http.Request) {
	sortOrder, ok := sortParam(w, r)
	if !ok {
		return
	}
	user := UserFromContext(r.Context())
	images, err := h.Images.ListByUserID(user.ID, sortOrder)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "User images retrieved successfully", images)
}

func (h *ImageHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	img, err := h.Images.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Image retrieved successfully", img)
}

func (h *ImageHandler) UpdateImage(w http.ResponseWriter, r *http.Request) {
	img, ok := h.ownedImage(w, r)
	if !ok {
		return
	}

	var payload ImageUpdatePayload
	if err := decodeJSON(r, &payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	updated, err := h.Images.Update(img.ID, repository.ImageUpdate{
		OriginalURL: payload.OriginalURL,
		Width:       payload.Width,
		Height:      payload.Height,
		Transformed: payload.Transformed,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Image updated successfully", updated)
}

func (h *ImageHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	img, ok := h.ownedImage(w, r)
	if !ok {
		return
	}
	if err := h.Images.Delete(img.ID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Image deleted successfully", nil)
}

// TransformImage renders the image with the options in the query string and
// records the result as a new variant.
func (h *ImageHandler) TransformImage(w http.ResponseWriter, r *http.Request) {
	q := transform.QueryFromValues(r.URL.Query())
	variant, err := h.Transforms.Transform(r.Context(), chi.URLParam(r, "id"), q)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Image transformed successfully", variant)
}

func (h *ImageHandler) ListTransformed(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteValidationError(w, &transform.ValidationError{Errors: []transform.FieldError{{
				Field: "limit", Value: raw, Message: "must be greater than or equal to 1",
			}}})
			return
		}
		limit = n
	}
	variants, err := h.Transforms.History(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Transformed images retrieved successfully", variants)
}

func (h *ImageHandler) GetVariantOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.Transforms.Options(r.Context(), chi.URLParam(r, "variantId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Transform options retrieved successfully", opts)
}

func (h *ImageHandler) ReplayVariant(w http.ResponseWriter, r *http.Request) {
	variant, err := h.Transforms.Replay(r.Context(), chi.URLParam(r, "variantId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "Transform replayed successfully", variant)
}

// ownedImage loads the image in the URL and checks the caller owns it.
func (h *ImageHandler) ownedImage(w http.ResponseWriter, r *http.Request) (*models.Image, bool) {
	img, err := h.Images.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}
	user := UserFromContext(r.Context())
	if user == nil || img.UserID != user.ID {
		WriteAPIError(w, http.StatusForbidden, CodeForbidden, "Forbidden: image belongs to another user")
		return nil, false
	}
	return img, true
}

func sortParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	sortOrder := r.URL.Query().Get("sort")
	if sortOrder == "" {
		return database.DefaultSortOrder, true
	}
	if !database.IsValidSortOrder(sortOrder) {
		WriteValidationError(w, &transform.ValidationError{Errors: []transform.FieldError{{
			Field: "sort", Value: sortOrder, Message: "must be one of: " + strings.Join(database.SortOrders, ", "),
		}}})
		return "", false
	}
	return sortOrder, true
}
