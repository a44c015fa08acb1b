package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/camden-git/imagestudio/models"
	"github.com/camden-git/imagestudio/repository"
	"github.com/camden-git/imagestudio/transform"
)

type UserHandler struct {
	Users repository.UserRepository
}

func NewUserHandler(users repository.UserRepository) *UserHandler {
	return &UserHandler{Users: users}
}

type UserCreatePayload struct {
	ClerkID string `json:"clerkId"`
	Email   string `json:"email"`
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var payload UserCreatePayload
	if err := decodeJSON(r, &payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	var errs []transform.FieldError
	if strings.TrimSpace(payload.ClerkID) == "" {
		errs = append(errs, transform.FieldError{Field: "clerkId", Message: "must not be empty"})
	}
	if !strings.Contains(payload.Email, "@") {
		errs = append(errs, transform.FieldError{Field: "email", Value: payload.Email, Message: "must be an email"})
	}
	if len(errs) > 0 {
		WriteValidationError(w, &transform.ValidationError{Errors: errs})
		return
	}

	user := &models.User{ClerkID: payload.ClerkID, Email: payload.Email}
	if err := h.Users.Create(user); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, "User created successfully", user)
}

func (h *UserHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, "Current user retrieved successfully", UserFromContext(r.Context()))
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.ListAll()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Users retrieved successfully", users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.GetByID(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "User retrieved successfully", user)
}

// DeleteUser removes the user and their images. Users may only delete
// themselves.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if current := UserFromContext(r.Context()); current == nil || current.ID != id {
		WriteAPIError(w, http.StatusForbidden, CodeForbidden, "Forbidden: cannot delete another user")
		return
	}
	if err := h.Users.Delete(id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond(w, http.StatusOK, "User deleted successfully", nil)
}
