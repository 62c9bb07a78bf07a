package handlers

import (
	"context"
	"net/http"

	"github.com/sbilibin2017/gw-users/internal/models"
)

//go:generate mockgen -source=create_user.go -destination=mock_create_user.go -package=handlers

// UserCreator defines the interface that the service must implement.
type UserCreator interface {
	CreateUser(ctx context.Context, in models.UserCreate) (*models.UserResponse, error)
}

// NewCreateUserHandler returns an HTTP handler creating a user.
// @Summary Create user
// @Description Creates a user. The name must be unique; the password is stored hashed and never returned.
// @Tags users
// @Accept json
// @Produce json
// @Param user body models.UserCreate true "New user"
// @Success 201 {object} models.UserResponse "Created user"
// @Failure 400 {object} handlers.ErrorResponse "User already exists / invalid request"
// @Failure 413 {object} handlers.ErrorResponse "Request body too large"
// @Failure 500 {object} handlers.ErrorResponse "Internal Error"
// @Router /api/v1/users [post]
func NewCreateUserHandler(svc UserCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.UserCreate
		if !decodeAndValidate(w, r, &req) {
			return
		}

		user, err := svc.CreateUser(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, user)
	}
}
