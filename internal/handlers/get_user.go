package handlers

import (
	"context"
	"net/http"

	"github.com/sbilibin2017/gw-users/internal/models"
)

//go:generate mockgen -source=get_user.go -destination=mock_get_user.go -package=handlers

// UserGetter defines the interface that the service must implement.
type UserGetter interface {
	GetUser(ctx context.Context, id int64) (*models.UserResponse, error)
}

// NewGetUserHandler returns an HTTP handler fetching one user.
// @Summary Get user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} models.UserResponse "User"
// @Failure 404 {object} handlers.ErrorResponse "User not found"
// @Failure 500 {object} handlers.ErrorResponse "Internal Error"
// @Router /api/v1/users/{id} [get]
func NewGetUserHandler(svc UserGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userIDParam(w, r)
		if !ok {
			return
		}

		user, err := svc.GetUser(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}
