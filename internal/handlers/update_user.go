package handlers

import (
	"context"
	"net/http"

	"github.com/sbilibin2017/gw-users/internal/models"
)

//go:generate mockgen -source=update_user.go -destination=mock_update_user.go -package=handlers

// UserUpdater defines the interface that the service must implement.
type UserUpdater interface {
	UpdateUser(ctx context.Context, id int64, in models.UserUpdate) (*models.UserResponse, error)
}

// NewUpdateUserHandler returns an HTTP handler for partial user updates.
// @Summary Update user
// @Description Updates the given fields; absent or empty fields keep their value. updated_at is always refreshed.
// @Tags users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param user body models.UserUpdate true "Fields to change"
// @Success 200 {object} models.UserResponse "Updated user"
// @Failure 400 {object} handlers.ErrorResponse "User already exists / invalid request"
// @Failure 404 {object} handlers.ErrorResponse "User not found"
// @Failure 413 {object} handlers.ErrorResponse "Request body too large"
// @Failure 500 {object} handlers.ErrorResponse "Internal Error"
// @Router /api/v1/users/{id} [put]
func NewUpdateUserHandler(svc UserUpdater) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userIDParam(w, r)
		if !ok {
			return
		}

		var req models.UserUpdate
		if !decodeAndValidate(w, r, &req) {
			return
		}

		user, err := svc.UpdateUser(r.Context(), id, req)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}
