package handlers

import (
	"context"
	"net/http"
)

//go:generate mockgen -source=delete_user.go -destination=mock_delete_user.go -package=handlers

// UserDeleter defines the interface that the service must implement.
type UserDeleter interface {
	DeleteUser(ctx context.Context, id int64) error
}

// NewDeleteUserHandler returns an HTTP handler deleting a user.
// Deleting an unknown id succeeds as well.
// @Summary Delete user
// @Tags users
// @Param id path int true "User ID"
// @Success 204 "User deleted"
// @Failure 500 {object} handlers.ErrorResponse "Internal Error"
// @Router /api/v1/users/{id} [delete]
func NewDeleteUserHandler(svc UserDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := userIDParam(w, r)
		if !ok {
			return
		}

		if err := svc.DeleteUser(r.Context(), id); err != nil {
			writeServiceError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
