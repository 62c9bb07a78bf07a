package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/sbilibin2017/gw-users/internal/models"
)

//go:generate mockgen -source=list_users.go -destination=mock_list_users.go -package=handlers

// UserLister defines the interface that the service must implement.
type UserLister interface {
	ListUsers(ctx context.Context) ([]models.UserResponse, error)
}

// NewListUsersHandler returns an HTTP handler listing every user.
// @Summary List users
// @Description Returns all users. The total number is also sent in the X-Total-Count header.
// @Tags users
// @Produce json
// @Success 200 {array} models.UserResponse "Users"
// @Header 200 {integer} X-Total-Count "Number of users"
// @Failure 500 {object} handlers.ErrorResponse "Internal Error"
// @Router /api/v1/users [get]
func NewListUsersHandler(svc UserLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := svc.ListUsers(r.Context())
		if err != nil {
			writeServiceError(w, err)
			return
		}

		w.Header().Set("X-Total-Count", strconv.Itoa(len(users)))
		writeJSON(w, http.StatusOK, users)
	}
}
