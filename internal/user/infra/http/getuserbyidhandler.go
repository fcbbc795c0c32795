package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/klwxsrx/event-booking/internal/user/app/service"
	pkghttp "github.com/klwxsrx/event-booking/pkg/http"
)

type GetUserByIDHandler struct {
	userService service.User
}

func NewGetUserByIDHandler(userService service.User) GetUserByIDHandler {
	return GetUserByIDHandler{userService: userService}
}

func (h GetUserByIDHandler) Method() string {
	return http.MethodGet
}

func (h GetUserByIDHandler) Path() string {
	return "/users/{userID}"
}

func (h GetUserByIDHandler) HTTPHandler() pkghttp.HandlerFunc {
	return func(w pkghttp.ResponseWriter, r *http.Request) error {
		userID, err := pkghttp.Parse(pkghttp.PathParameter[int64]("userID"), r, nil)
		if err != nil {
			return err
		}

		result, err := h.userService.GetByID(r.Context(), userID)
		if errors.Is(err, service.ErrUserNotFound) {
			w.SetStatusCode(http.StatusNotFound)
			return nil
		}
		if err != nil {
			return err
		}

		w.SetJSONBody(UserOut{
			ID:        result.ID,
			Login:     result.Login,
			Email:     result.Email,
			CreatedAt: result.CreatedAt,
		})
		return nil
	}
}

type UserOut struct {
	ID        int64     `json:"id"`
	Login     string    `json:"login"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}
