package http

import (
	"errors"
	"net/http"

	"github.com/klwxsrx/event-booking/internal/user/app/service"
	pkghttp "github.com/klwxsrx/event-booking/pkg/http"
)

type DeleteUserByIDHandler struct {
	userService service.User
}

func NewDeleteUserByIDHandler(userService service.User) DeleteUserByIDHandler {
	return DeleteUserByIDHandler{userService: userService}
}

func (h DeleteUserByIDHandler) Method() string {
	return http.MethodDelete
}

func (h DeleteUserByIDHandler) Path() string {
	return "/users/{userID}"
}

func (h DeleteUserByIDHandler) HTTPHandler() pkghttp.HandlerFunc {
	return func(w pkghttp.ResponseWriter, r *http.Request) error {
		userID, err := pkghttp.Parse(pkghttp.PathParameter[int64]("userID"), r, nil)
		if err != nil {
			return err
		}

		err = h.userService.Delete(r.Context(), userID)
		if errors.Is(err, service.ErrUserNotFound) {
			w.SetStatusCode(http.StatusNotFound)
			return nil
		}
		if err != nil {
			return err
		}

		w.SetStatusCode(http.StatusNoContent)
		return nil
	}
}
