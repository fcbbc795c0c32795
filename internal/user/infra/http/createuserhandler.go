package http

import (
	"errors"
	"net/http"

	"github.com/klwxsrx/event-booking/internal/user/app/service"
	pkghttp "github.com/klwxsrx/event-booking/pkg/http"
)

type CreateUserHandler struct {
	userService service.User
}

func NewCreateUserHandler(userService service.User) CreateUserHandler {
	return CreateUserHandler{userService: userService}
}

func (h CreateUserHandler) Method() string {
	return http.MethodPost
}

func (h CreateUserHandler) Path() string {
	return "/users"
}

func (h CreateUserHandler) HTTPHandler() pkghttp.HandlerFunc {
	return func(w pkghttp.ResponseWriter, r *http.Request) error {
		in, err := pkghttp.Parse(pkghttp.JSONBody[CreateUserIn](), r, nil)
		if err != nil {
			return err
		}

		userID, err := h.userService.Create(r.Context(), service.NewUserData{
			Login: in.Login,
			Email: in.Email,
		})
		switch {
		case errors.Is(err, service.ErrInvalidUserData):
			w.SetStatusCode(http.StatusBadRequest)
			return nil
		case errors.Is(err, service.ErrUserAlreadyExists):
			w.SetStatusCode(http.StatusConflict)
			return nil
		case err != nil:
			return err
		}

		w.SetStatusCode(http.StatusCreated).SetJSONBody(createUserOut{ID: userID})
		return nil
	}
}

type (
	CreateUserIn struct {
		Login string `json:"login"`
		Email string `json:"email"`
	}

	createUserOut struct {
		ID int64 `json:"id"`
	}
)
