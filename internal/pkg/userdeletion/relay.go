package userdeletion

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	pkghttp "github.com/klwxsrx/event-booking/pkg/http"
)

const RelayPath = "/delete_user_events/"

var ErrRelayRejected = errors.New("user deletion relay rejected request")

type relayRequest struct {
	UserID int64 `json:"user_id"`
}

type httpRelayStore struct {
	client pkghttp.Client
}

// NewHTTPRelayStore forwards deletions to the service owning the records over RelayPath.
func NewHTTPRelayStore(client pkghttp.Client) DependentRecordStore {
	return httpRelayStore{client: client}
}

func (s httpRelayStore) DeleteByUser(ctx context.Context, userID int64) error {
	resp, err := s.client.NewRequest(ctx).
		SetBody(relayRequest{UserID: userID}).
		Post(RelayPath)
	if err != nil {
		return fmt.Errorf("relay deletion of user %d: %w", userID, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("%w: user %d, status %d", ErrRelayRejected, userID, resp.StatusCode())
	}

	return nil
}

type relayHandler struct {
	handler *Handler
}

// NewRelayHTTPHandler accepts deletions relayed by NewHTTPRelayStore and applies them with handler.
func NewRelayHTTPHandler(handler *Handler) pkghttp.Handler {
	return relayHandler{handler: handler}
}

func (h relayHandler) Method() string {
	return http.MethodPost
}

func (h relayHandler) Path() string {
	return RelayPath
}

func (h relayHandler) HTTPHandler() pkghttp.HandlerFunc {
	return func(w pkghttp.ResponseWriter, r *http.Request) error {
		req, err := pkghttp.Parse(pkghttp.JSONBody[relayRequest](), r, nil)
		if err != nil {
			return err
		}
		if req.UserID <= 0 {
			w.SetStatusCode(http.StatusBadRequest)
			return nil
		}

		err = h.handler.Handle(r.Context(), DeletionEvent{
			SchemaVersion: CurrentSchemaVersion,
			UserID:        req.UserID,
		})
		if err != nil {
			return err
		}

		w.SetStatusCode(http.StatusNoContent)
		return nil
	}
}
