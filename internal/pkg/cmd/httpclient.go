package cmd

import (
	"fmt"

	"github.com/klwxsrx/event-booking/pkg/env"
	"github.com/klwxsrx/event-booking/pkg/http"
	"github.com/klwxsrx/event-booking/pkg/strings"
)

const (
	DestinationBookingService   http.Destination = "booking"
	DestinationTicketingService http.Destination = "ticketing"
)

type HTTPClientFactory struct {
	impl http.ClientFactory
}

func NewHTTPClientFactory(
	opts ...http.ClientOption,
) HTTPClientFactory {
	return HTTPClientFactory{
		impl: http.NewClientFactory(opts...),
	}
}

func (f HTTPClientFactory) InitRawClient(extraOpts ...http.ClientOption) http.Client {
	return f.impl.InitRawClient(extraOpts...)
}

// MustInitClient reads the base url of dest from <DEST>_SERVICE_URL.
func (f HTTPClientFactory) MustInitClient(dest http.Destination, extraOpts ...http.ClientOption) http.Client {
	return f.impl.InitClient(dest, MustServiceURL(dest), extraOpts...)
}

func MustServiceURL(dest http.Destination) string {
	hostEnv := fmt.Sprintf("%s_SERVICE_URL", strings.ToScreamingSnakeCase(string(dest)))
	return env.Must(env.Parse[string](hostEnv))
}
