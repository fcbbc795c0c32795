package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/klwxsrx/event-booking/pkg/log"
	"github.com/klwxsrx/event-booking/pkg/metric"
)

type (
	Destination string

	ClientOption func(*ClientImpl)

	Client interface {
		NewRequest(ctx context.Context) *resty.Request
		With(opts ...ClientOption) Client
	}

	ClientImpl struct {
		DestinationName string
		RESTClient      *resty.Client
		opts            []ClientOption
	}
)

func NewClient(opts ...ClientOption) Client {
	client := ClientImpl{
		DestinationName: "",
		RESTClient:      resty.New(),
		opts:            opts,
	}

	for _, opt := range opts {
		opt(&client)
	}

	return client
}

func (c ClientImpl) NewRequest(ctx context.Context) *resty.Request {
	return c.RESTClient.NewRequest().SetContext(ctx)
}

func (c ClientImpl) With(opts ...ClientOption) Client {
	mergedOpts := make([]ClientOption, 0, len(c.opts)+len(opts))
	mergedOpts = append(mergedOpts, c.opts...)
	mergedOpts = append(mergedOpts, opts...)
	return NewClient(mergedOpts...)
}

func WithClientDestination(name, url string) ClientOption {
	return func(c *ClientImpl) {
		c.DestinationName = name
		c.RESTClient.SetBaseURL(url)
	}
}

func WithClientTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientImpl) {
		c.RESTClient.SetTimeout(timeout)
	}
}

// WithClientRetry retries transport errors and 5xx responses.
func WithClientRetry(count int, wait time.Duration) ClientOption {
	return func(c *ClientImpl) {
		c.RESTClient.
			SetRetryCount(count).
			SetRetryWaitTime(wait).
			AddRetryCondition(func(resp *resty.Response, err error) bool {
				return err != nil || resp.StatusCode() >= http.StatusInternalServerError
			})
	}
}

func WithRequestIDPropagation() ClientOption {
	return func(c *ClientImpl) {
		c.RESTClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			id, ok := RequestID(req.Context())
			if !ok {
				return nil
			}

			req.SetHeader(RequestIDHeader, id)
			return nil
		})
	}
}

func WithRequestLogging(logger log.Logger, infoLevel, errorLevel log.Level) ClientOption {
	return func(c *ClientImpl) {
		destination := destinationLabel(c)

		c.RESTClient.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			entry := logger.With(log.Fields{
				"destination": destination,
				"method":      resp.Request.Method,
				"url":         resp.Request.URL,
				"code":        resp.StatusCode(),
				"duration":    resp.Time().String(),
			})

			if resp.StatusCode() >= http.StatusInternalServerError {
				entry.Log(resp.Request.Context(), errorLevel, "http call completed with internal error")
			} else {
				entry.Log(resp.Request.Context(), infoLevel, "http call completed")
			}

			return nil
		})

		c.RESTClient.OnError(func(req *resty.Request, err error) {
			logger.With(log.Fields{
				"destination": destination,
				"method":      req.Method,
				"url":         req.URL,
			}).WithError(err).Log(req.Context(), errorLevel, "http call completed with error")
		})
	}
}

func WithRequestMetrics(metrics metric.Metrics) ClientOption {
	return func(c *ClientImpl) {
		destination := destinationLabel(c)

		c.RESTClient.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			metrics.With(metric.Labels{
				"destination": destination,
				"method":      resp.Request.Method,
				"code":        resp.StatusCode(),
			}).Duration("http_client_request_duration_seconds", resp.Time())
			return nil
		})
	}
}

type ClientFactory struct {
	baseOpts []ClientOption
}

func NewClientFactory(opts ...ClientOption) ClientFactory {
	return ClientFactory{
		baseOpts: opts,
	}
}

// InitClient applies the destination first so that base options see its name.
func (f ClientFactory) InitClient(dest Destination, baseURL string, extraOpts ...ClientOption) Client {
	opts := make([]ClientOption, 0, len(f.baseOpts)+len(extraOpts)+1)
	opts = append(opts, WithClientDestination(string(dest), baseURL))
	opts = append(opts, f.baseOpts...)
	opts = append(opts, extraOpts...)

	return NewClient(opts...)
}

func (f ClientFactory) InitRawClient(extraOpts ...ClientOption) Client {
	opts := make([]ClientOption, 0, len(f.baseOpts)+len(extraOpts))
	opts = append(opts, f.baseOpts...)
	opts = append(opts, extraOpts...)

	return NewClient(opts...)
}

func destinationLabel(c *ClientImpl) string {
	if c.DestinationName != "" {
		return c.DestinationName
	}
	return "none"
}
