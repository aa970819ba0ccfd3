package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/your-org/ytmerge/internal/api/ws"
	"github.com/your-org/ytmerge/internal/config"
	"github.com/your-org/ytmerge/internal/models"
	"github.com/your-org/ytmerge/internal/service"
)

type okResolver struct{}

func (okResolver) ResolveFormats(context.Context, string) (*models.VideoFormats, error) {
	return &models.VideoFormats{ID: "F2Kg0ZUjbh0", Title: "t"}, nil
}

type okConverter struct{}

func (okConverter) ConvertAndDownload(context.Context, service.ConvertInput) (*service.ConvertOutput, error) {
	return &service.ConvertOutput{DownloadURL: "https://store.example/x", Outcome: models.ConversionConverted}, nil
}

func newTestRouter(apiKey string, rl config.RateLimitConfig) http.Handler {
	return NewRouter(RouterConfig{
		APIKey:    apiKey,
		RateLimit: rl,
		Resolver:  okResolver{},
		Converter: okConverter{},
		Hub:       ws.NewHub(),
	})
}

func TestRouter(t *testing.T) {
	Convey("Router", t, func() {
		r := newTestRouter("secret", config.RateLimitConfig{RPS: 100, Burst: 100})

		do := func(method, target, body string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(method, target, strings.NewReader(body))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			return w
		}

		Convey("Should serve the public endpoints without a key", func() {
			So(do(http.MethodGet, "/decipher?url=https://youtu.be/F2Kg0ZUjbh0", "").Code, ShouldEqual, http.StatusOK)
			So(do(http.MethodPost, "/convert", `{}`).Code, ShouldEqual, http.StatusOK)
			So(do(http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusOK)
		})

		Convey("Should guard the admin endpoints", func() {
			So(do(http.MethodGet, "/v1/conversions", "").Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("Should tag every response with a request id", func() {
			w := do(http.MethodGet, "/healthz", "")
			So(w.Header().Get("X-Request-ID"), ShouldNotBeEmpty)
		})

		Convey("Should expose metrics", func() {
			w := do(http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "ytm_conversions_in_flight")
		})
	})

	Convey("Rate limiting", t, func() {
		r := newTestRouter("", config.RateLimitConfig{RPS: 0.001, Burst: 1})
		first := httptest.NewRecorder()
		r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/decipher?url=x", nil))
		second := httptest.NewRecorder()
		r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/decipher?url=x", nil))

		So(first.Code, ShouldEqual, http.StatusOK)
		So(second.Code, ShouldEqual, http.StatusTooManyRequests)
	})
}
