package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/your-org/ytmerge/internal/convert"
	"github.com/your-org/ytmerge/internal/models"
	"github.com/your-org/ytmerge/internal/service"
	"github.com/your-org/ytmerge/pkg/dto"
)

type stubResolver struct {
	vf  *models.VideoFormats
	err error
	got string
}

func (s *stubResolver) ResolveFormats(_ context.Context, rawURL string) (*models.VideoFormats, error) {
	s.got = rawURL
	return s.vf, s.err
}

type stubConverter struct {
	out *service.ConvertOutput
	err error
	got service.ConvertInput
}

func (s *stubConverter) ConvertAndDownload(_ context.Context, in service.ConvertInput) (*service.ConvertOutput, error) {
	s.got = in
	return s.out, s.err
}

type stubLedger struct {
	events   []models.ConversionEvent
	gotID    string
	gotLimit int
}

func (s *stubLedger) ListConversions(_ context.Context, contentID string, limit int) ([]models.ConversionEvent, error) {
	s.gotID, s.gotLimit = contentID, limit
	return s.events, nil
}

func serve(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorBody(w *httptest.ResponseRecorder) string {
	var resp dto.ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return resp.Error
}

func TestDecipherHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	Convey("GET /decipher", t, func() {
		url := "https://cdn.example/136"
		res := &stubResolver{vf: &models.VideoFormats{
			ID:              "F2Kg0ZUjbh0",
			Title:           "My Video!",
			DurationSeconds: 212,
			Formats: []models.RankedFormat{
				{Tag: 136, URL: &url, Type: models.FormatTypeVideo, QualityLabel: "720p", SizeLabel: "2.00 MB"},
				{Tag: 140, Type: models.FormatTypeUnknown, SizeLabel: "N/A"},
			},
		}}
		r := gin.New()
		r.GET("/decipher", NewDecipherHandler(res).Get)

		Convey("Should return 400 without a url", func() {
			w := serve(r, http.MethodGet, "/decipher", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorBody(w), ShouldNotBeEmpty)
		})

		Convey("Should return the ranked formats", func() {
			w := serve(r, http.MethodGet, "/decipher?url=https%3A%2F%2Fyoutu.be%2FF2Kg0ZUjbh0", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(res.got, ShouldEqual, "https://youtu.be/F2Kg0ZUjbh0")

			var body map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
			So(body["title"], ShouldEqual, "My Video!")
			So(body["durationSeconds"], ShouldEqual, float64(212))

			formats := body["formats"].([]any)
			So(formats, ShouldHaveLength, 2)
			So(formats[1].(map[string]any)["url"], ShouldBeNil)
		})

		Convey("Should map invalid input to 400", func() {
			res.err = fmt.Errorf("%w: no video id in url", service.ErrBadRequest)
			w := serve(r, http.MethodGet, "/decipher?url=nope", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorBody(w), ShouldContainSubstring, "no video id")
		})

		Convey("Should map resolver failures to 500 without leaking detail", func() {
			res.err = fmt.Errorf("%w: create session: secret token path", service.ErrResolver)
			w := serve(r, http.MethodGet, "/decipher?url=https://youtu.be/F2Kg0ZUjbh0", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(errorBody(w), ShouldNotContainSubstring, "secret")
		})
	})
}

func TestConvertHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	Convey("POST /convert", t, func() {
		conv := &stubConverter{out: &service.ConvertOutput{
			DownloadURL: "https://store.example/F2Kg0ZUjbh0/my_video_-720p.mp4?sig",
			Outcome:     models.ConversionCached,
		}}
		r := gin.New()
		r.POST("/convert", NewConvertHandler(conv).Post)

		body := `{"audioUrl":"https://a","videoUrl":"https://v","title":"My Video!","vId":"F2Kg0ZUjbh0","vq":"720p"}`

		Convey("Should pass the body through and return the download url", func() {
			w := serve(r, http.MethodPost, "/convert", body)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(conv.got, ShouldResemble, service.ConvertInput{
				AudioURL: "https://a", VideoURL: "https://v", Title: "My Video!", ContentID: "F2Kg0ZUjbh0", Quality: "720p",
			})

			var resp dto.ConvertResponse
			So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
			So(resp.DownloadURL, ShouldEqual, conv.out.DownloadURL)
			So(resp.Cached, ShouldBeTrue)
		})

		Convey("Should return 400 for malformed JSON", func() {
			w := serve(r, http.MethodPost, "/convert", `{"audioUrl":`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Should return 400 for missing fields", func() {
			conv.err = fmt.Errorf("%w: missing required fields: title", service.ErrBadRequest)
			w := serve(r, http.MethodPost, "/convert", `{"audioUrl":"https://a"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(errorBody(w), ShouldContainSubstring, "title")
		})

		Convey("Should return 500 for transcode failures", func() {
			conv.err = &convert.TranscodeError{Err: errors.New("exit status 1")}
			w := serve(r, http.MethodPost, "/convert", body)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(errorBody(w), ShouldEqual, "conversion failed")
		})
	})
}

func TestConversionHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	Convey("GET /v1/conversions", t, func() {
		Convey("Should report a missing ledger", func() {
			r := gin.New()
			r.GET("/v1/conversions", NewConversionHandler(nil).List)
			w := serve(r, http.MethodGet, "/v1/conversions", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("With a ledger", func() {
			ledger := &stubLedger{events: []models.ConversionEvent{{
				ContentID: "F2Kg0ZUjbh0",
				Outcome:   models.ConversionConverted,
				Timestamp: time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC),
			}}}
			r := gin.New()
			r.GET("/v1/conversions", NewConversionHandler(ledger).List)

			Convey("Should filter by video id and limit", func() {
				w := serve(r, http.MethodGet, "/v1/conversions?vId=F2Kg0ZUjbh0&limit=5", "")
				So(w.Code, ShouldEqual, http.StatusOK)
				So(ledger.gotID, ShouldEqual, "F2Kg0ZUjbh0")
				So(ledger.gotLimit, ShouldEqual, 5)

				var resp dto.ConversionListResponse
				So(json.Unmarshal(w.Body.Bytes(), &resp), ShouldBeNil)
				So(resp.Total, ShouldEqual, 1)
				So(resp.Conversions[0].CreatedAt, ShouldEqual, "2026-10-16T09:30:00Z")
			})

			Convey("Should reject a malformed video id", func() {
				w := serve(r, http.MethodGet, "/v1/conversions?vId=bad", "")
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestSystemHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	Convey("GET /readyz", t, func() {
		ok := func(context.Context) error { return nil }
		down := func(context.Context) error { return errors.New("connection refused") }

		Convey("Should be ready when every check passes", func() {
			r := gin.New()
			r.GET("/readyz", NewSystemHandler(map[string]Pinger{"minio": ok}).Readyz)
			So(serve(r, http.MethodGet, "/readyz", "").Code, ShouldEqual, http.StatusOK)
		})

		Convey("Should be unavailable when a check fails", func() {
			r := gin.New()
			r.GET("/readyz", NewSystemHandler(map[string]Pinger{"minio": ok, "redis": down}).Readyz)
			w := serve(r, http.MethodGet, "/readyz", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(w.Body.String(), ShouldContainSubstring, "connection refused")
		})
	})
}
