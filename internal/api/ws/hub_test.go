package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/your-org/ytmerge/internal/models"
	"github.com/your-org/ytmerge/pkg/dto"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readEvent(conn *websocket.Conn) (dto.WSEvent, error) {
	var evt dto.WSEvent
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return evt, err
	}
	err = json.Unmarshal(data, &evt)
	return evt, err
}

func TestHub(t *testing.T) {
	gin.SetMode(gin.TestMode)

	Convey("Hub", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		hub := NewHub()
		go hub.Run(ctx)

		r := gin.New()
		r.GET("/ws", hub.HandleWS)
		srv := httptest.NewServer(r)
		defer srv.Close()

		all := dial(t, srv, "")
		defer all.Close()
		filtered := dial(t, srv, "?vId=aaaaaaaaaaa")
		defer filtered.Close()

		// Registration happens on the hub goroutine.
		time.Sleep(100 * time.Millisecond)

		hub.BroadcastConversion(models.ConversionEvent{ContentID: "bbbbbbbbbbb", Outcome: models.ConversionConverted})
		hub.BroadcastConversion(models.ConversionEvent{ContentID: "aaaaaaaaaaa", Outcome: models.ConversionCached})

		Convey("Should deliver every event to an unfiltered client in order", func() {
			first, err := readEvent(all)
			So(err, ShouldBeNil)
			So(first.Type, ShouldEqual, EventTypeConversion)
			So(first.ContentID, ShouldEqual, "bbbbbbbbbbb")

			second, err := readEvent(all)
			So(err, ShouldBeNil)
			So(second.Data.Outcome, ShouldEqual, "cached")
		})

		Convey("Should deliver only matching events to a filtered client", func() {
			evt, err := readEvent(filtered)
			So(err, ShouldBeNil)
			So(evt.ContentID, ShouldEqual, "aaaaaaaaaaa")
		})
	})
}
