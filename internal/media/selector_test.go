package media

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/your-org/ytmerge/internal/models"
)

type fakeSession struct {
	info   *models.BasicInfo
	failOn map[int]bool
	calls  atomic.Int32
}

func (s *fakeSession) BasicInfo(_ context.Context, _ string) (*models.BasicInfo, error) {
	return s.info, nil
}

func (s *fakeSession) Decipher(_ context.Context, d models.StreamDescriptor) (string, error) {
	s.calls.Add(1)
	if s.failOn[d.Tag] {
		return "", errors.New("signature function not found")
	}
	return "https://cdn.example/" + d.QualityLabel, nil
}

func TestSelect(t *testing.T) {
	Convey("Select", t, func() {
		Convey("Should classify a 720p video stream", func() {
			out := Select([]models.StreamDescriptor{{
				Tag:           136,
				HasVideo:      true,
				QualityLabel:  "720p",
				ContentLength: mo.Some(int64(2097152)),
				FrameRate:     mo.Some(30),
			}})
			So(out, ShouldHaveLength, 1)
			So(out[0].Type, ShouldEqual, models.FormatTypeVideo)
			So(out[0].SizeLabel, ShouldEqual, "2.00 MB")
			So(out[0].Is60FPS, ShouldBeFalse)
			So(out[0].QualityLabel, ShouldEqual, "720p")
		})

		Convey("Should use the audio quality for audio-only streams", func() {
			out := Select([]models.StreamDescriptor{{
				Tag:          140,
				HasAudio:     true,
				QualityLabel: "ignored",
				AudioQuality: "AUDIO_QUALITY_MEDIUM",
			}})
			So(out[0].Type, ShouldEqual, models.FormatTypeAudio)
			So(out[0].QualityLabel, ShouldEqual, "AUDIO_QUALITY_MEDIUM")
			So(out[0].SizeLabel, ShouldEqual, "N/A")
		})

		Convey("Should flag exactly 60 fps", func() {
			out := Select([]models.StreamDescriptor{
				{Tag: 1, HasVideo: true, FrameRate: mo.Some(60)},
				{Tag: 2, HasVideo: true, FrameRate: mo.Some(50)},
				{Tag: 3, HasVideo: true},
			})
			So(out[0].Is60FPS, ShouldBeTrue)
			So(out[1].Is60FPS, ShouldBeFalse)
			So(out[2].Is60FPS, ShouldBeFalse)
		})

		Convey("Should preserve order and count", func() {
			in := []models.StreamDescriptor{{Tag: 3}, {Tag: 1}, {Tag: 2}}
			out := Select(in)
			So(out, ShouldHaveLength, 3)
			So([]int{out[0].Tag, out[1].Tag, out[2].Tag}, ShouldResemble, []int{3, 1, 2})
		})

		Convey("Should return an empty list for no descriptors", func() {
			So(Select(nil), ShouldBeEmpty)
		})

		Convey("Should emit a null url for a stripped descriptor", func() {
			d := models.StreamDescriptor{Tag: 137, HasVideo: true, ContentLength: mo.Some(int64(10)), FrameRate: mo.Some(60)}
			out := Select([]models.StreamDescriptor{d.Stripped()})
			So(out[0].URL, ShouldBeNil)
			So(out[0].Type, ShouldEqual, models.FormatTypeUnknown)
			So(out[0].SizeLabel, ShouldEqual, "N/A")
			So(out[0].Is60FPS, ShouldBeFalse)
		})
	})
}

func TestDecipherAll(t *testing.T) {
	Convey("DecipherAll", t, func() {
		in := []models.StreamDescriptor{
			{Tag: 137, HasVideo: true, QualityLabel: "1080p"},
			{Tag: 136, HasVideo: true, QualityLabel: "720p"},
			{Tag: 140, HasAudio: true, QualityLabel: "audio"},
		}
		sess := &fakeSession{failOn: map[int]bool{136: true}}

		out := DecipherAll(context.Background(), sess, in, 2)

		Convey("Should keep every descriptor in order", func() {
			So(out, ShouldHaveLength, 3)
			So(out[0].Tag, ShouldEqual, 137)
			So(out[1].Tag, ShouldEqual, 136)
			So(out[2].Tag, ShouldEqual, 140)
			So(sess.calls.Load(), ShouldEqual, 3)
		})

		Convey("Should attach resolved URLs", func() {
			url, ok := out[0].SourceURL.Get()
			So(ok, ShouldBeTrue)
			So(url, ShouldEqual, "https://cdn.example/1080p")
		})

		Convey("Should degrade a failed descriptor without touching the input", func() {
			So(out[1].SourceURL.IsPresent(), ShouldBeFalse)
			So(out[1].HasVideo, ShouldBeFalse)
			So(in[1].HasVideo, ShouldBeTrue)

			formats := Select(out)
			So(formats[1].URL, ShouldBeNil)
			So(formats[1].Type, ShouldEqual, models.FormatTypeUnknown)
		})
	})
}

func TestContainerFromMime(t *testing.T) {
	Convey("ContainerFromMime", t, func() {
		So(ContainerFromMime(`video/mp4; codecs="avc1.64001F"`), ShouldEqual, "mp4")
		So(ContainerFromMime("audio/webm"), ShouldEqual, "webm")
		So(ContainerFromMime(""), ShouldEqual, "")
	})
}
