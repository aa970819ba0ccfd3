package cache

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBuildKey(t *testing.T) {
	Convey("BuildKey", t, func() {
		Convey("Should normalize the title", func() {
			So(BuildKey("F2Kg0ZUjbh0", "My Video!", "720p"), ShouldEqual, Key("F2Kg0ZUjbh0/my_video_-720p.mp4"))
		})

		Convey("Should be deterministic", func() {
			a := BuildKey("F2Kg0ZUjbh0", "Ünïcode — title", "1080p60")
			b := BuildKey("F2Kg0ZUjbh0", "Ünïcode — title", "1080p60")
			So(a, ShouldEqual, b)
		})

		Convey("Should differ by quality", func() {
			So(BuildKey("F2Kg0ZUjbh0", "t", "720p"), ShouldNotEqual, BuildKey("F2Kg0ZUjbh0", "t", "1080p"))
		})

		Convey("Should expose the download name", func() {
			So(BuildKey("F2Kg0ZUjbh0", "My Video!", "720p").Filename(), ShouldEqual, "my_video_-720p.mp4")
		})
	})
}

func TestNormalizeTitle(t *testing.T) {
	Convey("NormalizeTitle", t, func() {
		So(NormalizeTitle("Hello World 2024"), ShouldEqual, "hello_world_2024")
		So(NormalizeTitle("a/b\\c..d"), ShouldEqual, "a_b_c__d")
		So(NormalizeTitle("日本"), ShouldEqual, "__")
		So(NormalizeTitle(""), ShouldEqual, "")
	})
}
