package capture_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ribslabs/ribs/internal/adapters/capture"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFileSource(t *testing.T) {
	Convey("Given a snapshot file source", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		path := filepath.Join(dir, "frame.jpg")

		Convey("A fresh snapshot yields its bytes", func() {
			So(os.WriteFile(path, []byte("jpeg-bytes"), 0o600), ShouldBeNil)

			frame, ok := capture.NewFileSource(path).Frame(ctx)
			So(ok, ShouldBeTrue)
			So(string(frame), ShouldEqual, "jpeg-bytes")
		})

		Convey("A missing file yields no frame", func() {
			_, ok := capture.NewFileSource(filepath.Join(dir, "absent.jpg")).Frame(ctx)
			So(ok, ShouldBeFalse)
		})

		Convey("An empty file yields no frame", func() {
			So(os.WriteFile(path, nil, 0o600), ShouldBeNil)

			_, ok := capture.NewFileSource(path).Frame(ctx)
			So(ok, ShouldBeFalse)
		})

		Convey("A stale snapshot yields no frame", func() {
			So(os.WriteFile(path, []byte("old"), 0o600), ShouldBeNil)
			past := time.Now().Add(-time.Minute)
			So(os.Chtimes(path, past, past), ShouldBeNil)

			_, ok := capture.NewFileSource(path, capture.WithMaxAge(30*time.Second)).Frame(ctx)
			So(ok, ShouldBeFalse)

			Convey("Unless the allowed age covers it", func() {
				frame, ok := capture.NewFileSource(path, capture.WithMaxAge(5*time.Minute)).Frame(ctx)
				So(ok, ShouldBeTrue)
				So(frame, ShouldNotBeEmpty)
			})
		})
	})
}

func TestSyntheticSource(t *testing.T) {
	Convey("The synthetic source always produces a frame", t, func() {
		frame, ok := capture.NewSyntheticSource().Frame(context.Background())
		So(ok, ShouldBeTrue)
		So(frame, ShouldNotBeNil)
	})
}
