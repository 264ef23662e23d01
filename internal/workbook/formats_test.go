package workbook_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"

	"chartbook/internal/workbook"
)

func TestRegistry(t *testing.T) {
	Convey("Given a registry bound to a fresh workbook", t, func() {
		file := excelize.NewFile()
		registry := workbook.NewRegistry(file)

		Convey("When the same key is requested twice", func() {
			first, err := registry.Get("bold", &excelize.Style{Font: &excelize.Font{Bold: true}})
			So(err, ShouldBeNil)
			second, err := registry.Get("bold", &excelize.Style{Font: &excelize.Font{Italic: true}})

			Convey("Then the cached handle is returned and new attributes are ignored", func() {
				So(err, ShouldBeNil)
				So(second, ShouldEqual, first)
			})
		})

		Convey("When an unregistered key is requested without attributes", func() {
			_, err := registry.Get("nope", nil)

			Convey("Then it is reported as an error", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, "nope")
			})
		})

		Convey("When numeric formats are synthesized", func() {
			n0, err := registry.GetNumeric("n0", &excelize.Style{}, 0)
			So(err, ShouldBeNil)
			n2, err := registry.GetNumeric("n2", &excelize.Style{}, 2)
			So(err, ShouldBeNil)

			Convey("Then distinct precisions get distinct handles", func() {
				So(n0, ShouldNotEqual, n2)
			})

			Convey("And a repeat call ignores the precision argument", func() {
				again, err := registry.GetNumeric("n2", nil, 7)
				So(err, ShouldBeNil)
				So(again, ShouldEqual, n2)
			})

			Convey("And the zero-precision pattern has no decimal tail", func() {
				style, err := file.GetStyle(n0)
				So(err, ShouldBeNil)
				So(style.CustomNumFmt, ShouldNotBeNil)
				So(*style.CustomNumFmt, ShouldEqual, "#,##0")
			})

			Convey("And the two-decimal pattern is grouped and right aligned", func() {
				style, err := file.GetStyle(n2)
				So(err, ShouldBeNil)
				So(style.CustomNumFmt, ShouldNotBeNil)
				So(*style.CustomNumFmt, ShouldEqual, "#,##0.00")
				So(style.Alignment, ShouldNotBeNil)
				So(style.Alignment.Horizontal, ShouldEqual, "right")
			})
		})
	})
}
