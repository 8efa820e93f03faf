package events_test

import (
	"testing"
	"time"

	"github.com/patsmithk7/DAOSkillProof/internal/domain/events"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLog(t *testing.T) {
	Convey("Given a new Log", t, func() {
		l := events.NewLog()
		at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

		Convey("When appending events", func() {
			e0 := l.Append(events.Event{Type: events.TypeBatchOpened, At: at})
			e1 := l.Append(events.Event{Type: events.TypeContributionSubmitted, At: at})
			e2 := l.Append(events.Event{Type: events.TypeBatchOpened, At: at})

			Convey("Then sequence numbers are assigned in order from zero", func() {
				So(e0.Seq, ShouldEqual, 0)
				So(e1.Seq, ShouldEqual, 1)
				So(e2.Seq, ShouldEqual, 2)
				So(l.Len(), ShouldEqual, 3)
			})

			Convey("Then List pages from a sequence number", func() {
				all := l.List(0, 10)
				So(all, ShouldHaveLength, 3)
				So(all[0].Seq, ShouldEqual, 0)

				tail := l.List(1, 10)
				So(tail, ShouldHaveLength, 2)
				So(tail[0].Seq, ShouldEqual, 1)

				So(l.List(3, 10), ShouldBeEmpty)
			})

			Convey("Then List honors the limit", func() {
				page := l.List(0, 2)
				So(page, ShouldHaveLength, 2)
				So(page[1].Seq, ShouldEqual, 1)
			})

			Convey("Then CountByType counts matching entries", func() {
				So(l.CountByType(events.TypeBatchOpened), ShouldEqual, 2)
				So(l.CountByType(events.TypeContributionSubmitted), ShouldEqual, 1)
				So(l.CountByType(events.TypePaused), ShouldEqual, 0)
			})
		})

		Convey("When a subscriber is attached", func() {
			ch := l.Subscribe()

			Convey("Then it receives events appended afterwards", func() {
				appended := l.Append(events.Event{Type: events.TypePaused, At: at})

				select {
				case got := <-ch:
					So(got.Seq, ShouldEqual, appended.Seq)
					So(got.Type, ShouldEqual, events.TypePaused)
				case <-time.After(time.Second):
					So("timed out waiting for event", ShouldBeEmpty)
				}
			})

			Convey("And closing the log closes the channel", func() {
				l.Close()
				_, open := <-ch
				So(open, ShouldBeFalse)
			})
		})

		Convey("When subscribing after Close", func() {
			l.Close()
			ch := l.Subscribe()

			Convey("Then the channel is already closed", func() {
				_, open := <-ch
				So(open, ShouldBeFalse)
			})

			Convey("And appending still records", func() {
				l.Append(events.Event{Type: events.TypeUnpaused, At: at})
				So(l.Len(), ShouldEqual, 1)
			})
		})
	})
}
