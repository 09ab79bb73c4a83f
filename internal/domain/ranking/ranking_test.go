package ranking_test

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/okian/winstate/internal/domain/model"
	"github.com/okian/winstate/internal/domain/ranking"
	"github.com/okian/winstate/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCompare(t *testing.T) {
	Convey("Given two results", t, func() {
		Convey("When moves differ", func() {
			a := model.Result{ID: "z", Moves: 8, Time: "23:59:59"}
			b := model.Result{ID: "a", Moves: 10, Time: "00:00:01"}

			Convey("Then fewer moves should rank first regardless of time", func() {
				So(ranking.Less(a, b), ShouldBeTrue)
				So(ranking.Less(b, a), ShouldBeFalse)
			})
		})

		Convey("When moves tie", func() {
			a := model.Result{ID: "z", Moves: 5, Time: "00:00:30"}
			b := model.Result{ID: "a", Moves: 5, Time: "00:01:00"}

			Convey("Then the smaller time should rank first", func() {
				So(ranking.Less(a, b), ShouldBeTrue)
				So(ranking.Compare(b, a), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When moves and time tie", func() {
			a := model.Result{ID: "a", Moves: 5, Time: "00:30"}
			b := model.Result{ID: "b", Moves: 5, Time: "00:30"}

			Convey("Then the id should break the tie", func() {
				So(ranking.Less(a, b), ShouldBeTrue)
				So(ranking.Compare(a, a), ShouldEqual, 0)
			})
		})
	})
}

func TestTop(t *testing.T) {
	Convey("Given an unordered set of results", t, func() {
		results := []model.Result{
			{ID: "1", Moves: 10, Time: "2023-01-01T12:00:00", Name: "Tester1"},
			{ID: "2", Moves: 8, Time: "2023-01-01T11:00:00", Name: "Tester2"},
		}

		Convey("When taking the top entries", func() {
			top := ranking.Top(results, ranking.DefaultLimit)

			Convey("Then they should be fully ordered", func() {
				So(model.Entries(top), ShouldResemble, []types.Entry{
					{Moves: 8, Time: "2023-01-01T11:00:00", Name: "Tester2"},
					{Moves: 10, Time: "2023-01-01T12:00:00", Name: "Tester1"},
				})
			})

			Convey("And the input should not be reordered", func() {
				So(results[0].ID, ShouldEqual, "1")
			})
		})

		Convey("When the tie-break only shows up beyond the raw window", func() {
			rs := []model.Result{
				{ID: "a", Moves: 5, Time: "00:09"},
				{ID: "b", Moves: 5, Time: "00:08"},
				{ID: "c", Moves: 5, Time: "00:01"},
			}
			top := ranking.Top(rs, 1)

			Convey("Then truncation should happen after the tie-break", func() {
				So(len(top), ShouldEqual, 1)
				So(top[0].ID, ShouldEqual, "c")
			})
		})

		Convey("When many results exist", func() {
			rng := rand.New(rand.NewPCG(1, 2))
			many := make([]model.Result, 0, 200)
			for i := 0; i < 200; i++ {
				many = append(many, model.Result{
					ID:    fmt.Sprintf("id-%03d", i),
					Moves: rng.IntN(20),
					Time:  fmt.Sprintf("00:%02d:%02d", rng.IntN(60), rng.IntN(60)),
				})
			}
			top := ranking.Top(many, ranking.DefaultLimit)

			Convey("Then at most the limit should be returned, ordered", func() {
				So(len(top), ShouldEqual, ranking.DefaultLimit)
				So(ranking.IsRanked(model.Entries(top)), ShouldBeTrue)
			})

			Convey("And the head should be the global best", func() {
				all := ranking.Top(many, -1)
				So(len(all), ShouldEqual, 200)
				So(top, ShouldResemble, all[:ranking.DefaultLimit])
			})
		})
	})
}

func TestIsRanked(t *testing.T) {
	Convey("Given public entries", t, func() {
		Convey("When they are ordered", func() {
			entries := []types.Entry{{Moves: 1, Time: "00:02"}, {Moves: 1, Time: "00:02"}, {Moves: 2, Time: "00:01"}}

			Convey("Then IsRanked should hold", func() {
				So(ranking.IsRanked(entries), ShouldBeTrue)
				So(ranking.IsRanked(nil), ShouldBeTrue)
			})
		})

		Convey("When times are out of order within equal moves", func() {
			entries := []types.Entry{{Moves: 1, Time: "00:03"}, {Moves: 1, Time: "00:02"}}

			Convey("Then IsRanked should fail", func() {
				So(ranking.IsRanked(entries), ShouldBeFalse)
			})
		})
	})
}
