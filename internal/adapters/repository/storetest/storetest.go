// Package storetest holds the behaviour every repository.Store backend must
// share. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/winstate/internal/adapters/repository"
	"github.com/okian/winstate/internal/domain/model"
	"github.com/okian/winstate/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

// Opener returns a fresh, empty store. It is called once per scenario.
type Opener func(t *testing.T) repository.Store

// Created is the timestamp used for every fixture; whole seconds survive
// every backend encoding.
var Created = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

// Result builds a fixture result.
func Result(game, id string, moves int, clock, name string) model.Result {
	return model.Result{Game: game, ID: id, Moves: moves, Time: clock, Name: name, CreatedAt: Created}
}

// Run exercises open's store against the shared contract.
func Run(t *testing.T, open Opener) {
	t.Helper()

	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		s := open(t)
		Reset(func() { _ = s.Close() })

		Convey("When querying an unknown game", func() {
			got, err := s.Top(ctx, "nobody-played-this", 10)

			Convey("Then it should return no results and no error", func() {
				So(err, ShouldBeNil)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When asking for a non-positive limit", func() {
			_, errZero := s.Top(ctx, "g", 0)
			_, errNeg := s.Top(ctx, "g", -3)

			Convey("Then it should fail with ErrInvalidLimit", func() {
				So(errors.Is(errZero, repository.ErrInvalidLimit), ShouldBeTrue)
				So(errors.Is(errNeg, repository.ErrInvalidLimit), ShouldBeTrue)
			})
		})

		Convey("When storing one result", func() {
			r := Result("g", "id-1", 7, "01:15", "Ada")
			So(s.Put(ctx, r), ShouldBeNil)

			Convey("Then it should be returned with every field intact", func() {
				got, err := s.Top(ctx, "g", 10)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 1)
				So(got[0].Game, ShouldEqual, "g")
				So(got[0].ID, ShouldEqual, "id-1")
				So(got[0].Moves, ShouldEqual, 7)
				So(got[0].Time, ShouldEqual, "01:15")
				So(got[0].Name, ShouldEqual, "Ada")
				So(got[0].CreatedAt.Equal(Created), ShouldBeTrue)
			})

			Convey("Then it should be counted", func() {
				n, err := s.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})

			Convey("Then storing the same id again should fail", func() {
				err := s.Put(ctx, Result("g", "id-1", 3, "00:01", "Eve"))
				So(errors.Is(err, repository.ErrDuplicateID), ShouldBeTrue)

				got, _ := s.Top(ctx, "g", 10)
				So(got, ShouldHaveLength, 1)
				So(got[0].Name, ShouldEqual, "Ada")
			})

			Convey("Then the same id in another game should be accepted", func() {
				So(s.Put(ctx, Result("h", "id-1", 3, "00:01", "Eve")), ShouldBeNil)
			})
		})

		Convey("When two results arrive worst first", func() {
			So(s.Put(ctx, Result("g", "a", 10, "2023-01-01T12:00:00", "Tester1")), ShouldBeNil)
			So(s.Put(ctx, Result("g", "b", 8, "2023-01-01T11:00:00", "Tester2")), ShouldBeNil)

			Convey("Then fewer moves should rank first", func() {
				got, err := s.Top(ctx, "g", 10)
				So(err, ShouldBeNil)
				So(model.Entries(got), ShouldResemble, model.Entries([]model.Result{
					Result("g", "b", 8, "2023-01-01T11:00:00", "Tester2"),
					Result("g", "a", 10, "2023-01-01T12:00:00", "Tester1"),
				}))
			})
		})

		Convey("When move counts exceed 32 bits", func() {
			So(s.Put(ctx, Result("g", "a", model.MaxMoves, "00:00:01", "max")), ShouldBeNil)
			So(s.Put(ctx, Result("g", "b", 3_000_000_000, "00:00:02", "big")), ShouldBeNil)
			So(s.Put(ctx, Result("g", "c", model.MaxMoves-1, "00:00:03", "below-max")), ShouldBeNil)

			Convey("Then they should round-trip and rank exactly", func() {
				got, err := s.Top(ctx, "g", 2)
				So(err, ShouldBeNil)
				So(model.Entries(got), ShouldResemble, model.Entries([]model.Result{
					Result("g", "b", 3_000_000_000, "00:00:02", "big"),
					Result("g", "c", model.MaxMoves-1, "00:00:03", "below-max"),
				}))
			})
		})

		Convey("When results tie on moves", func() {
			So(s.Put(ctx, Result("g", "a", 5, "02:00", "slow")), ShouldBeNil)
			So(s.Put(ctx, Result("g", "b", 5, "00:59", "fast")), ShouldBeNil)
			So(s.Put(ctx, Result("g", "c", 5, "01:00", "mid")), ShouldBeNil)

			Convey("Then time should break the tie byte-wise", func() {
				got, err := s.Top(ctx, "g", 10)
				So(err, ShouldBeNil)
				So(names(got), ShouldResemble, []string{"fast", "mid", "slow"})
			})
		})

		Convey("When results tie on moves and time", func() {
			So(s.Put(ctx, Result("g", "zz", 5, "01:00", "third")), ShouldBeNil)
			So(s.Put(ctx, Result("g", "aa", 5, "01:00", "first")), ShouldBeNil)
			So(s.Put(ctx, Result("g", "mm", 5, "01:00", "second")), ShouldBeNil)

			Convey("Then id should order them and repeated reads should agree", func() {
				first, err := s.Top(ctx, "g", 10)
				So(err, ShouldBeNil)
				So(names(first), ShouldResemble, []string{"first", "second", "third"})

				again, err := s.Top(ctx, "g", 10)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, first)
			})
		})

		Convey("When more results exist than the limit", func() {
			var all []model.Result
			for i := 0; i < 15; i++ {
				// descending moves with colliding times so truncation must follow ordering
				r := Result("g", fmt.Sprintf("id-%02d", i), 20-i%8, fmt.Sprintf("00:%02d", 59-i), fmt.Sprintf("p%d", i))
				all = append(all, r)
				So(s.Put(ctx, r), ShouldBeNil)
			}

			Convey("Then only the best limit results should be returned", func() {
				got, err := s.Top(ctx, "g", 10)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, 10)
				So(ids(got), ShouldResemble, ids(ranking.Top(all, 10)))
			})

			Convey("Then a limit of one should return the single best", func() {
				got, err := s.Top(ctx, "g", 1)
				So(err, ShouldBeNil)
				So(ids(got), ShouldResemble, ids(ranking.Top(all, 1)))
			})
		})

		Convey("When several games are written", func() {
			So(s.Put(ctx, Result("chess", "c1", 40, "10:00", "Kasparov")), ShouldBeNil)
			So(s.Put(ctx, Result("sudoku", "s1", 1, "00:30", "Solver")), ShouldBeNil)
			So(s.Put(ctx, Result("chess", "c2", 30, "12:00", "Carlsen")), ShouldBeNil)

			Convey("Then each game should only see its own results", func() {
				chess, err := s.Top(ctx, "chess", 10)
				So(err, ShouldBeNil)
				So(names(chess), ShouldResemble, []string{"Carlsen", "Kasparov"})

				sudoku, err := s.Top(ctx, "sudoku", 10)
				So(err, ShouldBeNil)
				So(names(sudoku), ShouldResemble, []string{"Solver"})

				n, err := s.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)
			})
		})

		Convey("When writers race on one game", func() {
			const writers, perWriter = 8, 25
			var wg sync.WaitGroup
			errs := make(chan error, writers*perWriter)
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWriter; i++ {
						r := Result("race", fmt.Sprintf("w%d-%d", w, i), (w*perWriter+i)%17, fmt.Sprintf("%02d:%02d", i%60, w), "racer")
						errs <- s.Put(ctx, r)
					}
				}(w)
			}
			wg.Wait()
			close(errs)

			Convey("Then every write should land and reads should stay ordered", func() {
				for err := range errs {
					So(err, ShouldBeNil)
				}
				got, err := s.Top(ctx, "race", writers*perWriter)
				So(err, ShouldBeNil)
				So(got, ShouldHaveLength, writers*perWriter)
				So(ranking.IsRanked(model.Entries(got)), ShouldBeTrue)
			})
		})
	})
}

func names(rs []model.Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Name
	}
	return out
}

func ids(rs []model.Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
