package service_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/okian/winstate/internal/adapters/repository/backend"
	service "github.com/okian/winstate/internal/app"
	"github.com/okian/winstate/internal/config"
	"github.com/okian/winstate/internal/domain/model"
	"github.com/okian/winstate/internal/domain/ranking"
	. "github.com/smartystreets/goconvey/convey"
)

// backends lists the configurations exercised end to end; each call builds a
// fresh, isolated backend.
func backends(t *testing.T) map[string]func() *config.Config {
	return map[string]func() *config.Config{
		"memory": config.New,
		"sqlite": func() *config.Config {
			cfg := config.New()
			cfg.StoreDriver = config.DriverSQLite
			cfg.StoreDSN = filepath.Join(t.TempDir(), "results.db")
			return cfg
		},
		"redis": func() *config.Config {
			mr, err := miniredis.Run()
			if err != nil {
				t.Fatalf("miniredis: %v", err)
			}
			t.Cleanup(mr.Close)
			cfg := config.New()
			cfg.StoreDriver = config.DriverRedis
			cfg.RedisAddr = mr.Addr()
			return cfg
		},
	}
}

func TestServiceIntegration(t *testing.T) {
	for name, mk := range backends(t) {
		Convey("Given a service on the "+name+" backend", t, func() {
			ctx := context.Background()
			cfg := mk()
			store, err := backend.Open(ctx, cfg)
			So(err, ShouldBeNil)
			Reset(func() { _ = store.Close() })

			svc := startService(
				service.WithStore(store),
				service.WithDedupeSize(cfg.DedupeSize),
				service.WithDefaultLimit(cfg.DefaultLimit),
				service.WithMaxLimit(cfg.MaxLimit),
				service.WithOpTimeout(cfg.OpTimeout()),
			)

			Convey("When results are recorded end to end", func() {
				var recorded []model.Result
				for i := 0; i < 30; i++ {
					rec, err := svc.RecordResult(ctx, model.Submission{
						Game:  "puzzle",
						Moves: (i * 7) % 11,
						Time:  fmt.Sprintf("%02d:%02d", i%3, (i*13)%60),
						Name:  fmt.Sprintf("player-%d", i),
					})
					So(err, ShouldBeNil)
					recorded = append(recorded, rec.Result)
				}

				Convey("Then the top ten should match the full ordering truncated", func() {
					got, err := svc.TopResults(ctx, "puzzle", 0)
					So(err, ShouldBeNil)
					So(got, ShouldResemble, model.Entries(ranking.Top(recorded, 10)))
				})

				Convey("Then other games should still be unknown", func() {
					_, err := svc.TopResults(ctx, "chess", 0)
					So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
				})

				Convey("Then stats should count every result", func() {
					So(svc.GetStats()["totalResults"], ShouldEqual, 30)
					So(svc.RefreshMetrics(ctx), ShouldBeNil)
				})
			})

			Convey("When writers and readers run concurrently", func() {
				const writers, perWriter = 6, 20
				var wg sync.WaitGroup
				errs := make(chan error, writers*perWriter*2)
				for w := 0; w < writers; w++ {
					wg.Add(2)
					go func(w int) {
						defer wg.Done()
						for i := 0; i < perWriter; i++ {
							_, err := svc.RecordResult(ctx, model.Submission{
								Game: "race", Moves: (w + i) % 9, Time: fmt.Sprintf("00:%02d", i), Name: "w",
								RequestID: fmt.Sprintf("w%d-%d", w, i%10),
							})
							errs <- err
						}
					}(w)
					go func() {
						defer wg.Done()
						for i := 0; i < perWriter; i++ {
							entries, err := svc.TopResults(ctx, "race", 0)
							if err != nil && !errors.Is(err, service.ErrNotFound) {
								errs <- err
								continue
							}
							if !ranking.IsRanked(entries) {
								errs <- fmt.Errorf("unranked read: %+v", entries)
							}
						}
					}()
				}
				wg.Wait()
				close(errs)

				Convey("Then no call should fail and request ids should dedupe", func() {
					for err := range errs {
						So(err, ShouldBeNil)
					}
					// each writer reuses 10 request ids
					So(svc.GetStats()["totalResults"], ShouldEqual, writers*10)
				})
			})
		})
	}
}
