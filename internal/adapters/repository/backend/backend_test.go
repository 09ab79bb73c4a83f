package backend_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/okian/winstate/internal/adapters/repository"
	"github.com/okian/winstate/internal/adapters/repository/backend"
	"github.com/okian/winstate/internal/adapters/repository/redis"
	"github.com/okian/winstate/internal/adapters/repository/sqlite"
	"github.com/okian/winstate/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOpen(t *testing.T) {
	Convey("Given a config", t, func() {
		ctx := context.Background()
		cfg := config.New()

		Convey("When the driver is memory", func() {
			store, err := backend.Open(ctx, cfg)
			So(err, ShouldBeNil)
			Reset(func() { _ = store.Close() })

			Convey("Then a treap store should be returned", func() {
				_, ok := store.(*repository.TreapStore)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When the driver is sqlite", func() {
			cfg.StoreDriver = config.DriverSQLite
			cfg.StoreDSN = filepath.Join(t.TempDir(), "results.db")
			store, err := backend.Open(ctx, cfg)
			So(err, ShouldBeNil)
			Reset(func() { _ = store.Close() })

			Convey("Then a sqlite store should be returned", func() {
				_, ok := store.(*sqlite.Store)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When the driver is redis", func() {
			mr, err := miniredis.Run()
			So(err, ShouldBeNil)
			Reset(mr.Close)
			cfg.StoreDriver = config.DriverRedis
			cfg.RedisAddr = mr.Addr()
			store, err := backend.Open(ctx, cfg)
			So(err, ShouldBeNil)
			Reset(func() { _ = store.Close() })

			Convey("Then a redis store should be returned", func() {
				_, ok := store.(*redis.Store)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When the driver is postgres without a dsn", func() {
			cfg.StoreDriver = config.DriverPostgres
			store, err := backend.Open(ctx, cfg)

			Convey("Then opening should fail", func() {
				So(err, ShouldNotBeNil)
				So(store, ShouldBeNil)
			})
		})

		Convey("When the driver is unknown", func() {
			cfg.StoreDriver = "mongo"
			store, err := backend.Open(ctx, cfg)

			Convey("Then it should fail as invalid config", func() {
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
				So(store, ShouldBeNil)
			})
		})
	})
}
