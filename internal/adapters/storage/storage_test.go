package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	storage "github.com/okian/rsvp/internal/adapters/storage"
	model "github.com/okian/rsvp/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	Convey("Given the storage factory", t, func() {
		Convey("When opening each local backend", func() {
			cases := map[string]string{
				storage.DriverMemory:     "",
				storage.DriverSQLite:     filepath.Join(t.TempDir(), "sql.db"),
				storage.DriverGormSQLite: filepath.Join(t.TempDir(), "gorm.db"),
			}

			Convey("Then each should satisfy the same contract", func() {
				for driver, dsn := range cases {
					s, err := storage.Open(ctx, driver, dsn, nil)
					So(err, ShouldBeNil)

					rec, err := s.InsertGroup(ctx, []model.GuestEntry{{Name: "Jane", Dinner: model.DinnerFish}}, "", "")
					So(err, ShouldBeNil)
					rows, err := s.ListRSVPsByGroup(ctx, rec.GroupID)
					So(err, ShouldBeNil)
					So(rows, ShouldHaveLength, 1)

					So(s.Close(), ShouldBeNil)
				}
			})
		})

		Convey("When the driver is unknown", func() {
			_, err := storage.Open(ctx, "postgres", "", nil)

			Convey("Then it should fail with ErrUnknownDriver", func() {
				So(errors.Is(err, storage.ErrUnknownDriver), ShouldBeTrue)
			})
		})

		Convey("When a file backend has no path", func() {
			_, err := storage.Open(ctx, storage.DriverSQLite, "", nil)
			So(err, ShouldNotBeNil)
		})

		Convey("When listing drivers", func() {
			So(storage.Drivers(), ShouldContain, storage.DriverGormMySQL)
		})
	})
}
