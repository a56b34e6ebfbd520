package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/rsvp/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should match the public RSVP defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":3000")
			convey.So(cfg.MatchThreshold, convey.ShouldEqual, 0.75)
			convey.So(cfg.RateLimitMax, convey.ShouldEqual, 5)
			convey.So(cfg.RateLimitWindow(), convey.ShouldEqual, time.Hour)
			convey.So(cfg.ImportMaxBytes, convey.ShouldEqual, 5*1024*1024)
			convey.So(cfg.StorageDriver, convey.ShouldEqual, "sqlite")
			convey.So(cfg.AdminAPIKey, convey.ShouldBeEmpty)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad field each", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":        func(c *config.Config) { c.Addr = " " },
			"zero threshold":    func(c *config.Config) { c.MatchThreshold = 0 },
			"threshold above 1": func(c *config.Config) { c.MatchThreshold = 1.2 },
			"zero rate limit":   func(c *config.Config) { c.RateLimitMax = 0 },
			"negative window":   func(c *config.Config) { c.RateLimitWindowMS = -1 },
			"missing dsn":       func(c *config.Config) { c.StorageDSN = "" },
			"empty driver":      func(c *config.Config) { c.StorageDriver = "" },
			"zero import size":  func(c *config.Config) { c.ImportMaxBytes = 0 },
			"zero concurrency":  func(c *config.Config) { c.ImportConcurrency = 0 },
		}

		convey.Convey("Then each should fail with ErrInvalidConfig", func() {
			for name, mutate := range cases {
				cfg := config.New()
				mutate(cfg)
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				_ = name
			}
		})

		convey.Convey("And the memory driver should not need a DSN", func() {
			cfg := config.New()
			cfg.StorageDriver = "memory"
			cfg.StorageDSN = ""
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
