package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/patsmithk7/DAOSkillProof/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadDefaults(t *testing.T) {
	Convey("Given no configuration sources", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then the defaults apply", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":9080")
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.OwnerID, ShouldEqual, "owner")
			So(cfg.CooldownSeconds, ShouldEqual, 60)
			So(cfg.InstanceID, ShouldEqual, "skillproof-dev")
			So(cfg.MaxEventLimit, ShouldEqual, 500)
		})
	})
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SKILLPROOF_ADDR", ":7070")
	t.Setenv("SKILLPROOF_OWNER_ID", "dao-admin")
	t.Setenv("SKILLPROOF_COOLDOWN_SECONDS", "5")
	t.Setenv("SKILLPROOF_LOG_LEVEL", "debug")

	Convey("Given environment overrides", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then env values win over defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.OwnerID, ShouldEqual, "dao-admin")
			So(cfg.CooldownSeconds, ShouldEqual, 5)
			So(cfg.LogLevel, ShouldEqual, "debug")

			Convey("And untouched fields keep their defaults", func() {
				So(cfg.InstanceID, ShouldEqual, "skillproof-dev")
			})
		})
	})
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("addr: \":6060\"\nowner_id: file-owner\ninstance_id: prod-eu-1\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SKILLPROOF_CONFIG", path)

	Convey("Given a YAML configuration file", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then file values win over defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":6060")
			So(cfg.OwnerID, ShouldEqual, "file-owner")
			So(cfg.InstanceID, ShouldEqual, "prod-eu-1")
		})
	})
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("addr: \":6060\"\nowner_id: file-owner\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SKILLPROOF_CONFIG", path)
	t.Setenv("SKILLPROOF_ADDR", ":5050")

	Convey("Given both a file and env overrides", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then env wins over file", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":5050")
			So(cfg.OwnerID, ShouldEqual, "file-owner")
		})
	})
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("SKILLPROOF_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	Convey("Given a file path that does not exist", t, func() {
		_, err := config.Load(context.Background())

		Convey("Then loading fails", func() {
			So(err, ShouldWrap, config.ErrLoadConfig)
		})
	})
}

func TestLoadRejectsInvalidCooldown(t *testing.T) {
	t.Setenv("SKILLPROOF_COOLDOWN_SECONDS", "0")

	Convey("Given a non-positive cooldown", t, func() {
		_, err := config.Load(context.Background())
		So(err, ShouldWrap, config.ErrInvalidConfig)
	})
}

func TestLoadRejectsBlankOwner(t *testing.T) {
	t.Setenv("SKILLPROOF_OWNER_ID", "   ")

	Convey("Given a blank owner id", t, func() {
		_, err := config.Load(context.Background())
		So(err, ShouldWrap, config.ErrInvalidConfig)
	})
}

func TestLoadRejectsInvalidEventLimit(t *testing.T) {
	t.Setenv("SKILLPROOF_MAX_EVENT_LIMIT", "-1")

	Convey("Given a non-positive event limit", t, func() {
		_, err := config.Load(context.Background())
		So(err, ShouldWrap, config.ErrInvalidConfig)
	})
}

func TestLoadRejectsInvertedLatencyBounds(t *testing.T) {
	t.Setenv("SKILLPROOF_CALLBACK_LATENCY_MIN_MS", "100")
	t.Setenv("SKILLPROOF_CALLBACK_LATENCY_MAX_MS", "10")

	Convey("Given inverted callback latency bounds", t, func() {
		_, err := config.Load(context.Background())
		So(err, ShouldWrap, config.ErrInvalidConfig)
	})
}
