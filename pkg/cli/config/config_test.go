package config_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskbasket/pkg/cli/config"
	"github.com/secmon-lab/taskbasket/pkg/domain/model"
	"github.com/secmon-lab/taskbasket/pkg/repository/memory"
	"github.com/secmon-lab/taskbasket/pkg/utils/logging"
)

func TestRepository_Configure(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		repo, err := config.NewRepositoryForTest("memory", "", "").Configure(ctx)
		gt.NoError(t, err).Required()
		gt.V(t, repo).NotNil()
		gt.NoError(t, repo.Close())
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("postgres", "", "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("firestore without project", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("firestore", "", "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := config.NewRepositoryForTest("mysql", "", "").Configure(ctx)
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestLogger_Configure(t *testing.T) {
	orig := logging.Default()
	t.Cleanup(func() { logging.SetDefault(orig) })

	t.Run("json to file with redaction", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.log")
		closer, err := config.NewLoggerForTest("debug", "json", path).Configure()
		gt.NoError(t, err).Required()

		type credential struct {
			User  string
			Token string `masq:"secret"`
		}
		logging.Default().Debug("hello", "credential", credential{User: "u1", Token: "abc123"})
		closer()

		raw, err := os.ReadFile(path)
		gt.NoError(t, err).Required()
		gt.S(t, string(raw)).Contains("hello")
		gt.S(t, string(raw)).Contains("u1")
		gt.B(t, strings.Contains(string(raw), "abc123")).False()
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := config.NewLoggerForTest("loud", "json", "stderr").Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})

	t.Run("invalid format", func(t *testing.T) {
		_, err := config.NewLoggerForTest("info", "xml", "stderr").Configure()
		gt.Error(t, err).Is(config.ErrInvalidConfig)
	})
}

func TestCache_Configure(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	gt.NoError(t, repo.User().Put(ctx, &model.User{ID: "u1", LongName: "Doe, Jane"})).Required()

	t.Run("disabled returns the base directory", func(t *testing.T) {
		dir, closer, err := config.NewCacheForTest("", time.Minute).Configure(ctx, repo.User())
		gt.NoError(t, err).Required()
		defer closer()
		gt.V(t, dir).Equal(repo.User())
	})

	t.Run("enabled caches in redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		dir, closer, err := config.NewCacheForTest(mr.Addr(), time.Minute).Configure(ctx, repo.User())
		gt.NoError(t, err).Required()
		defer closer()

		name, err := dir.ResolveLongName(ctx, "u1")
		gt.NoError(t, err).Required()
		gt.V(t, name).Equal("Doe, Jane")
		gt.A(t, mr.Keys()).Length(1)
	})

	t.Run("unreachable redis fails", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		_, _, err := config.NewCacheForTest(addr, time.Minute).Configure(ctx, repo.User())
		gt.Error(t, err)
	})
}
