package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/triviagame/internal/storage"
	"github.com/mcoot/triviagame/internal/storage/storagetest"
)

// dsnEnv names a disposable database the tests may wipe
const dsnEnv = "TRIVIA_TEST_POSTGRES_DSN"

type StorageSuite struct {
	storagetest.Suite
}

func TestStorageSuite(t *testing.T) {
	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}

	suite.Run(t, &StorageSuite{
		Suite: storagetest.Suite{
			NewStorage: func(t *testing.T) storage.Storage {
				ctx := context.Background()
				pool, err := pgxpool.New(ctx, dsn)
				require.NoError(t, err)
				t.Cleanup(pool.Close)

				s := NewWithPool(pool)
				require.NoError(t, s.Migrate(ctx))
				_, err = pool.Exec(ctx, `TRUNCATE answers, participations, questions, games, categories, registered_players, players`)
				require.NoError(t, err)
				return s
			},
		},
	})
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5433, User: "trivia", Password: "secret", Database: "trivia", SSLMode: "require"}
	require.Equal(t, "postgres://trivia:secret@db:5433/trivia?sslmode=require", cfg.DSN())
}
