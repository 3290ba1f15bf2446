package repository_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/jask/medadmin/internal/database"
	"github.com/jask/medadmin/internal/database/repository"
)

func openJournal(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "journal.db")
	require.NoError(t, database.RunMigrations(dbPath))
	// second run is a no-op
	require.NoError(t, database.RunMigrations(dbPath))
	db, err := database.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func entry(principal, method string, at time.Time, outcome repository.Outcome) repository.Activity {
	return repository.Activity{
		ID:        uuid.NewString(),
		At:        at,
		Principal: principal,
		Method:    method,
		Outcome:   outcome,
	}
}

func TestActivityAddAndList(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewActivityRepo(openJournal(t))
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first := entry("aaaaa-aa", "registerDoctor", base, repository.OutcomeOK)
	first.Target = "hospital 1"
	require.NoError(t, repo.Add(ctx, first))
	require.NoError(t, repo.Add(ctx, entry("bbbbb-bb", "addMedicalRecord", base.Add(time.Minute), repository.OutcomeError)))
	require.NoError(t, repo.Add(ctx, entry("aaaaa-aa", "deactivateDoctor", base.Add(2*time.Minute), repository.OutcomeRejected)))

	all, err := repo.ListRecent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "deactivateDoctor", all[0].Method)
	require.Equal(t, repository.OutcomeRejected, all[0].Outcome)

	mine, err := repo.ListRecent(ctx, "aaaaa-aa", 10)
	require.NoError(t, err)
	require.Len(t, mine, 2)

	oldest := mine[1]
	require.Equal(t, first.ID, oldest.ID)
	require.Equal(t, "hospital 1", oldest.Target)
	require.True(t, oldest.At.Equal(base))

	none, err := repo.ListRecent(ctx, "ccccc-cc", 10)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestActivityPruneInTx(t *testing.T) {
	ctx := context.Background()
	db := openJournal(t)
	repo := repository.NewActivityRepo(db)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Add(ctx, entry("aaaaa-aa", "getHospitals", base.Add(time.Duration(i)*time.Second), repository.OutcomeOK)))
	}

	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		n, err := repo.WithTx(tx).Prune(ctx, 2)
		require.Equal(t, int64(3), n)
		return err
	})
	require.NoError(t, err)

	left, err := repo.ListRecent(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, left, 2)
	require.True(t, left[0].At.Equal(base.Add(4*time.Second)))
}
