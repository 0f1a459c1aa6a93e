package profiles

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/kinlink/internal/common"
	"github.com/dmitrijs2005/kinlink/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	columns = []string{"id", "share_code", "legacy_id", "display_name", "biography", "photo_key", "version", "deleted_at", "created_at"}
	created = time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
)

const (
	insertQ  = `(?s)^INSERT\s+INTO\s+profiles\s*\(id,\s*share_code,\s*legacy_id,\s*display_name,\s*biography,\s*photo_key\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*ON\s+CONFLICT\s*\(share_code\)\s*DO\s+NOTHING\s+RETURNING\s+version,\s*created_at$`
	selectQ  = `(?s)^SELECT\s+id,\s*share_code,\s*legacy_id,\s*display_name,\s*biography,\s*photo_key,\s*version,\s*deleted_at,\s*created_at\s+FROM\s+profiles`
	byIDQ    = selectQ + `\s+WHERE\s+id\s*=\s*\$1$`
	byCodeQ  = selectQ + `\s+WHERE\s+share_code\s*=\s*\$1$`
	byLegacy = selectQ + `\s+WHERE\s+legacy_id\s*=\s*\$1$`
	manyQ    = selectQ + `\s+WHERE\s+id\s+IN\s+\(\$1,\s*\$2\)$`
	listQ    = selectQ + `\s+ORDER\s+BY\s+created_at,\s*id\s+LIMIT\s+\$1$`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresRepository(db), mock
}

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(insertQ).
		WithArgs("p-1", "abc12", nil, "Ann", "", "").
		WillReturnRows(sqlmock.NewRows([]string{"version", "created_at"}).AddRow(int64(1), created))

	got, err := repo.Create(context.Background(), &models.Profile{ID: "p-1", ShareCode: "abc12", DisplayName: "Ann"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, created, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_LegacyStored(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(insertQ).
		WithArgs("p-1", "abc12", "H1.2", "Ann", "bio", "photos/p-1").
		WillReturnRows(sqlmock.NewRows([]string{"version", "created_at"}).AddRow(int64(1), created))

	_, err := repo.Create(context.Background(), &models.Profile{ID: "p-1", ShareCode: "abc12", LegacyID: "H1.2", DisplayName: "Ann", Biography: "bio", PhotoKey: "photos/p-1"})
	require.NoError(t, err)
}

func TestCreate_ShareCodeCollision(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(insertQ).
		WillReturnRows(sqlmock.NewRows([]string{"version", "created_at"}))

	_, err := repo.Create(context.Background(), &models.Profile{ID: "p-1", ShareCode: "abc12"})
	require.ErrorIs(t, err, ErrShareCodeTaken)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(insertQ).
		WillReturnError(errors.New("legacy id taken"))

	_, err := repo.Create(context.Background(), &models.Profile{ID: "p-1", ShareCode: "abc12"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrShareCodeTaken)
	assert.Contains(t, err.Error(), "db error")
}

func TestGetters(t *testing.T) {
	deleted := created.Add(time.Hour)

	tests := []struct {
		name  string
		query string
		arg   string
		call  func(*PostgresRepository) (*models.Profile, error)
	}{
		{"by id", byIDQ, "p-1", func(r *PostgresRepository) (*models.Profile, error) { return r.GetByID(context.Background(), "p-1") }},
		{"by share code", byCodeQ, "abc12", func(r *PostgresRepository) (*models.Profile, error) {
			return r.GetByShareCode(context.Background(), "abc12")
		}},
		{"by legacy id", byLegacy, "H1.2", func(r *PostgresRepository) (*models.Profile, error) {
			return r.GetByLegacyID(context.Background(), "H1.2")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			mock.ExpectQuery(tt.query).WithArgs(tt.arg).
				WillReturnRows(sqlmock.NewRows(columns).AddRow("p-1", "abc12", "H1.2", "Ann", "bio", "k", int64(3), deleted, created))

			p, err := tt.call(repo)
			require.NoError(t, err)
			assert.Equal(t, "p-1", p.ID)
			assert.Equal(t, "H1.2", p.LegacyID)
			assert.Equal(t, int64(3), p.Version)
			require.NotNil(t, p.DeletedAt)
			assert.True(t, p.IsDeleted())
			assert.Equal(t, deleted, *p.DeletedAt)
		})
	}
}

func TestGetByID_NullColumns(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(byIDQ).WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("p-1", "abc12", nil, "Ann", "", "", int64(1), nil, created))

	p, err := repo.GetByID(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Empty(t, p.LegacyID)
	assert.Nil(t, p.DeletedAt)
	assert.False(t, p.IsDeleted())
}

func TestGetByShareCode_NotFoundAndError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(byCodeQ).WithArgs("nope1").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(byCodeQ).WithArgs("abc12").WillReturnError(errors.New("conn reset"))

	_, err := repo.GetByShareCode(context.Background(), "nope1")
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.GetByShareCode(context.Background(), "abc12")
	require.ErrorContains(t, err, "db error: conn reset")
}

func TestGetMany(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(manyQ).WithArgs("p-1", "p-2").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("p-1", "abc12", nil, "Ann", "", "", int64(1), nil, created).
			AddRow("p-2", "def34", nil, "Bob", "", "", int64(1), nil, created))

	got, err := repo.GetMany(context.Background(), []string{"p-1", "p-2"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "def34", got[1].ShareCode)
}

func TestGetMany_EmptyIDsSkipsQuery(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	got, err := repo.GetMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(listQ).WithArgs(10).
		WillReturnRows(sqlmock.NewRows(columns).AddRow("p-1", "abc12", nil, "Ann", "", "", int64(1), nil, created))

	got, err := repo.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestList_RowError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(listQ).WithArgs(10).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("p-1", "abc12", nil, "Ann", "", "", int64(1), nil, created).
			RowError(0, errors.New("broken row")))

	_, err := repo.List(context.Background(), 10)
	require.ErrorContains(t, err, "broken row")
}

func TestList_QueryError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(listQ).WithArgs(10).WillReturnError(errors.New("down"))

	_, err := repo.List(context.Background(), 10)
	require.ErrorContains(t, err, "db error: down")
}
