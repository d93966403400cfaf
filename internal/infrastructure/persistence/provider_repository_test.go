package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/textileplan/backend/internal/domain/partner"
	"github.com/textileplan/backend/internal/domain/shared"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockProviderRepository creates a GormProviderRepository with a mocked SQL connection
func newMockProviderRepository(t *testing.T) (*GormProviderRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormProviderRepository(gormDB), mock, mockDB
}

var providerColumns = []string{"id", "name", "email", "phone_number", "address", "notes", "created_at", "updated_at"}

func newTestProvider(t *testing.T, name string) *partner.Provider {
	t.Helper()
	p, err := partner.NewProvider(name, "", "", "", "")
	require.NoError(t, err)
	return p
}

func TestGormProviderRepository_Postgres(t *testing.T) {
	ctx := context.Background()

	t.Run("finds existing provider", func(t *testing.T) {
		repo, mock, mockDB := newMockProviderRepository(t)
		defer mockDB.Close()

		id := uuid.New()
		now := time.Now()
		rows := sqlmock.NewRows(providerColumns).
			AddRow(id.String(), "Textiles ABC", "ventas@abc.com", "+57 1 234", "Calle 1", "", now, now)

		mock.ExpectQuery(`SELECT \* FROM "providers" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(id, 1).
			WillReturnRows(rows)

		p, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, p.ID)
		assert.Equal(t, "Textiles ABC", p.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for missing provider", func(t *testing.T) {
		repo, mock, mockDB := newMockProviderRepository(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "providers" WHERE id = \$1`).
			WithArgs(id, 1).
			WillReturnRows(sqlmock.NewRows(providerColumns))

		p, err := repo.FindByID(ctx, id)
		assert.Nil(t, p)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("name lookup is case-insensitive", func(t *testing.T) {
		repo, mock, mockDB := newMockProviderRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "providers" WHERE LOWER\(name\) = \$1`).
			WithArgs("textiles abc").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		exists, err := repo.ExistsByName(ctx, "  Textiles ABC ")
		require.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("export orders by name then id", func(t *testing.T) {
		repo, mock, mockDB := newMockProviderRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "providers" WHERE LOWER\(name\) LIKE \$1 .*ORDER BY name ASC, id ASC`).
			WithArgs(`%50\%%`).
			WillReturnRows(sqlmock.NewRows(providerColumns))

		f := shared.DefaultFilter()
		f.NameContains = "50%"
		providers, err := repo.FindForExport(ctx, f)
		require.NoError(t, err)
		assert.Empty(t, providers)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates driver errors", func(t *testing.T) {
		repo, mock, mockDB := newMockProviderRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "providers"`).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.Count(ctx)
		assert.Error(t, err)
	})
}

func TestGormProviderRepository_SQLite(t *testing.T) {
	ctx := context.Background()

	t.Run("saves and finds by name", func(t *testing.T) {
		repo := NewGormProviderRepository(newTestDatabase(t).DB)
		p, err := partner.NewProvider("Textiles ABC", "Ventas@ABC.com", "+57 (1) 234-5678", "Calle 1", "")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, p))

		found, err := repo.FindByName(ctx, "textiles abc")
		require.NoError(t, err)
		assert.Equal(t, p.ID, found.ID)
		assert.Equal(t, "ventas@abc.com", found.Email)

		_, err = repo.FindByName(ctx, "other")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("save batch and count", func(t *testing.T) {
		repo := NewGormProviderRepository(newTestDatabase(t).DB)
		batch := []*partner.Provider{
			newTestProvider(t, "A"),
			newTestProvider(t, "B"),
			newTestProvider(t, "C"),
		}
		require.NoError(t, repo.SaveBatch(ctx, batch))
		require.NoError(t, repo.SaveBatch(ctx, nil))

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("export filters", func(t *testing.T) {
		repo := NewGormProviderRepository(newTestDatabase(t).DB)
		jan := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
		mar := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

		mk := func(name, email string, created time.Time) {
			p, err := partner.NewProvider(name, email, "", "", "")
			require.NoError(t, err)
			p.CreatedAt = created
			require.NoError(t, repo.Save(ctx, p))
		}
		mk("Zeta 100% Algodón", "zeta@x.com", jan)
		mk("alfa", "", mar)
		mk("Beta", "beta@x.com", mar)

		all, err := repo.FindForExport(ctx, shared.DefaultFilter())
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "Beta", all[0].Name)
		assert.Equal(t, "Zeta 100% Algodón", all[1].Name)
		assert.Equal(t, "alfa", all[2].Name)

		f := shared.DefaultFilter()
		f.NameContains = "100%"
		got, err := repo.FindForExport(ctx, f)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Zeta 100% Algodón", got[0].Name)

		f = shared.DefaultFilter()
		f.NonEmpty = []string{"email"}
		got, err = repo.FindForExport(ctx, f)
		require.NoError(t, err)
		assert.Len(t, got, 2)

		f = shared.DefaultFilter()
		from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		f.DateFrom = &from
		got, err = repo.FindForExport(ctx, f)
		require.NoError(t, err)
		assert.Len(t, got, 2)

		f = shared.DefaultFilter()
		f.Exact["email"] = "beta@x.com"
		got, err = repo.FindForExport(ctx, f)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Beta", got[0].Name)

		f = shared.DefaultFilter()
		f.NonEmpty = []string{"password"}
		_, err = repo.FindForExport(ctx, f)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("date range compares instants across zones", func(t *testing.T) {
		repo := NewGormProviderRepository(newTestDatabase(t).DB)
		bogota := time.FixedZone("COT", -5*60*60)

		p := newTestProvider(t, "Hilos Nocturnos")
		// 2024-03-02 01:00 UTC
		p.CreatedAt = time.Date(2024, 3, 1, 20, 0, 0, 0, bogota)
		require.NoError(t, repo.Save(ctx, p))

		f := shared.DefaultFilter()
		from := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
		f.DateFrom = &from
		got, err := repo.FindForExport(ctx, f)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].CreatedAt.Equal(p.CreatedAt))

		f = shared.DefaultFilter()
		to := time.Date(2024, 3, 1, 19, 0, 0, 0, bogota)
		f.DateTo = &to
		got, err = repo.FindForExport(ctx, f)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("delete missing provider", func(t *testing.T) {
		repo := NewGormProviderRepository(newTestDatabase(t).DB)
		assert.ErrorIs(t, repo.Delete(ctx, uuid.New()), shared.ErrNotFound)
	})
}
