package repomanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dmitrijs2005/santatracker/internal/dbx"
	"github.com/dmitrijs2005/santatracker/internal/models"
)

func TestOpen_Postgres_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("santa"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := Open(ctx, "pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	dests := []models.Destination{
		{ID: "b", Arrival: time.UnixMilli(3000), Departure: time.UnixMilli(4000), City: "B"},
		{ID: "a", Arrival: time.UnixMilli(1000), Departure: time.UnixMilli(2000), City: "A",
			Weather: &models.Weather{TempC: 1}},
	}
	err = dbx.WithTx(ctx, m.DB(), nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := m.Destinations(tx).InsertAll(ctx, dests); err != nil {
			return err
		}
		if err := m.StreamEntries(tx).InsertAll(ctx, []models.StreamEntry{
			{Timestamp: time.UnixMilli(1500), Kind: models.StreamStatus, IsNotification: true, Content: "x"},
		}); err != nil {
			return err
		}
		return m.Metadata(tx).Set(ctx, models.MetaLanguage, "en")
	})
	require.NoError(t, err)

	list, err := m.Destinations(m.DB()).All(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	require.NotNil(t, list[0].Weather)

	last, err := m.Destinations(m.DB()).Last(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", last.ID)

	e, err := m.StreamEntries(m.DB()).Get(ctx, time.UnixMilli(1500))
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.True(t, e.IsNotification)

	lang, ok, err := m.Metadata(m.DB()).Get(ctx, models.MetaLanguage)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "en", lang)
}
