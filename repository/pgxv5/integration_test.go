package pgxv5

import (
	"context"
	"testing"

	"github.com/dgonzalezf/cdcbox/outbox"
	"github.com/dgonzalezf/cdcbox/test"
	"github.com/dgonzalezf/cdcbox/vehicle"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCreateWithEventIntegration runs the dual insert against a real Postgres
// containerized instance.
func TestCreateWithEventIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	database, err := test.InitPostgresContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Terminate(ctx)
	})

	dsn, err := database.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	r := New(pool)
	car := vehicle.New(vehicle.CreateCarInput{Make: "Toyota", Model: "Camry", Year: 2023, Color: "Blue"})
	event := &outbox.Event{
		Id:            uuid.New(),
		AggregateType: "Car",
		AggregateId:   car.Id.String(),
		EventType:     "CarCreated",
		Payload:       []byte(`{"make":"Toyota","model":"Camry","year":2023}`),
		CreatedAt:     car.CreatedAt,
	}
	require.NoError(t, r.CreateWithEvent(ctx, car, event))

	var count int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM vehicle WHERE id=$1", car.Id).Scan(&count))
	assert.Equal(t, 1, count)
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT count(*) FROM outbox WHERE aggregate_id=$1 AND event_type='CarCreated'", car.Id.String()).Scan(&count))
	assert.Equal(t, 1, count)
}
