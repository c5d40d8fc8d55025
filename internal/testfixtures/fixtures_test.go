package testfixtures

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/table-reservations/internal/application"
	"github.com/example/table-reservations/internal/persistence"
	"github.com/example/table-reservations/internal/scheduler"
)

func TestReservationFixtureUsesDefaultDuration(t *testing.T) {
	fixture := NewReservationFixture("table-x",
		WithReservationSlot("2024-03-16", "20:15"),
		WithReservationCreator("staff-1"),
	)
	row := fixture.Persistence()

	assert.Equal(t, "20:15", row.StartTime)
	assert.Equal(t, "21:45", row.EndTime)
	assert.Nil(t, row.CustomerID)
	require.NotNil(t, row.TableID)
	assert.Equal(t, "table-x", *row.TableID)
	assert.Equal(t, "staff-1", row.CreatedByID)
}

func TestSQLiteHarnessRoundTrip(t *testing.T) {
	harness := NewSQLiteHarness(t)
	ctx := context.Background()

	customer := NewAccountFixture(WithAccountEmail("harness@example.com"))
	table := NewTableFixture(WithTableCapacity(6), WithTableZone(scheduler.ZoneTerrace))
	booking := NewReservationFixture(table.ID,
		WithReservationCustomer(customer.ID),
		WithReservationZone(scheduler.ZoneTerrace),
		WithReservationParty(5),
	)

	harness.InsertAccounts(t, customer)
	harness.InsertTables(t, table)
	harness.InsertReservations(t, booking)

	account, err := harness.Storage.Accounts.GetAccountByEmail(ctx, "harness@example.com")
	require.NoError(t, err)
	assert.Equal(t, string(application.RoleCustomer), account.Role)

	stored, err := harness.Storage.Tables.GetTable(ctx, table.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, stored.Capacity)

	rows, err := harness.Storage.Reservations.ListReservations(ctx, persistence.ReservationFilter{CustomerID: customer.ID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, booking.ID, rows[0].ID)
	assert.Equal(t, 5, rows[0].PartySize)
}
