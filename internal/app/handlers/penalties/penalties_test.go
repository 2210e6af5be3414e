package penalties_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"akwa/internal/app/commands"
	"akwa/internal/app/dto"
	"akwa/internal/app/handlers/penalties"
	"akwa/internal/app/middleware"
	"akwa/internal/app/queries"
	domainpenalty "akwa/internal/domain/penalty"
	"akwa/internal/infra/storage/memory"
)

var base = time.Date(2025, time.May, 1, 9, 0, 0, 0, time.UTC)

func seedPenalties(t *testing.T, factory memory.Factory) {
	t.Helper()
	for i, host := range []string{"host-1", "host-2", "host-1"} {
		rec, err := domainpenalty.New(domainpenalty.CreateParams{
			ID:        domainpenalty.PenaltyID("pen-" + string(rune('a'+i))),
			BookingID: "bk-" + string(rune('a'+i)),
			HostID:    host,
			GuestID:   "guest-1",
			Amount:    int64(10_000 * (i + 1)),
			Currency:  "XOF",
			CreatedAt: base.AddDate(0, 0, i),
		})
		require.NoError(t, err)
		_, err = factory.PenaltyRepo.Create(context.Background(), rec)
		require.NoError(t, err)
	}
}

func buses(factory memory.Factory) (commands.Bus, queries.Bus) {
	h := &penalties.LifecycleHandler{Clock: func() time.Time { return base.AddDate(0, 1, 0) }}
	cmdBus := commands.NewInMemoryBus()
	commands.RegisterHandler[penalties.WaivePenaltyCommand, *dto.PenaltyView](cmdBus, "penalty.waive", commands.HandlerFunc[penalties.WaivePenaltyCommand, *dto.PenaltyView](h.Waive))
	commands.RegisterHandler[penalties.MarkCollectedCommand, *dto.PenaltyView](cmdBus, "penalty.collect", commands.HandlerFunc[penalties.MarkCollectedCommand, *dto.PenaltyView](h.MarkCollected))

	qBus := queries.NewInMemoryBus()
	queries.RegisterHandler[penalties.ListPenaltiesQuery, *dto.PenaltyCollection](qBus, "penalty.list", &penalties.ListPenaltiesHandler{UoWFactory: factory})

	authz := middleware.RoleAuthorizer{}
	return middleware.ChainCommands(cmdBus, middleware.Authorization(authz), middleware.Transaction(factory, nil)),
		middleware.ChainQueries(qBus, middleware.QueryAuthorization(authz))
}

func adminCtx() context.Context {
	return middleware.WithPrincipal(context.Background(), middleware.Principal{ID: "ops-1", Roles: []string{penalties.RoleAdmin}})
}

func TestWaive_RecordsReasonAndEvent(t *testing.T) {
	factory := memory.NewFactory()
	seedPenalties(t, factory)
	cmdBus, _ := buses(factory)

	view, err := commands.Dispatch[penalties.WaivePenaltyCommand, *dto.PenaltyView](adminCtx(), cmdBus,
		penalties.WaivePenaltyCommand{PenaltyID: "pen-a", Reason: "guest relocated at host's expense", Notes: "ticket 42"})
	require.NoError(t, err)

	assert.Equal(t, "waived", view.Status)
	assert.Equal(t, "guest relocated at host's expense", view.WaivedReason)
	assert.Equal(t, "ticket 42", view.AdminNotes)
	require.NotNil(t, view.ResolvedAt)

	stored, err := factory.PenaltyRepo.ByID(context.Background(), "pen-a")
	require.NoError(t, err)
	assert.Equal(t, domainpenalty.StatusWaived, stored.Status)
	assert.Equal(t, 1, factory.OutboxStore.Pending())
}

func TestCollect_DefaultsToManualAndRejectsSecondTransition(t *testing.T) {
	factory := memory.NewFactory()
	seedPenalties(t, factory)
	cmdBus, _ := buses(factory)

	view, err := commands.Dispatch[penalties.MarkCollectedCommand, *dto.PenaltyView](adminCtx(), cmdBus, penalties.MarkCollectedCommand{PenaltyID: "pen-b"})
	require.NoError(t, err)
	assert.Equal(t, "collected_manually", view.Status)

	_, err = commands.Dispatch[penalties.WaivePenaltyCommand, *dto.PenaltyView](adminCtx(), cmdBus, penalties.WaivePenaltyCommand{PenaltyID: "pen-b", Reason: "late"})
	assert.ErrorIs(t, err, domainpenalty.ErrInvalidTransition)

	stored, err := factory.PenaltyRepo.ByID(context.Background(), "pen-b")
	require.NoError(t, err)
	assert.Equal(t, domainpenalty.StatusCollectedManually, stored.Status)
	assert.Equal(t, 1, factory.OutboxStore.Pending())
}

func TestLifecycle_RequiresAdmin(t *testing.T) {
	factory := memory.NewFactory()
	seedPenalties(t, factory)
	cmdBus, qBus := buses(factory)

	_, err := commands.Dispatch[penalties.WaivePenaltyCommand, *dto.PenaltyView](context.Background(), cmdBus, penalties.WaivePenaltyCommand{PenaltyID: "pen-a", Reason: "x"})
	assert.ErrorIs(t, err, middleware.ErrUnauthenticated)

	hostCtx := middleware.WithPrincipal(context.Background(), middleware.Principal{ID: "host-1", Roles: []string{"host"}})
	_, err = queries.Ask[penalties.ListPenaltiesQuery, *dto.PenaltyCollection](hostCtx, qBus, penalties.ListPenaltiesQuery{})
	assert.ErrorIs(t, err, middleware.ErrForbidden)
}

func TestList_FiltersAndPages(t *testing.T) {
	factory := memory.NewFactory()
	seedPenalties(t, factory)
	_, qBus := buses(factory)

	all, err := queries.Ask[penalties.ListPenaltiesQuery, *dto.PenaltyCollection](adminCtx(), qBus, penalties.ListPenaltiesQuery{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)
	assert.Equal(t, 50, all.Limit)
	require.Len(t, all.Items, 3)
	assert.Equal(t, "pen-c", all.Items[0].ID)

	host, err := queries.Ask[penalties.ListPenaltiesQuery, *dto.PenaltyCollection](adminCtx(), qBus, penalties.ListPenaltiesQuery{HostID: "host-1", Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, host.Total)
	require.Len(t, host.Items, 1)
	assert.Equal(t, "pen-a", host.Items[0].ID)

	capped, err := queries.Ask[penalties.ListPenaltiesQuery, *dto.PenaltyCollection](adminCtx(), qBus, penalties.ListPenaltiesQuery{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 200, capped.Limit)
}
