package ginserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"akwa/internal/app/commands"
	"akwa/internal/app/dto"
	cancellationapp "akwa/internal/app/handlers/cancellation"
	"akwa/internal/app/handlers/penalties"
	"akwa/internal/app/middleware"
	"akwa/internal/app/queries"
	domainbooking "akwa/internal/domain/booking"
	domaincancellation "akwa/internal/domain/cancellation"
	ginserver "akwa/internal/infra/http/gin"
	"akwa/internal/infra/obs"
)

type stubCommands struct {
	got    commands.Command
	ctx    context.Context
	result any
	err    error
}

func (s *stubCommands) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	s.got = cmd
	s.ctx = ctx
	return s.result, s.err
}

type stubQueries struct {
	got    queries.Query
	result any
	err    error
}

func (s *stubQueries) Ask(ctx context.Context, q queries.Query) (any, error) {
	s.got = q
	return s.result, s.err
}

func newRouter(cmds *stubCommands, qs *stubQueries, adminHash []byte) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return ginserver.NewRouter(obs.Middleware{}, obs.HealthHandlers{}, ginserver.Handlers{
		Cancellation: ginserver.CancellationHandler{Commands: cmds, Queries: qs},
		Penalties:    ginserver.PenaltyHandler{Commands: cmds, Queries: qs},
		Identity:     ginserver.GatewayIdentity(),
		AdminAuth:    ginserver.AdminKey{Hash: adminHash}.Handle,
	})
}

func do(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestCancel_BuildsCommandFromRequest(t *testing.T) {
	cmds := &stubCommands{result: &dto.CancellationResult{BookingID: "bk-1", Status: "cancelled", RefundAmount: 500}}
	router := newRouter(cmds, &stubQueries{}, nil)

	rec, body := do(t, router, http.MethodPost, "/api/v1/bookings/bk-1/cancel",
		map[string]string{"actor": " Host ", "reason": "double booked", "penalty_payment_method": "pay_directly"},
		map[string]string{ginserver.HeaderUserID: "host-1", "Idempotency-Key": "idem-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bk-1", body["booking_id"])

	cmd, ok := cmds.got.(cancellationapp.CancelBookingCommand)
	require.True(t, ok)
	assert.Equal(t, "bk-1", cmd.BookingID)
	assert.Equal(t, "host", cmd.Actor)
	assert.Equal(t, "pay_directly", cmd.PenaltyPaymentMethod)
	assert.Equal(t, "host-1", cmd.RequestedBy)
	assert.Equal(t, "idem-1", cmd.IdempotencyKey())

	p, ok := middleware.PrincipalFromContext(cmds.ctx)
	require.True(t, ok)
	assert.Equal(t, "host-1", p.ID)
}

func TestCancel_RequiresPrincipal(t *testing.T) {
	router := newRouter(&stubCommands{}, &stubQueries{}, nil)
	rec, _ := do(t, router, http.MethodPost, "/api/v1/bookings/bk-1/cancel", map[string]string{"actor": "guest"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCancel_StatusMapping(t *testing.T) {
	info := &dto.CancellationInfo{BookingID: "bk-1", CanCancel: false, PenaltyAmount: 1000}
	cases := []struct {
		name   string
		result any
		err    error
		status int
		code   string
	}{
		{
			name:   "already cancelled returns stored outcome",
			result: &dto.CancellationResult{BookingID: "bk-1", AlreadyCancelled: true},
			err:    domainbooking.ErrAlreadyCancelled,
			status: http.StatusOK,
		},
		{
			name:   "policy forbids",
			result: &dto.CancellationResult{BookingID: "bk-1", Info: info},
			err:    domaincancellation.Reject(domaincancellation.ErrPolicyForbids, domaincancellation.Info{}),
			status: http.StatusUnprocessableEntity,
			code:   "policy_forbids",
		},
		{
			name:   "payment method required",
			result: &dto.CancellationResult{BookingID: "bk-1", Info: info},
			err:    domaincancellation.Reject(domaincancellation.ErrPaymentMethodRequired, domaincancellation.Info{}),
			status: http.StatusUnprocessableEntity,
			code:   "payment_method_required",
		},
		{name: "not found", err: domainbooking.ErrBookingNotFound, status: http.StatusNotFound, code: "not_found"},
		{name: "conflict", err: domainbooking.ErrConcurrentUpdate, status: http.StatusConflict, code: "concurrency_conflict"},
		{name: "actor mismatch", err: cancellationapp.ErrActorMismatch, status: http.StatusForbidden, code: "actor_mismatch"},
		{name: "unexpected", err: errors.New("disk on fire"), status: http.StatusInternalServerError, code: "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newRouter(&stubCommands{result: tc.result, err: tc.err}, &stubQueries{}, nil)
			rec, body := do(t, router, http.MethodPost, "/api/v1/bookings/bk-1/cancel",
				map[string]string{"actor": "guest"}, map[string]string{ginserver.HeaderUserID: "guest-1"})

			require.Equal(t, tc.status, rec.Code)
			if tc.code == "" {
				assert.Equal(t, true, body["already_cancelled"])
				return
			}
			assert.Equal(t, tc.code, body["error"])
			if tc.status == http.StatusUnprocessableEntity {
				details, ok := body["info"].(map[string]any)
				require.True(t, ok)
				assert.Equal(t, float64(1000), details["penalty_amount"])
			}
			if tc.status == http.StatusInternalServerError {
				assert.Equal(t, "internal error", body["message"])
			}
		})
	}
}

func TestQuote_PassesActorAndCaller(t *testing.T) {
	qs := &stubQueries{result: &dto.CancellationInfo{BookingID: "bk-1", Actor: "guest", RefundAmount: 900}}
	router := newRouter(&stubCommands{}, qs, nil)

	rec, body := do(t, router, http.MethodGet, "/api/v1/bookings/bk-1/cancellation?actor=GUEST", nil,
		map[string]string{ginserver.HeaderUserID: "guest-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(900), body["refund_amount"])
	q, ok := qs.got.(cancellationapp.GetCancellationQuery)
	require.True(t, ok)
	assert.Equal(t, "guest", q.Actor)
	assert.Equal(t, "guest-1", q.RequestedBy)
}

func TestAdmin_RequiresValidKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	cmds := &stubCommands{result: &dto.PenaltyView{ID: "pen-1", Status: "waived"}}
	router := newRouter(cmds, &stubQueries{}, hash)

	rec, _ := do(t, router, http.MethodPost, "/api/v1/admin/penalties/pen-1/waive", map[string]string{"reason": "goodwill"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, router, http.MethodPost, "/api/v1/admin/penalties/pen-1/waive", map[string]string{"reason": "goodwill"},
		map[string]string{ginserver.HeaderAdminKey: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, cmds.got)

	rec, body := do(t, router, http.MethodPost, "/api/v1/admin/penalties/pen-1/waive", map[string]string{"reason": "goodwill"},
		map[string]string{ginserver.HeaderAdminKey: "s3cret"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "waived", body["status"])

	cmd, ok := cmds.got.(penalties.WaivePenaltyCommand)
	require.True(t, ok)
	assert.Equal(t, "pen-1", cmd.PenaltyID)
	assert.Equal(t, "goodwill", cmd.Reason)
	p, ok := middleware.PrincipalFromContext(cmds.ctx)
	require.True(t, ok)
	assert.True(t, p.HasRole(penalties.RoleAdmin))
}

func TestAdmin_ListParsesFilters(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	qs := &stubQueries{result: &dto.PenaltyCollection{Total: 0, Limit: 10}}
	router := newRouter(&stubCommands{}, qs, hash)

	rec, _ := do(t, router, http.MethodGet, "/api/v1/admin/penalties?status=Pending&host_id=host-1&limit=10&offset=20", nil,
		map[string]string{ginserver.HeaderAdminKey: "s3cret"})

	require.Equal(t, http.StatusOK, rec.Code)
	q, ok := qs.got.(penalties.ListPenaltiesQuery)
	require.True(t, ok)
	assert.Equal(t, "pending", q.Status)
	assert.Equal(t, "host-1", q.HostID)
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, 20, q.Offset)
}
