package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muhammadahmed9211/clinic-saas/internal/metrics"
	"github.com/muhammadahmed9211/clinic-saas/internal/models"
)

type staticIDs struct{ id string }

func (s staticIDs) StableID(context.Context) (string, bool) {
	return s.id, s.id != ""
}

type recorded struct {
	query     map[string][]string
	body      map[string]any
	requestID string
}

type backend struct {
	mu       sync.Mutex
	requests []recorded
	reply    func(w http.ResponseWriter, body map[string]any)
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	b.requests = append(b.requests, recorded{query: r.URL.Query(), body: body, requestID: r.Header.Get("X-Request-Id")})
	b.mu.Unlock()

	if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if b.reply != nil {
		b.reply(w, body)
		return
	}
	_, _ = w.Write([]byte(`{}`))
}

func (b *backend) last(t *testing.T) recorded {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.requests)
	return b.requests[len(b.requests)-1]
}

func newClient(t *testing.T, b *backend, ids IdentifierSource) (*Client, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	m := metrics.New()
	c, err := New(Config{Endpoint: srv.URL}, ids, zerolog.Nop(), m)
	require.NoError(t, err)
	return c, m
}

func TestStableIDAttachedWhenPersisted(t *testing.T) {
	b := &backend{reply: func(w http.ResponseWriter, _ map[string]any) { _, _ = w.Write([]byte(`[]`)) }}
	c, _ := newClient(t, b, staticIDs{id: "user-123"})

	_, err := c.GetDoctors(context.Background())
	require.NoError(t, err)

	req := b.last(t)
	assert.Equal(t, []string{"user-123"}, req.query["uuid"])
	assert.Equal(t, "getDoctors", req.body["action"])
	assert.NotEmpty(t, req.requestID)
}

func TestStableIDAbsentWithoutSession(t *testing.T) {
	b := &backend{reply: func(w http.ResponseWriter, _ map[string]any) { _, _ = w.Write([]byte(`[]`)) }}

	for name, ids := range map[string]IdentifierSource{"nothing persisted": staticIDs{}, "no source": nil} {
		t.Run(name, func(t *testing.T) {
			c, _ := newClient(t, b, ids)
			_, err := c.GetDoctors(context.Background())
			require.NoError(t, err)

			_, present := b.last(t).query["uuid"]
			assert.False(t, present)
		})
	}
}

func TestEndpointQueryPreserved(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	c, err := New(Config{Endpoint: srv.URL + "/exec?deployment=v2"}, staticIDs{id: "u"}, zerolog.Nop(), nil)
	require.NoError(t, err)
	require.NoError(t, c.CancelAppointment(context.Background(), "7"))

	req := b.last(t)
	assert.Equal(t, []string{"v2"}, req.query["deployment"])
	assert.Equal(t, []string{"u"}, req.query["uuid"])
}

func TestRequestBodies(t *testing.T) {
	b := &backend{}
	c, _ := newClient(t, b, nil)
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
		want map[string]any
	}{
		{
			name: "createAppointment",
			call: func() error {
				_, err := c.CreateAppointment(ctx, models.NewAppointment{
					UserID: "u1", DoctorID: "D1", Date: "2025-06-01", TimeSlot: "10:00", Status: models.AppointmentPending,
				})
				return err
			},
			want: map[string]any{
				"action": "createAppointment",
				"data": map[string]any{
					"user_id": "u1", "doctor_id": "D1", "date": "2025-06-01", "time_slot": "10:00", "status": "pending",
				},
			},
		},
		{
			name: "getAppointments",
			call: func() error { _, err := c.GetAppointments(ctx, "u1"); return err },
			want: map[string]any{"action": "getAppointments", "userId": "u1"},
		},
		{
			name: "updateAppointment",
			call: func() error {
				_, err := c.UpdateAppointment(ctx, "a1", map[string]any{"time_slot": "11:00"})
				return err
			},
			want: map[string]any{"action": "updateAppointment", "appointmentId": "a1", "updates": map[string]any{"time_slot": "11:00"}},
		},
		{
			name: "cancelAppointment",
			call: func() error { return c.CancelAppointment(ctx, "a1") },
			want: map[string]any{"action": "cancelAppointment", "appointmentId": "a1"},
		},
		{
			name: "createPaymentSession",
			call: func() error {
				_, err := c.CreatePaymentSession(ctx, models.PaymentSessionRequest{
					Amount: 1500, OrderID: "APPT-a1", Gateway: models.GatewayJazzCash, AppointmentID: "a1",
					SuccessURL: "http://s", CancelURL: "http://c",
				})
				return err
			},
			want: map[string]any{
				"action": "createPaymentSession",
				"data": map[string]any{
					"amount": 1500.0, "orderId": "APPT-a1", "gateway": "jazzcash", "appointmentId": "a1",
					"successUrl": "http://s", "cancelUrl": "http://c",
				},
			},
		},
		{
			name: "getPaymentStatus",
			call: func() error { _, err := c.GetPaymentStatus(ctx, "txn-1"); return err },
			want: map[string]any{"action": "getPaymentStatus", "transactionId": "txn-1"},
		},
		{
			name: "getPayments",
			call: func() error { _, err := c.GetPayments(ctx, "u1"); return err },
			want: map[string]any{"action": "getPayments", "userId": "u1"},
		},
		{
			name: "getDoctors",
			call: func() error { _, err := c.GetDoctors(ctx); return err },
			want: map[string]any{"action": "getDoctors"},
		},
		{
			name: "getAvailableSlots",
			call: func() error { _, err := c.GetAvailableSlots(ctx, "D1", "2025-06-01"); return err },
			want: map[string]any{"action": "getAvailableSlots", "doctorId": "D1", "date": "2025-06-01"},
		},
		{
			name: "updateProfile",
			call: func() error {
				_, err := c.UpdateProfile(ctx, "u1", models.UserMetadata{Name: "Amna", Phone: "0300"})
				return err
			},
			want: map[string]any{"action": "updateProfile", "userId": "u1", "data": map[string]any{"name": "Amna", "phone": "0300"}},
		},
		{
			name: "getDashboardStats",
			call: func() error { _, err := c.GetDashboardStats(ctx, "u1", models.UserRoleDoctor); return err },
			want: map[string]any{"action": "getDashboardStats", "userId": "u1", "role": "doctor"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, tc.call())
			assert.Equal(t, tc.want, b.last(t).body)
		})
	}
}

func TestLooselyTypedRecordsDecode(t *testing.T) {
	b := &backend{reply: func(w http.ResponseWriter, _ map[string]any) {
		_, _ = w.Write([]byte(`[{"id": 12, "user_id": "u1", "doctor_id": 3, "doctor_name": "Dr. Khan",
			"specialization": "Cardiology", "date": "2025-06-01", "time_slot": "10:00", "status": "pending", "fee": "1500"}]`))
	}}
	c, _ := newClient(t, b, nil)

	appts, err := c.GetAppointments(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "12", appts[0].ID)
	assert.Equal(t, "3", appts[0].DoctorID)
	assert.Equal(t, 1500.0, appts[0].Fee)
	assert.Equal(t, models.AppointmentPending, appts[0].Status)
}

func TestPaymentResponses(t *testing.T) {
	b := &backend{reply: func(w http.ResponseWriter, body map[string]any) {
		switch body["action"] {
		case ActionCreatePaymentSession:
			_, _ = w.Write([]byte(`{"redirectUrl":"https://pay.example/checkout/1","transactionId":"txn-1"}`))
		case ActionGetPaymentStatus:
			_, _ = w.Write([]byte(`{"status":"paid","payment":{"id":"p1","amount":"1500","gateway":"card","status":"paid","transaction_id":"txn-1"}}`))
		}
	}}
	c, _ := newClient(t, b, nil)
	ctx := context.Background()

	session, err := c.CreatePaymentSession(ctx, models.PaymentSessionRequest{Gateway: models.GatewayCard})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/checkout/1", session.RedirectURL)
	assert.Equal(t, "txn-1", session.TransactionID)

	state, err := c.GetPaymentStatus(ctx, "txn-1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, state.Status)
	require.NotNil(t, state.Payment)
	assert.Equal(t, 1500.0, state.Payment.Amount)
}

func TestErrorMessagePrecedence(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   Kind
		want   string
	}{
		{"server message on 4xx", http.StatusBadRequest, `{"error":"Slot already taken"}`, KindApplication, "Slot already taken"},
		{"server message on 200", http.StatusOK, `{"success":false,"error":"Doctor not found"}`, KindApplication, "Doctor not found"},
		{"status code without message", http.StatusInternalServerError, `<html>oops</html>`, KindTransport, "Request failed with status code 500"},
		{"non-string error ignored", http.StatusBadGateway, `{"error":{"code":1}}`, KindTransport, "Request failed with status code 502"},
		{"empty error ignored on 200", http.StatusOK, `{"error":""}`, "", ""},
		{"undecodable success body", http.StatusOK, `not json`, KindTransport, "An error occurred"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := &backend{reply: func(w http.ResponseWriter, _ map[string]any) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}}
			c, _ := newClient(t, b, nil)

			_, err := c.GetDashboardStats(context.Background(), "u1", models.UserRolePatient)
			if tc.want == "" {
				require.NoError(t, err)
				return
			}

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.kind, apiErr.Kind)
			assert.Equal(t, tc.want, apiErr.Message)
			assert.Equal(t, tc.want, Message(err))
		})
	}
}

func TestTimeoutIsTransportFailure(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	m := metrics.New()
	c, err := New(Config{Endpoint: srv.URL, Timeout: 50 * time.Millisecond}, nil, zerolog.Nop(), m)
	require.NoError(t, err)

	_, err = c.GetDoctors(context.Background())
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.Equal(t, "timeout of 50ms exceeded", apiErr.Message)
}

func TestDefaultTimeoutIsThirtySeconds(t *testing.T) {
	c, err := New(Config{Endpoint: "http://127.0.0.1:1"}, nil, zerolog.Nop(), nil)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)
}

func TestNetworkErrorIsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	c, err := New(Config{Endpoint: endpoint}, nil, zerolog.Nop(), nil)
	require.NoError(t, err)

	err = c.CancelAppointment(context.Background(), "a1")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.Equal(t, "Network Error", apiErr.Message)
	assert.NotNil(t, apiErr.Unwrap())
}

func TestNoRetryOnFailure(t *testing.T) {
	b := &backend{reply: func(w http.ResponseWriter, _ map[string]any) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}}
	c, m := newClient(t, b, nil)

	_, err := c.GetPayments(context.Background(), "u1")
	require.Error(t, err)
	assert.Len(t, b.requests, 1)
	assert.Equal(t, 1, testutil.CollectAndCount(m.Registry, "clinicbook_backend_calls_total"))
}

func TestGetAppointmentsIdempotent(t *testing.T) {
	b := &backend{reply: func(w http.ResponseWriter, _ map[string]any) {
		_, _ = w.Write([]byte(`[{"id":"a1","status":"pending"},{"id":"a2","status":"completed"}]`))
	}}
	c, _ := newClient(t, b, staticIDs{id: "u1"})
	ctx := context.Background()

	first, err := c.GetAppointments(ctx, "u1")
	require.NoError(t, err)
	second, err := c.GetAppointments(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRateLimiterPacesCalls(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)

	c, err := New(Config{Endpoint: srv.URL, RateLimit: 1, Burst: 1}, nil, zerolog.Nop(), nil)
	require.NoError(t, err)

	require.NoError(t, c.CancelAppointment(context.Background(), "a1"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = c.CancelAppointment(ctx, "a2")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.Len(t, b.requests, 1, "throttled call never reached the backend")
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New(Config{}, nil, zerolog.Nop(), nil)
	assert.Error(t, err)
}
