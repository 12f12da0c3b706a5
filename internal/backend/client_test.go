package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipment-maintenance-dashboard/config"
	"equipment-maintenance-dashboard/internal/session"
)

func newTestClient(t *testing.T, handler http.Handler, withCredentials bool) (*Client, *session.Session, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.BackendConfig{BaseURL: server.URL, Timeout: 5 * time.Second}
	if withCredentials {
		cfg.Username = "biomed1"
		cfg.Password = "secret"
	}
	sess := session.New()
	return NewClient(cfg, sess, zerolog.Nop()), sess, server
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_Login(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "biomed1", r.PostForm.Get("username"))
		assert.Equal(t, "secret", r.PostForm.Get("password"))
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "tok-1", "token_type": "bearer", "role": "Biomedical Engineer"})
	})
	client, sess, _ := newTestClient(t, mux, false)

	resp, err := client.Login(context.Background(), "biomed1", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", resp.AccessToken)

	token, ok := sess.Token()
	assert.True(t, ok)
	assert.Equal(t, "tok-1", token)
	assert.Equal(t, session.RoleBiomedical, sess.Role())
}

func TestClient_LoginRejectsUnknownRole(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "tok", "role": "visitor"})
	})
	client, sess, _ := newTestClient(t, mux, false)

	_, err := client.Login(context.Background(), "x", "y")
	assert.Error(t, err)
	assert.False(t, sess.Authenticated())
}

func TestClient_SendsBearerToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-abc", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"personnel_id": "T001", "name": "Asha", "role": "technician", "experience_years": 4})
	})
	client, sess, _ := newTestClient(t, mux, false)
	sess.Establish("tok-abc", session.RoleTechnician)

	profile, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T001", profile.PersonnelID)
	assert.Equal(t, 4.0, profile.ExperienceYears)
}

func TestClient_NoSessionWithoutCredentials(t *testing.T) {
	var hits int32
	client, _, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}), false)

	_, err := client.Equipments(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, atomic.LoadInt32(&hits), "no request may be sent without a token")
}

func TestClient_UnauthorizedClearsSessionAndReauthenticates(t *testing.T) {
	var logins, calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&logins, 1)
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "fresh", "role": "biomedical"})
	})
	mux.HandleFunc("/maintenance-log/pending-reviews", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"reviews": []map[string]string{{"maintenance_id": "M1", "equipment_id": "EQ-1"}}})
	})
	client, sess, _ := newTestClient(t, mux, true)
	sess.Establish("stale", session.RoleBiomedical)

	_, err := client.PendingReviews(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, IsUnauthorized(err))
	assert.False(t, sess.Authenticated(), "a 401 must clear the session")

	reviews, err := client.PendingReviews(context.Background())
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	testCases := []struct {
		name       string
		status     int
		body       string
		check      func(t *testing.T, err error)
		keepsToken bool
	}{
		{
			name:   "forbidden",
			status: http.StatusForbidden,
			body:   `{"detail":"Insufficient permissions"}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrForbidden)
				assert.NotErrorIs(t, err, ErrUnauthorized)
			},
			keepsToken: true,
		},
		{
			name:   "server error with detail",
			status: http.StatusInternalServerError,
			body:   `{"detail":"Could not generate unique maintenance ID"}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.True(t, apiErr.ServerError())
				assert.Equal(t, "Could not generate unique maintenance ID", apiErr.Detail)
			},
			keepsToken: true,
		},
		{
			name:   "server error without detail",
			status: http.StatusBadGateway,
			body:   `Bad Gateway`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Empty(t, apiErr.Detail)
				assert.False(t, IsNetwork(err))
			},
			keepsToken: true,
		},
		{
			name:   "validation detail list",
			status: http.StatusUnprocessableEntity,
			body:   `{"detail":[{"loc":["body","date"],"msg":"field required"}]}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Contains(t, apiErr.Detail, "field required")
			},
			keepsToken: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client, sess, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}), false)
			sess.Establish("tok", session.RoleBiomedical)

			_, err := client.Schedule(context.Background(), "EQ-1", ScheduleRequest{MaintenanceType: "Preventive", Date: "2025-01-01", IssueDescription: "noise"})
			require.Error(t, err)
			tc.check(t, err)
			assert.Equal(t, tc.keepsToken, sess.Authenticated())
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	client, sess, server := newTestClient(t, http.NotFoundHandler(), false)
	sess.Establish("tok", session.RoleTechnician)
	server.Close()

	_, err := client.NewScheduled(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestClient_DecodesTuples(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/equipments", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"equipments":[["EQ-001","Ventilator","Philips","ICU","High","2018-06-01"],["EQ-002","Infusion Pump","BD","Ward 3","Medium","2021-02-10"]]}`))
	})
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"users":[["T001","Asha","technician","Biomed",6],["B001","Ravi","biomedical engineer","Biomed",null]]}`))
	})
	client, sess, _ := newTestClient(t, mux, false)
	sess.Establish("tok", session.RoleAdmin)

	equipment, err := client.Equipments(context.Background())
	require.NoError(t, err)
	require.Len(t, equipment, 2)
	assert.Equal(t, Equipment{ID: "EQ-001", Type: "Ventilator", Manufacturer: "Philips", Location: "ICU", Criticality: "High", InstallationDate: "2018-06-01"}, equipment[0])

	users, err := client.Users(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, 6.0, users[0].ExperienceYears)
	assert.Equal(t, "biomedical engineer", users[1].Role)
}

func TestClient_SkipsMalformedTuples(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/equipments", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"equipments":[["EQ-001","Ventilator"],["EQ-002","Infusion Pump","BD","Ward 3","Medium","2021-02-10"]]}`))
	})
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"users":[["T001","Asha","technician","Biomed","six"],["B001","Ravi","biomedical engineer","Biomed",7],["A001"]]}`))
	})
	client, sess, _ := newTestClient(t, mux, false)
	sess.Establish("tok", session.RoleAdmin)

	equipment, err := client.Equipments(context.Background())
	require.NoError(t, err)
	require.Len(t, equipment, 1)
	assert.Equal(t, "EQ-002", equipment[0].ID)

	users, err := client.Users(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "B001", users[0].PersonnelID)
	assert.Equal(t, 7.0, users[0].ExperienceYears)
}

func TestClient_MaintenanceTypesFallback(t *testing.T) {
	client, sess, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"maintenance_types":[]}`))
	}), false)
	sess.Establish("tok", session.RoleBiomedical)

	types, err := client.MaintenanceTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Preventive", "Corrective", "Replacement"}, types)
}

func TestClient_ReviewCompletionBody(t *testing.T) {
	client, sess, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/maintenance-log/review-completion/M-17", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{"service_rating": float64(4), "completion_status": "Approved"}, body)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Reviewed", "updated_status": "Completed", "equipment_id": "EQ-9"})
	}), false)
	sess.Establish("tok", session.RoleBiomedical)

	resp, err := client.ReviewCompletion(context.Background(), "M-17", ReviewRequest{ServiceRating: 4, CompletionStatus: "Approved"})
	require.NoError(t, err)
	assert.Equal(t, "EQ-9", resp.EquipmentID)
}
