// README: HTTP-level ride flow tests: auth, status mapping, and the lifecycle.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"campusride/internal/auth"
	"campusride/internal/http/handlers"
	"campusride/internal/http/middleware"
	"campusride/internal/maps"
	"campusride/internal/modules/pricing"
	"campusride/internal/modules/ride"
	"campusride/internal/types"
)

type stubRoutes struct{}

func (stubRoutes) ResolveRoute(context.Context, string, string) (maps.Route, error) {
	return maps.Route{DistanceKm: 12, DurationMin: 25, Pickup: maps.Coordinate{Lat: 28.545, Lng: 77.273}}, nil
}

type testEnv struct {
	router       *gin.Engine
	store        *ride.MemoryStore
	riderToken   string
	captainToken string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := ride.NewMemoryStore()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	rideSvc := ride.NewService(store, stubRoutes{}, pricing.NewService(), nil, log)

	verifier := auth.NewVerifier("test-secret")
	riderToken, _ := verifier.Sign(auth.Identity{Subject: "rider1", Role: auth.RoleRider})
	captainToken, _ := verifier.Sign(auth.Identity{Subject: "cap1", Role: auth.RoleCaptain})

	r := gin.New()
	api := r.Group("/api", middleware.Auth(verifier))
	h := handlers.NewRideHandler(rideSvc)
	rider := api.Group("", middleware.RequireRole(auth.RoleRider))
	rider.POST("/rides", h.Create)
	rider.POST("/rides/:id/cancel", h.Cancel)
	rider.GET("/rides/mine", h.ListMine)

	ch := handlers.NewCaptainHandler(rideSvc, nil)
	captains := api.Group("/captain", middleware.RequireRole(auth.RoleCaptain))
	captains.GET("/rides", ch.ListAvailable)
	captains.POST("/rides/:id/accept", ch.Accept)
	captains.POST("/rides/:id/start", ch.Start)
	captains.POST("/rides/:id/end", ch.End)

	api.GET("/rides/:id", h.Get)

	return &testEnv{router: r, store: store, riderToken: riderToken, captainToken: captainToken}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) createRide(t *testing.T) ride.Ride {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/rides", e.riderToken, map[string]string{
		"pickup": "Hostel Gate 3", "destination": "Academic Block B", "vehicle_class": "car",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create code = %d body=%s", w.Code, w.Body.String())
	}
	var r ride.Ride
	if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return r
}

func (e *testEnv) otp(t *testing.T, id types.ID) string {
	t.Helper()
	r, err := e.store.GetWithOTP(context.Background(), id)
	if err != nil {
		t.Fatalf("get with otp: %v", err)
	}
	return r.OTP
}

func TestCreateRideOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	r := env.createRide(t)
	if r.Fare != 152 || r.Status != ride.StatusPending {
		t.Fatalf("created ride = %+v", r)
	}
	if r.OTP != "" {
		t.Fatal("response leaked the otp")
	}
}

func TestCreateRequiresRiderRole(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/rides", env.captainToken, map[string]string{
		"pickup": "a", "destination": "b", "vehicle_class": "car",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("code = %d, want 403", w.Code)
	}
}

func TestCreateUnauthenticated(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/rides", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", w.Code)
	}
}

func TestFullLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	r := env.createRide(t)
	base := "/api/captain/rides/" + string(r.ID)

	if w := env.do(t, http.MethodPost, base+"/accept", env.captainToken, nil); w.Code != http.StatusOK {
		t.Fatalf("accept code = %d body=%s", w.Code, w.Body.String())
	}
	// Second accept loses the claim.
	if w := env.do(t, http.MethodPost, base+"/accept", env.captainToken, nil); w.Code != http.StatusConflict {
		t.Fatalf("re-accept code = %d, want 409", w.Code)
	}

	if w := env.do(t, http.MethodPost, base+"/start", env.captainToken, map[string]string{"otp": "000000"}); w.Code != http.StatusForbidden {
		t.Fatalf("wrong otp code = %d, want 403", w.Code)
	}
	if w := env.do(t, http.MethodPost, base+"/start", env.captainToken, map[string]string{"otp": env.otp(t, r.ID)}); w.Code != http.StatusOK {
		t.Fatalf("start code = %d body=%s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodPost, base+"/end", env.captainToken, nil); w.Code != http.StatusOK {
		t.Fatalf("end code = %d body=%s", w.Code, w.Body.String())
	}

	var done ride.Ride
	w := env.do(t, http.MethodGet, "/api/rides/"+string(r.ID), env.riderToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get code = %d", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &done); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if done.Status != ride.StatusCompleted || done.Fare != 152 {
		t.Fatalf("final ride = %+v", done)
	}
}

func TestCancelAfterAcceptMapsToConflict(t *testing.T) {
	env := newTestEnv(t)
	r := env.createRide(t)
	if w := env.do(t, http.MethodPost, "/api/captain/rides/"+string(r.ID)+"/accept", env.captainToken, nil); w.Code != http.StatusOK {
		t.Fatalf("accept code = %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/rides/"+string(r.ID)+"/cancel", env.riderToken, nil); w.Code != http.StatusConflict {
		t.Fatalf("cancel code = %d, want 409", w.Code)
	}
}

func TestGetForeignRideIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	r := env.createRide(t)

	verifier := auth.NewVerifier("test-secret")
	stranger, _ := verifier.Sign(auth.Identity{Subject: "rider2", Role: auth.RoleRider})
	if w := env.do(t, http.MethodGet, "/api/rides/"+string(r.ID), stranger, nil); w.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", w.Code)
	}
}

func TestAvailableListingForCaptains(t *testing.T) {
	env := newTestEnv(t)
	env.createRide(t)

	w := env.do(t, http.MethodGet, "/api/captain/rides", env.captainToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	var resp struct {
		Rides []ride.Ride `json:"rides"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Rides) != 1 {
		t.Fatalf("rides = %d, want 1", len(resp.Rides))
	}
}
