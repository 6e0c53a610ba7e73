package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/coupon-studio/internal/auth"
	"github.com/Cheertaboi/coupon-studio/internal/cache"
	"github.com/Cheertaboi/coupon-studio/internal/docstore"
	"github.com/Cheertaboi/coupon-studio/internal/generation"
	"github.com/Cheertaboi/coupon-studio/internal/inference"
	"github.com/Cheertaboi/coupon-studio/internal/nearby"
	"github.com/Cheertaboi/coupon-studio/internal/presence"
	"github.com/Cheertaboi/coupon-studio/internal/repository"
	"github.com/Cheertaboi/coupon-studio/internal/service"
)

type stubInference struct {
	mu sync.Mutex
	n  int
}

func (s *stubInference) next() *inference.Prediction {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return &inference.Prediction{ID: fmt.Sprintf("pred-%d", s.n), Status: inference.StatusStarting}
}

func (s *stubInference) CreateImagePrediction(context.Context, string) (*inference.Prediction, error) {
	return s.next(), nil
}

func (s *stubInference) CreateModelPrediction(context.Context, string) (*inference.Prediction, error) {
	return s.next(), nil
}

func (s *stubInference) GetPrediction(_ context.Context, id string) (*inference.Prediction, error) {
	return &inference.Prediction{ID: id, Status: inference.StatusProcessing}, nil
}

type testAPI struct {
	handler http.Handler
	tokens  *auth.TokenIssuer
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := docstore.NewMemoryStore()
	feed := presence.NewMemoryFeed()
	t.Cleanup(func() { _ = feed.Close() })

	pres := presence.NewService(
		repository.NewLocationRepo(store),
		repository.NewProfileRepo(store),
		cache.NewProfileCache(time.Minute),
		feed,
		presence.DefaultStaleAfter,
	)
	registry := generation.NewRegistryWithClock(&stubInference{}, generation.RealClock, nil)
	t.Cleanup(registry.Close)

	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	h := NewRouter(Deps{
		Coupons:     service.NewCouponService(repository.NewCouponRepo(repository.NewDocuments(store))),
		Permissions: service.NewPermissionService(repository.NewPermissionRepo(store)),
		Presence:    pres,
		Watcher:     nearby.NewWatcher(pres, pres, feed, nearby.Config{Workers: 4}),
		Generations: registry,
		Tokens:      tokens,
	})
	return &testAPI{handler: h, tokens: tokens}
}

func (a *testAPI) token(t *testing.T, userID string) string {
	t.Helper()
	tok, _, err := a.tokens.Issue(auth.Identity{UserID: userID, DisplayName: strings.ToUpper(userID)})
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+a.token(t, userID))
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func couponBody() map[string]interface{} {
	return map[string]interface{}{
		"name":      "Buy One Get One Free - Coffee",
		"discount":  "BOGO",
		"startDate": "2023-07-15",
		"endDate":   "2023-07-31",
		"startTime": "07:00",
		"endTime":   "11:00",
		"location":  map[string]float64{"lat": 40.7128, "lng": -74.0060},
	}
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCouponLifecycle(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/coupons", "", couponBody())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/coupons", "alice", couponBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[map[string]interface{}](t, rec)
	id := created["id"].(string)
	assert.Equal(t, "alice", created["userId"])
	assert.Equal(t, "common", created["rarity"])
	assert.Equal(t, false, created["active"])

	rec = a.do(t, http.MethodGet, "/coupons", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[map[string][]map[string]interface{}](t, rec)
	assert.Len(t, list["coupons"], 1)

	rec = a.do(t, http.MethodGet, "/coupons", "bob", nil)
	assert.Empty(t, decode[map[string][]map[string]interface{}](t, rec)["coupons"])

	rec = a.do(t, http.MethodGet, "/coupons", "", nil)
	assert.Len(t, decode[map[string][]map[string]interface{}](t, rec)["coupons"], 1)

	rec = a.do(t, http.MethodPatch, "/coupons/"+id, "bob", map[string]string{"name": "mine now"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodPatch, "/coupons/"+id, "alice", map[string]string{"rarity": "ultra-rare"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "ultra rare", decode[map[string]interface{}](t, rec)["rarity"])

	rec = a.do(t, http.MethodDelete, "/coupons/"+id, "alice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodGet, "/coupons/"+id, "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCouponValidationErrors(t *testing.T) {
	a := newTestAPI(t)

	body := couponBody()
	body["startDate"] = "July 15th"
	rec := a.do(t, http.MethodPost, "/coupons", "alice", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body = couponBody()
	delete(body, "location")
	rec = a.do(t, http.MethodPost, "/coupons", "alice", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body = couponBody()
	body["endDate"] = "2023-07-01"
	rec = a.do(t, http.MethodPost, "/coupons", "alice", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decode[map[string]interface{}](t, rec)
	assert.Equal(t, float64(400), errBody["code"])
}

func TestCouponLocationNeedsBothCoordinates(t *testing.T) {
	a := newTestAPI(t)

	body := couponBody()
	body["location"] = map[string]float64{"lat": 40}
	rec := a.do(t, http.MethodPost, "/coupons", "alice", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	body["location"] = map[string]float64{"lng": -74}
	rec = a.do(t, http.MethodPost, "/coupons", "alice", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/coupons", "alice", nil)
	assert.Empty(t, decode[map[string][]map[string]interface{}](t, rec)["coupons"])

	rec = a.do(t, http.MethodPost, "/coupons", "alice", couponBody())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[map[string]interface{}](t, rec)["id"].(string)

	body["location"] = map[string]float64{"lat": 40}
	rec = a.do(t, http.MethodPut, "/coupons/"+id, "alice", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPatch, "/coupons/"+id, "alice", map[string]interface{}{
		"location": map[string]float64{"lat": 40},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPatch, "/coupons/"+id, "alice", map[string]interface{}{
		"location": map[string]float64{"lat": 95, "lng": 200},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[map[string]interface{}](t, rec)
	assert.Equal(t, map[string]interface{}{"lat": float64(95), "lng": float64(200)}, got["location"])
	assert.Contains(t, got, "updatedAt")
}

func TestNearbyAppliesPrivacyAndCriteria(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/nearby", "alice", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPut, "/location/share", "alice", map[string]float64{"lat": 37.7749, "lng": -122.4194})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = a.do(t, http.MethodPut, "/location/share", "bob", map[string]float64{"lat": 37.7839, "lng": -122.4194})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPut, "/profile", "bob", map[string]interface{}{
		"modularInfo": map[string]interface{}{"hobbies": []string{"hiking"}, "ageRange": "30s"},
		"privacy":     map[string]bool{"showAgeRange": true},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/nearby", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	users := decode[map[string][]map[string]interface{}](t, rec)["users"]
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0]["id"])
	assert.InDelta(t, 1.0, users[0]["distance"], 0.01)
	info := users[0]["modularInfo"].(map[string]interface{})
	assert.Equal(t, "30s", info["ageRange"])
	assert.NotContains(t, info, "hobbies")

	rec = a.do(t, http.MethodGet, "/nearby?ageRange=30s", "alice", nil)
	assert.Len(t, decode[map[string][]map[string]interface{}](t, rec)["users"], 1)

	rec = a.do(t, http.MethodGet, "/nearby?hobbies=hiking", "alice", nil)
	assert.Empty(t, decode[map[string][]map[string]interface{}](t, rec)["users"])

	rec = a.do(t, http.MethodGet, "/nearby?lat=0&lng=0", "alice", nil)
	assert.Empty(t, decode[map[string][]map[string]interface{}](t, rec)["users"])

	rec = a.do(t, http.MethodPost, "/location/stop", "bob", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(t, http.MethodGet, "/nearby", "alice", nil)
	assert.Empty(t, decode[map[string][]map[string]interface{}](t, rec)["users"])
}

func TestNearbyStreamSendsSnapshots(t *testing.T) {
	a := newTestAPI(t)
	srv := httptest.NewServer(a.handler)
	defer srv.Close()

	rec := a.do(t, http.MethodPut, "/location/share", "alice", map[string]float64{"lat": 40.7128, "lng": -74.0060})
	require.Equal(t, http.StatusOK, rec.Code)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/nearby/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+a.token(t, "alice"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	nextData := func() string {
		for lines.Scan() {
			if data, ok := strings.CutPrefix(lines.Text(), "data: "); ok {
				return data
			}
		}
		t.Fatal("stream ended")
		return ""
	}
	assert.JSONEq(t, `{"users":[]}`, nextData())

	rec = a.do(t, http.MethodPut, "/location/share", "bob", map[string]float64{"lat": 40.7130, "lng": -74.0062})
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string][]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(nextData()), &got))
	require.Len(t, got["users"], 1)
	assert.Equal(t, "bob", got["users"][0]["id"])
}

func TestGenerationEndpoints(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/generations/image", "alice", map[string]string{"prompt": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/generations/image", "alice", map[string]string{"prompt": "golden ticket"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	st := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "pred-1", st["predictionId"])
	assert.Equal(t, "polling", st["state"])

	rec = a.do(t, http.MethodGet, "/generations/image", "alice", nil)
	assert.Equal(t, "polling", decode[map[string]interface{}](t, rec)["state"])

	rec = a.do(t, http.MethodGet, "/generations/model", "alice", nil)
	assert.Equal(t, "idle", decode[map[string]interface{}](t, rec)["state"])

	rec = a.do(t, http.MethodDelete, "/generations/image", "alice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = a.do(t, http.MethodGet, "/generations/image", "alice", nil)
	st = decode[map[string]interface{}](t, rec)
	assert.Equal(t, "cancelled", st["state"])
	assert.Equal(t, generation.MsgCancelledByUser, st["message"])

	rec = a.do(t, http.MethodDelete, "/generations/image", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodGet, "/generations/video", "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignInCancelled(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(t, http.MethodGet, "/auth/google/callback?error=access_denied", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"outcome":"cancelled"}`, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/auth/google", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPermissionsCheckAndSweep(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/permissions/check", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodGet, "/permissions/check", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[map[string]interface{}](t, rec)
	assert.Equal(t, true, report["success"])
	assert.Nil(t, report["ruleIssue"])

	rec = a.do(t, http.MethodPost, "/admin/sweep", "alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"markedOffline":0}`, rec.Body.String())
}
