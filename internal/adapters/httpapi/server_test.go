package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"doglog/internal/auth"
	"doglog/internal/blob"
	"doglog/internal/config"
	"doglog/internal/core"
	"doglog/internal/docstore"
	"doglog/internal/metrics"
	"doglog/pkg/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testSecret = "httpapi-test-secret-0123456789"

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{1}, 64)...)

type harness struct {
	t        *testing.T
	handler  http.Handler
	verifier *auth.HMACVerifier
}

func newHarness(t *testing.T, svcOpts []core.Option, opts ...Option) *harness {
	t.Helper()
	store, err := core.OpenStore(context.Background(), config.StorageConfig{Driver: docstore.DriverMemory})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	verifier, err := auth.NewHMACVerifier([]byte(testSecret), "")
	require.NoError(t, err)
	svc := core.NewService(store, svcOpts...)
	return &harness{t: t, handler: NewServer(svc, verifier, opts...).Handler(), verifier: verifier}
}

func allFeatures() config.Features {
	return config.Features{PetListEnabled: true, PetEditingEnabled: true, VetsEnabled: true, PetPhotosEnabled: true}
}

func (h *harness) request(method, path, uid string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	h.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if uid != "" {
		token, err := h.verifier.Issue(domain.User{UID: uid, Email: uid + "@example.com"}, time.Hour)
		require.NoError(h.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) do(method, path, uid string, payload any) *httptest.ResponseRecorder {
	h.t.Helper()
	var body io.Reader
	contentType := ""
	switch p := payload.(type) {
	case nil:
	case string:
		body, contentType = strings.NewReader(p), "application/json"
	default:
		raw, err := json.Marshal(p)
		require.NoError(h.t, err)
		body, contentType = bytes.NewReader(raw), "application/json"
	}
	return h.request(method, path, uid, body, contentType)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type petBody struct {
	Pet domain.Pet `json:"pet"`
}

type errBody struct {
	Error    string                `json:"error"`
	Problems []domain.FieldProblem `json:"problems"`
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, nil, WithMetrics(metrics.New(false)))
	rec := h.do(http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"storage":"memory"`)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	h.do(http.MethodGet, "/api/v1/me", "u1", nil)
	rec = h.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/api/v1/me"`)

	rec = h.do(http.MethodGet, "/nowhere", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decode[errBody](t, rec).Error)
}

func TestAuthentication(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodGet, "/api/v1/pets", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", decode[errBody](t, rec).Error)

	rec = h.request(http.MethodGet, "/api/v1/me", "", nil, "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/me", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[struct {
		User     domain.User     `json:"user"`
		Features map[string]bool `json:"features"`
	}](t, rec)
	assert.Equal(t, "u1", me.User.UID)
	assert.Equal(t, "u1@example.com", me.User.Email)
	assert.True(t, me.Features[config.FeaturePetList])
	assert.False(t, me.Features[config.FeatureVets])
}

func TestPetEndpoints(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(http.MethodPost, "/api/v1/pets", "u1", map[string]any{
		"name": "Rex", "species": "dog", "breed": "Beagle", "birthDate": "2020-03-04", "weightKg": 12.5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rex := decode[petBody](t, rec).Pet
	assert.Equal(t, "/api/v1/pets/"+rex.ID, rec.Header().Get("Location"))
	assert.Equal(t, "u1", rex.OwnerID)
	require.NotNil(t, rex.BirthDate)
	assert.Equal(t, "2020-03-04", rex.BirthDate.Format(time.DateOnly))

	rec = h.do(http.MethodPost, "/api/v1/pets", "u1", map[string]any{"name": " rex ", "species": "cat"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/pets", "u1", map[string]any{"name": "", "species": "dragon"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	problems := decode[errBody](t, rec).Problems
	require.Len(t, problems, 2)
	assert.Equal(t, "name", problems[0].Field)
	assert.Equal(t, "species", problems[1].Field)

	rec = h.do(http.MethodPatch, "/api/v1/pets/"+rex.ID, "u1", `{"breed": null, "notes": "good boy"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	patched := decode[petBody](t, rec).Pet
	assert.Empty(t, patched.Breed)
	assert.Equal(t, "good boy", patched.Notes)
	assert.Equal(t, "Rex", patched.Name)
	require.NotNil(t, patched.WeightKg)

	rec = h.do(http.MethodGet, "/api/v1/pets/"+rex.ID, "u2", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodDelete, "/api/v1/pets/"+rex.ID, "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[petBody](t, rec).Pet.IsArchived)

	rec = h.do(http.MethodGet, "/api/v1/pets", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pets": []}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/v1/pets?status=archived", "u1", nil)
	list := decode[struct {
		Pets []domain.Pet `json:"pets"`
	}](t, rec)
	require.Len(t, list.Pets, 1)

	rec = h.do(http.MethodPost, "/api/v1/pets/"+rex.ID+"/unarchive", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[petBody](t, rec).Pet.IsArchived)

	rec = h.do(http.MethodPost, "/api/v1/pets/"+rex.ID+"/archive", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodDelete, "/api/v1/pets/"+rex.ID+"?purge=true", "u1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(http.MethodGet, "/api/v1/pets/"+rex.ID, "u1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBirthDateKeepsCalendarDay(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(http.MethodPost, "/api/v1/pets", "u1", map[string]any{
		"name": "Rex", "species": "dog", "birthDate": "2020-01-01T23:00:00-05:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rex := decode[petBody](t, rec).Pet
	require.NotNil(t, rex.BirthDate)
	assert.Equal(t, "2020-01-01", rex.BirthDate.UTC().Format(time.DateOnly))
}

func TestBadRequests(t *testing.T) {
	h := newHarness(t, nil)
	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown field", http.MethodPost, "/api/v1/pets", `{"name":"Rex","species":"dog","color2":"x"}`, http.StatusBadRequest},
		{"malformed", http.MethodPost, "/api/v1/pets", `{"name":`, http.StatusBadRequest},
		{"wrong type", http.MethodPost, "/api/v1/pets", `{"name": 7}`, http.StatusBadRequest},
		{"trailing data", http.MethodPost, "/api/v1/pets", `{"name":"Rex","species":"dog"} {}`, http.StatusBadRequest},
		{"bad status", http.MethodGet, "/api/v1/pets?status=gone", ``, http.StatusBadRequest},
		{"bad purge", http.MethodDelete, "/api/v1/pets/x?purge=maybe", ``, http.StatusBadRequest},
		{"method", http.MethodPut, "/api/v1/pets", ``, http.StatusMethodNotAllowed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var payload any
			if tc.body != "" {
				payload = tc.body
			}
			rec := h.do(tc.method, tc.path, "u1", payload)
			require.Equal(t, tc.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[errBody](t, rec).Error)
		})
	}

	rec := h.do(http.MethodPost, "/api/v1/pets", "u1", map[string]any{"name": "Rex", "species": "dog", "birthDate": "next tuesday"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "birthDate", decode[errBody](t, rec).Problems[0].Field)

	rec = h.request(http.MethodPost, "/api/v1/pets", "u1", strings.NewReader(`name=Rex`), "application/x-www-form-urlencoded")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.request(http.MethodPost, "/api/v1/pets", "u1", strings.NewReader(`{"notes":"`+strings.Repeat("x", maxJSONBody)+`"}`), "application/json")
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestVetAndLinkEndpoints(t *testing.T) {
	h := newHarness(t, nil, WithFeatures(allFeatures()))
	rex := decode[petBody](t, h.do(http.MethodPost, "/api/v1/pets", "u1", map[string]any{"name": "Rex", "species": "dog"})).Pet

	type vetBody struct {
		Vet domain.Vet `json:"vet"`
	}
	rec := h.do(http.MethodPost, "/api/v1/vets", "u1", map[string]any{"clinicName": "North", "phone": "555-0100"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	north := decode[vetBody](t, rec).Vet
	south := decode[vetBody](t, h.do(http.MethodPost, "/api/v1/vets", "u1", map[string]any{"clinicName": "South"})).Vet

	rec = h.do(http.MethodPost, "/api/v1/vets", "u1", map[string]any{"clinicName": "north", "phone": "5550100"})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/pets/"+rex.ID+"/vets", "u1", map[string]any{"vetId": north.ID, "role": "secondary"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = h.do(http.MethodPost, "/api/v1/pets/"+rex.ID+"/vets", "u1", map[string]any{"vetId": south.ID})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = h.do(http.MethodPost, "/api/v1/pets/"+rex.ID+"/vets", "u1", map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	type petVets struct {
		Vets []core.PetVet `json:"vets"`
	}
	rec = h.do(http.MethodGet, "/api/v1/pets/"+rex.ID+"/vets", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	vets := decode[petVets](t, rec).Vets
	require.Len(t, vets, 2)
	assert.Equal(t, north.ID, vets[0].Vet.ID)
	assert.Equal(t, domain.VetRolePrimary, vets[0].Link.Role)

	rec = h.do(http.MethodPut, "/api/v1/pets/"+rex.ID+"/vets/"+south.ID+"/primary", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	vets = decode[petVets](t, h.do(http.MethodGet, "/api/v1/pets/"+rex.ID+"/vets", "u1", nil)).Vets
	assert.Equal(t, south.ID, vets[0].Vet.ID)

	rec = h.do(http.MethodPatch, "/api/v1/pets/"+rex.ID+"/vets/"+north.ID, "u1", map[string]any{"role": "owner"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/vets/"+north.ID+"/pets", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), rex.ID)

	rec = h.do(http.MethodDelete, "/api/v1/pets/"+rex.ID+"/vets/"+north.ID, "u1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(http.MethodPatch, "/api/v1/pets/"+rex.ID+"/vets/"+south.ID, "u1", map[string]any{"role": "secondary"})
	require.Equal(t, http.StatusConflict, rec.Code, "demoting the only link breaks the primary rule")

	rec = h.do(http.MethodPatch, "/api/v1/vets/"+north.ID, "u1", map[string]any{"website": "ftp://north"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = h.do(http.MethodPatch, "/api/v1/vets/"+north.ID, "u1", map[string]any{"vetName": "Dr. Who"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodDelete, "/api/v1/vets/"+north.ID, "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodPost, "/api/v1/pets/"+rex.ID+"/vets", "u1", map[string]any{"vetId": north.ID})
	require.Equal(t, http.StatusConflict, rec.Code)
	rec = h.do(http.MethodPost, "/api/v1/vets/"+north.ID+"/unarchive", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodDelete, "/api/v1/vets/"+north.ID+"?purge=1", "u1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(http.MethodGet, "/api/v1/vets?status=all", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), north.ID)
}

func TestFeatureGates(t *testing.T) {
	h := newHarness(t, nil, WithFeatures(config.Features{PetEditingEnabled: true}))
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/v1/pets", "u1", nil).Code)
	assert.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/api/v1/pets", "u1", map[string]any{"name": "Rex", "species": "dog"}).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/v1/vets", "u1", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/v1/pets/x/photo", "u1", nil).Code)

	h = newHarness(t, nil, WithFeatures(config.Features{PetListEnabled: true}))
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/pets", "u1", nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/api/v1/pets", "u1", map[string]any{"name": "Rex", "species": "dog"}).Code)
}

func TestPhotoEndpoints(t *testing.T) {
	h := newHarness(t, nil, WithFeatures(allFeatures()))
	rex := decode[petBody](t, h.do(http.MethodPost, "/api/v1/pets", "u1", map[string]any{"name": "Rex", "species": "dog"})).Pet
	photoPath := "/api/v1/pets/" + rex.ID + "/photo"

	rec := h.do(http.MethodGet, photoPath, "u1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.request(http.MethodPut, photoPath, "u1", bytes.NewReader(pngBytes), "image/png")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	info := decode[struct {
		Photo blob.Info `json:"photo"`
	}](t, rec).Photo
	assert.Equal(t, "image/png", info.ContentType)

	rec = h.do(http.MethodGet, photoPath, "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes, rec.Body.Bytes())
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, photoPath, nil)
	token, _ := h.verifier.Issue(domain.User{UID: "u1"}, time.Hour)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("If-None-Match", etag)
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotModified, rec.Code)

	rec = h.do(http.MethodGet, photoPath+"/url", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"url": "`+photoPath+`", "signed": false}`, rec.Body.String())

	rec = h.request(http.MethodPut, photoPath, "u1", strings.NewReader("just text"), "text/plain")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "photo", decode[errBody](t, rec).Problems[0].Field)

	rec = h.do(http.MethodGet, photoPath, "u2", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodDelete, photoPath, "u1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = h.do(http.MethodGet, photoPath, "u1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", "rex.png")
	require.NoError(t, err)
	_, _ = part.Write(pngBytes)
	require.NoError(t, mw.Close())
	rec = h.request(http.MethodPut, photoPath, "u1", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

type countingBlobs struct {
	blob.Store
	gets int
}

func (c *countingBlobs) Get(ctx context.Context, key string) (blob.Info, io.ReadCloser, error) {
	c.gets++
	return c.Store.Get(ctx, key)
}

func TestPhotoNotModifiedSkipsContent(t *testing.T) {
	blobs := &countingBlobs{Store: blob.NewMemory()}
	h := newHarness(t, []core.Option{core.WithBlobStore(blobs)}, WithFeatures(allFeatures()))
	rex := decode[petBody](t, h.do(http.MethodPost, "/api/v1/pets", "u1", map[string]any{"name": "Rex", "species": "dog"})).Pet
	photoPath := "/api/v1/pets/" + rex.ID + "/photo"
	rec := h.request(http.MethodPut, photoPath, "u1", bytes.NewReader(pngBytes), "image/png")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodGet, photoPath, "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	require.Equal(t, 1, blobs.gets)

	get := func(match string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, photoPath, nil)
		token, err := h.verifier.Issue(domain.User{UID: "u1"}, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("If-None-Match", match)
		rec := httptest.NewRecorder()
		h.handler.ServeHTTP(rec, req)
		return rec
	}
	rec = get(etag)
	require.Equal(t, http.StatusNotModified, rec.Code)
	assert.Equal(t, etag, rec.Header().Get("ETag"))
	assert.Empty(t, rec.Body.Bytes())
	assert.Equal(t, 1, blobs.gets, "304 must not open the object")

	rec = get(`"stale"`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngBytes, rec.Body.Bytes())
	assert.Equal(t, 2, blobs.gets)
}

func TestOversizedPhotoUploads(t *testing.T) {
	h := newHarness(t, []core.Option{core.WithMaxPhotoBytes(1024)}, WithFeatures(allFeatures()))
	rex := decode[petBody](t, h.do(http.MethodPost, "/api/v1/pets", "u1", map[string]any{"name": "Rex", "species": "dog"})).Pet
	photoPath := "/api/v1/pets/" + rex.ID + "/photo"
	huge := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{2}, 1024+multipartOverhead)...)

	multipartBody := func() (*bytes.Buffer, string) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("photo", "rex.png")
		require.NoError(t, err)
		_, _ = part.Write(huge)
		require.NoError(t, mw.Close())
		return &buf, mw.FormDataContentType()
	}

	body, contentType := multipartBody()
	rec := h.request(http.MethodPut, photoPath, "u1", body, contentType)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())

	// no Content-Length, so only the body reader enforces the cap
	body, contentType = multipartBody()
	rec = h.request(http.MethodPut, photoPath, "u1", io.MultiReader(body), contentType)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())

	rec = h.request(http.MethodPut, photoPath, "u1", bytes.NewReader(huge[:2048]), "image/png")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "photo", decode[errBody](t, rec).Problems[0].Field)

	rec = h.do(http.MethodGet, photoPath, "u1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSignedPhotoURL(t *testing.T) {
	h := newHarness(t, []core.Option{core.WithBlobStore(blob.NewMockS3ForTests())},
		WithFeatures(allFeatures()), WithPhotoURLExpiry(2*time.Minute))
	rex := decode[petBody](t, h.do(http.MethodPost, "/api/v1/pets", "u1", map[string]any{"name": "Rex", "species": "dog"})).Pet
	rec := h.request(http.MethodPut, "/api/v1/pets/"+rex.ID+"/photo", "u1", bytes.NewReader(pngBytes), "image/png")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/v1/pets/"+rex.ID+"/photo/url", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode[struct {
		URL       string `json:"url"`
		Signed    bool   `json:"signed"`
		ExpiresAt string `json:"expiresAt"`
	}](t, rec)
	assert.True(t, out.Signed)
	assert.Contains(t, out.URL, "X-Amz-Expires=120")
	assert.NotEmpty(t, out.ExpiresAt)
}

func TestRateLimit(t *testing.T) {
	h := newHarness(t, nil, WithRateLimit(0.5, 2))
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/me", "u1", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/me", "u1", nil).Code)
	rec := h.do(http.MethodGet, "/api/v1/me", "u1", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/v1/me", "u2", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/healthz", "", nil).Code)
}
