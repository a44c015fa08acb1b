package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/color"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camden-git/imagestudio/ai"
	"github.com/camden-git/imagestudio/database"
	"github.com/camden-git/imagestudio/events"
	"github.com/camden-git/imagestudio/media"
	"github.com/camden-git/imagestudio/metrics"
	"github.com/camden-git/imagestudio/models"
	"github.com/camden-git/imagestudio/repository"
	"github.com/camden-git/imagestudio/services"
	"github.com/camden-git/imagestudio/transform"
	"github.com/camden-git/imagestudio/workers"
)

const testSecret = "test-secret"

type testServer struct {
	handler http.Handler
	images  *repository.ImageRepository
	users   repository.UserRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := database.InitGormDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrateModels(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	store, err := media.NewLocalStorage(t.TempDir(), "http://localhost:8080/media")
	require.NoError(t, err)

	pool := workers.NewTransformPool(4, 1)
	t.Cleanup(pool.Stop)

	images := repository.NewImageRepository(db)
	variants := repository.NewVariantRepository(db)
	users := repository.NewGormUserRepository(db)
	aiClient := ai.NewClient("", "", time.Second)
	m := metrics.New()

	return &testServer{
		handler: NewRouter(RouterConfig{
			Images:         images,
			Users:          users,
			Transforms:     services.NewTransformService(images, variants, store, aiClient, pool, events.Nop{}, m),
			Media:          services.NewMediaService(images, store, aiClient, events.Nop{}, m, 1<<20),
			Metrics:        m,
			LocalStore:     store,
			JWTSecret:      testSecret,
			AllowedOrigins: []string{"*"},
		}),
		images: images,
		users:  users,
	}
}

func token(t *testing.T, subject, email string) string {
	t.Helper()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) upload(t *testing.T, bearer string, w, h int) models.Image {
	t.Helper()
	data, err := media.EncodeBytes(imaging.New(w, h, color.NRGBA{G: 200, A: 255}), transform.FormatPNG, 0)
	require.NoError(t, err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "photo.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := s.do(t, http.MethodPost, "/api/v1/media/upload", bearer, &body, mw.FormDataContentType())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var img models.Image
	decodeData(t, rec, &img)
	return img
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) Response {
	t.Helper()
	var raw struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	if dst != nil {
		require.NoError(t, json.Unmarshal(raw.Data, dst))
	}
	return raw.Response
}

func decodeErrors(t *testing.T, rec *httptest.ResponseRecorder) []APIErrorDetail {
	t.Helper()
	var resp APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Errors
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/health", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	resp := decodeData(t, rec, &status)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", status.Status)
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/v1/users/me", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/users/me", "not-a-token", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// unknown subject without an email cannot be registered
	rec = s.do(t, http.MethodGet, "/api/v1/users/me", token(t, "user_x", ""), nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/users/me", token(t, "user_1", "one@example.com"), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var me models.User
	decodeData(t, rec, &me)
	assert.Equal(t, "user_1", me.ClerkID)

	// second request resolves the same user
	rec = s.do(t, http.MethodGet, "/api/v1/users/me", token(t, "user_1", "one@example.com"), nil, "")
	var again models.User
	decodeData(t, rec, &again)
	assert.Equal(t, me.ID, again.ID)
}

func TestTransformEndpoint(t *testing.T) {
	s := newTestServer(t)
	bearer := token(t, "user_1", "one@example.com")
	img := s.upload(t, bearer, 200, 100)

	rec := s.do(t, http.MethodGet, "/api/v1/images/transform/"+img.ID+"?w=50&format=jpeg&grayscale=true&crop.left=0", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var variant struct {
		ID      string          `json:"id"`
		Options string          `json:"options"`
		Width   int             `json:"width"`
		URL     string          `json:"url"`
		Crop    *transform.Crop `json:"crop"`
	}
	decodeData(t, rec, &variant)
	assert.Equal(t, "?w=50&grayscale=true&crop.left=0&crop.top=0&crop.width=0&crop.height=0", variant.Options)
	assert.Equal(t, 50, variant.Width)
	assert.Equal(t, &transform.Crop{}, variant.Crop)

	// the stored variant is served from local storage
	assetPath := variant.URL[len("http://localhost:8080"):]
	rec = s.do(t, http.MethodGet, assetPath, "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))

	rec = s.do(t, http.MethodGet, "/api/v1/images/"+img.ID+"/transformed", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history []json.RawMessage
	decodeData(t, rec, &history)
	assert.Len(t, history, 1)

	rec = s.do(t, http.MethodGet, "/api/v1/images/variants/"+variant.ID+"/options", "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var opts services.VariantOptions
	decodeData(t, rec, &opts)
	assert.Equal(t, variant.Options, opts.Query)
	assert.True(t, opts.Options.Grayscale)

	rec = s.do(t, http.MethodPost, "/api/v1/images/variants/"+variant.ID+"/replay", "", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestTransformValidationErrors(t *testing.T) {
	s := newTestServer(t)
	img := s.upload(t, token(t, "user_1", "one@example.com"), 20, 20)

	rec := s.do(t, http.MethodGet, "/api/v1/images/transform/"+img.ID+"?blur=101&rotate=-1&fit=squash&foo=1", "", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	errs := decodeErrors(t, rec)
	fields := make([]string, len(errs))
	for i, e := range errs {
		fields[i] = e.Field
		assert.Equal(t, CodeValidation, e.Code)
		assert.Equal(t, "400", e.Status)
	}
	assert.ElementsMatch(t, []string{"blur", "rotate", "fit", "foo"}, fields)

	rec = s.do(t, http.MethodGet, "/api/v1/images/transform/"+img.ID+"?w=1048576&h=1048576", "", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs = decodeErrors(t, rec)
	require.Len(t, errs, 2)
	assert.Equal(t, "w", errs[0].Field)

	rec = s.do(t, http.MethodGet, "/api/v1/images/transform/"+img.ID+"?crop.left=1&crop.width=9223372036854775807", "", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "crop.width", decodeErrors(t, rec)[0].Field)

	rec = s.do(t, http.MethodGet, "/api/v1/images/transform/"+img.ID+"?crop.left=5&crop.width=100", "", nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "crop", decodeErrors(t, rec)[0].Field)

	rec = s.do(t, http.MethodGet, "/api/v1/images/transform/missing?w=10", "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/images/transform/"+img.ID+"?enhance=2x", "", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestImageCRUD(t *testing.T) {
	s := newTestServer(t)
	owner := token(t, "user_1", "one@example.com")
	other := token(t, "user_2", "two@example.com")

	body := `{"publicId":"originals/x.jpg","originalUrl":"http://cdn/x.jpg","size":10,"format":"jpeg","width":4,"height":3}`
	rec := s.do(t, http.MethodPost, "/api/v1/images", owner, bytes.NewBufferString(body), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var img models.Image
	decodeData(t, rec, &img)

	rec = s.do(t, http.MethodPost, "/api/v1/images", owner, bytes.NewBufferString(`{"publicId":""}`), "application/json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, decodeErrors(t, rec), 6)

	rec = s.do(t, http.MethodGet, "/api/v1/images/"+img.ID, "", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/images?sort=bogus", owner, nil, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/images/user", owner, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []models.Image
	decodeData(t, rec, &mine)
	assert.Len(t, mine, 1)

	rec = s.do(t, http.MethodPatch, "/api/v1/images/"+img.ID, other, bytes.NewBufferString(`{"width":8}`), "application/json")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPatch, "/api/v1/images/"+img.ID, owner, bytes.NewBufferString(`{"width":8}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.Image
	decodeData(t, rec, &updated)
	assert.Equal(t, 8, updated.Width)

	rec = s.do(t, http.MethodDelete, "/api/v1/images/"+img.ID, owner, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/v1/images/"+img.ID, "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMediaEndpoints(t *testing.T) {
	s := newTestServer(t)
	bearer := token(t, "user_1", "one@example.com")
	img := s.upload(t, bearer, 10, 10)
	assert.Equal(t, 10, img.Width)

	rec := s.do(t, http.MethodPost, "/api/v1/media/upload-url", bearer, bytes.NewBufferString(`{"url":"not a url"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/media?publicId="+img.PublicID, token(t, "user_2", "two@example.com"), nil, "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/media?publicId="+img.PublicID, bearer, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, err := s.images.GetByID(img.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	rec = s.do(t, http.MethodPost, "/api/v1/ai/generate", bearer, bytes.NewBufferString(`{"prompt":"a cat"}`), "application/json")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUserEndpoints(t *testing.T) {
	s := newTestServer(t)
	bearer := token(t, "user_1", "one@example.com")

	rec := s.do(t, http.MethodPost, "/api/v1/users", bearer, bytes.NewBufferString(`{"clerkId":"user_9","email":"nine@example.com"}`), "application/json")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.User
	decodeData(t, rec, &created)

	rec = s.do(t, http.MethodGet, "/api/v1/users", bearer, nil, "")
	var all []models.User
	decodeData(t, rec, &all)
	assert.Len(t, all, 2)

	rec = s.do(t, http.MethodDelete, "/api/v1/users/"+created.ID, bearer, nil, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/users/"+created.ID, bearer, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsAndNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/metrics", "", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/nope", "", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decodeErrors(t, rec)[0].Code)
}
