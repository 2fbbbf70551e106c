package httpapi

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghga-de/dcs-go/internal/core"
	"github.com/ghga-de/dcs-go/internal/dao"
	"github.com/ghga-de/dcs-go/internal/ekss"
	"github.com/ghga-de/dcs-go/internal/models"
	"github.com/ghga-de/dcs-go/internal/tokenauth"
)

// The fakes below mirror internal/core's test doubles; httpapi tests the HTTP
// adapter end to end, so it needs its own instance of the Data Repository
// wired over the same port interfaces rather than importing core's
// unexported test helpers.

type stubDAO struct {
	objects map[string]models.AccessTimeDrsObject
}

func (s *stubDAO) Insert(ctx context.Context, obj models.AccessTimeDrsObject) error {
	s.objects[obj.FileID] = obj
	return nil
}
func (s *stubDAO) GetByID(ctx context.Context, fileID string) (models.AccessTimeDrsObject, error) {
	obj, ok := s.objects[fileID]
	if !ok {
		return models.AccessTimeDrsObject{}, dao.ErrResourceNotFound
	}
	return obj, nil
}
func (s *stubDAO) FindOneByObjectID(ctx context.Context, objectID string) (models.AccessTimeDrsObject, error) {
	for _, obj := range s.objects {
		if obj.ObjectID == objectID {
			return obj, nil
		}
	}
	return models.AccessTimeDrsObject{}, dao.ErrResourceNotFound
}
func (s *stubDAO) Update(ctx context.Context, obj models.AccessTimeDrsObject) error {
	s.objects[obj.FileID] = obj
	return nil
}
func (s *stubDAO) Delete(ctx context.Context, fileID string) error {
	delete(s.objects, fileID)
	return nil
}

type stubStorage struct {
	staged map[string]bool
}

func (s *stubStorage) DoesObjectExist(ctx context.Context, alias, key string) (bool, error) {
	return s.staged[key], nil
}
func (s *stubStorage) ObjectSize(ctx context.Context, alias, key string) (int64, error) {
	return 42, nil
}
func (s *stubStorage) GetObjectDownloadURL(ctx context.Context, alias, key string, expiresAfter time.Duration) (string, error) {
	return "https://outbox.example/" + key, nil
}
func (s *stubStorage) DeleteObject(ctx context.Context, alias, key string) error { return nil }

type stubEnvelopes struct{}

func (s *stubEnvelopes) GetEnvelope(ctx context.Context, secretID, publicKey string) ([]byte, error) {
	if secretID == "missing-secret" {
		return nil, ekss.ErrSecretNotFound
	}
	return []byte(base64.StdEncoding.EncodeToString([]byte("envelope"))), nil
}
func (s *stubEnvelopes) DeleteSecret(ctx context.Context, secretID string) error { return nil }

type stubPublisher struct{}

func (s *stubPublisher) PublishFileRegistered(ctx context.Context, event models.FileRegistered) error {
	return nil
}
func (s *stubPublisher) PublishDownloadServed(ctx context.Context, event models.DownloadServed) error {
	return nil
}
func (s *stubPublisher) PublishUnstagedDownloadRequested(ctx context.Context, event models.UnstagedDownloadRequested) error {
	return nil
}
func (s *stubPublisher) PublishFileDeleted(ctx context.Context, event models.FileDeleted) error {
	return nil
}

func generateRSAKeyPair(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return key, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
}

func signWorkOrderToken(t *testing.T, key *rsa.PrivateKey, fileID, tokenType string) string {
	t.Helper()
	c := struct {
		models.WorkOrderToken
		jwt.RegisteredClaims
	}{
		WorkOrderToken: models.WorkOrderToken{
			Type:                  tokenType,
			FileID:                fileID,
			UserID:                "user-1",
			FullUserName:          "Ada Lovelace",
			Email:                 "ada@example.org",
			UserPublicCrypt4ghKey: base64.StdEncoding.EncodeToString(make([]byte, 32)),
		},
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

type testServer struct {
	engine  *gin.Engine
	dao     *stubDAO
	storage *stubStorage
	key     *rsa.PrivateKey
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	key, pubPEM := generateRSAKeyPair(t)
	validator, err := tokenauth.NewValidator(pubPEM)
	require.NoError(t, err)

	dao := &stubDAO{objects: make(map[string]models.AccessTimeDrsObject)}
	storage := &stubStorage{staged: make(map[string]bool)}

	repo := core.New(core.Dependencies{
		DAO:       dao,
		Storage:   storage,
		Envelopes: &stubEnvelopes{},
		Publisher: &stubPublisher{},
		Config: core.Config{
			OutboxBucket:             "outbox",
			DrsServerURI:             "drs://dcs.example/",
			RetryAccessAfter:         120 * time.Second,
			PresignedURLExpiresAfter: 30 * time.Second,
			CacheTimeout:             7 * 24 * time.Hour,
		},
	})

	handlers := NewHandlers(repo)
	engine := NewRouter(handlers, validator, gin.TestMode, []string{"*"})

	return &testServer{engine: engine, dao: dao, storage: storage, key: key}
}

func (s *testServer) register(fileID, secretID string) {
	s.dao.objects[fileID] = models.AccessTimeDrsObject{
		DrsObject: models.DrsObject{
			DrsObjectBase: models.DrsObjectBase{
				FileID:             fileID,
				DecryptionSecretID: secretID,
				DecryptedSha256:    "abc",
				DecryptedSize:      10,
				CreationDate:       time.Now().UTC(),
			},
			ObjectID:        fileID + "-object",
			S3EndpointAlias: "primary",
		},
		LastAccessed: time.Now().UTC(),
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetObject_NoAuthHeader_Forbidden(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/objects/file-1", nil)
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "tokenMalformedError", body["exception_id"])
}

func TestGetObject_TokenForDifferentFile_Forbidden(t *testing.T) {
	s := newTestServer(t)
	s.register("file-1", "secret-1")
	token := signWorkOrderToken(t, s.key, "some-other-file", "download")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/objects/file-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetObject_UnknownFile_NotFound(t *testing.T) {
	s := newTestServer(t)
	token := signWorkOrderToken(t, s.key, "does-not-exist", "download")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/objects/does-not-exist", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetObject_NotStaged_AcceptedWithRetryAfter(t *testing.T) {
	s := newTestServer(t)
	s.register("file-1", "secret-1")
	token := signWorkOrderToken(t, s.key, "file-1", "download")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/objects/file-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "120", w.Header().Get("Retry-After"))
}

func TestGetObject_Staged_OK(t *testing.T) {
	s := newTestServer(t)
	s.register("file-1", "secret-1")
	s.storage.staged["file-1-object"] = true
	token := signWorkOrderToken(t, s.key, "file-1", "download")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/objects/file-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.DrsObjectResponseModel
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "file-1", resp.ID)
	assert.Equal(t, int64(42), resp.Size)
}

func TestGetEnvelope_OK(t *testing.T) {
	s := newTestServer(t)
	s.register("file-1", "secret-1")
	token := signWorkOrderToken(t, s.key, "file-1", "download")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/objects/file-1/envelopes/client-key", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("envelope")), w.Body.String())
}

func TestGetEnvelope_SecretNotFound_404(t *testing.T) {
	s := newTestServer(t)
	s.register("file-1", "missing-secret")
	token := signWorkOrderToken(t, s.key, "file-1", "download")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/objects/file-1/envelopes/client-key", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOpenAPIDocument_Served(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "GHGA Download Controller Service")
}

func TestUploadTypeToken_Rejected(t *testing.T) {
	s := newTestServer(t)
	s.register("file-1", "secret-1")
	token := signWorkOrderToken(t, s.key, "file-1", "upload")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/objects/file-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
