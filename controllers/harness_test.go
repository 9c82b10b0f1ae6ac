package controllers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gridx-backend/chatbot"
	"gridx-backend/config"
	"gridx-backend/integrations"
	"gridx-backend/models"
	"gridx-backend/predict"
	"gridx-backend/routes"
	"gridx-backend/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// upstreams holds base URLs of fake third-party APIs; empty means unconfigured.
type upstreams struct {
	eskom       string
	tomorrow    string
	assemblyai  string
	huggingface string
	usageCSV    string
}

type harness struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
}

func newHarness(t *testing.T) *harness {
	return newHarnessWith(t, upstreams{})
}

func newHarnessWith(t *testing.T, up upstreams) *harness {
	t.Helper()
	db := testutil.NewDB(t)

	cfg := &config.Config{
		Env:  "dev",
		Port: "0",
		Auth: config.AuthConfig{
			JWTSecret:   testutil.JWTSecret,
			TokenTTL:    time.Hour,
			FrontendURL: "http://frontend.test",
			PublicURL:   "http://api.test",
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Integrations: config.IntegrationsConfig{
			DefaultAreaID: "default-area",
			Location:      "Johannesburg",
		},
		Energy: config.EnergyConfig{UsageCSV: up.usageCSV},
	}

	bot, err := chatbot.New("")
	require.NoError(t, err)
	devices, err := predict.NewDeviceClassifier(predict.DefaultDeviceSamples)
	require.NoError(t, err)

	key := func(base string) string {
		if base == "" {
			return ""
		}
		return "test-key"
	}

	router := routes.SetupRouter(routes.Dependencies{
		Config:   cfg,
		DB:       db,
		Bot:      bot,
		Devices:  devices,
		Eskom:    integrations.NewEskom(up.eskom, key(up.eskom), time.Second, nil),
		Tomorrow: integrations.NewTomorrow(up.tomorrow, key(up.tomorrow), time.Second, nil),
		Speech:   integrations.NewAssemblyAI(up.assemblyai, key(up.assemblyai), time.Second, time.Millisecond),
		Intents:  integrations.NewHuggingFace(up.huggingface, key(up.huggingface), time.Second),
	})
	return &harness{t: t, db: db, router: router}
}

func (h *harness) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return h.send(req)
}

func (h *harness) send(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) user(email string, installer bool) (*models.User, string) {
	h.t.Helper()
	user := testutil.CreateUser(h.t, h.db, email, installer)
	return user, testutil.Token(h.t, user)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
