package handlers_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/require"

	"trivial-go/configs"
	v1 "trivial-go/internal/api/v1"
	"trivial-go/internal/config"
	"trivial-go/internal/repository"
	myws "trivial-go/internal/websocket"
	"trivial-go/pkg/logger"
	"trivial-go/pkg/mailer"
)

func TestMain(m *testing.M) {
	os.Setenv("GO_ENV", "test")
	logger.InitLoggers()
	defer logger.SyncLoggers()

	// Redis digantikan miniredis supaya test tidak butuh server Redis
	mr, err := miniredis.Run()
	if err != nil {
		log.Fatalf("Could not start miniredis: %v", err)
	}
	defer mr.Close()
	config.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer config.RedisClient.Close()

	// Postgres sekali pakai lewat dockertest
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not connect to docker: %v", err)
	}
	resource, err := pool.Run("postgres", "15-alpine", []string{
		"POSTGRES_PASSWORD=secret",
		"POSTGRES_DB=trivial_test",
	})
	if err != nil {
		log.Fatalf("Could not start postgres: %v", err)
	}
	resource.Expire(300)

	dsn := fmt.Sprintf("host=localhost port=%s user=postgres password=secret dbname=trivial_test sslmode=disable",
		resource.GetPort("5432/tcp"))
	if err := pool.Retry(func() error {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return err
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return err
		}
		config.DB = db
		return nil
	}); err != nil {
		log.Fatalf("Could not connect to postgres: %v", err)
	}
	defer config.DB.Close()

	config.SecretKey = []byte("test-secret")
	config.Mailer = mailer.New(configs.Config{}) // dry mode: kode hanya dicatat di log

	repository.CreateTableIfNotExists(config.DB)

	code := m.Run()

	_ = pool.Purge(resource)
	os.Exit(code)
}

// createTestApp menginisialisasi aplikasi Fiber dengan routing produksi.
func createTestApp() *fiber.App {
	app := fiber.New()
	hub := myws.NewHub(config.RedisClient)
	go hub.Run()
	v1.RegisterRoutes(app, hub)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, url string, body interface{}, cookie string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "jwt", Value: cookie})
	}

	resp, err := app.Test(req, 10000)
	require.NoError(t, err)

	var result map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&result)
	resp.Body.Close()
	return resp, result
}

// registerVerifiedUser membuat user lewat endpoint register, mengambil
// kode verifikasinya langsung dari database, lalu verify + login.
// Mengembalikan user id dan cookie jwt.
func registerVerifiedUser(t *testing.T, app *fiber.App, name string) (int, string, string) {
	t.Helper()

	email := fmt.Sprintf("%s_%d@example.com", name, time.Now().UnixNano())
	resp, result := doJSON(t, app, "POST", "/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": "secret123",
	}, "")
	require.Equal(t, 201, resp.StatusCode)

	data := result["data"].(map[string]interface{})
	userID := int(data["id"].(float64))

	var code string
	require.NoError(t, config.DB.QueryRow(
		"SELECT verification_code FROM users WHERE id = $1", userID).Scan(&code))

	resp, _ = doJSON(t, app, "POST", "/auth/verify", map[string]string{
		"email": email,
		"code":  code,
	}, "")
	require.Equal(t, 200, resp.StatusCode)

	resp, _ = doJSON(t, app, "POST", "/auth/login", map[string]string{
		"email":    email,
		"password": "secret123",
	}, "")
	require.Equal(t, 200, resp.StatusCode)

	cookie := jwtCookie(resp)
	require.NotEmpty(t, cookie)
	return userID, cookie, email
}

func jwtCookie(resp *http.Response) string {
	for _, c := range resp.Cookies() {
		if c.Name == "jwt" {
			return c.Value
		}
	}
	return ""
}
