package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"etshd/backoffice/domain"
	"etshd/backoffice/internal/migrations"
)

// testEnv runs the full router against a fresh in-memory database. Requests
// authenticate as an admin unless doAs is used.
type testEnv struct {
	t      *testing.T
	h      *Handler
	db     *sqlx.DB
	router http.Handler
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlx.Connect("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)
	migrations.Run(db, log)

	h := New(db, "test-secret", log)
	token, err := h.generateToken(1, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return &testEnv{t: t, h: h, db: db, router: h.Router(), token: token}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	return e.doAs(e.token, method, path, body)
}

func (e *testEnv) doAs(token, method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			e.t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) staffToken() string {
	e.t.Helper()
	token, err := e.h.generateToken(2, domain.RoleStaff)
	if err != nil {
		e.t.Fatalf("generate staff token: %v", err)
	}
	return token
}

func (e *testEnv) seedProduct(name string, price, costPrice float64, stock int64) int64 {
	e.t.Helper()
	res, err := e.db.Exec(`INSERT INTO products (name, price, cost_price, stock) VALUES (?, ?, ?, ?)`,
		name, price, costPrice, stock)
	if err != nil {
		e.t.Fatalf("seed product: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func (e *testEnv) seedClient(name string) int64 {
	e.t.Helper()
	res, err := e.db.Exec(`INSERT INTO clients (name) VALUES (?)`, name)
	if err != nil {
		e.t.Fatalf("seed client: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func (e *testEnv) productStock(id int64) int64 {
	e.t.Helper()
	var stock int64
	if err := e.db.Get(&stock, `SELECT stock FROM products WHERE id = ?`, id); err != nil {
		e.t.Fatalf("read stock: %v", err)
	}
	return stock
}

func (e *testEnv) count(table string) int64 {
	e.t.Helper()
	var n int64
	if err := e.db.Get(&n, `SELECT COUNT(*) FROM `+table); err != nil {
		e.t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dest); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, rec.Body.String())
	}
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Message string `json:"message"`
	}
	decodeBody(t, rec, &payload)
	return payload.Message
}

func errorFields(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var payload struct {
		Errors map[string]string `json:"errors"`
	}
	decodeBody(t, rec, &payload)
	return payload.Errors
}
