package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/ziadkadry99/litreview/internal/db"
)

func setupTestAuth(t *testing.T) *Auth {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	a := NewAuth(NewStore(database), "test-secret", time.Hour)
	a.cost = bcrypt.MinCost
	return a
}

func TestStoreCreateAndGet(t *testing.T) {
	a := setupTestAuth(t)
	ctx := context.Background()

	u, err := a.store.Create(ctx, "ada", "hash")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected non-zero ID")
	}

	byName, err := a.store.GetByUsername(ctx, "ada")
	if err != nil || byName == nil {
		t.Fatalf("GetByUsername: %v %v", byName, err)
	}
	byID, err := a.store.GetByID(ctx, u.ID)
	if err != nil || byID == nil || byID.Username != "ada" {
		t.Fatalf("GetByID: %v %v", byID, err)
	}

	missing, err := a.store.GetByUsername(ctx, "nobody")
	if err != nil || missing != nil {
		t.Errorf("missing user: %v %v", missing, err)
	}

	if _, err := a.store.Create(ctx, "ada", "other"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("duplicate err = %v, want ErrUsernameTaken", err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	a := setupTestAuth(t)
	ctx := context.Background()

	u, err := a.Register(ctx, Credentials{Username: " ada ", Password: "lovelace"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Username != "ada" {
		t.Errorf("username = %q, want trimmed", u.Username)
	}
	if u.HashedPassword == "lovelace" {
		t.Error("password stored in plain text")
	}

	token, err := a.Login(ctx, Credentials{Username: "ada", Password: "lovelace"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := a.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "ada" || claims.UID != u.ID {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := a.Login(ctx, Credentials{Username: "ada", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v", err)
	}
	if _, err := a.Login(ctx, Credentials{Username: "bob", Password: "x"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user err = %v", err)
	}
	if _, err := a.Register(ctx, Credentials{Username: "", Password: "x"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("empty username err = %v", err)
	}
}

func TestParseTokenRejects(t *testing.T) {
	a := setupTestAuth(t)
	u, err := a.Register(context.Background(), Credentials{Username: "ada", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}

	t.Run("expired", func(t *testing.T) {
		token, err := a.IssueToken(u)
		if err != nil {
			t.Fatal(err)
		}
		a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { a.now = time.Now }()
		if _, err := a.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewAuth(a.store, "other-secret", time.Hour)
		token, err := other.IssueToken(u)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := a.ParseToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("none algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UID: u.ID, RegisteredClaims: jwt.RegisteredClaims{Subject: "ada"}})
		s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := a.ParseToken(s); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := a.ParseToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("err = %v, want ErrInvalidToken", err)
		}
	})
}

func newRouter(a *Auth) chi.Router {
	r := chi.NewRouter()
	RegisterRoutes(r, a)
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRoutes(t *testing.T) {
	a := setupTestAuth(t)
	r := newRouter(a)

	w := post(r, "/auth/register", `{"username":"ada","password":"pw"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "hashed_password") || strings.Contains(w.Body.String(), "HashedPassword") {
		t.Error("register response leaks the password hash")
	}
	if w := post(r, "/auth/register", `{"username":"ada","password":"pw"}`); w.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", w.Code)
	}

	w = post(r, "/auth/login", `{"username":"ada","password":"bad"}`)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", w.Code)
	}
	if w.Header().Get("WWW-Authenticate") != "Bearer" {
		t.Error("expected WWW-Authenticate: Bearer")
	}
	var fail map[string]string
	json.NewDecoder(w.Body).Decode(&fail)
	if fail["message"] != "Invalid credentials" {
		t.Errorf("message = %q", fail["message"])
	}

	w = post(r, "/auth/login", `{"username":"ada","password":"pw"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d", w.Code)
	}
	var login LoginResponse
	if err := json.NewDecoder(w.Body).Decode(&login); err != nil {
		t.Fatal(err)
	}
	if login.Token == "" || login.Message != "Login successful" {
		t.Errorf("login = %+v", login)
	}

	req := httptest.NewRequest("GET", "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d", w.Code)
	}
	var me User
	json.NewDecoder(w.Body).Decode(&me)
	if me.Username != "ada" {
		t.Errorf("me = %+v", me)
	}
}

func TestRequireUser(t *testing.T) {
	a := setupTestAuth(t)
	u, err := a.Register(context.Background(), Credentials{Username: "ada", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	token, _ := a.IssueToken(u)

	var seen *User
	h := RequireUser(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusOK && (seen == nil || seen.ID != u.ID) {
				t.Errorf("user in context = %+v", seen)
			}
		})
	}
}

func TestRequireUserDeletedAccount(t *testing.T) {
	a := setupTestAuth(t)
	u, err := a.Register(context.Background(), Credentials{Username: "ada", Password: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	token, _ := a.IssueToken(u)
	if _, err := a.store.db.Exec(`DELETE FROM users WHERE id = ?`, u.ID); err != nil {
		t.Fatal(err)
	}

	h := RequireUser(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}
