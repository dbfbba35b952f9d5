// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/prometheus/client_golang/prometheus"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/courierchat/courier/internal/auth"
	authpg "github.com/courierchat/courier/internal/auth/postgres"
	"github.com/courierchat/courier/internal/httpapi"
	"github.com/courierchat/courier/internal/messaging"
	messagingpg "github.com/courierchat/courier/internal/messaging/postgres"
	"github.com/courierchat/courier/internal/observability"
	"github.com/courierchat/courier/internal/store"
)

const testCookieName = "courier_session"

// testEnv holds all the resources needed for end-to-end tests.
type testEnv struct {
	ctx       context.Context
	cancel    context.CancelFunc
	container testcontainers.Container
	pool      *pgxpool.Pool
	authSvc   *auth.Service
	api       *httptest.Server
}

// setupTestEnv starts PostgreSQL, runs migrations, and serves the full HTTP
// API over httptest with real services behind it.
func setupTestEnv() (*testEnv, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)

	env := &testEnv{
		ctx:    ctx,
		cancel: cancel,
	}

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("courier_test"),
		postgres.WithUsername("courier"),
		postgres.WithPassword("courier"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		cancel()
		return nil, err
	}
	env.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		env.cleanup()
		return nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		env.cleanup()
		return nil, err
	}
	_ = migrator.Close()

	env.pool, err = pgxpool.New(ctx, connStr)
	if err != nil {
		env.cleanup()
		return nil, err
	}

	userRepo := authpg.NewUserRepository(env.pool)
	sessionRepo := authpg.NewSessionRepository(env.pool)
	messageRepo := messagingpg.NewMessageRepository(env.pool)

	env.authSvc, err = auth.NewService(userRepo, sessionRepo, auth.NewBcryptHasher(), time.Hour)
	if err != nil {
		env.cleanup()
		return nil, err
	}
	messageSvc, err := messaging.NewService(messageRepo, userRepo)
	if err != nil {
		env.cleanup()
		return nil, err
	}

	server, err := httpapi.NewServer(env.authSvc, messageSvc, httpapi.Options{
		Addr:       "127.0.0.1:0",
		CookieName: testCookieName,
		Metrics:    observability.NewMetrics(prometheus.NewRegistry()),
	})
	if err != nil {
		env.cleanup()
		return nil, err
	}
	env.api = httptest.NewServer(server.Handler())

	return env, nil
}

func (env *testEnv) cleanup() {
	if env.api != nil {
		env.api.Close()
	}
	if env.pool != nil {
		env.pool.Close()
	}
	if env.container != nil {
		_ = env.container.Terminate(env.ctx)
	}
	env.cancel()
}

// newClient returns an HTTP client with its own cookie jar, representing one
// browser session.
func (env *testEnv) newClient() *http.Client {
	jar, err := cookiejar.New(nil)
	Expect(err).NotTo(HaveOccurred())
	return &http.Client{Jar: jar}
}

// doJSON sends a JSON request and decodes the JSON response body, if any.
func (env *testEnv) doJSON(client *http.Client, method, path string, body, out any) *http.Response {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(env.ctx, method, env.api.URL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	Expect(err).NotTo(HaveOccurred())

	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(resp.Body.Close()).To(Succeed())

	if out != nil && len(data) > 0 {
		Expect(json.Unmarshal(data, out)).To(Succeed(), "body: %s", string(data))
	}
	return resp
}

// register creates an account and asserts success.
func (env *testEnv) register(client *http.Client, username, displayName, password string) map[string]any {
	var user map[string]any
	resp := env.doJSON(client, http.MethodPost, "/api/auth/register", map[string]string{
		"username":     username,
		"display_name": displayName,
		"password":     password,
	}, &user)
	Expect(resp.StatusCode).To(Equal(http.StatusCreated))
	return user
}

// login authenticates and asserts that a session cookie was issued.
func (env *testEnv) login(client *http.Client, username, password string) {
	resp := env.doJSON(client, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, nil)
	Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == testCookieName && c.Value != "" {
			found = true
		}
	}
	Expect(found).To(BeTrue(), "expected a %s cookie", testCookieName)
}

var _ = Describe("Courier API", func() {
	var env *testEnv

	BeforeEach(func() {
		var err error
		env, err = setupTestEnv()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		env.cleanup()
	})

	Describe("Registration and login", func() {
		It("registers, logs in, and identifies the current user", func() {
			client := env.newClient()

			user := env.register(client, "alice", "Alice Wonder", "sup3r-secret")
			Expect(user["username"]).To(Equal("alice"))
			Expect(user["display_name"]).To(Equal("Alice Wonder"))
			Expect(user).NotTo(HaveKey("password_hash"))

			env.login(client, "alice", "sup3r-secret")

			var me map[string]any
			resp := env.doJSON(client, http.MethodGet, "/api/users/me", nil, &me)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(me["id"]).To(Equal(user["id"]))
		})

		It("rejects a duplicate username regardless of case", func() {
			client := env.newClient()
			env.register(client, "bob", "Bob Builder", "sup3r-secret")

			var body map[string]any
			resp := env.doJSON(client, http.MethodPost, "/api/auth/register", map[string]string{
				"username":     "BOB",
				"display_name": "Bob Impostor",
				"password":     "sup3r-secret",
			}, &body)
			Expect(resp.StatusCode).To(Equal(http.StatusConflict))
			Expect(body["code"]).To(Equal("USERNAME_TAKEN"))
		})

		It("rejects wrong credentials without a cookie", func() {
			client := env.newClient()
			env.register(client, "carol", "Carol Example", "sup3r-secret")

			var body map[string]any
			resp := env.doJSON(client, http.MethodPost, "/api/auth/login", map[string]string{
				"username": "carol",
				"password": "wrong-password",
			}, &body)
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(body["code"]).To(Equal("INVALID_CREDENTIALS"))
			Expect(resp.Cookies()).To(BeEmpty())
		})

		It("invalidates the session on logout", func() {
			client := env.newClient()
			env.register(client, "dave", "Dave Example", "sup3r-secret")
			env.login(client, "dave", "sup3r-secret")

			resp := env.doJSON(client, http.MethodPost, "/api/auth/logout", nil, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			resp = env.doJSON(client, http.MethodGet, "/api/users/me", nil, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("User search", func() {
		It("finds users by display name substring", func() {
			client := env.newClient()
			env.register(client, "erin", "Erin Searchable", "sup3r-secret")
			env.register(client, "frank", "Frank Searchable", "sup3r-secret")
			env.register(client, "grace", "Grace Other", "sup3r-secret")
			env.login(client, "erin", "sup3r-secret")

			var body struct {
				Users []map[string]any `json:"users"`
			}
			resp := env.doJSON(client, http.MethodGet, "/api/users/search?q=searchable", nil, &body)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body.Users).To(HaveLen(2))
		})

		It("requires authentication", func() {
			client := env.newClient()
			resp := env.doJSON(client, http.MethodGet, "/api/users/search?q=anyone", nil, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("Direct messaging", func() {
		It("delivers messages between two users", func() {
			alice := env.newClient()
			bob := env.newClient()

			aliceUser := env.register(alice, "alice", "Alice Wonder", "sup3r-secret")
			bobUser := env.register(bob, "bob", "Bob Builder", "sup3r-secret")
			env.login(alice, "alice", "sup3r-secret")
			env.login(bob, "bob", "sup3r-secret")

			var sent map[string]any
			resp := env.doJSON(alice, http.MethodPost, "/api/messages", map[string]string{
				"recipient_id": bobUser["id"].(string),
				"content":      "hello bob",
			}, &sent)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			Expect(sent["content"]).To(Equal("hello bob"))

			resp = env.doJSON(bob, http.MethodPost, "/api/messages", map[string]string{
				"recipient_id": aliceUser["id"].(string),
				"content":      "hello alice",
			}, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var conversation struct {
				Messages []map[string]any `json:"messages"`
			}
			resp = env.doJSON(bob, http.MethodGet, "/api/messages/"+aliceUser["id"].(string), nil, &conversation)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(conversation.Messages).To(HaveLen(2))
			Expect(conversation.Messages[0]["content"]).To(Equal("hello alice"))
			Expect(conversation.Messages[1]["content"]).To(Equal("hello bob"))

			var conversations struct {
				Conversations []map[string]any `json:"conversations"`
			}
			resp = env.doJSON(alice, http.MethodGet, "/api/conversations", nil, &conversations)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(conversations.Conversations).To(HaveLen(1))
			Expect(conversations.Conversations[0]["partner_id"]).To(Equal(bobUser["id"]))
		})

		It("rejects sending to an unknown recipient", func() {
			client := env.newClient()
			env.register(client, "henry", "Henry Example", "sup3r-secret")
			env.login(client, "henry", "sup3r-secret")

			var body map[string]any
			resp := env.doJSON(client, http.MethodPost, "/api/messages", map[string]string{
				"recipient_id": "00000000-0000-4000-8000-000000000000",
				"content":      "anyone there?",
			}, &body)
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(body["code"]).To(Equal("NOT_FOUND"))
		})

		It("rejects messaging yourself", func() {
			client := env.newClient()
			me := env.register(client, "ines", "Ines Example", "sup3r-secret")
			env.login(client, "ines", "sup3r-secret")

			var body map[string]any
			resp := env.doJSON(client, http.MethodPost, "/api/messages", map[string]string{
				"recipient_id": me["id"].(string),
				"content":      "note to self",
			}, &body)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(body["code"]).To(Equal("MESSAGE_SELF_SEND"))
		})
	})

	Describe("Session expiry", func() {
		It("prunes expired sessions from the store", func() {
			client := env.newClient()
			env.register(client, "judy", "Judy Example", "sup3r-secret")
			env.login(client, "judy", "sup3r-secret")

			// Force every session to be expired, then prune.
			_, err := env.pool.Exec(env.ctx, `UPDATE sessions SET expires_at = NOW() - INTERVAL '1 hour'`)
			Expect(err).NotTo(HaveOccurred())

			pruned, err := env.authSvc.PruneExpired(env.ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(pruned).To(BeNumerically(">=", 1))

			resp := env.doJSON(client, http.MethodGet, "/api/users/me", nil, nil)
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})
	})
})
