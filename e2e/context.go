package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"faceguard/e2e/steps/common"
)

// TestContext holds per-scenario state: who is calling and what came back.
type TestContext struct {
	baseURL    string
	signingKey []byte
	issuer     string
	audience   string
	client     *http.Client

	users       map[string]uuid.UUID
	currentUser string
	admin       uuid.UUID

	lastStatus int
	lastBody   []byte
	lastJSON   map[string]any
}

// NewTestContext reads the target server from E2E_* variables, falling back to
// the server's development defaults.
func NewTestContext() *TestContext {
	return &TestContext{
		baseURL:    strings.TrimRight(envOr("E2E_BASE_URL", "http://localhost:8080"), "/"),
		signingKey: []byte(envOr("E2E_JWT_SIGNING_KEY", "dev-secret-key-change-in-production")),
		issuer:     envOr("E2E_JWT_ISSUER", "faceguard"),
		audience:   envOr("E2E_JWT_AUDIENCE", "faceguard-api"),
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Reset clears scenario state. Each scenario gets fresh user identities.
func (tc *TestContext) Reset() {
	tc.users = map[string]uuid.UUID{}
	tc.currentUser = ""
	tc.admin = uuid.New()
	tc.lastStatus = 0
	tc.lastBody = nil
	tc.lastJSON = nil
}

// UseUser switches the caller, minting a fresh id the first time a name is used.
func (tc *TestContext) UseUser(name string) {
	if _, ok := tc.users[name]; !ok {
		tc.users[name] = uuid.New()
	}
	tc.currentUser = name
}

func (tc *TestContext) UserID(name string) (string, error) {
	u, ok := tc.users[name]
	if !ok {
		return "", fmt.Errorf("unknown user %q", name)
	}
	return u.String(), nil
}

func (tc *TestContext) CurrentUserID() string {
	return tc.users[tc.currentUser].String()
}

func (tc *TestContext) token(subject uuid.UUID, role string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject.String(),
		"iss": tc.issuer,
		"aud": []string{tc.audience},
		"iat": now.Unix(),
		"exp": now.Add(15 * time.Minute).Unix(),
		"jti": uuid.NewString(),
	}
	if role != "" {
		claims["role"] = role
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tc.signingKey)
}

func (tc *TestContext) authorize(req *http.Request, admin bool) error {
	var (
		tok string
		err error
	)
	switch {
	case admin:
		tok, err = tc.token(tc.admin, "admin")
	case tc.currentUser != "":
		tok, err = tc.token(tc.users[tc.currentUser], "")
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	return nil
}

// GET calls path as the current user.
func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil, "", false)
}

// AdminJSON calls an admin endpoint with an optional JSON body.
func (tc *TestContext) AdminJSON(method, path string, body any) error {
	if body == nil {
		return tc.do(method, path, nil, "", true)
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return tc.do(method, path, bytes.NewReader(raw), "application/json", true)
}

// Multipart posts files and form fields as the current user.
func (tc *TestContext) Multipart(path string, fields map[string]string, parts []common.Part) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.Field, p.Filename))
		h.Set("Content-Type", p.ContentType)
		fw, err := w.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := fw.Write(p.Data); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}
	return tc.do(http.MethodPost, path, &buf, w.FormDataContentType(), false)
}

func (tc *TestContext) do(method, path string, body io.Reader, contentType string, admin bool) error {
	req, err := http.NewRequestWithContext(context.Background(), method, tc.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("User-Agent", "faceguard-e2e/1.0")
	if err := tc.authorize(req, admin); err != nil {
		return err
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody, err = io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	tc.lastJSON = nil
	if len(tc.lastBody) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var m map[string]any
		if json.Unmarshal(tc.lastBody, &m) == nil {
			tc.lastJSON = m
		}
	}
	return nil
}

func (tc *TestContext) GetLastResponseStatus() int { return tc.lastStatus }
func (tc *TestContext) GetLastResponseBody() []byte { return tc.lastBody }

// GetResponseField returns a top-level field of the last JSON response.
func (tc *TestContext) GetResponseField(field string) (any, error) {
	if tc.lastJSON == nil {
		return nil, fmt.Errorf("last response was not a JSON object: %s", tc.lastBody)
	}
	v, ok := tc.lastJSON[field]
	if !ok {
		return nil, fmt.Errorf("field %q missing from response: %s", field, tc.lastBody)
	}
	return v, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
