package fakebackend

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(t *testing.T, url, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	out := map[string]interface{}{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func get(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func TestBackend_TokenLifecycle(t *testing.T) {
	b := New(Options{Users: []SeedUser{{Username: "alice", Password: "secret1"}}}).Start()
	defer b.Close()

	resp, body := post(t, b.URL()+"/auth/token/", "", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "No active account found with the given credentials", body["detail"])

	resp, body = post(t, b.URL()+"/auth/token/", "", map[string]string{"username": "alice", "password": "secret1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	access, _ := body["access"].(string)
	refresh, _ := body["refresh"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)

	assert.Equal(t, http.StatusOK, get(t, b.URL()+"/users/me/", access).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, get(t, b.URL()+"/users/me/", "").StatusCode)
	// a refresh token is not an access token
	assert.Equal(t, http.StatusUnauthorized, get(t, b.URL()+"/users/me/", refresh).StatusCode)

	b.ExpireAccessTokens()
	assert.Equal(t, http.StatusUnauthorized, get(t, b.URL()+"/users/me/", access).StatusCode)

	resp, body = post(t, b.URL()+"/auth/token/refresh/", "", map[string]string{"refresh": refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fresh, _ := body["access"].(string)
	assert.Equal(t, http.StatusOK, get(t, b.URL()+"/users/me/", fresh).StatusCode)
	assert.NotContains(t, body, "refresh")

	b.RevokeRefreshTokens()
	resp, body = post(t, b.URL()+"/auth/token/refresh/", "", map[string]string{"refresh": refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "token_not_valid", body["code"])

	assert.Equal(t, 2, b.TokenCalls())
	assert.Equal(t, 2, b.RefreshCalls())
}

func TestBackend_ExpiredToken(t *testing.T) {
	b := New(Options{}).Start()
	defer b.Close()
	id := b.AddUser(SeedUser{Username: "bob", Password: "secret1"})

	token, err := b.IssueToken(tokenTypeAccess, id, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, get(t, b.URL()+"/users/me/", token).StatusCode)
}

func TestBackend_Register(t *testing.T) {
	b := New(Options{Users: []SeedUser{{Username: "alice", Password: "secret1", Email: "alice@example.com"}}}).Start()
	defer b.Close()

	resp, body := post(t, b.URL()+"/auth/register/", "", map[string]string{"username": "alice", "email": "bad", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, "username")
	assert.Contains(t, body, "email")
	assert.Contains(t, body, "password")

	resp, body = post(t, b.URL()+"/auth/register/", "", map[string]string{"username": "carol", "email": "carol@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "carol", body["username"])
	assert.NotContains(t, body, "password")
}

func TestBackend_PublicProjects(t *testing.T) {
	b := New(Options{}).Start()
	defer b.Close()

	assert.Equal(t, http.StatusOK, get(t, b.URL()+"/projects/", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, get(t, b.URL()+"/projects/", "garbage").StatusCode)

	resp, _ := post(t, b.URL()+"/projects/", "", map[string]string{"name": "Apollo"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBackend_Pagination(t *testing.T) {
	b := New(Options{PageSize: 2}).Start()
	defer b.Close()
	for _, name := range []string{"carol", "alice", "bob"} {
		b.AddUser(SeedUser{Username: name, Password: "secret1"})
	}
	_, body := post(t, b.URL()+"/auth/token/", "", map[string]string{"username": "alice", "password": "secret1"})
	access, _ := body["access"].(string)

	resp := get(t, b.URL()+"/users/", access)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Count   int                      `json:"count"`
		Next    *string                  `json:"next"`
		Results []map[string]interface{} `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, 3, page.Count)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "alice", page.Results[0]["username"])
	require.NotNil(t, page.Next)
	assert.Contains(t, *page.Next, "page=2")

	assert.Equal(t, http.StatusNotFound, get(t, b.URL()+"/users/?page=9", access).StatusCode)
}
