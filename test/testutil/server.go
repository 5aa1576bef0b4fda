// Package testutil provides a fake catalog service for integration tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/matshelf/matshelf/pkg/api"
)

// TestToken is the session token the fake service hands out on login.
const TestToken = "test-session-token"

// FileSpec describes one downloadable file the fake service serves.
type FileSpec struct {
	Filename  string
	SizeBytes int64
}

// FakeCatalog is an in-memory stand-in for the asset service. It serves the
// login, catalog, download-URL and file endpoints the client talks to.
type FakeCatalog struct {
	Server *httptest.Server

	// Email and Password are the accepted credentials.
	Email    string
	Password string

	mu        sync.Mutex
	assets    []api.AssetRecord
	files     map[int][]FileSpec
	purchased map[int]bool
	urlCalls  int
}

// NewFakeCatalog starts the fake service. Call Close when done.
func NewFakeCatalog() *FakeCatalog {
	catalog := &FakeCatalog{
		Email:     "user@example.com",
		Password:  "hunter2",
		files:     map[int][]FileSpec{},
		purchased: map[int]bool{},
	}
	catalog.Server = httptest.NewServer(http.HandlerFunc(catalog.handle))
	return catalog
}

// Close shuts the fake service down.
func (c *FakeCatalog) Close() {
	c.Server.Close()
}

// URL is the service base URL for the client config.
func (c *FakeCatalog) URL() string {
	return c.Server.URL
}

// AddAsset registers an asset record and the files its download serves.
func (c *FakeCatalog) AddAsset(record api.AssetRecord, files ...FileSpec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assets = append(c.assets, record)
	c.files[record.ID] = files
}

// URLCalls reports how many download-URL requests the service saw.
func (c *FakeCatalog) URLCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.urlCalls
}

// Purchased reports whether the asset was bought through the fake service.
func (c *FakeCatalog) Purchased(assetID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purchased[assetID]
}

func (c *FakeCatalog) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/login":
		c.handleLogin(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/assets":
		c.handleList(w, r, false)
	case r.Method == http.MethodGet && r.URL.Path == "/user/assets":
		c.handleList(w, r, true)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/assets/") && !strings.HasSuffix(r.URL.Path, "/download"):
		c.handleAsset(w, r)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/download"):
		c.handleDownloadURLs(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/files/"):
		c.handleFile(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/user/balance":
		writeJSON(w, map[string]int{"credits": 100, "subscription_credits_left": 0})
	case r.Method == http.MethodPost && r.URL.Path == "/user/purchases":
		c.handlePurchase(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/client/version":
		writeJSON(w, map[string]string{"latest_version": "0.1.0", "minimum_version": "0.1.0"})
	case r.Method == http.MethodPost && r.URL.Path == "/logout":
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

func (c *FakeCatalog) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&creds)
	if creds.Email != c.Email || creds.Password != c.Password {
		w.WriteHeader(http.StatusUnauthorized)
		writeJSON(w, map[string]string{"message": "wrong password"})
		return
	}
	writeJSON(w, map[string]interface{}{
		"access_token": TestToken,
		"user":         map[string]interface{}{"id": 1, "name": "Test User", "email": creds.Email},
	})
}

func (c *FakeCatalog) handleList(w http.ResponseWriter, r *http.Request, userOwned bool) {
	if userOwned && !c.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	search := strings.ToLower(r.URL.Query().Get("search"))
	matched := make([]api.AssetRecord, 0, len(c.assets))
	for _, record := range c.assets {
		if search != "" && !strings.Contains(strings.ToLower(record.Name), search) {
			continue
		}
		matched = append(matched, record)
	}
	writeJSON(w, map[string]interface{}{"assets": matched, "total": len(matched)})
}

func (c *FakeCatalog) handleAsset(w http.ResponseWriter, r *http.Request) {
	assetID := pathAssetID(r.URL.Path)
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, record := range c.assets {
		if record.ID == assetID {
			writeJSON(w, record)
			return
		}
	}
	http.NotFound(w, r)
}

func (c *FakeCatalog) handleDownloadURLs(w http.ResponseWriter, r *http.Request) {
	if !c.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	assetID := pathAssetID(r.URL.Path)

	c.mu.Lock()
	c.urlCalls++
	files := c.files[assetID]
	c.mu.Unlock()

	type fileRecord struct {
		Filename  string `json:"filename"`
		URL       string `json:"url"`
		SizeBytes int64  `json:"size_bytes"`
	}
	records := make([]fileRecord, 0, len(files))
	for _, file := range files {
		records = append(records, fileRecord{
			Filename:  file.Filename,
			URL:       c.Server.URL + "/files/" + file.Filename,
			SizeBytes: file.SizeBytes,
		})
	}
	writeJSON(w, map[string]interface{}{"files": records})
}

func (c *FakeCatalog) handleFile(w http.ResponseWriter, r *http.Request) {
	filename := strings.TrimPrefix(r.URL.Path, "/files/")

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, files := range c.files {
		for _, file := range files {
			if file.Filename == filename {
				w.Header().Set("Content-Length", fmt.Sprintf("%d", file.SizeBytes))
				_, _ = w.Write(make([]byte, file.SizeBytes))
				return
			}
		}
	}
	http.NotFound(w, r)
}

func (c *FakeCatalog) handlePurchase(w http.ResponseWriter, r *http.Request) {
	if !c.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var payload struct {
		AssetID int `json:"asset_id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&payload)
	c.mu.Lock()
	c.purchased[payload.AssetID] = true
	c.mu.Unlock()
	w.WriteHeader(http.StatusOK)
	writeJSON(w, map[string]bool{"ok": true})
}

func (c *FakeCatalog) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+TestToken
}

func pathAssetID(path string) int {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for _, part := range parts {
		if id, err := strconv.Atoi(part); err == nil {
			return id
		}
	}
	return 0
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
