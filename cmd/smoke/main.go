// Smoke test against a running API server: signs in, resolves the
// identity and fetches the dashboard.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

func main() {
	base := os.Getenv("YITRO_SMOKE_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	email := os.Getenv("YITRO_SMOKE_EMAIL")
	password := os.Getenv("YITRO_SMOKE_PASSWORD")
	if email == "" || password == "" {
		log.Fatal("set YITRO_SMOKE_EMAIL and YITRO_SMOKE_PASSWORD")
	}

	client := &http.Client{Timeout: 5 * time.Second}

	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := client.Post(base+"/api/auth/signin", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("signin: %v", err)
	}
	var signin struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		User    struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&signin); err != nil {
		log.Fatalf("decode signin: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !signin.Success || signin.Token == "" {
		log.Fatalf("signin failed: status=%d success=%v", resp.StatusCode, signin.Success)
	}

	get := func(path string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, base+path, nil)
		if err != nil {
			log.Fatalf("request %s: %v", path, err)
		}
		req.Header.Set("Authorization", "Bearer "+signin.Token)
		resp, err := client.Do(req)
		if err != nil {
			log.Fatalf("get %s: %v", path, err)
		}
		return resp
	}

	resp = get("/api/auth/me")
	var me struct {
		User struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		log.Fatalf("decode me: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("me failed: status=%d", resp.StatusCode)
	}

	resp = get("/api/dashboard/metrics")
	var dash struct {
		Success  bool             `json:"success"`
		Metrics  map[string]int64 `json:"metrics"`
		UserRole string           `json:"userRole"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&dash); err != nil {
		log.Fatalf("decode dashboard: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !dash.Success {
		log.Fatalf("dashboard failed: status=%d", resp.StatusCode)
	}

	fmt.Printf("✅ smoke test passed: user=%s role=%s\n", me.User.Email, dash.UserRole)
}
