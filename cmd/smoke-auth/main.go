package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"ems.org/internal/authclient"
)

// Exercises the session lifecycle against a running API: login, an
// authenticated call, refresh rotation, replay rejection, logout.
func main() {
	base := os.Getenv("EMS_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	email := envOr("EMS_SMOKE_EMAIL", "admin@ems.com")
	password := envOr("EMS_SMOKE_PASSWORD", "Admin@123")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Interceptor path: login, authenticated call, logout.
	client := authclient.New(base)
	user, err := client.Login(ctx, email, password)
	if err != nil {
		log.Fatalf("login: %v", err)
	}
	if user.Role == "" {
		log.Fatalf("login returned no role: %+v", user)
	}
	if err := me(ctx, client); err != nil {
		log.Fatalf("me: %v", err)
	}
	if err := client.Logout(ctx); err != nil {
		log.Fatalf("logout: %v", err)
	}
	if client.Authenticated() {
		log.Fatal("client still authenticated after logout")
	}

	// Raw protocol path: refresh must rotate, and the consumed refresh
	// token must be rejected on replay.
	first := login(ctx, base, email, password)
	second := refresh(ctx, base, first, http.StatusOK)
	if second.RefreshToken == first.RefreshToken {
		log.Fatal("refresh token was not rotated")
	}
	refresh(ctx, base, pair{second.AccessToken, first.RefreshToken}, http.StatusUnauthorized)

	fmt.Println("✅ auth smoke test passed")
}

type pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func login(ctx context.Context, base, email, password string) pair {
	var p pair
	status := post(ctx, base+"/api/auth/login", map[string]string{
		"email": email, "password": password,
	}, &p)
	if status != http.StatusOK {
		log.Fatalf("raw login: status %d", status)
	}
	return p
}

func refresh(ctx context.Context, base string, p pair, wantStatus int) pair {
	var next pair
	status := post(ctx, base+"/api/auth/refresh", map[string]string{
		"accessToken": p.AccessToken, "refreshToken": p.RefreshToken,
	}, &next)
	if status != wantStatus {
		log.Fatalf("refresh: status %d, want %d", status, wantStatus)
	}
	return next
}

func post(ctx context.Context, url string, in any, out any) int {
	body, err := json.Marshal(in)
	if err != nil {
		log.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()

	var env struct {
		Success bool            `json:"success"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		log.Fatalf("decode %s: %v", url, err)
	}
	if env.Success && out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			log.Fatalf("decode data %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func me(ctx context.Context, c *authclient.Client) error {
	req, err := c.NewRequest(ctx, http.MethodGet, "/api/auth/me", nil)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
