package worker_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"algoverse/internal/app/worker"
)

func decodeB64(t *testing.T, s string) string {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		t.Fatalf("field is not valid base64: %v", err)
	}
	return string(raw)
}

func TestSandboxClientEncodesRequestAndParsesVerdict(t *testing.T) {
	var captured struct {
		path       string
		query      string
		authHeader string
		body       map[string]interface{}
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.query = r.URL.RawQuery
		captured.authHeader = r.Header.Get("X-Auth-Token")
		if err := json.NewDecoder(r.Body).Decode(&captured.body); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		timeStr := "0.042"
		mem := 9120.0
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": map[string]interface{}{"id": 3, "description": "Accepted"},
			"time":   &timeStr,
			"memory": &mem,
		})
	}))
	defer srv.Close()

	client := worker.NewHTTPSandboxClient(srv.URL, "secret-token", 5*time.Second)
	verdict, err := client.Run(context.Background(), worker.SandboxRequest{
		Code:           "print(input())",
		LanguageID:     71,
		Stdin:          "hello",
		ExpectedOutput: "hello",
		CPUTimeLimit:   2.0,
		MemoryLimitKb:  128000,
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if captured.path != "/submissions" {
		t.Fatalf("posted to %q, want /submissions", captured.path)
	}
	if captured.query != "base64_encoded=true&wait=true" {
		t.Fatalf("unexpected query %q", captured.query)
	}
	if captured.authHeader != "secret-token" {
		t.Fatalf("auth token not forwarded, got %q", captured.authHeader)
	}
	if got := decodeB64(t, captured.body["source_code"].(string)); got != "print(input())" {
		t.Fatalf("source_code round-trip produced %q", got)
	}
	if got := decodeB64(t, captured.body["stdin"].(string)); got != "hello" {
		t.Fatalf("stdin round-trip produced %q", got)
	}
	if captured.body["language_id"].(float64) != 71 {
		t.Fatalf("language_id was %v", captured.body["language_id"])
	}

	if !verdict.Passed() {
		t.Fatalf("expected passing verdict, got status %d", verdict.StatusID)
	}
	if verdict.TimeMs != 42 {
		t.Fatalf("expected 42ms, got %d", verdict.TimeMs)
	}
	if verdict.MemoryKb != 9120 {
		t.Fatalf("expected 9120kb, got %d", verdict.MemoryKb)
	}
}

func TestSandboxClientDecodesCompileOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encoded := base64.StdEncoding.EncodeToString([]byte("main.go:1: syntax error"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":         map[string]interface{}{"id": 6, "description": "Compilation Error"},
			"compile_output": &encoded,
		})
	}))
	defer srv.Close()

	client := worker.NewHTTPSandboxClient(srv.URL, "", 5*time.Second)
	verdict, err := client.Run(context.Background(), worker.SandboxRequest{Code: "x", LanguageID: 60})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if verdict.Passed() {
		t.Fatal("compilation error must not pass")
	}
	if verdict.CompileOutput != "main.go:1: syntax error" {
		t.Fatalf("compile output not decoded: %q", verdict.CompileOutput)
	}
}

func TestSandboxClientRejectsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue is full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := worker.NewHTTPSandboxClient(srv.URL, "", 5*time.Second)
	if _, err := client.Run(context.Background(), worker.SandboxRequest{Code: "x"}); err == nil {
		t.Fatal("expected an error for a non-2xx sandbox response")
	}
}
