package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// ollamaStub simuliert die beiden benutzten Ollama-Endpunkte
func ollamaStub(t *testing.T, models []string, generate func(body map[string]interface{}) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			var list []map[string]interface{}
			for _, m := range models {
				list = append(list, map[string]interface{}{"name": m})
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"models": list})
		case "/api/generate":
			raw, _ := io.ReadAll(r.Body)
			var body map[string]interface{}
			json.Unmarshal(raw, &body)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"response": generate(body),
				"model":    body["model"],
				"done":     true,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaGenerate(t *testing.T) {
	var gotBody map[string]interface{}
	srv := ollamaStub(t, []string{"test-model"}, func(body map[string]interface{}) string {
		gotBody = body
		return "hallo"
	})

	p := NewOllamaProvider(srv.URL, "test-model")
	resp, err := p.Generate(context.Background(), "sag hallo", &GenerateOptions{
		Format:      "json",
		System:      "knapp bleiben",
		Temperature: 0.3,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Content != "hallo" || !resp.Done {
		t.Errorf("Antwort = %+v", resp)
	}

	if gotBody["model"] != "test-model" {
		t.Errorf("model = %v", gotBody["model"])
	}
	if gotBody["format"] != "json" {
		t.Errorf("format = %v, want json", gotBody["format"])
	}
	if gotBody["system"] != "knapp bleiben" {
		t.Errorf("system = %v", gotBody["system"])
	}
	if gotBody["stream"] != false {
		t.Errorf("stream = %v, want false", gotBody["stream"])
	}
}

func TestOllamaGenerateHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			json.NewEncoder(w).Encode(map[string]interface{}{"models": []interface{}{}})
			return
		}
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	p := NewOllamaProvider(srv.URL, "test-model")
	if _, err := p.Generate(context.Background(), "x", nil); err == nil {
		t.Fatal("erwartet Fehler bei HTTP 500")
	}
}

func TestNewOllamaProviderFallsBackToInstalledModel(t *testing.T) {
	srv := ollamaStub(t, []string{"llama3.2:3b"}, func(map[string]interface{}) string { return "" })

	p := NewOllamaProvider(srv.URL, "nicht-installiert")
	if got := p.GetCurrentModel(); got != "llama3.2:3b" {
		t.Errorf("GetCurrentModel = %q, want llama3.2:3b", got)
	}
}

func TestIsAvailable(t *testing.T) {
	srv := ollamaStub(t, []string{"m"}, func(map[string]interface{}) string { return "" })
	p := NewOllamaProvider(srv.URL, "m")

	if !p.IsAvailable(context.Background()) {
		t.Error("Stub sollte erreichbar sein")
	}

	srv.Close()
	if p.IsAvailable(context.Background()) {
		t.Error("geschlossener Server darf nicht erreichbar sein")
	}
}
