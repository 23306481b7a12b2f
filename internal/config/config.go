package config

import (
	"encoding/json"
	"os"
)

// Config enthält alle Konfigurationseinstellungen
type Config struct {
	// Server-Einstellungen
	ServerPort string `json:"server_port"`

	// Pfade
	DatabasePath string `json:"database_path"`

	// LLM-Einstellungen
	OllamaURL    string `json:"ollama_url"`
	DefaultModel string `json:"default_model"`

	// Akademisches Backend
	AcademicAPIBaseURL string `json:"academic_api_base_url"`
	UserAPIPath        string `json:"user_api_path"`

	// Plan-Einstellungen
	PlanDurationDays int `json:"plan_duration_days"`
}

// Default gibt die Standardkonfiguration zurück
func Default() *Config {
	return &Config{
		ServerPort:         "8080",
		DatabasePath:       "studyplanner.db",
		OllamaURL:          "http://localhost:11434",
		DefaultModel:       "qwen2.5:7b",
		AcademicAPIBaseURL: "http://localhost:9090/api",
		UserAPIPath:        "/students/me",
		PlanDurationDays:   7,
	}
}

// Load lädt die Konfiguration aus einer Datei
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save speichert die Konfiguration in eine Datei
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
