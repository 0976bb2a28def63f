package channelmap

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
channels:
  fareharbor: CH-FH-01
  getyourguide: CH-GYG-01
products:
  - name: Sunset Sail
    productId: PROD-SUNSET
    nyeProductId: PROD-SUNSET-NYE
  - name: Harbor Tour
    productId: PROD-HARBOR
`

func loadSample(t *testing.T) *Map {
	t.Helper()
	path := filepath.Join(t.TempDir(), "channelmap.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m
}

func TestChannelID(t *testing.T) {
	m := loadSample(t)

	if got := m.ChannelID("fareharbor"); got != "CH-FH-01" {
		t.Errorf("ChannelID(fareharbor) = %q", got)
	}
	if got := m.ChannelID("FareHarbor"); got != "CH-FH-01" {
		t.Errorf("ChannelID is not case-insensitive: %q", got)
	}
	if got := m.ChannelID("viator"); got != "" {
		t.Errorf("unmapped platform = %q, want empty", got)
	}
}

func TestProductIDNYERule(t *testing.T) {
	m := loadSample(t)

	regular := time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC)
	nye := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		date *time.Time
		want string
	}{
		{"sunset sail", &regular, "PROD-SUNSET"},
		{"Sunset Sail", &nye, "PROD-SUNSET-NYE"},
		{"Sunset Sail", nil, "PROD-SUNSET"},
		{"Harbor Tour", &nye, "PROD-HARBOR"}, // no NYE variant configured
		{"Unknown", &regular, ""},
	}
	for _, tt := range tests {
		if got := m.ProductID(tt.name, tt.date); got != tt.want {
			t.Errorf("ProductID(%q, %v) = %q, want %q", tt.name, tt.date, got, tt.want)
		}
	}
}

func TestLoadEmptyPath(t *testing.T) {
	m, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if m.ChannelID("fareharbor") != "" {
		t.Error("empty map should resolve nothing")
	}
}
