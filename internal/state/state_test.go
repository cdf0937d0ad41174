package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/llehouerou/cratedigger/internal/config"
	"github.com/llehouerou/cratedigger/internal/imagecache"
	"github.com/llehouerou/cratedigger/internal/provider"
)

func openTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := OpenPath(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open state manager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestCrate_RoundTrip(t *testing.T) {
	m := openTestManager(t)

	albums := []provider.AlbumArt{
		{
			ID:         "lastfm-1",
			SourceURL:  "https://img.example/1.jpg",
			Artist:     "Autechre",
			Album:      "Amber",
			ProviderID: "lastfm",
		},
		{
			ID:         "discogs-2",
			SourceURL:  "https://img.example/2.jpg",
			Artist:     "Boards of Canada",
			Album:      "Geogaddi",
			ProviderID: "discogs",
			Resolution: &provider.Resolution{Width: 600, Height: 600},
		},
	}

	if err := m.SaveCrate(albums); err != nil {
		t.Fatalf("SaveCrate failed: %v", err)
	}

	got, err := m.LoadCrate()
	if err != nil {
		t.Fatalf("LoadCrate failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	// Order is part of the contract.
	if got[0].ID != "lastfm-1" || got[1].ID != "discogs-2" {
		t.Errorf("order = [%s %s], want [lastfm-1 discogs-2]", got[0].ID, got[1].ID)
	}
	if got[1].Resolution == nil || got[1].Resolution.Width != 600 {
		t.Errorf("resolution not preserved: %+v", got[1].Resolution)
	}
}

func TestCrate_LocalHandleNotPersisted(t *testing.T) {
	m := openTestManager(t)

	albums := []provider.AlbumArt{{
		ID:          "lastfm-1",
		SourceURL:   "https://img.example/1.jpg",
		Artist:      "Autechre",
		Album:       "Amber",
		ProviderID:  "lastfm",
		LocalHandle: imagecache.NewHandle([]byte{1, 2, 3}, "image/webp"),
	}}

	if err := m.SaveCrate(albums); err != nil {
		t.Fatalf("SaveCrate failed: %v", err)
	}

	got, err := m.LoadCrate()
	if err != nil {
		t.Fatalf("LoadCrate failed: %v", err)
	}
	if got[0].LocalHandle != nil {
		t.Error("local handle must not survive persistence")
	}
	if got[0].SourceURL != "https://img.example/1.jpg" {
		t.Errorf("SourceURL = %q", got[0].SourceURL)
	}
}

func TestCrate_MissingRecordIsEmpty(t *testing.T) {
	m := openTestManager(t)

	got, err := m.LoadCrate()
	if err != nil {
		t.Fatalf("LoadCrate failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0 for a fresh database", len(got))
	}
}

func TestCrate_SaveReplacesPrevious(t *testing.T) {
	m := openTestManager(t)

	first := []provider.AlbumArt{{ID: "a", SourceURL: "https://img/a.jpg"}}
	second := []provider.AlbumArt{{ID: "b", SourceURL: "https://img/b.jpg"}}

	if err := m.SaveCrate(first); err != nil {
		t.Fatalf("SaveCrate failed: %v", err)
	}
	if err := m.SaveCrate(second); err != nil {
		t.Fatalf("SaveCrate failed: %v", err)
	}

	got, err := m.LoadCrate()
	if err != nil {
		t.Fatalf("LoadCrate failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("got %+v, want only the second save", got)
	}
}

func TestCrate_CorruptRecordErrors(t *testing.T) {
	m := openTestManager(t)

	_, err := m.DB().Exec(
		`INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)`,
		crateKey, "{not json", time.Now().Unix(),
	)
	if err != nil {
		t.Fatalf("failed to plant corrupt record: %v", err)
	}

	if _, err := m.LoadCrate(); err == nil {
		t.Error("expected error for corrupt crate record")
	}
}

func TestSettings_RoundTrip(t *testing.T) {
	m := openTestManager(t)

	in := config.Settings{
		EnabledProviders: map[string]bool{"lastfm": true, "mock": false},
		APIKeys:          config.Keys{LastFM: "key", Discogs: "tok"},
	}

	if err := m.SaveSettings(in); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}

	got, err := m.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetSettings returned nil for saved settings")
	}
	if !got.EnabledProviders["lastfm"] {
		t.Error("lastfm enablement lost")
	}
	if on, present := got.EnabledProviders["mock"]; !present || on {
		t.Error("mock disablement lost")
	}
	if got.APIKeys.LastFM != "key" || got.APIKeys.Discogs != "tok" {
		t.Errorf("APIKeys = %+v", got.APIKeys)
	}
}

func TestSettings_MissingIsNil(t *testing.T) {
	m := openTestManager(t)

	got, err := m.GetSettings()
	if err != nil {
		t.Fatalf("GetSettings failed: %v", err)
	}
	if got != nil {
		t.Errorf("GetSettings = %+v, want nil for a fresh database", got)
	}
}
