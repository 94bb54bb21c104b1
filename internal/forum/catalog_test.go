package forum

import (
	"testing"
)

func TestCatalogSeedCreatesDefaults(t *testing.T) {
	repo := &fakePersonaRepo{}
	c := NewCatalog(repo, testLogger())

	if err := c.Seed(dbcNone()); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if len(repo.rows) != 4 {
		t.Fatalf("seeded %d personas, want 4", len(repo.rows))
	}
	byName := map[string]bool{}
	for _, p := range repo.rows {
		byName[p.Name] = true
		if p.SystemPrompt == "" {
			t.Errorf("persona %q has empty prompt", p.Name)
		}
		if !p.IsActive {
			t.Errorf("persona %q seeded inactive", p.Name)
		}
	}
	for _, name := range []string{"Dr. Baldsworth", "Chrome Dome Charlie", "Sunny", "Razor Rick"} {
		if !byName[name] {
			t.Errorf("missing persona %q", name)
		}
	}
}

func TestCatalogSeedIdempotent(t *testing.T) {
	repo := &fakePersonaRepo{}
	c := NewCatalog(repo, testLogger())

	if err := c.Seed(dbcNone()); err != nil {
		t.Fatalf("first Seed: %v", err)
	}
	// Operator edits survive a reseed.
	repo.rows[0].SystemPrompt = "edited"
	if err := c.Seed(dbcNone()); err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	if len(repo.rows) != 4 {
		t.Fatalf("reseed duplicated personas: %d", len(repo.rows))
	}
	if repo.rows[0].SystemPrompt != "edited" {
		t.Error("reseed overwrote an edited prompt")
	}
}
