package directory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadStaticDefault(t *testing.T) {
	d, err := LoadStatic("")
	if err != nil {
		t.Fatalf("LoadStatic failed: %v", err)
	}

	res, err := d.Resource(context.Background(), DefaultResourceID)
	if err != nil {
		t.Fatalf("default resource missing: %v", err)
	}
	for wd, day := range res.Hours {
		if !day.Working {
			t.Fatalf("default resource should work every weekday, not on %d", wd)
		}
		if day.Window.Start != 7*60 || day.Window.End != 19*60 {
			t.Fatalf("expected 07:00-19:00 window, got %s", day.Window)
		}
	}
}

func TestLoadStaticFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resources.yaml")
	content := `resources:
  - id: P1
    name: Dr. Chen
    start: "08:00"
    end: "16:00"
    weekdays: [mon, wed, fri]
  - id: P2
    name: Dr. Patel
    start: "10:00"
    end: "18:00"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	d, err := LoadStatic(path)
	if err != nil {
		t.Fatalf("LoadStatic failed: %v", err)
	}

	p1, err := d.Resource(context.Background(), "P1")
	if err != nil {
		t.Fatalf("P1 missing: %v", err)
	}
	if !p1.Hours[1].Working || p1.Hours[2].Working {
		t.Fatal("P1 should work Monday but not Tuesday")
	}
	if p1.Hours[1].Window.Start != 480 || p1.Hours[1].Window.End != 960 {
		t.Fatalf("unexpected P1 window: %s", p1.Hours[1].Window)
	}

	// Weekdays default to Mon-Fri when omitted.
	p2, err := d.Resource(context.Background(), "P2")
	if err != nil {
		t.Fatalf("P2 missing: %v", err)
	}
	if p2.Hours[0].Working || !p2.Hours[5].Working {
		t.Fatal("P2 should work Friday but not Sunday")
	}

	list, err := d.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "P1" {
		t.Fatalf("unexpected list: %+v", list)
	}

	if _, err := d.Resource(context.Background(), "P3"); !errors.Is(err, ErrUnknownResource) {
		t.Fatalf("expected ErrUnknownResource, got %v", err)
	}
}

func TestLoadStaticRejectsBadWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resources.yaml")
	content := `resources:
  - id: P1
    name: Broken
    start: "16:00"
    end: "08:00"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadStatic(path); err == nil {
		t.Fatal("end-before-start window must be rejected")
	}
}
