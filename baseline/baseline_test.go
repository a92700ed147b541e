package baseline

import (
	"os"
	"path/filepath"
	"testing"
)

func TestV0Cap(t *testing.T) {
	got, ok := V0.Cap("wl_seat", 20)
	if !ok || got != 10 {
		t.Fatalf("Cap(wl_seat, 20) = %d, %v; want 10, true", got, ok)
	}
	got, ok = V0.Cap("wl_seat", 3)
	if !ok || got != 3 {
		t.Fatalf("Cap(wl_seat, 3) = %d, %v; want 3, true", got, ok)
	}
}

func TestV0RejectsUnknownInterface(t *testing.T) {
	if _, ok := V0.Cap("xdg_toplevel_icon_v1", 1); ok {
		t.Fatal("expected V0 to not know about xdg_toplevel_icon_v1")
	}
}

func TestLoadFileRejectsUnknownInterface(t *testing.T) {
	Register("wlproxy_test_baseline_marker", 3)

	dir := t.TempDir()
	path := filepath.Join(dir, "baseline.yaml")
	if err := os.WriteFile(path, []byte("name: custom\nversions:\n  does_not_exist: 1\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected LoadFile to reject an unknown interface")
	}
}

func TestLoadFileAcceptsKnownInterface(t *testing.T) {
	Register("wlproxy_test_baseline_marker", 3)

	dir := t.TempDir()
	path := filepath.Join(dir, "baseline.yaml")
	content := "name: custom\nversions:\n  wlproxy_test_baseline_marker: 2\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	b, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	got, ok := b.Cap("wlproxy_test_baseline_marker", 5)
	if !ok || got != 2 {
		t.Fatalf("Cap() = %d, %v; want 2, true", got, ok)
	}
}
