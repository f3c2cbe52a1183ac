package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsMatchSpecConstants(t *testing.T) {
	d := Defaults()
	if d.PassReq != 7999 {
		t.Errorf("PassReq = %d, want 7999", d.PassReq)
	}
	if d.CapThreshold != 0.8 {
		t.Errorf("CapThreshold = %v, want 0.8", d.CapThreshold)
	}
	if d.ReadErrorDelayPasses() != 7999*60 {
		t.Errorf("ReadErrorDelayPasses() = %d, want %d", d.ReadErrorDelayPasses(), 7999*60)
	}
	if d.DailyProbePasses() != 7999*1440 {
		t.Errorf("DailyProbePasses() = %d, want %d", d.DailyProbePasses(), 7999*1440)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cal, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cal != Defaults() {
		t.Errorf("Load(missing) = %+v, want defaults %+v", cal, Defaults())
	}
}

func TestLoadOverridesCapThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal.yaml")
	if err := os.WriteFile(path, []byte("cap_threshold: 0.75\npass_req: 7999\nread_error_pass_constant: 1440\nread_error_delay_minutes: 60\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cal, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cal.CapThreshold != 0.75 {
		t.Errorf("CapThreshold = %v, want 0.75", cal.CapThreshold)
	}
}

func TestLoadRejectsInvalidThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cal.yaml")
	if err := os.WriteFile(path, []byte("cap_threshold: 1.5\npass_req: 7999\nread_error_pass_constant: 1440\nread_error_delay_minutes: 60\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for cap_threshold > 1")
	}
}
