package config

import (
	"path/filepath"
	"testing"
)

func TestGetHome_EnvVar(t *testing.T) {
	ResetHome()
	t.Setenv("TAPRESOLVER_HOME", "/custom/path")

	got := GetHome()
	if got != "/custom/path" {
		t.Errorf("GetHome() = %q, want %q", got, "/custom/path")
	}
}

func TestGetHome_FallbackToCwd(t *testing.T) {
	ResetHome()
	t.Setenv("TAPRESOLVER_HOME", "")

	if got := GetHome(); got == "" {
		t.Error("GetHome() returned empty string")
	}
}

func TestGetHome_Cached(t *testing.T) {
	ResetHome()
	t.Setenv("TAPRESOLVER_HOME", "/first")

	first := GetHome()

	// Change env; should NOT affect cached value
	t.Setenv("TAPRESOLVER_HOME", "/second")
	second := GetHome()

	if first != second {
		t.Errorf("GetHome() not cached: first=%q, second=%q", first, second)
	}
}

func TestGetDumpDir(t *testing.T) {
	ResetHome()
	t.Setenv("TAPRESOLVER_HOME", "/test/home")

	got := GetDumpDir()
	want := filepath.Join("/test/home", "dumps")
	if got != want {
		t.Errorf("GetDumpDir() = %q, want %q", got, want)
	}
}

func TestGetLogPath(t *testing.T) {
	ResetHome()
	t.Setenv("TAPRESOLVER_HOME", "/test/home")

	got := GetLogPath()
	want := filepath.Join("/test/home", "tapresolver.log")
	if got != want {
		t.Errorf("GetLogPath() = %q, want %q", got, want)
	}
}
