package config

import (
	"testing"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Mode != "market-maker" {
		t.Errorf("expected default mode market-maker, got %q", cfg.Mode)
	}
	if cfg.RiskProfile != RiskProfileConservative {
		t.Errorf("expected default risk profile conservative, got %q", cfg.RiskProfile)
	}
	if cfg.MinEdge != 0.005 {
		t.Errorf("expected conservative MIN_EDGE 0.005, got %f", cfg.MinEdge)
	}
	if cfg.ExpiryCutoffSeconds != 60 {
		t.Errorf("expected conservative EXPIRY_CUTOFF_SECONDS 60, got %d", cfg.ExpiryCutoffSeconds)
	}
	if cfg.ScanIntervalMS != 100 {
		t.Errorf("expected conservative SCAN_INTERVAL_MS 100, got %d", cfg.ScanIntervalMS)
	}
}

func TestLoadFromEnv_AggressiveRiskProfile(t *testing.T) {
	t.Setenv("RISK_PROFILE", "aggressive")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.MinEdge != 0.02 {
		t.Errorf("expected aggressive MIN_EDGE 0.02, got %f", cfg.MinEdge)
	}
	if cfg.ExpiryCutoffSeconds != 120 {
		t.Errorf("expected aggressive EXPIRY_CUTOFF_SECONDS 120, got %d", cfg.ExpiryCutoffSeconds)
	}
	if cfg.ScanIntervalMS != 300 {
		t.Errorf("expected aggressive SCAN_INTERVAL_MS 300, got %d", cfg.ScanIntervalMS)
	}
}

func TestLoadFromEnv_ExplicitTunableOverridesProfile(t *testing.T) {
	t.Setenv("RISK_PROFILE", "aggressive")
	t.Setenv("MIN_EDGE", "0.01")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.MinEdge != 0.01 {
		t.Errorf("expected explicit MIN_EDGE to win over profile default, got %f", cfg.MinEdge)
	}
	if cfg.ExpiryCutoffSeconds != 120 {
		t.Errorf("expected untouched tunable to keep profile default, got %d", cfg.ExpiryCutoffSeconds)
	}
}

func TestConfig_Validate_RejectsBadMode(t *testing.T) {
	t.Setenv("ENGINE_MODE", "both")

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("expected error for invalid ENGINE_MODE")
	}
}

func TestConfig_Validate_RejectsBadStorageMode(t *testing.T) {
	t.Setenv("STORAGE_MODE", "s3")

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("expected error for invalid STORAGE_MODE")
	}
}

func TestConfig_Validate_RejectsNonPositiveSharesPerOrder(t *testing.T) {
	t.Setenv("SHARES_PER_ORDER", "0")

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("expected error for non-positive SHARES_PER_ORDER")
	}
}
