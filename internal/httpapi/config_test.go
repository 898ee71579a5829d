package httpapi

import "testing"

func TestSetMaxBodyBytes_DefaultWhenNonPositive(t *testing.T) {
	SetMaxBodyBytes(-1)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB, got %d", maxBodyBytes)
	}
	SetMaxBodyBytes(0)
	if maxBodyBytes != 1<<20 {
		t.Fatalf("expected default 1MiB on zero, got %d", maxBodyBytes)
	}
}

func TestSetMaxBodyBytes_PositiveSetsValue(t *testing.T) {
	SetMaxBodyBytes(1234)
	defer SetMaxBodyBytes(0)
	if maxBodyBytes != 1234 {
		t.Fatalf("expected 1234, got %d", maxBodyBytes)
	}
}

func TestSetRunTimeoutSeconds_NormalizesNegativeToZero(t *testing.T) {
	defer SetRunTimeoutSeconds(0)
	SetRunTimeoutSeconds(-5)
	if runTimeout != 0 || runTimeoutDuration() != 0 {
		t.Fatalf("expected 0, got %d", runTimeout)
	}
	SetRunTimeoutSeconds(3)
	if runTimeout != 3 || runTimeoutDuration().Seconds() != 3 {
		t.Fatalf("expected 3, got %d", runTimeout)
	}
}

func TestSetCORSOptions_CopiesSlices(t *testing.T) {
	defer SetCORSOptions(false, nil, nil, nil)
	origins := []string{"a"}
	SetCORSOptions(true, origins, nil, nil)
	origins[0] = "b"
	if !corsEnabled || corsAllowedOrigins[0] != "a" {
		t.Fatalf("origins=%v enabled=%v", corsAllowedOrigins, corsEnabled)
	}
}
