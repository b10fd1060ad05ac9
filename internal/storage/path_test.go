package storage

import (
	"testing"
	"time"
)

func TestResultKeyUsesUTCDate(t *testing.T) {
	at := time.Date(2026, time.February, 19, 22, 5, 0, 0, time.FixedZone("x", -5*3600))
	key, err := ResultKey("0f4b2c", at)
	if err != nil {
		t.Fatalf("ResultKey() error = %v", err)
	}
	if want := "results/2026/02/20/0f4b2c.parquet"; key != want {
		t.Fatalf("ResultKey() = %q, want %q", key, want)
	}
	if !IsResultKey(key) {
		t.Fatalf("IsResultKey(%q) = false", key)
	}
}

func TestResultKeyRejectsTraversal(t *testing.T) {
	if _, err := ResultKey("../etc", time.Now()); err == nil {
		t.Fatal("expected invalid id error")
	}
}

func TestIsResultKey(t *testing.T) {
	for _, key := range []string{"results/2026/02/20/../x.parquet", "other/2026/02/20/a.parquet", "results/2026/02/20/a.csv", "results/26/02/20/a.parquet"} {
		if IsResultKey(key) {
			t.Fatalf("IsResultKey(%q) = true", key)
		}
	}
}
