//go:build integration

package google

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"suryasakshi/internal/core"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_AppendActivity(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if os.Getenv("GOOGLE_SPREADSHEET_ID") == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := NewFromEnv(ctx)
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	ref, err := client.AppendActivity(ctx, core.Activity{
		UserName:  "INTEGRATION",
		Action:    core.ActionCreated,
		Category:  core.OtherExpenses,
		Target:    "integration test entry",
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("append activity: %v", err)
	}
	if !strings.Contains(ref, "!") {
		t.Errorf("expected a sheet range reference, got %q", ref)
	}
}

func TestIntegration_AppendSummary(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	if os.Getenv("GOOGLE_SPREADSHEET_ID") == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := NewFromEnv(ctx)
	if err != nil {
		t.Fatalf("client: %v", err)
	}

	s := core.Summarize(core.RecordSet{}, core.CurrentPeriod(time.Now()))
	if _, err := client.AppendSummary(ctx, s, time.Now()); err != nil {
		t.Fatalf("append summary: %v", err)
	}
}
