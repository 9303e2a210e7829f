package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/dupescan/internal/config"
	"github.com/nao1215/dupescan/internal/database"
	"github.com/nao1215/dupescan/internal/model"
	"github.com/nao1215/dupescan/internal/report"
)

// TestBuildConfig tests flag and config file precedence.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cmd := NewAnalyzeCmd()
		if err := cmd.ParseFlags([]string{"-c", emptyConfig(t)}); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, []string{"./docs"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Engine.ShingleSize != 5 || cfg.Engine.HashAlgorithm != "sha256" {
			t.Errorf("unexpected engine options %+v", cfg.Engine)
		}
		if !cfg.SaveToDB {
			t.Error("expected saving by default")
		}
		if len(cfg.Targets) != 1 || cfg.Targets[0] != "./docs" {
			t.Errorf("Targets = %v", cfg.Targets)
		}
	})

	t.Run("config file applies", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		writeFile(t, path, "originality:\n  shingleSize: 3\n  nearThreshold: 0.8\n")

		cmd := NewAnalyzeCmd()
		if err := cmd.ParseFlags([]string{"-c", path}); err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, []string{"x"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Engine.ShingleSize != 3 || cfg.Engine.NearThreshold != 0.8 {
			t.Errorf("config file not applied: %+v", cfg.Engine)
		}
	})

	t.Run("flags override config file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "config.yaml")
		writeFile(t, path, "originality:\n  shingleSize: 3\n  hashAlgorithm: sha1\n")

		cmd := NewAnalyzeCmd()
		err := cmd.ParseFlags([]string{
			"-c", path,
			"--shingle-size", "7",
			"--exact", "0.9",
			"--near-penalty", "20",
			"--min-token-length", "2",
			"--page-timeout", "3s",
			"--no-save",
			"--db-dir", "/tmp/dupescan-test",
			"-w", "2",
			"-j",
		})
		if err != nil {
			t.Fatal(err)
		}

		cfg, err := buildConfig(cmd, []string{"x"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Engine.ShingleSize != 7 {
			t.Errorf("ShingleSize = %d, expected flag value 7", cfg.Engine.ShingleSize)
		}
		if cfg.Engine.HashAlgorithm != "sha1" {
			t.Errorf("HashAlgorithm = %q, expected config value", cfg.Engine.HashAlgorithm)
		}
		if cfg.Engine.ExactThreshold != 0.9 || cfg.Engine.NearPenalty != 20 || cfg.Engine.MinTokenLength != 2 {
			t.Errorf("flags not applied: %+v", cfg.Engine)
		}
		if cfg.Engine.Timeout != 3*time.Second {
			t.Errorf("Timeout = %v", cfg.Engine.Timeout)
		}
		if cfg.SaveToDB || cfg.DBDir != "/tmp/dupescan-test" {
			t.Errorf("history flags not applied: %v %q", cfg.SaveToDB, cfg.DBDir)
		}
		if cfg.Workers != 2 || !cfg.JSONReport {
			t.Errorf("Workers = %d, JSONReport = %v", cfg.Workers, cfg.JSONReport)
		}
	})

	t.Run("explicit missing config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewAnalyzeCmd()
		if err := cmd.ParseFlags([]string{"-c", "/nonexistent/dupescan.yaml"}); err != nil {
			t.Fatal(err)
		}
		if _, err := buildConfig(cmd, []string{"x"}); !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("crawl flags", func(t *testing.T) {
		t.Parallel()

		cmd := NewCrawlCmd()
		err := cmd.ParseFlags([]string{
			"-c", emptyConfig(t),
			"-d", "5", "-p", "50", "-b", "2", "-t", "5s",
			"--delay", "0s", "--proxy", "127.0.0.1:1080", "--max-body-size", "1024",
		})
		if err != nil {
			t.Fatal(err)
		}

		cfg, err := buildCrawlConfig(cmd, []string{"https://example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.CrawlDepth != 5 || cfg.MaxPages != 50 || cfg.BatchSize != 2 || cfg.Timeout != 5*time.Second {
			t.Errorf("crawl flags not applied: %+v", cfg)
		}
		if cfg.CrawlDelay != 0 || cfg.ProxyAddress != "127.0.0.1:1080" || cfg.MaxBodySize != 1024 {
			t.Errorf("crawl flags not applied: %+v", cfg)
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected valid config: %v", err)
		}
	})
}

// finishedReport builds a report with one exact duplicate scored 35.
func finishedReport(target string) *model.AuditReport {
	r := model.NewAuditReport(target)
	r.SetResults([]model.PageResult{
		{URL: target + "/a", Report: model.OriginalityReport{ContentHash: "h", OriginalityScore: 80}},
		{URL: target + "/b", Report: model.OriginalityReport{
			ContentHash:      "h",
			OriginalityScore: 35,
			ExactDuplicates:  []model.SimilarityResult{{OtherURL: target + "/a", Similarity: 1, Classification: model.ClassExact}},
		}},
		{URL: target + "/c", Report: model.OriginalityReport{AnalysisSkipped: true, OriginalityScore: 50}},
	})
	r.Finish()
	return r
}

// TestCheckFailUnder tests the originality gate.
func TestCheckFailUnder(t *testing.T) {
	t.Parallel()

	reports := []*model.AuditReport{finishedReport("https://example.com"), nil}

	tests := []struct {
		name      string
		threshold int
		wantErr   bool
	}{
		{"disabled", 0, false},
		{"all above", 30, false},
		{"skipped pages are ignored", 36, true},
		{"one below", 60, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := checkFailUnder(reports, tt.threshold)
			if tt.wantErr != (err != nil) {
				t.Fatalf("checkFailUnder(%d) = %v", tt.threshold, err)
			}
			if err != nil && !errors.Is(err, ErrOriginalityBelowThreshold) {
				t.Errorf("expected ErrOriginalityBelowThreshold, got %v", err)
			}
		})
	}

	t.Run("lists offending pages", func(t *testing.T) {
		t.Parallel()

		err := checkFailUnder(reports, 60)
		if err == nil || !strings.Contains(err.Error(), "https://example.com/b (35)") {
			t.Errorf("unexpected error %v", err)
		}
		if strings.Contains(err.Error(), "/c") {
			t.Error("skipped page should not be listed")
		}
	})
}

// TestNewReportWriter tests writer selection.
func TestNewReportWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := config.NewConfig()
	if _, ok := newReportWriter(cfg, &buf).(*report.SimpleWriter); !ok {
		t.Error("expected SimpleWriter by default")
	}

	cfg.JSONReport = true
	if _, ok := newReportWriter(cfg, &buf).(*report.FullJSONWriter); !ok {
		t.Error("expected FullJSONWriter for --json")
	}

	cfg.JSONReport, cfg.MarkdownReport = false, true
	if _, ok := newReportWriter(cfg, &buf).(*report.MarkdownWriter); !ok {
		t.Error("expected MarkdownWriter for --markdown")
	}
}

// TestOutputReports tests report destinations.
func TestOutputReports(t *testing.T) {
	t.Parallel()

	t.Run("single report to stdout", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.JSONReport = true

		var buf bytes.Buffer
		if err := outputReports(cfg, &buf, []*model.AuditReport{finishedReport("https://a.example.com")}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded report.JSONReport
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("expected a single JSON object: %v", err)
		}
		if decoded.Report.Target != "https://a.example.com" {
			t.Errorf("Target = %q", decoded.Report.Target)
		}
	})

	t.Run("batch to file", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.JSONReport = true
		cfg.ReportFile = filepath.Join(t.TempDir(), "out", "report.json")

		var buf bytes.Buffer
		reports := []*model.AuditReport{finishedReport("https://a.example.com"), finishedReport("https://b.example.com")}
		if err := outputReports(cfg, &buf, reports); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.Len() != 0 {
			t.Error("expected nothing on stdout")
		}

		data, err := os.ReadFile(cfg.ReportFile)
		if err != nil {
			t.Fatalf("expected report file: %v", err)
		}
		var decoded []report.JSONReport
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("expected a JSON array: %v", err)
		}
		if len(decoded) != 2 {
			t.Errorf("expected 2 reports, got %d", len(decoded))
		}
	})
}

// TestSaveReports tests history storage.
func TestSaveReports(t *testing.T) {
	t.Parallel()

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.SaveToDB = false
		cfg.DBDir = filepath.Join(t.TempDir(), "db")

		if err := saveReports(t.Context(), cfg, []*model.AuditReport{finishedReport("x")}, discardLogger()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(cfg.DBDir); !os.IsNotExist(err) {
			t.Error("database should not be created when saving is disabled")
		}
	})

	t.Run("stores every report", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.DBDir = t.TempDir()

		reports := []*model.AuditReport{finishedReport("https://a.example.com"), nil, finishedReport("https://b.example.com")}
		if err := saveReports(t.Context(), cfg, reports, discardLogger()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		defer db.Close()

		targets, err := db.ListTargets(t.Context())
		if err != nil {
			t.Fatal(err)
		}
		if len(targets) != 2 {
			t.Errorf("expected 2 targets, got %v", targets)
		}
	})
}
