package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunText(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"-n", "5000", "-mode", "favoured", "-weary"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "(Favored, Weary)") {
		t.Errorf("missing heading:\n%s", text)
	}
	// heading, column header, 12 target rows
	if lines := strings.Count(text, "\n"); lines != 14 {
		t.Errorf("expected 14 lines, got %d:\n%s", lines, text)
	}
}

func TestRunCSV(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"-n", "5000", "-csv"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	records, err := csv.NewReader(&out).ReadAll()
	if err != nil {
		t.Fatalf("reading CSV: %v", err)
	}
	if len(records) != 13 || strings.Join(records[0], ",") != "target,1,2,3,4,5" {
		t.Errorf("unexpected CSV header or length: %v", records[0])
	}
}

func TestRunAll(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"-n", "2000", "-all"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.Count(out.String(), "Probability of success"); got != 12 {
		t.Errorf("expected 12 tables, got %d", got)
	}
}

func TestRunPresets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.yaml")
	data := "presets:\n  - name: short\n    feat_mode: Ill-favored\n    targets: [12, 14]\n    pool_sizes: [2]\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := run([]string{"-n", "2000", "-csv", "-presets", path}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	records, err := csv.NewReader(&out).ReadAll()
	if err != nil {
		t.Fatalf("reading CSV: %v", err)
	}
	if len(records) != 3 || records[1][0] != "12" || len(records[1]) != 2 {
		t.Errorf("CSV = %v", records)
	}
}

func TestRunTrials(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"-n", "50", "-trials", "3", "-csv"}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	for _, want := range []string{"trial 0: success [", "trial 2: ", "target,1,2,3,4,5"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "trial 3:") {
		t.Errorf("printed more trials than asked:\n%s", text)
	}
}

func TestRunErrors(t *testing.T) {
	for _, args := range [][]string{
		{"-mode", "blessed"},
		{"-n", "0"},
		{"-presets", filepath.Join(t.TempDir(), "missing.yaml")},
	} {
		if err := run(args, &bytes.Buffer{}); err == nil {
			t.Errorf("run(%v) succeeded, want error", args)
		}
	}
}
