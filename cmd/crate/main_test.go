package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestGenerateWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	out, err := runCLI(t, "generate", "--workspace", dir, "--out", dir,
		"--farm-name", "Sunny Grove", "--farm-location", "Valencia, Spain",
		"--harvest-date", "2024-05-01", "--notes", "Handle with care")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(out, "Crate ID generated: ORC-") {
		t.Fatalf("unexpected output: %s", out)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var suffixes []string
	for _, e := range entries {
		name := e.Name()
		suffixes = append(suffixes, name[strings.LastIndex(name, "_"):])
	}
	if strings.Join(suffixes, ",") != "_Data.json,_Label.txt,_QR.png" {
		t.Fatalf("unexpected files: %v", suffixes)
	}
}

func TestValidateRejectsMissingFarm(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, "validate", "--workspace", dir, "--farm-location", "Valencia, Spain")
	if err == nil || !strings.Contains(err.Error(), "farmName") {
		t.Fatalf("expected farmName error, got %v", err)
	}
}

func TestValidateInputFileWithOverride(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "crate.yaml")
	doc := "farm_name: Sunny Grove\nfarm_location: Valencia, Spain\nvariety: Navel\nweight_kg: 12.5\nharvest_date: \"2024-05-01\"\n"
	if err := os.WriteFile(input, []byte(doc), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	out, err := runCLI(t, "validate", "--workspace", dir, "--json", "--input", input, "--quantity", "7")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if got["variety"] != "Navel" || got["quantity_pieces"] != float64(7) || got["weight_kg"] != 12.5 {
		t.Fatalf("unexpected record: %v", got)
	}
	if got["quality_grade"] != "Premium" {
		t.Fatalf("expected default grade, got %v", got["quality_grade"])
	}
}

func TestDecodeDataFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := runCLI(t, "generate", "--workspace", dir, "--out", dir,
		"--farm-name", "Sunny Grove", "--farm-location", "Valencia, Spain"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*_Data.json"))
	if len(matches) != 1 {
		t.Fatalf("expected one data file, got %v", matches)
	}
	out, err := runCLI(t, "decode", "--workspace", dir, "--file", matches[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(out, "Sunny Grove") || !strings.Contains(out, "sha256: ") {
		t.Fatalf("unexpected decode output: %s", out)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	if _, err := runCLI(t, "config", "init", "--workspace", dir); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := runCLI(t, "config", "init", "--workspace", dir); err == nil {
		t.Fatalf("expected second init to fail")
	}
	if _, err := runCLI(t, "config", "init", "--workspace", dir, "--force"); err != nil {
		t.Fatalf("config init --force: %v", err)
	}
	if _, err := runCLI(t, "config", "validate", "--workspace", dir); err != nil {
		t.Fatalf("config validate: %v", err)
	}
}
