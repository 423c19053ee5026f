package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slotledger/internal/shared/testutil"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"inline markup", []string{"-markup", "<table/>"}, ""},
		{"file with date", []string{"-html", "day.html", "-date", "2024-10-17"}, ""},
		{"version only", []string{"-version"}, ""},
		{"no source", []string{"-date", "2024-10-17"}, "exactly one of"},
		{"two sources", []string{"-html", "a.html", "-url", "http://x"}, "exactly one of"},
		{"bad date", []string{"-markup", "x", "-date", "17/10/2024"}, "invalid -date"},
		{"unknown flag", []string{"-nope"}, "flag provided but not defined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			_, err := parseFlags(tt.args, &stderr)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "-version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "slotledger v")
}

func TestRun_UsageError(t *testing.T) {
	code, _, stderr := runCLI(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "exactly one of")
}

func TestRun_FromFile(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "day.html")
	require.NoError(t, os.WriteFile(page, []byte(testutil.HallMarkup("1001", "118.2", "1002", "150")), 0o644))
	store := filepath.Join(dir, "store")
	out := filepath.Join(dir, "aggregate.xlsx")

	code, stdout, stderr := runCLI(t, "-html", page, "-date", "2024-10-17", "-store", store, "-out", out)

	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "date:     2024-10-17")
	assert.Contains(t, stdout, "(2 records)")
	assert.Contains(t, stdout, "bands:    low=1 mid=0 none=1")
	assert.FileExists(t, filepath.Join(store, "slot_machine_data_2024-10-17.csv"))
	assert.FileExists(t, out)
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name     string
		args     func(dir string) []string
		config   string
		wantStep string
	}{
		{
			name: "missing html file",
			args: func(dir string) []string {
				return []string{"-html", filepath.Join(dir, "absent.html"), "-store", filepath.Join(dir, "store"), "-out", filepath.Join(dir, "a.xlsx")}
			},
			wantStep: "failed at step extract",
		},
		{
			name: "store directory missing",
			args: func(dir string) []string {
				return []string{"-markup", testutil.HallMarkup("1", "120"), "-store", filepath.Join(dir, "absent"), "-out", filepath.Join(dir, "a.xlsx")}
			},
			config:   "store:\n  create_dir: false\n",
			wantStep: "failed at step store",
		},
		{
			name: "workbook directory missing",
			args: func(dir string) []string {
				return []string{"-markup", testutil.HallMarkup("1", "120"), "-store", filepath.Join(dir, "store"), "-out", filepath.Join(dir, "no", "a.xlsx")}
			},
			wantStep: "failed at step aggregate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			args := tt.args(dir)
			if tt.config != "" {
				args = append(args, "-config", writeConfig(t, dir, tt.config))
			}

			code, _, stderr := runCLI(t, args...)

			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, tt.wantStep)
		})
	}
}

func TestRun_Upload(t *testing.T) {
	dir := t.TempDir()
	mirror := filepath.Join(dir, "mirror")
	cfgPath := writeConfig(t, dir, fmt.Sprintf("upload:\n  provider: directory\n  directory: %q\n", mirror))

	code, stdout, stderr := runCLI(t,
		"-markup", testutil.HallMarkup("1", "120"),
		"-date", "2024-10-17",
		"-store", filepath.Join(dir, "store"),
		"-out", filepath.Join(dir, "aggregate.xlsx"),
		"-config", cfgPath,
		"-upload")

	require.Equal(t, 0, code, stderr)
	assert.Equal(t, 2, strings.Count(stdout, "uploaded:"))
	assert.FileExists(t, filepath.Join(mirror, "data", "csv", "slot_machine_data_2024-10-17.csv"))
	assert.FileExists(t, filepath.Join(mirror, "data", "excel", "aggregate.xlsx"))
}
