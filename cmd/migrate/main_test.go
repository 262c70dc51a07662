package main

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func mapLookup(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestParseOptions(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		env     map[string]string
		want    options
		wantErr string
	}{
		{
			name: "flag dsn",
			args: []string{"-direction=status", "-dsn=postgres://a"},
			want: options{direction: "status", dsn: "postgres://a"},
		},
		{
			name: "env fallback",
			args: []string{"-direction=UP", "-steps=2"},
			env:  map[string]string{envPostgresDSN: " postgres://env "},
			want: options{direction: "up", steps: 2, dsn: "postgres://env"},
		},
		{
			name: "down defaults to one step",
			args: []string{"-direction=down", "-dsn=postgres://a"},
			want: options{direction: "down", steps: 1, dsn: "postgres://a"},
		},
		{
			name:    "missing dsn",
			args:    []string{"-direction=status"},
			wantErr: envPostgresDSN,
		},
		{
			name:    "bad direction",
			args:    []string{"-direction=sideways", "-dsn=postgres://a"},
			wantErr: "unsupported direction",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseOptions(tc.args, mapLookup(tc.env))
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseOptions failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("parseOptions = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestRun_StatusUpDown(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("SHOP_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("postgres dsn is not available")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, direction := range []string{"status", "up", "down", "up"} {
		var out bytes.Buffer
		opts := options{direction: direction, dsn: dsn}
		if direction == "down" {
			opts.steps = 1
		}
		if err := run(ctx, opts, &out); err != nil {
			t.Skipf("postgres is not available for migrate test: %v", err)
		}
		if !strings.HasPrefix(out.String(), "migrate "+direction+" ok") {
			t.Fatalf("unexpected output for %s: %q", direction, out.String())
		}
	}
}

func TestFailExits(t *testing.T) {
	if os.Getenv("MIGRATE_TEST_FAIL_EXIT") == "1" {
		fail("forced failure %d", 42)
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestFailExits")
	cmd.Env = append(os.Environ(), "MIGRATE_TEST_FAIL_EXIT=1")
	err := cmd.Run()
	if err == nil {
		t.Fatal("expected subprocess to exit with error")
	}
	if exitErr, ok := err.(*exec.ExitError); !ok || exitErr.ExitCode() == 0 {
		t.Fatalf("expected non-zero exit code, got %v", err)
	}
}
