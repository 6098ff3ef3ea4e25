package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GOTALE_COLOR", "GOTALE_LOG_FILE", "GOTALE_LOG_LEVEL", "GOTALE_EXPR_TIMEOUT", "GOTALE_START"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func execute(t *testing.T, input string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(input), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

const caveTranscript = "You stand at the mouth of a cave.\n" +
	"\n1: Enter\n2: Leave\n" +
	"\nEnter choice: \n" +
	"It is dark inside.\nYour torch flickers.\n" +
	"\nTHE END.\n"

func TestRun_Play(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		input      string
		wantCode   int
		wantStdout string
	}{
		{
			name:       "choose first option",
			args:       []string{"testdata/cave.twee"},
			input:      "1\n",
			wantCode:   ExitOK,
			wantStdout: caveTranscript,
		},
		{
			name:       "invalid input is retried",
			args:       []string{"testdata/cave.twee"},
			input:      "zero\n9\n2\n",
			wantCode:   ExitOK,
			wantStdout: "You stand at the mouth of a cave.\n\n1: Enter\n2: Leave\n\nEnter choice: Invalid choice!\n\nEnter choice: Invalid choice!\n\nEnter choice: \nYou walk away.\n\nTHE END.\n",
		},
		{
			name:       "start override",
			args:       []string{"--start", "Leave", "testdata/cave.twee"},
			wantCode:   ExitOK,
			wantStdout: "You walk away.\n\nTHE END.\n",
		},
		{
			name:       "input closed at a choice",
			args:       []string{"testdata/cave.twee"},
			wantCode:   ExitFatal,
			wantStdout: "You stand at the mouth of a cave.\n\n1: Enter\n2: Leave\n\nEnter choice: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			code, stdout, _ := execute(t, tt.input, tt.args...)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			if stdout != tt.wantStdout {
				t.Errorf("stdout = %q, want %q", stdout, tt.wantStdout)
			}
		})
	}
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantFirst string
		wantUsage string
	}{
		{name: "no arguments", args: nil, wantFirst: missingStoryMessage, wantUsage: "gotale [flags] <story-file>"},
		{name: "too many arguments", args: []string{"a.twee", "b.twee"}, wantFirst: missingStoryMessage, wantUsage: "gotale [flags] <story-file>"},
		{name: "check without story", args: []string{"check"}, wantFirst: missingStoryMessage, wantUsage: "check <story-file>"},
		{name: "unknown flag", args: []string{"--loud", "testdata/cave.twee"}, wantFirst: "unknown flag: --loud", wantUsage: "Flags:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			code, stdout, stderr := execute(t, "", tt.args...)
			if code != ExitUsage {
				t.Errorf("exit code = %d, want %d", code, ExitUsage)
			}
			first, _, _ := strings.Cut(stdout, "\n")
			if first != tt.wantFirst {
				t.Errorf("first line = %q, want %q", first, tt.wantFirst)
			}
			if !strings.Contains(stdout, tt.wantUsage) {
				t.Errorf("stdout missing usage %q:\n%s", tt.wantUsage, stdout)
			}
			if stderr != "" {
				t.Errorf("stderr = %q, want empty", stderr)
			}
		})
	}
}

func TestRun_Fatal(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.twee")
	if err := os.WriteFile(empty, []byte("no header here\n"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		args       []string
		wantStderr string
	}{
		{name: "missing file", args: []string{filepath.Join(dir, "missing.twee")}, wantStderr: "Error: failed to load story"},
		{name: "parse failure", args: []string{empty}, wantStderr: "Error: failed to start story"},
		{name: "bad color", args: []string{"--color", "rainbow", "testdata/cave.twee"}, wantStderr: "Error: invalid color mode"},
		{name: "bad start", args: []string{"--start", "Nowhere", "testdata/cave.twee"}, wantStderr: "Error: failed to start story"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			code, stdout, stderr := execute(t, "1\n", tt.args...)
			if code != ExitFatal {
				t.Errorf("exit code = %d, want %d", code, ExitFatal)
			}
			if stdout != "" {
				t.Errorf("stdout = %q, want no output", stdout)
			}
			if !strings.HasPrefix(stderr, tt.wantStderr) {
				t.Errorf("stderr = %q, want prefix %q", stderr, tt.wantStderr)
			}
		})
	}
}

func TestRun_ColorFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOTALE_COLOR", "always")

	code, stdout, _ := execute(t, "1\n", "testdata/cave.twee")
	if code != ExitOK {
		t.Fatalf("exit code = %d, want %d", code, ExitOK)
	}
	if !strings.Contains(stdout, "\x1b[36m1: Enter\x1b[0m\n") {
		t.Errorf("stdout missing colored choice: %q", stdout)
	}

	// The flag wins over the environment.
	_, stdout, _ = execute(t, "1\n", "--color", "never", "testdata/cave.twee")
	if stdout != caveTranscript {
		t.Errorf("stdout = %q, want plain transcript", stdout)
	}
}

func TestRun_LogFile(t *testing.T) {
	clearEnv(t)
	logPath := filepath.Join(t.TempDir(), "play.log")

	code, stdout, stderr := execute(t, "2\n", "--log-file", logPath, "--log-level", "debug", "testdata/cave.twee")
	if code != ExitOK {
		t.Fatalf("exit code = %d, stderr = %q", code, stderr)
	}
	if strings.Contains(stdout, `"level"`) || stderr != "" {
		t.Errorf("log lines leaked to the console: stdout=%q stderr=%q", stdout, stderr)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	for _, want := range []string{`"message":"story loaded"`, `"message":"choice selected"`, `"message":"story finished"`} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("log missing %s:\n%s", want, data)
		}
	}
}

func TestRun_Version(t *testing.T) {
	clearEnv(t)

	code, stdout, _ := execute(t, "", "--version")
	if code != ExitOK {
		t.Errorf("exit code = %d, want %d", code, ExitOK)
	}
	if !strings.HasPrefix(stdout, "gotale dev (commit:") {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestRun_Check(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		wantCode int
		want     []string
	}{
		{
			name:     "clean story",
			file:     "testdata/cave.twee",
			wantCode: ExitOK,
			want:     []string{"The Cave", "Start: Mouth", "Passages: 6", "OK"},
		},
		{
			name:     "broken references",
			file:     "testdata/broken.twee",
			wantCode: ExitFatal,
			want: []string{
				"BROKEN",
				"Broken references:",
				"Start -> Nowhere (link)",
				"Home -> Void (goto)",
				"Unreachable passages:",
				"Orphan",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			code, stdout, stderr := execute(t, "", "check", "--color", "never", tt.file)
			if code != tt.wantCode {
				t.Errorf("exit code = %d, want %d (stderr %q)", code, tt.wantCode, stderr)
			}
			for _, want := range tt.want {
				if !strings.Contains(stdout, want) {
					t.Errorf("report missing %q:\n%s", want, stdout)
				}
			}
			if strings.Contains(stdout, "\x1b[") {
				t.Errorf("report has escapes with --color never:\n%q", stdout)
			}
		})
	}
}
