package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/matsen/hbnb/internal/config"
	"go.uber.org/zap/zapcore"
)

// executeCommand runs the root command with args and stdin, isolated from
// the user's global config, and returns stdout.
func executeCommand(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	config.ResetGlobalConfigCache()
	t.Cleanup(config.ResetGlobalConfigCache)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{config.EnvFilePath, config.EnvSchemaPath, config.EnvLogLevel} {
		t.Setenv(key, "")
	}
	humanOutput, verbose, filePath, schemaPath = false, false, "", ""

	var out bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute(%v) error = %v", args, err)
	}
	return out.String()
}

func TestRootCommand_RunsConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.json")
	out := executeCommand(t, "create Review\ncount Review\nquit\n", "--file", path)

	if !regexp.MustCompile(`^\(hbnb\) [0-9a-f-]{36}\n\(hbnb\) 1\n\(hbnb\) $`).MatchString(out) {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("backing file not written: %v", err)
	}
}

func TestExecCommand_PersistsAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.json")

	id := strings.TrimSpace(executeCommand(t, "", "exec", "--file", path, "create State"))
	if len(id) != 36 {
		t.Fatalf("create printed %q, want a uuid", id)
	}

	executeCommand(t, "", "exec", "-f", path, `State.update("`+id+`", "name", "Oregon")`)

	out := executeCommand(t, "", "exec", "-f", path, "show State "+id, "count State")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("output = %q, want 2 lines", out)
	}
	if !strings.HasPrefix(lines[0], "[State] ("+id+")") || !strings.Contains(lines[0], "'name': 'Oregon'") {
		t.Errorf("show = %q", lines[0])
	}
	if lines[1] != "1" {
		t.Errorf("count = %q, want 1", lines[1])
	}
}

func TestExecCommand_FileFromEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.json")

	config.ResetGlobalConfigCache()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	humanOutput, verbose, filePath, schemaPath = false, false, "", ""
	t.Setenv(config.EnvFilePath, path)

	var out bytes.Buffer
	rootCmd.SetArgs([]string{"exec", "create Amenity"})
	rootCmd.SetOut(&out)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("HBNB_FILE_PATH not used: %v", err)
	}
}

func TestSchemaCommand(t *testing.T) {
	out := executeCommand(t, "", "schema")

	var decoded struct {
		Types []struct {
			Name   string `json:"name"`
			Fields []struct {
				Name string `json:"name"`
				Type string `json:"type"`
			} `json:"fields"`
		} `json:"types"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("schema output is not JSON: %v\n%s", err, out)
	}
	if len(decoded.Types) != 7 || decoded.Types[0].Name != "BaseModel" {
		t.Errorf("types = %+v", decoded.Types)
	}

	human := executeCommand(t, "", "schema", "--human")
	if !strings.Contains(human, "Place\n") || !strings.Contains(human, "number_rooms") {
		t.Errorf("human schema = %q", human)
	}
}

func TestSchemaCommand_CustomSchema(t *testing.T) {
	dir := t.TempDir()
	schemaFile := filepath.Join(dir, "schema.yml")
	os.WriteFile(schemaFile, []byte("types:\n  - name: Boat\n    fields:\n      - {name: length, type: float}\n"), 0644)

	out := executeCommand(t, "", "exec", "--schema", schemaFile, "-f", filepath.Join(dir, "f.json"),
		"create Boat", "count Boat", "create User")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 || lines[1] != "1" || lines[2] != "** class doesn't exist **" {
		t.Errorf("output = %q", out)
	}
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.json")
	dbPath := filepath.Join(dir, "snapshot.db")

	executeCommand(t, "", "exec", "-f", path, "create User", "create Place")
	out := executeCommand(t, "", "export", "-f", path, dbPath)

	var resp ExportResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("export output is not JSON: %v\n%s", err, out)
	}
	if resp.Records != 2 || resp.Path != dbPath || resp.Status != "exported" {
		t.Errorf("response = %+v", resp)
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("snapshot not written: %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, err := newLogger(tt.level)
			if err != nil {
				t.Fatalf("newLogger(%q) error = %v", tt.level, err)
			}
			if !l.Core().Enabled(tt.want) {
				t.Errorf("level %s not enabled", tt.want)
			}
			if tt.want > zapcore.DebugLevel && l.Core().Enabled(tt.want-1) {
				t.Errorf("level below %s enabled", tt.want)
			}
		})
	}

	if _, err := newLogger("loud"); err == nil {
		t.Error("newLogger(loud) expected error")
	}
}

func TestLoadSchema(t *testing.T) {
	sch, err := loadSchema("")
	if err != nil || !sch.Has("Review") {
		t.Errorf("loadSchema(\"\") = %v, %v, want built-in schema", sch, err)
	}
	if _, err := loadSchema(filepath.Join(t.TempDir(), "missing.yml")); err == nil {
		t.Error("loadSchema(missing) expected error")
	}
}

func TestConfigErrorMessage(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	msg := configErrorMessage(errors.New("invalid log_level: loud"))
	if !strings.HasPrefix(msg, "loading config: invalid log_level: loud\n\n") {
		t.Errorf("configErrorMessage() = %q, want the cause first", msg)
	}
	if !strings.Contains(msg, "/custom/config/hbnb/config.yml") {
		t.Errorf("configErrorMessage() = %q, want the config path", msg)
	}
}
