package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelforge/modelforge/internal/orm/snapshot"
)

const blogModels = `
entities:
  - name: Blog
    properties:
      - {name: Id, type: int}
      - {name: Url, type: string, max_length: 200}
  - name: Post
    properties:
      - {name: Id, type: int}
      - {name: Title, type: string}
      - {name: BlogId, type: int}
relationships:
  - {principal: Blog, dependent: Post, foreign_key: BlogId, on_delete: cascade}
`

// project writes a config file and a model definition into a new directory
// and returns the config path.
func project(t *testing.T, config, models string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "models"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "models", "blog.yaml"), []byte(models), 0644))
	path := filepath.Join(dir, "modelforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models: models\n"+config), 0644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "modelforge", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, expected := range []string{"version", "describe", "validate", "snapshot", "conventions", "completion"} {
		assert.Contains(t, names, expected)
	}
	for _, flag := range []string{"config", "models", "no-color"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestVersionCommand(t *testing.T) {
	Version = "1.0.0-test"
	GitCommit = "abc123"
	defer func() { Version, GitCommit = "dev", "unknown" }()

	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "modelforge version: 1.0.0-test")
	assert.Contains(t, out, "Git commit: abc123")
	assert.Contains(t, out, "Go version: ")
}

func TestDescribe(t *testing.T) {
	cfg := project(t, "", blogModels)

	out, _, err := run(t, "describe", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "(2 entity types)")
	assert.Regexp(t, regexp.MustCompile(`Post\s+posts\s+Id`), out)

	out, _, err = run(t, "describe", "Post", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "Entity type Post")
	assert.Contains(t, out, "blog_id")
	assert.Contains(t, out, "cascade")

	out, _, err = run(t, "describe", "Post", "--format", "json", "--config", cfg)
	require.NoError(t, err)
	var described snapshot.EntityType
	require.NoError(t, json.Unmarshal([]byte(out), &described))
	assert.Equal(t, "Post", described.Name)
	assert.Equal(t, "posts", described.Table)
	require.Len(t, described.ForeignKeys, 1)
	assert.Equal(t, "Blog", described.ForeignKeys[0].PrincipalEntityType)
}

func TestDescribe_UnknownEntity(t *testing.T) {
	cfg := project(t, "", blogModels)

	_, stderr, err := run(t, "describe", "Pst", "--config", cfg)
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, "ENTITY TYPE NOT FOUND")
	assert.Contains(t, stderr, "Did you mean: Post")
}

func TestDescribe_BadFormat(t *testing.T) {
	cfg := project(t, "", blogModels)

	_, _, err := run(t, "describe", "--format", "xml", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "xml"`)
}

func TestValidate(t *testing.T) {
	cfg := project(t, "", blogModels)

	out, _, err := run(t, "validate", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Model is valid (2 entity types)")
}

func TestValidate_Invalid(t *testing.T) {
	cfg := project(t, "", `
entities:
  - name: AuditEntry
    properties: [{name: Action, type: string}]
`)

	_, stderr, err := run(t, "validate", "--config", cfg)
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, "MODEL INVALID")
	assert.Contains(t, stderr, "AuditEntry: entity type has no primary key")
}

func TestValidate_ApplyErrors(t *testing.T) {
	cfg := project(t, "", `
entities:
  - name: Tag
    properties: [{name: Id, type: int}]
    key: Code
`)

	_, stderr, err := run(t, "validate", "--config", cfg)
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, "Tag.Code")
}

func TestValidate_Strict(t *testing.T) {
	cfg := project(t, "", `
entities:
  - name: Author
    properties: [{name: Id, type: int}, {name: BookId, type: int}]
  - name: Book
    properties: [{name: Id, type: int}, {name: AuthorId, type: int}]
relationships:
  - {principal: Book, dependent: Author, foreign_key: BookId, required: true}
  - {principal: Author, dependent: Book, foreign_key: AuthorId, required: true}
`)

	out, stderr, err := run(t, "validate", "--config", cfg)
	require.NoError(t, err)
	assert.Contains(t, stderr, "WARNINGS")
	assert.Contains(t, stderr, "cycle")
	assert.Contains(t, out, "Model is valid")

	_, _, err = run(t, "validate", "--strict", "--config", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "with --strict")
}

// syncBuffer is a bytes.Buffer safe for a running command to write while a
// test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestValidate_Watch(t *testing.T) {
	cfg := project(t, "", blogModels)
	models := filepath.Join(filepath.Dir(cfg), "models", "blog.yaml")

	var out syncBuffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"validate", "--watch", "--config", cfg, "--no-color"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Watching")
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, out.String(), "Model is valid (2 entity types)")

	invalid := strings.Replace(blogModels, "relationships:",
		"  - name: AuditEntry\n    properties: [{name: Action, type: string}]\nrelationships:", 1)
	require.NoError(t, os.WriteFile(models, []byte(invalid), 0644))

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "MODEL INVALID")
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, out.String(), "Changed: ")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestInvalidConfig(t *testing.T) {
	cfg := project(t, "conventions:\n  disabled: [KeyDiscovry]\n", blogModels)

	_, stderr, err := run(t, "validate", "--config", cfg)
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, "CONFIGURATION ERROR")
	assert.Contains(t, stderr, "did you mean KeyDiscovery?")
}

func TestModelsFlagOverridesConfig(t *testing.T) {
	cfg := project(t, "", "entities: []\n")
	other := filepath.Join(t.TempDir(), "blog.yaml")
	require.NoError(t, os.WriteFile(other, []byte(blogModels), 0644))

	out, _, err := run(t, "validate", "--config", cfg, "--models", other)
	require.NoError(t, err)
	assert.Contains(t, out, "(2 entity types)")
}

func TestSnapshot(t *testing.T) {
	cfg := project(t, "", blogModels)
	output := filepath.Join(t.TempDir(), "snapshots", "model.json.gz")

	out, _, err := run(t, "snapshot", "--config", cfg, "--output", output, "--compress")
	require.NoError(t, err)
	assert.Contains(t, out, "Snapshot written to "+output)

	s, err := snapshot.ReadFile(output)
	require.NoError(t, err)
	assert.Len(t, s.EntityTypes, 2)
	assert.Equal(t, []string{"Blog", "Post"}, s.DependencyOrder)

	out, _, err = run(t, "snapshot", "--config", cfg, "--output", output, "--check")
	require.NoError(t, err)
	assert.Contains(t, out, "is up to date")

	changed := project(t, "", strings.Replace(blogModels, "max_length: 200", "max_length: 300", 1))
	_, stderr, err := run(t, "snapshot", "--config", changed, "--output", output, "--check")
	require.ErrorIs(t, err, errReported)
	assert.Contains(t, stderr, "SNAPSHOT OUT OF DATE")
}

func TestSnapshot_Stdout(t *testing.T) {
	cfg := project(t, "", blogModels)

	out, _, err := run(t, "snapshot", "--config", cfg, "--output", "-")
	require.NoError(t, err)

	s, err := snapshot.Unmarshal([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, snapshot.FormatVersion, s.Version)
}

func TestConventionsCommand(t *testing.T) {
	cfg := project(t, "conventions:\n  disabled: [ForeignKeyIndex]\n", blogModels)

	out, _, err := run(t, "conventions", "--config", cfg)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`ForeignKeyIndex\s+no\n`), out)
	assert.Regexp(t, regexp.MustCompile(`KeyDiscovery\s+yes\n`), out)
	assert.Regexp(t, regexp.MustCompile(`TableName\s+yes\n`), out)
}

func TestCompletionCommand(t *testing.T) {
	out, _, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "modelforge")
}

func TestCompletionCommand_RejectsUnknownShell(t *testing.T) {
	for _, args := range [][]string{{"completion"}, {"completion", "tcsh"}} {
		_, _, err := run(t, args...)
		assert.Error(t, err, "args %v", args)
	}
}
