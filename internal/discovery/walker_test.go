package discovery

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmvldz/enginebuilder/internal/exclusion"
	"github.com/jmvldz/enginebuilder/internal/tokenizer"
)

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func newEstimatorTokenizer(t *testing.T) tokenizer.Tokenizer {
	t.Helper()
	tok, err := tokenizer.NewTokenizer(tokenizer.NameNone)
	require.NoError(t, err)
	return tok
}

func TestWalker_Walk_SortedDeterministicOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.py", "print(2)")
	writeFile(t, root, "a.py", "print(1)")

	w := NewWalker(newEstimatorTokenizer(t))
	files, err := w.Walk(context.Background(), WalkerConfig{
		Root:       root,
		Exclusions: exclusion.New(nil),
	})
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.py", files[0].Path)
	assert.Equal(t, "b.py", files[1].Path)
}

func TestWalker_Walk_ExcludesGitDirectoryAlways(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/main.py", "pass")
	writeFile(t, root, ".git/HEAD", "ref: refs/heads/main")

	w := NewWalker(newEstimatorTokenizer(t))
	files, err := w.Walk(context.Background(), WalkerConfig{
		Root:       root,
		Exclusions: exclusion.New(nil),
	})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "src/main.py", files[0].Path)
}

func TestWalker_Walk_ExclusionByDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/main.py", "pass")
	writeFile(t, root, "tests/test_main.py", "pass")

	eng := exclusion.New(&exclusion.Rules{ExcludeDirs: []string{"tests"}})
	w := NewWalker(newEstimatorTokenizer(t))
	files, err := w.Walk(context.Background(), WalkerConfig{
		Root:       root,
		Exclusions: eng,
	})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "src/main.py", files[0].Path)
}

func TestWalker_Walk_DropsFilesOverMaxFileTokens(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.py", "abcd") // 1 token at 4 chars/token
	writeFile(t, root, "large.py", strings.Repeat("a", 10_000))

	w := NewWalker(newEstimatorTokenizer(t))
	files, err := w.Walk(context.Background(), WalkerConfig{
		Root:          root,
		Exclusions:    exclusion.New(nil),
		MaxFileTokens: 10,
	})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "small.py", files[0].Path)
}

func TestWalker_Walk_HandlesNestedGoModWithoutSpecialCasing(t *testing.T) {
	root, err := filepath.Abs(filepath.Join("..", "..", "testdata"))
	require.NoError(t, err)

	w := NewWalker(newEstimatorTokenizer(t))
	files, err := w.Walk(context.Background(), WalkerConfig{
		Root:       root,
		Exclusions: exclusion.New(&exclusion.Rules{IncludeExtensions: []string{".mod"}}),
	})
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, filepath.ToSlash(filepath.Join("golden-fixtures", "go.mod")), files[0].Path)
	assert.Equal(t, filepath.ToSlash(filepath.Join("oss-go-cli", "go.mod")), files[1].Path)
	assert.Equal(t, filepath.ToSlash(filepath.Join("oss-monorepo", "services", "worker", "go.mod")), files[2].Path)
}

func TestWalker_Walk_MissingRootErrors(t *testing.T) {
	w := NewWalker(newEstimatorTokenizer(t))
	_, err := w.Walk(context.Background(), WalkerConfig{
		Root:       filepath.Join(t.TempDir(), "does-not-exist"),
		Exclusions: exclusion.New(nil),
	})
	assert.Error(t, err)
}
