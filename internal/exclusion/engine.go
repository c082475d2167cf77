package exclusion

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
)

// Engine evaluates a path against a fixed set of Rules. An Engine is
// immutable after construction and safe for concurrent use from multiple
// goroutines -- every Walker worker shares one Engine instance.
type Engine struct {
	rules Rules

	excludeDirs map[string]bool
	excludeExts map[string]bool
	includeExts map[string]bool
	gitignore   *gitignore.GitIgnore
}

// New builds an Engine from rules. A nil rules pointer is treated as an
// empty rule set (nothing excluded but the VCS directory).
func New(rules *Rules) *Engine {
	if rules == nil {
		rules = &Rules{}
	}

	e := &Engine{
		rules:       *rules,
		excludeDirs: make(map[string]bool, len(rules.ExcludeDirs)),
		excludeExts: make(map[string]bool, len(rules.ExcludeExtensions)),
		includeExts: make(map[string]bool, len(rules.IncludeExtensions)),
	}
	for _, d := range rules.ExcludeDirs {
		e.excludeDirs[d] = true
	}
	for _, ext := range rules.ExcludeExtensions {
		e.excludeExts[normalizeExt(ext)] = true
	}
	for _, ext := range rules.IncludeExtensions {
		e.includeExts[normalizeExt(ext)] = true
	}
	if len(rules.ExcludeGitignorePatterns) > 0 {
		e.gitignore = gitignore.CompileIgnoreLines(rules.ExcludeGitignorePatterns...)
	}
	return e
}

// IsExcluded reports whether path -- relative to the codebase root, using
// forward slashes -- should be excluded from the candidate file set. It
// implements an OR of directory-name match, extension blocklist, include
// whitelist miss, glob match, and .gitignore-pattern match. The VCS
// directory is excluded unconditionally.
func (e *Engine) IsExcluded(path string) bool {
	normalized := filepath.ToSlash(path)
	normalized = strings.TrimPrefix(normalized, "./")

	segments := strings.Split(normalized, "/")
	for _, seg := range segments {
		if seg == vcsDir {
			return true
		}
		if e.excludeDirs[seg] {
			return true
		}
	}

	ext := normalizeExt(filepath.Ext(normalized))

	if e.excludeExts[ext] {
		return true
	}

	if len(e.includeExts) > 0 && !e.includeExts[ext] {
		return true
	}

	for _, pattern := range e.rules.ExcludeGlobs {
		if matched, err := doublestar.Match(pattern, normalized); err == nil && matched {
			return true
		}
	}

	if e.gitignore != nil && e.gitignore.MatchesPath(normalized) {
		return true
	}

	return false
}

// normalizeExt strips a leading dot and lowercases an extension so that
// ".Go", "go", and ".GO" all compare equal.
func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
