// Package exclusion implements the Exclusion Engine: a pure function from a
// candidate repository path to an include/exclude verdict, driven by an
// ordered set of rules loaded from an optional YAML document.
package exclusion

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// vcsDir is always excluded regardless of any rule, matching every VCS
// layout this tool is expected to encounter.
const vcsDir = ".git"

// Rules is the parsed form of an exclusions-rules document. Every field is
// optional; a zero-value Rules excludes nothing but the VCS directory.
type Rules struct {
	// ExcludeDirs lists directory names (not paths) that exclude any file
	// beneath a directory with that name, at any depth.
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// ExcludeExtensions lists file extensions (without a leading dot,
	// case-insensitive) that are always excluded.
	ExcludeExtensions []string `yaml:"exclude_extensions"`

	// ExcludeGlobs lists doublestar glob patterns matched against the full
	// relative path.
	ExcludeGlobs []string `yaml:"exclude_globs"`

	// IncludeExtensions, when non-empty, is a whitelist: any file whose
	// extension is not in this list is excluded. Extensions are without a
	// leading dot, case-insensitive.
	IncludeExtensions []string `yaml:"include_extensions"`

	// ExcludeGitignorePatterns lists patterns in .gitignore syntax (the
	// same glob-plus-negation dialect as a .gitignore file, one pattern
	// per entry), for rule authors who already think in that dialect
	// instead of doublestar globs.
	ExcludeGitignorePatterns []string `yaml:"exclude_gitignore_patterns"`
}

// LoadRules reads and parses a YAML exclusions-rules document at path. A
// Problem without an ExclusionsPath uses the zero-value Rules instead of
// calling this function.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading exclusion rules %s: %w", path, err)
	}

	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing exclusion rules %s: %w", path, err)
	}
	return &r, nil
}
