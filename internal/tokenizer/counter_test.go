package tokenizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jmvldz/enginebuilder/internal/pipeline"
)

func TestCounter_CountFiles(t *testing.T) {
	tok, err := NewTokenizer(NameNone)
	require.NoError(t, err)

	c := NewCounter(tok)
	files := []*pipeline.CandidateFile{
		{Path: "a.go", Content: "abcd"},
		{Path: "b.go", Content: "abcdefgh"},
	}

	total, err := c.CountFiles(context.Background(), files)
	require.NoError(t, err)

	require.Equal(t, 1, files[0].TokenCount)
	require.Equal(t, 2, files[1].TokenCount)
	require.Equal(t, 3, total)
}

func TestCounter_CountFile_EmptyContent(t *testing.T) {
	tok, err := NewTokenizer(NameNone)
	require.NoError(t, err)

	c := NewCounter(tok)
	f := &pipeline.CandidateFile{Path: "empty.go"}
	c.CountFile(f)

	require.Equal(t, 0, f.TokenCount)
}
