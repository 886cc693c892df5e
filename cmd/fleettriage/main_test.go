package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleettriage/fleettriage/internal/config"
	terrors "github.com/fleettriage/fleettriage/internal/errors"
)

func writeKB(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kb.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestBuildRetrieverMissingFileDisablesRetrieval(t *testing.T) {
	cfg := &config.Config{KBPath: filepath.Join(t.TempDir(), "nope.csv")}

	retriever, watcher, err := buildRetriever(cfg)
	require.NoError(t, err)
	assert.Nil(t, retriever)
	assert.Nil(t, watcher)
}

func TestBuildRetrieverMissingColumnsIsFatal(t *testing.T) {
	cfg := &config.Config{
		KBPath: writeKB(t, "Question,Answer\nvpn down,restart the client\n"),
	}

	_, _, err := buildRetriever(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, terrors.ErrInvalidInput))
}

func TestBuildRetrieverNoValidRowsIsFatal(t *testing.T) {
	cfg := &config.Config{
		KBPath: writeKB(t, "Customer_Issue,Tech_Response\n,orphaned answer\n   ,another\n"),
	}

	_, _, err := buildRetriever(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, terrors.ErrInvalidInput))
}
