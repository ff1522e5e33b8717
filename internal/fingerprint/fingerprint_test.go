package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docforge/pdfmd/internal/config"
)

func TestNewDeterministic(t *testing.T) {
	cfg := config.Default()
	data := []byte("%PDF-1.7 sample document bytes")

	fp1, err := New(data, cfg)
	require.NoError(t, err)
	fp2, err := New(data, cfg)
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1.String(), 64)
}

func TestNewDiffersByContent(t *testing.T) {
	cfg := config.Default()

	fp1, err := New([]byte("document one"), cfg)
	require.NoError(t, err)
	fp2, err := New([]byte("document two"), cfg)
	require.NoError(t, err)

	assert.NotEqual(t, fp1, fp2)
}

func TestNewDiffersByRelevantConfig(t *testing.T) {
	data := []byte("same document bytes")
	base := config.Default()

	changed := base
	changed.OCR.Language = "spa"

	fp1, err := New(data, base)
	require.NoError(t, err)
	fp2, err := New(data, changed)
	require.NoError(t, err)

	assert.NotEqual(t, fp1, fp2)
}

func TestNewIgnoresIrrelevantConfig(t *testing.T) {
	data := []byte("same document bytes")
	base := config.Default()

	changed := base
	changed.Pipeline.Workers = 16
	changed.Cache.Backend = "sqlite"
	changed.Log.Level = "debug"

	fp1, err := New(data, base)
	require.NoError(t, err)
	fp2, err := New(data, changed)
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)
}

func TestNewRejectsEmptyInput(t *testing.T) {
	_, err := New(nil, config.Default())
	require.Error(t, err)
}
