package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/attrition-cli/internal/model"
)

func sampleArtifact() *Artifact {
	return &Artifact{
		Version:   "attrition-logistic-abcd1234",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Contract:  model.DefaultContract(),
		Transform: &FittedTransform{
			Inputs:  []string{"age"},
			Columns: []string{"age"},
			Numeric: map[string]NumericState{"age": {Median: 35, Mean: 36, Std: 9}},
			Nominal: map[string]NominalState{},
			Ordinal: map[string]OrdinalState{},
		},
		Model: &Logistic{Bias: -0.5, Weights: []float64{1.25}, Iterations: 7},
	}
}

func TestArtifact_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "pipeline.json")

	art := sampleArtifact()
	require.NoError(t, art.Save(path))

	loaded, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, art.Version, loaded.Version)
	assert.True(t, art.CreatedAt.Equal(loaded.CreatedAt))
	assert.Equal(t, art.Transform, loaded.Transform)
	assert.Equal(t, art.Model, loaded.Model)
	assert.Equal(t, art.Contract, loaded.Contract)
}

func TestArtifact_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.json")
	require.NoError(t, sampleArtifact().Save(path))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "pipeline.json", entries[0].Name())
}

func TestArtifact_SaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.json")

	first := sampleArtifact()
	require.NoError(t, first.Save(path))

	second := sampleArtifact()
	second.Version = "attrition-logistic-eeff5678"
	require.NoError(t, second.Save(path))

	loaded, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, second.Version, loaded.Version)
}

func TestLoadArtifact_Missing(t *testing.T) {
	_, err := LoadArtifact(filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorIs(t, err, ErrPipelineUnavailable)
}

func TestLoadArtifact_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadArtifact(path)
	require.ErrorIs(t, err, ErrPipelineUnavailable)
}

func TestLoadArtifact_Incomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"v1"}`), 0o644))

	_, err := LoadArtifact(path)
	require.ErrorIs(t, err, ErrPipelineUnavailable)
}
