package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/attrition-cli/internal/model"
)

// Artifact bundles everything a serving process needs: the contract the
// transform was fitted against, the fitted transform state, and the trained
// classifier. One artifact is written per training run, is immutable after
// creation, and is superseded (never mutated) by the next run's artifact.
type Artifact struct {
	Version   string           `json:"version"`
	CreatedAt time.Time        `json:"created_at"`
	Contract  *model.Contract  `json:"contract"`
	Transform *FittedTransform `json:"transform"`
	Model     *Logistic        `json:"model"`
}

// Save serializes the artifact to path. The write goes to a temp file in the
// same directory followed by a rename, so a crashed run never leaves a
// partial artifact and readers only ever observe complete files.
func (a *Artifact) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "artifact: create dir %s", dir)
	}

	raw, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return eris.Wrap(err, "artifact: marshal")
	}

	tmp, err := os.CreateTemp(dir, ".artifact-*.json")
	if err != nil {
		return eris.Wrap(err, "artifact: create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "artifact: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "artifact: close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return eris.Wrapf(err, "artifact: publish %s", path)
	}
	return nil
}

// LoadArtifact reads a persisted artifact. Any failure (missing file,
// unreadable JSON, incomplete bundle) is wrapped as ErrPipelineUnavailable:
// a process that cannot load the artifact must refuse to serve rather than
// degrade silently.
func LoadArtifact(path string) (*Artifact, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(ErrPipelineUnavailable, "artifact: read %s: %v", path, err)
	}
	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, eris.Wrapf(ErrPipelineUnavailable, "artifact: parse %s: %v", path, err)
	}
	if a.Contract == nil || a.Transform == nil || a.Model == nil {
		return nil, eris.Wrapf(ErrPipelineUnavailable, "artifact: %s is incomplete", path)
	}
	return &a, nil
}
