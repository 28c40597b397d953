package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/attrition-cli/internal/model"
	"github.com/sells-group/attrition-cli/internal/pipeline"
	"github.com/sells-group/attrition-cli/internal/store"
)

// statusReport summarizes the deployment: row counts, the published model,
// and the most recent predictions served.
type statusReport struct {
	Driver         string             `json:"driver"`
	Employees      int                `json:"employees"`
	PredictionLogs int                `json:"prediction_logs"`
	ModelVersion   string             `json:"model_version,omitempty"`
	ModelCreatedAt *time.Time         `json:"model_created_at,omitempty"`
	ArtifactPath   string             `json:"artifact_path"`
	RecentLogs     []model.AuditEntry `json:"recent_logs,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store row counts and the published model version",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("status"); err != nil {
			return err
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		report := statusReport{
			Driver:       cfg.Store.Driver,
			ArtifactPath: cfg.Model.ArtifactPath,
		}

		if report.Employees, err = st.CountEmployees(cmd.Context()); err != nil {
			return err
		}
		if report.PredictionLogs, err = st.CountPredictionLogs(cmd.Context()); err != nil {
			return err
		}
		if report.RecentLogs, err = st.ListPredictionLogs(cmd.Context(), store.LogFilter{Limit: 5}); err != nil {
			return err
		}

		// Artifact details are best-effort; a missing model is a valid state.
		if art, err := pipeline.LoadArtifact(cfg.Model.ArtifactPath); err == nil {
			report.ModelVersion = art.Version
			created := art.CreatedAt
			report.ModelCreatedAt = &created
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
