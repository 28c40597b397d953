package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/attrition-cli/internal/ingest"
	"github.com/sells-group/attrition-cli/internal/model"
)

var (
	importSIRH       string
	importEval       string
	importSondage    string
	importEvalKey    string
	importSondageKey string
	importDelimiter  string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import HR extracts into the employee store",
	Long:  "Parses the SIRH extract plus optional evaluation and survey extracts, joins them on the employee id, and upserts the merged rows.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}
		if importSIRH == "" {
			return eris.New("--sirh is required")
		}

		specs := []ingest.ExtractSpec{
			{Path: importSIRH, Key: model.ColEmployeeID, Delimiter: importDelimiter},
		}
		if importEval != "" {
			specs = append(specs, ingest.ExtractSpec{Path: importEval, Key: importEvalKey, Delimiter: importDelimiter})
		}
		if importSondage != "" {
			specs = append(specs, ingest.ExtractSpec{Path: importSondage, Key: importSondageKey, Delimiter: importDelimiter})
		}

		merged, err := ingest.ReadAndMerge(cmd.Context(), specs)
		if err != nil {
			return err
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(cmd.Context()); err != nil {
			return err
		}

		n, err := st.UpsertEmployees(cmd.Context(), merged)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.Int("parsed_rows", merged.NumRows()),
			zap.Int64("upserted", n))
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importSIRH, "sirh", "", "SIRH extract path (CSV or XLSX, required)")
	importCmd.Flags().StringVar(&importEval, "eval", "", "evaluation extract path")
	importCmd.Flags().StringVar(&importSondage, "sondage", "", "survey extract path")
	importCmd.Flags().StringVar(&importEvalKey, "eval-key", "eval_number", "join key column of the evaluation extract")
	importCmd.Flags().StringVar(&importSondageKey, "sondage-key", "code_sondage", "join key column of the survey extract")
	importCmd.Flags().StringVar(&importDelimiter, "delimiter", "", "CSV delimiter (default comma)")
	rootCmd.AddCommand(importCmd)
}
