package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/attrition-cli/internal/model"
)

var predictInputPath string

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Run predictions from a JSON file or stdin",
	Long:  "Reads one employee object or an array of employees as JSON and prints the predictions. Reads stdin when --input is not given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("predict"); err != nil {
			return err
		}

		svc, err := loadService()
		if err != nil {
			return err
		}

		ins, err := readEmployees(predictInputPath)
		if err != nil {
			return err
		}

		outcomes, err := svc.PredictMany(cmd.Context(), ins)
		if err != nil {
			return err
		}

		type result struct {
			Index      int               `json:"index"`
			Prediction *model.Prediction `json:"prediction,omitempty"`
			Error      string            `json:"error,omitempty"`
		}
		results := make([]result, len(outcomes))
		for i, o := range outcomes {
			results[i] = result{Index: o.Index, Prediction: o.Prediction}
			if o.Err != nil {
				results[i].Error = o.Err.Error()
			}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	},
}

// readEmployees accepts either a single employee object or an array.
func readEmployees(path string) ([]model.EmployeeInput, error) {
	var raw []byte
	var err error
	if path == "" || path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, eris.Wrap(err, "predict: read input")
	}

	var many []model.EmployeeInput
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, nil
	}

	var one model.EmployeeInput
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, eris.Wrap(err, "predict: parse input")
	}
	return []model.EmployeeInput{one}, nil
}

func init() {
	predictCmd.Flags().StringVar(&predictInputPath, "input", "", "input JSON path (default stdin)")
	rootCmd.AddCommand(predictCmd)
}
