package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/attrition-cli/internal/model"
	"github.com/sells-group/attrition-cli/internal/pipeline"
)

var (
	trainArtifactPath string
	trainSeed         int64
	trainTestFraction float64
	trainContractPath string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the attrition model and publish the pipeline artifact",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("train"); err != nil {
			return err
		}

		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()

		contract, err := resolveContract(trainContractPath)
		if err != nil {
			return err
		}

		trainCfg := pipeline.TrainConfig{
			TestFraction: cfg.Training.TestFraction,
			Seed:         cfg.Training.Seed,
			MaxIter:      cfg.Training.MaxIter,
			Tolerance:    cfg.Training.Tolerance,
			ArtifactPath: cfg.Model.ArtifactPath,
		}
		if trainTestFraction > 0 {
			trainCfg.TestFraction = trainTestFraction
		}
		if cmd.Flags().Changed("seed") {
			trainCfg.Seed = trainSeed
		}
		if trainArtifactPath != "" {
			trainCfg.ArtifactPath = trainArtifactPath
		}

		report, err := pipeline.NewTrainer(st, contract, trainCfg).Run(cmd.Context())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

// resolveContract loads the contract file given on the command line or in
// config, falling back to the built-in HR contract.
func resolveContract(flagPath string) (*model.Contract, error) {
	path := flagPath
	if path == "" {
		path = cfg.Model.ContractPath
	}
	if path == "" {
		return model.DefaultContract(), nil
	}
	return model.LoadContract(path)
}

func init() {
	trainCmd.Flags().StringVar(&trainArtifactPath, "artifact", "", "artifact output path (default from config)")
	trainCmd.Flags().Int64Var(&trainSeed, "seed", 0, "split shuffle seed (default from config)")
	trainCmd.Flags().Float64Var(&trainTestFraction, "test-fraction", 0, "held-out share (default from config)")
	trainCmd.Flags().StringVar(&trainContractPath, "contract", "", "feature contract YAML (default built-in)")
	rootCmd.AddCommand(trainCmd)
}
