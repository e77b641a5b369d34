package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/logiclint/logiclint/internal/assets"
	"github.com/logiclint/logiclint/internal/config"
)

const toolVersion = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print tool, rubric, and schema versions",
	Long: `Print the tool version together with the rubric and schema versions the
next run would use. Overridden rubric or schema files report a content digest
instead of a declared version.`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	cfg, err := config.Resolve(".", configFile)
	if err != nil {
		return err
	}
	rubric, err := assets.LoadRubric(cfg.RubricFile)
	if err != nil {
		return err
	}
	schema, err := assets.LoadSchema(cfg.SchemaFile)
	if err != nil {
		return err
	}

	fmt.Printf("logiclint %s\n", toolVersion)
	fmt.Printf("rubric    %s\n", rubric.Version)
	fmt.Printf("schema    %s\n", schema.Version)
	return nil
}
