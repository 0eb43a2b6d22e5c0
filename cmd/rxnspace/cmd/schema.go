package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/withObsrvr/rxnspace/internal/runner"
)

var (
	schemaDir  string
	schemaJSON bool
)

var schemaCmd = &cobra.Command{
	Use:   "schema [component.csv...]",
	Short: "Print the columns a build would produce",
	Long:  "Loads the components and prints the reaction space columns without enumerating the combinations.",
	RunE:  runSchema,
}

func init() {
	schemaCmd.Flags().StringVarP(&schemaDir, "dir", "d", "", "Directory to read components from")
	schemaCmd.Flags().BoolVar(&schemaJSON, "json", false, "Output as JSON")
}

type schemaComponent struct {
	Index    int      `json:"index"`
	Name     string   `json:"name"`
	Records  int      `json:"records"`
	Features []string `json:"features"`
}

type schemaOutput struct {
	Columns    []string          `json:"columns"`
	Entries    int64             `json:"entries"`
	Components []schemaComponent `json:"components"`
}

func runSchema(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("dir") {
		cfg.Source.Dir = schemaDir
	}
	if err := validate(cfg); err != nil {
		return err
	}
	setupLogging(cfg)

	r, err := runner.Open(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	schema, loaded, err := r.Schema(cmd.Context())
	if err != nil {
		return err
	}

	out := schemaOutput{Columns: schema.Columns, Entries: 1}
	for _, lc := range loaded {
		out.Entries *= int64(lc.Table.Len())
		out.Components = append(out.Components, schemaComponent{
			Index:    lc.Table.Index,
			Name:     lc.Table.Name,
			Records:  lc.Table.Len(),
			Features: lc.Table.FeatureNames,
		})
	}

	w := cmd.OutOrStdout()
	if schemaJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, c := range out.Components {
		fmt.Fprintf(w, "comp%d  %-20s %6d records  %d features\n", c.Index, c.Name, c.Records, len(c.Features))
	}
	fmt.Fprintf(w, "\n%d entries x %d columns\n", out.Entries, len(out.Columns))
	for _, col := range out.Columns {
		fmt.Fprintln(w, col)
	}
	return nil
}
