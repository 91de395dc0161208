package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/carbonsight/carbon-cli/internal/resolve"
)

var aliasesOut string

var aliasesCmd = &cobra.Command{
	Use:   "aliases",
	Short: "Manage the buyer alias dictionary",
}

var aliasesSuggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Propose buyer aliases from stored contracts",
	Long:  "Clusters the raw buyer names seen in stored contracts and proposes an alias dictionary (normalized variant -> canonical name) in the YAML format the screen command loads. Review before adopting: clustering is heuristic.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		contracts, err := st.ListContracts(ctx)
		if err != nil {
			return eris.Wrap(err, "aliases: list contracts")
		}
		if len(contracts) == 0 {
			return eris.New("aliases: no contracts in store; run ingest first")
		}

		names := make([]string, 0, len(contracts))
		for _, c := range contracts {
			names = append(names, c.BuyerRaw)
		}

		aliases := resolve.BuildAliasMap(names)
		zap.L().Info("aliases: clustering complete",
			zap.Int("names", len(names)),
			zap.Int("proposed", len(aliases)),
		)

		doc := struct {
			Aliases map[string]string `yaml:"aliases"`
		}{Aliases: aliases}

		data, err := yaml.Marshal(doc)
		if err != nil {
			return eris.Wrap(err, "aliases: marshal yaml")
		}

		if aliasesOut == "" {
			_, err = os.Stdout.Write(data)
			return eris.Wrap(err, "aliases: write stdout")
		}
		return eris.Wrap(os.WriteFile(aliasesOut, data, 0644), "aliases: write file")
	},
}

func init() {
	aliasesSuggestCmd.Flags().StringVar(&aliasesOut, "out", "", "output file (default: stdout)")
	aliasesCmd.AddCommand(aliasesSuggestCmd)
	rootCmd.AddCommand(aliasesCmd)
}
