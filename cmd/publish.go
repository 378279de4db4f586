package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/decarvalhoe/meetinity/pkg/federation"
)

var publishPrintPath bool

type publishOutput struct {
	Version        string `json:"version"`
	SupergraphPath string `json:"supergraph_path"`
	ManifestPath   string `json:"manifest_path"`
}

// publishCmd represents the publish command
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "publish recomposes the supergraph and writes the contract artifacts",
	Long: `publish forces a recomposition of all configured subgraphs, writes the versioned supergraph
artifact and the manifest and prints the result. It exits non-zero when federation is disabled or
when the composition fails, which makes it suitable for CI/CD pipelines.`,
	Example: "GRAPHQL_FEDERATION_ENABLED=true GRAPHQL_SUBGRAPHS_FILE=subgraphs.yaml meetinity-gateway publish --print-path",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		gateway, err := newGateway(cfg, federation.WithLogger(logger()))
		if err != nil {
			return err
		}

		schema, err := gateway.RefreshSchema(cmd.Context(), true)
		if err != nil {
			return err
		}
		manifestPath, err := gateway.PublishContract(cmd.Context())
		if err != nil {
			return err
		}

		if publishPrintPath {
			_, err = fmt.Fprintln(cmd.OutOrStdout(), schema.SupergraphPath)
			return err
		}

		data, err := json.MarshalIndent(publishOutput{
			Version:        schema.Version,
			SupergraphPath: schema.SupergraphPath,
			ManifestPath:   manifestPath,
		}, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().BoolVar(&publishPrintPath, "print-path", false, "print only the supergraph path for shell scripting")
}
