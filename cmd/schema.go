package cmd

import (
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/decarvalhoe/meetinity/pkg/federation"
	"github.com/decarvalhoe/meetinity/pkg/httpclient"
)

var schemaFormat bool

// schemaCmd represents the schema command
var schemaCmd = &cobra.Command{
	Use:     "schema [subgraph]",
	Short:   "schema prints the resolved schema of a subgraph to std out",
	Example: "meetinity-gateway schema identity --format > identity.graphql",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.FederationEnabled {
			return errFederationDisabled
		}

		var definition *federation.SubgraphDefinition
		for i := range cfg.Subgraphs {
			if cfg.Subgraphs[i].Name == args[0] {
				definition = &cfg.Subgraphs[i]
				break
			}
		}
		if definition == nil {
			return errors.Errorf("schema: unknown subgraph '%s'", args[0])
		}

		retriever := federation.NewRetriever(httpclient.New(cfg.SchemaConnectTimeout, cfg.SchemaReadTimeout), nil)
		sdl, err := retriever.Retrieve(cmd.Context(), *definition)
		if err != nil {
			return err
		}

		if !schemaFormat {
			_, err = io.WriteString(cmd.OutOrStdout(), sdl)
			return err
		}

		document, parseErr := parser.ParseSchema(&ast.Source{Name: definition.Name, Input: sdl})
		if parseErr != nil {
			return errors.Wrap(parseErr, "schema")
		}
		formatter.NewFormatter(cmd.OutOrStdout()).FormatSchemaDocument(document)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().BoolVar(&schemaFormat, "format", false, "parse and pretty print the schema")
}
