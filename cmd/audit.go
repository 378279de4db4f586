package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/decarvalhoe/meetinity/pkg/federation"
	"github.com/decarvalhoe/meetinity/pkg/openapi"
)

var (
	auditRoutesFile  string
	auditOpenAPIFile string
	auditManifest    string
	auditFields      bool
)

// auditCmd represents the audit command
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "audit reports gateway routes that have no federated operation",
	Long: `audit compares the REST routes of the gateway with the operation catalog of the federation contract
and prints every route whose path is not mapped to a subgraph field.

Routes are read from the PROXY_ROUTES configuration, a JSON route table (--routes) or an OpenAPI document (--openapi).
The catalog is read from a published manifest (--manifest) or composed in memory from the configured subgraphs,
in which case nothing is written to disk. With --fields the rest mappings are also checked against the root fields
of every subgraph schema.`,
	Example: "meetinity-gateway audit --openapi gateway.yaml --fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		routes, err := auditRoutes(cfg.Routes)
		if err != nil {
			return err
		}

		var (
			catalog  federation.Catalog
			findings []federation.FieldFinding
		)
		if auditManifest != "" && !auditFields {
			manifest, err := federation.LoadManifest(afero.NewOsFs(), auditManifest)
			if err != nil {
				return err
			}
			catalog = manifest.Operations
		} else {
			// schema files are read from disk, artifacts only land in memory
			fs := afero.NewCopyOnWriteFs(afero.NewReadOnlyFs(afero.NewOsFs()), afero.NewMemMapFs())
			gateway, err := newGateway(cfg, federation.WithFs(fs), federation.WithLogger(logger()))
			if err != nil {
				return err
			}
			if _, err = gateway.RefreshSchema(cmd.Context(), false); err != nil {
				return err
			}
			catalog = gateway.OperationCatalog()
			if auditFields {
				findings = gateway.AuditFields()
			}
		}

		out := cmd.OutOrStdout()
		unmapped := federation.UnmappedRoutes(catalog, routes)
		for _, path := range unmapped {
			fmt.Fprintf(out, "unmapped route: %s\n", path)
		}
		for _, finding := range findings {
			fmt.Fprintf(out, "unresolved mapping: %s\n", finding)
		}

		if problems := len(unmapped) + len(findings); problems > 0 {
			return errors.Errorf("contract audit failed with %d finding(s)", problems)
		}
		fmt.Fprintf(out, "%d route(s) mapped to %d operation(s)\n", len(routes), len(catalog))
		return nil
	},
}

func auditRoutes(configured []federation.Route) ([]federation.Route, error) {
	routes := append([]federation.Route(nil), configured...)
	fs := afero.NewOsFs()

	if auditRoutesFile != "" {
		data, err := afero.ReadFile(fs, auditRoutesFile)
		if err != nil {
			return nil, errors.Wrapf(err, "read route table '%s'", auditRoutesFile)
		}
		fromFile, err := federation.ParseRouteTable(data)
		if err != nil {
			return nil, err
		}
		routes = append(routes, fromFile...)
	}

	if auditOpenAPIFile != "" {
		data, err := afero.ReadFile(fs, auditOpenAPIFile)
		if err != nil {
			return nil, errors.Wrapf(err, "read OpenAPI document '%s'", auditOpenAPIFile)
		}
		fromDocument, err := openapi.ImportRoutesFromBytes(data)
		if err != nil {
			return nil, err
		}
		routes = append(routes, fromDocument...)
	}

	if len(routes) == 0 {
		return nil, errors.New("no routes to audit: configure PROXY_ROUTES or pass --routes or --openapi")
	}
	return routes, nil
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&auditRoutesFile, "routes", "", "JSON route table of the gateway")
	auditCmd.Flags().StringVar(&auditOpenAPIFile, "openapi", "", "OpenAPI v3 document describing the gateway routes")
	auditCmd.Flags().StringVar(&auditManifest, "manifest", "", "published manifest to read the operation catalog from instead of composing")
	auditCmd.Flags().BoolVar(&auditFields, "fields", false, "also check rest mappings against the root fields of the subgraph schemas")
}
