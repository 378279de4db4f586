// Command meetinity-gateway composes the GraphQL subgraphs of the Meetinity services into a
// supergraph and publishes it as a versioned contract.
//
// About federation
//
// Every Meetinity service owns a subgraph: a GraphQL schema plus the REST paths of the API gateway
// that map onto its root fields. The gateway collects the subgraph schemas from inline configuration,
// local files or remote endpoints, merges them into one supergraph document and derives a content
// version from the subgraph digests. Each version is written to its own artifact next to a stable
// alias and a JSON manifest listing the subgraphs and the REST operation catalog.
//
// About this command
//
// publish recomposes and writes the contract for CI/CD pipelines, serve exposes the supergraph,
// its metadata and the GraphQL router proxy over HTTP, audit reports gateway routes missing from the
// contract and schema prints the resolved schema of one subgraph.
//
// The composition engine lives in pkg/federation and can be embedded on its own.
package main
