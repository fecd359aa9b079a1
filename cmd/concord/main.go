// Command concord aligns external NLP annotations with structured documents.
package main

import (
	"github.com/alecthomas/kong"
)

// CLI defines the command-line interface using Kong
type CLI struct {
	Globals

	Annotate AnnotateCmd `cmd:"" help:"Annotate already tokenized documents through the engine"`
	Align    AlignCmd    `cmd:"" help:"Align a pre-built flat annotation stream with a document"`
	Ingest   IngestCmd   `cmd:"" help:"Segment and annotate raw section text through the engine"`
	Import   ImportCmd   `cmd:"" help:"Convert LDC SGML files into JSON documents"`
	Serve    ServeCmd    `cmd:"" help:"Run the HTTP API"`
	Runs     RunsCmd     `cmd:"" help:"List recorded runs for a document"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("concord"),
		kong.Description("Cross-schema annotation alignment"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
