// Command digitalsee browses a directory of TEI XML inscriptions: it lists
// authors, places and keywords, searches by them, shows and exports
// documents, and serves the same operations over HTTP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/digitalsee/core/corpus"
	"github.com/FocuswithJustin/digitalsee/core/query"
	"github.com/FocuswithJustin/digitalsee/core/search"
	"github.com/FocuswithJustin/digitalsee/core/sqlite"
	"github.com/FocuswithJustin/digitalsee/core/tei"
	"github.com/FocuswithJustin/digitalsee/internal/api"
	"github.com/FocuswithJustin/digitalsee/internal/archive"
	"github.com/FocuswithJustin/digitalsee/internal/config"
	"github.com/FocuswithJustin/digitalsee/internal/export"
	"github.com/FocuswithJustin/digitalsee/internal/logging"
	"github.com/FocuswithJustin/digitalsee/internal/validation"
)

const version = "0.1.0"

// CLI defines the command-line interface for digitalsee.
type CLI struct {
	Globals

	Facets  FacetsCmd  `cmd:"" help:"List authors, places and keywords"`
	Search  SearchCmd  `cmd:"" help:"Search documents by author, place and keyword"`
	Show    ShowCmd    `cmd:"" help:"Show one document"`
	Export  ExportCmd  `cmd:"" help:"Write one document as a standalone XML file"`
	Bundle  BundleCmd  `cmd:"" help:"Write matching documents to a tar.xz or tar.gz bundle"`
	Catalog CatalogCmd `cmd:"" help:"Write matching documents to a SQLite catalog"`
	Inspect InspectCmd `cmd:"" help:"Print and verify a bundle manifest"`
	Paths   PathsCmd   `cmd:"" help:"List the recognized TEI structural paths"`
	Serve   ServeCmd   `cmd:"" help:"Start the HTTP API server"`
	Version VersionCmd `cmd:"" help:"Print version information"`

	InitConfig InitConfigCmd `cmd:"" name:"init-config" help:"Write the effective configuration to a YAML file"`
}

// Globals are flags shared by every command.
type Globals struct {
	Corpus    string `name:"corpus" short:"C" help:"Corpus directory (overrides config and DIGITALSEE_CORPUS)" type:"path"`
	Config    string `name:"config" help:"YAML configuration file" type:"path"`
	LogLevel  string `name:"log-level" help:"Log level: debug, info, warn, error"`
	LogFormat string `name:"log-format" help:"Log format: text, json"`

	out    io.Writer
	errOut io.Writer
}

// settings loads the configuration, applies flag overrides and installs
// the logger.
func (g *Globals) settings() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.Corpus != "" {
		cfg.Corpus.Dir = g.Corpus
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Log.Format = g.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, _ := logging.ParseLevel(cfg.Log.Level)
	format, _ := logging.ParseFormat(cfg.Log.Format)
	logging.InitLogger(level, format, g.errOut)
	return cfg, nil
}

// snapshot loads the configured corpus.
func (g *Globals) snapshot() (*config.Config, *corpus.Snapshot, error) {
	cfg, err := g.settings()
	if err != nil {
		return nil, nil, err
	}
	snap, err := api.LoadSnapshot(cfg.Corpus.Dir)
	if err != nil {
		return nil, nil, err
	}
	return cfg, snap, nil
}

// QueryFlags select documents. Explicit term flags override the same term
// in --query.
type QueryFlags struct {
	Author  string `name:"author" short:"a" help:"Bibliographic author substring"`
	Place   string `name:"place" short:"l" help:"Place substring"`
	Keyword string `name:"keyword" short:"k" help:"Keyword substring"`
	Query   string `name:"query" short:"q" help:"Query string, e.g. 'author:\"Jane Doe\" place:Rome'"`
}

// Resolve returns the combined query.
func (f QueryFlags) Resolve() (search.Query, error) {
	base, err := query.Parse(f.Query)
	if err != nil {
		return search.Query{}, err
	}
	return query.Merge(base, search.Query{Author: f.Author, Place: f.Place, Keyword: f.Keyword}), nil
}

// FacetsCmd lists the selectable values.
type FacetsCmd struct {
	Author string `name:"author" short:"a" help:"Narrow places and keywords to this exact author"`
	JSON   bool   `name:"json" help:"Print JSON"`
}

func (c *FacetsCmd) Run(g *Globals) error {
	_, snap, err := g.snapshot()
	if err != nil {
		return err
	}
	facets := snap.Facets(c.Author)
	if c.JSON {
		return writeJSON(g.out, facets)
	}

	if facets.Author != "" {
		fmt.Fprintf(g.out, "Narrowed to author: %s\n\n", facets.Author)
	}
	printList(g.out, "Authors", facets.Authors)
	printList(g.out, "Places", facets.Places)
	printList(g.out, "Keywords", facets.Keywords)
	return nil
}

// SearchCmd searches the corpus.
type SearchCmd struct {
	QueryFlags `embed:""`
	JSON       bool `name:"json" help:"Print JSON"`
}

type searchResult struct {
	Name  string       `json:"name"`
	Title string       `json:"title,omitempty"`
	Hits  []search.Hit `json:"hits"`
}

func (c *SearchCmd) Run(g *Globals) error {
	q, err := c.Resolve()
	if err != nil {
		return err
	}
	_, snap, err := g.snapshot()
	if err != nil {
		return err
	}
	matches := search.Search(snap.Documents, q)

	if c.JSON {
		results := make([]searchResult, 0, len(matches))
		for _, m := range matches {
			results = append(results, searchResult{Name: m.Document.Name, Title: m.Document.Meta.Header.Title, Hits: m.Hits})
		}
		return writeJSON(g.out, results)
	}

	if len(matches) == 0 {
		fmt.Fprintln(g.out, "No matching documents.")
		return nil
	}
	for _, m := range matches {
		if title := m.Document.Meta.Header.Title; title != "" {
			fmt.Fprintf(g.out, "%s  %s\n", m.Document.Name, title)
		} else {
			fmt.Fprintln(g.out, m.Document.Name)
		}
		for _, h := range m.Hits {
			fmt.Fprintf(g.out, "  %s\n", h)
		}
	}
	fmt.Fprintf(g.out, "\n%d of %d documents matched.\n", len(matches), len(snap.Documents))
	return nil
}

// ShowCmd prints one document.
type ShowCmd struct {
	Name   string `arg:"" help:"Document file name, e.g. inscription.xml"`
	Author string `name:"author" short:"a" help:"Show places and keywords associated with this author"`
	JSON   bool   `name:"json" help:"Print JSON"`
}

func (c *ShowCmd) Run(g *Globals) error {
	if err := validation.ValidateDocumentName(c.Name); err != nil {
		return err
	}
	_, snap, err := g.snapshot()
	if err != nil {
		return err
	}
	doc, err := snap.Document(c.Name)
	if err != nil {
		return err
	}
	detail := snap.Detail(doc, c.Author)
	if c.JSON {
		return writeJSON(g.out, detail)
	}

	fmt.Fprintf(g.out, "%s\n", detail.Name)
	tw := tabwriter.NewWriter(g.out, 0, 4, 2, ' ', 0)
	for _, f := range detail.Header.Fields() {
		fmt.Fprintf(tw, "  %s:\t%s\n", f.Label, f.Value)
	}
	fmt.Fprintf(tw, "  BLAKE3:\t%s\n", detail.Hash)
	fmt.Fprintf(tw, "  Places:\t%s\n", strings.Join(detail.Places, ", "))
	fmt.Fprintf(tw, "  Keywords:\t%s\n", strings.Join(detail.Keywords, ", "))
	tw.Flush()

	for _, s := range detail.Commentary {
		fmt.Fprintf(g.out, "\nCommentary (%s)\n%s\n", s.Subtype, s.Content)
	}
	for _, s := range detail.Editions {
		fmt.Fprintf(g.out, "\nEdition (%s)\n%s\n", s.Lang, s.Content)
	}
	return nil
}

// ExportCmd writes one document to a file.
type ExportCmd struct {
	Name   string `arg:"" help:"Document file name"`
	Out    string `name:"out" short:"o" default:"." help:"Output directory" type:"path"`
	Prefix string `name:"prefix" help:"File name prefix (default from config: matched_)"`
}

func (c *ExportCmd) Run(g *Globals) error {
	if err := validation.ValidateDocumentName(c.Name); err != nil {
		return err
	}
	cfg, snap, err := g.snapshot()
	if err != nil {
		return err
	}
	prefix := cfg.Export.Prefix
	if c.Prefix != "" {
		if err := validation.ValidatePrefix(c.Prefix); err != nil {
			return fmt.Errorf("invalid prefix: %w", err)
		}
		prefix = c.Prefix
	}
	doc, err := snap.Document(c.Name)
	if err != nil {
		return err
	}

	path, err := export.WriteFile(c.Out, prefix, doc)
	if err != nil {
		return err
	}
	logging.ExportWritten("document", path, 1)
	fmt.Fprintln(g.out, path)
	return nil
}

// BundleCmd writes matching documents into a compressed tar bundle.
type BundleCmd struct {
	QueryFlags `embed:""`
	Out        string `name:"out" short:"o" required:"" help:"Bundle path (.tar.xz or .tar.gz)" type:"path"`
}

func (c *BundleCmd) Run(g *Globals) error {
	if _, err := archive.FormatFor(c.Out); err != nil {
		return fmt.Errorf("bundle path must end in .tar.xz or .tar.gz: %s", c.Out)
	}
	q, err := c.Resolve()
	if err != nil {
		return err
	}
	_, snap, err := g.snapshot()
	if err != nil {
		return err
	}

	docs := search.Documents(snap.Documents, q)
	m, err := export.CreateBundle(c.Out, docs, q, time.Now())
	if err != nil {
		return err
	}
	logging.ExportWritten("bundle", c.Out, len(docs), "id", m.ID, "query", m.Query)
	fmt.Fprintf(g.out, "%s: %d documents (bundle %s)\n", c.Out, len(docs), m.ID)
	return nil
}

// CatalogCmd writes matching documents into a SQLite catalog.
type CatalogCmd struct {
	QueryFlags `embed:""`
	Out        string `name:"out" short:"o" required:"" help:"Catalog database path" type:"path"`
}

func (c *CatalogCmd) Run(g *Globals) error {
	q, err := c.Resolve()
	if err != nil {
		return err
	}
	_, snap, err := g.snapshot()
	if err != nil {
		return err
	}

	docs := search.Documents(snap.Documents, q)
	if err := export.CreateCatalog(context.Background(), c.Out, docs); err != nil {
		return err
	}
	logging.ExportWritten("catalog", c.Out, len(docs), "driver", sqlite.DriverName())
	fmt.Fprintf(g.out, "%s: %d documents\n", c.Out, len(docs))
	return nil
}

// InspectCmd prints a bundle's manifest.
type InspectCmd struct {
	Bundle string `arg:"" help:"Bundle path" type:"existingfile"`
	Verify bool   `name:"verify" help:"Check every document against its manifest digest"`
}

func (c *InspectCmd) Run(g *Globals) error {
	var (
		m          *export.Manifest
		mismatches []export.Mismatch
		err        error
	)
	if c.Verify {
		m, mismatches, err = export.VerifyBundle(c.Bundle)
	} else {
		m, err = export.ReadManifest(c.Bundle)
	}
	if err != nil {
		return err
	}
	files, err := archive.List(c.Bundle)
	if err != nil {
		return err
	}

	q := m.Query
	if q == "" {
		q = "(all documents)"
	}
	fmt.Fprintf(g.out, "Bundle:  %s\nCreated: %s\nQuery:   %s\nFiles:   %d\n\n", m.ID, m.CreatedAt.Format(time.RFC3339), q, len(files))
	tw := tabwriter.NewWriter(g.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tBLAKE3")
	for _, e := range m.Documents {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", e.Name, e.Size, e.Blake3)
	}
	tw.Flush()

	if !c.Verify {
		return nil
	}
	if len(mismatches) == 0 {
		fmt.Fprintf(g.out, "\nOK: %d documents verified\n", len(m.Documents))
		return nil
	}
	fmt.Fprintln(g.out)
	for _, mm := range mismatches {
		fmt.Fprintf(g.out, "FAIL %s: %s\n", mm.Name, mm.Problem)
	}
	return fmt.Errorf("%d bundle entries failed verification", len(mismatches))
}

// PathsCmd prints the structural path table.
type PathsCmd struct {
	JSON bool `name:"json" help:"Print JSON"`
}

func (c *PathsCmd) Run(g *Globals) error {
	paths := tei.Paths()
	if c.JSON {
		return writeJSON(g.out, paths)
	}
	tw := tabwriter.NewWriter(g.out, 0, 4, 2, ' ', 0)
	for _, p := range paths {
		fmt.Fprintf(tw, "%s\t%s\n", p.Name, p.Expr)
	}
	return tw.Flush()
}

// ServeCmd starts the HTTP API.
type ServeCmd struct {
	Port     int      `name:"port" short:"p" help:"Listen port (default from config: 8080)"`
	Watch    bool     `name:"watch" help:"Reload when corpus files change instead of per request"`
	CacheTTL string   `name:"cache-ttl" help:"Reuse a snapshot for this long, e.g. 30s"`
	Origins  []string `name:"allow-origin" help:"Allowed CORS and WebSocket origin (repeatable)"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := g.settings()
	if err != nil {
		return err
	}
	if err := c.apply(cfg); err != nil {
		return err
	}

	srv := api.New(api.Config{
		Port:           cfg.Server.Port,
		CorpusDir:      cfg.Corpus.Dir,
		Watch:          cfg.Server.Watch,
		WatchDebounce:  cfg.Server.WatchDebounce,
		CacheTTL:       cfg.Server.CacheTTL,
		ExportPrefix:   cfg.Export.Prefix,
		AllowedOrigins: c.Origins,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

// apply overlays the serve flags onto cfg.
func (c *ServeCmd) apply(cfg *config.Config) error {
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.Watch {
		cfg.Server.Watch = true
	}
	if c.CacheTTL != "" {
		ttl, err := time.ParseDuration(c.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid --cache-ttl: %w", err)
		}
		cfg.Server.CacheTTL = ttl
	}
	return cfg.Validate()
}

// InitConfigCmd writes the configuration that the other commands would use,
// after the config file, environment and global flags are applied.
type InitConfigCmd struct {
	Output string `arg:"" help:"Destination YAML file" type:"path"`
	Force  bool   `name:"force" help:"Overwrite an existing file"`
}

func (c *InitConfigCmd) Run(g *Globals) error {
	cfg, err := g.settings()
	if err != nil {
		return err
	}
	if _, err := os.Stat(c.Output); err == nil && !c.Force {
		return fmt.Errorf("refusing to overwrite %s (use --force)", c.Output)
	}
	if err := cfg.WriteYAML(c.Output); err != nil {
		return err
	}
	fmt.Fprintf(g.out, "wrote %s\n", c.Output)
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	info := sqlite.GetInfo()
	fmt.Fprintf(g.out, "digitalsee version %s\n", version)
	fmt.Fprintf(g.out, "catalog driver: %s (%s, %s)\n", info.DriverName, info.DriverType, info.Package)
	return nil
}

func printList(w io.Writer, label string, values []string) {
	fmt.Fprintf(w, "%s (%d):\n", label, len(values))
	for _, v := range values {
		fmt.Fprintf(w, "  %s\n", v)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newParser builds the kong parser; command output goes to out and logs
// to errOut.
func newParser(cli *CLI, out, errOut io.Writer, options ...kong.Option) (*kong.Kong, error) {
	cli.Globals.out = out
	cli.Globals.errOut = errOut
	options = append([]kong.Option{
		kong.Name("digitalsee"),
		kong.Description("Browse, search and export a TEI XML inscription corpus"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Bind(&cli.Globals),
		kong.Writers(out, errOut),
	}, options...)
	return kong.New(cli, options...)
}

func main() {
	api.Version = version

	var cli CLI
	parser, err := newParser(&cli, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	err = ctx.Run()
	ctx.FatalIfErrorf(err)
}
