package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/rdhtml/internal/labelfile"
	"github.com/dgallion1/rdhtml/internal/labels"
	"github.com/dgallion1/rdhtml/internal/parser"
	"github.com/dgallion1/rdhtml/internal/render"
)

var version = "dev"

type options struct {
	output    string
	format    string
	charset   string
	lang      string
	title     string
	css       string
	linkRel   []string
	linkRev   []string
	oldAnchor bool
	outputRBL bool
	labelDir  string
	verbose   bool
}

// Execute runs the rdhtml command line.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the rdhtml command. Input, output and log destinations
// follow the command's In, Out and Err writers.
func NewRootCommand() *cobra.Command {
	var o options

	root := &cobra.Command{
		Use:           "rdhtml [file]",
		Short:         "Render an RD document as XHTML",
		Long:          `rdhtml renders a document (RD-style Markdown, text, CSV, HTML, PDF or DOCX) as an XHTML 1.0 Transitional page with labelled anchors, footnotes and cross-document references.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(withLogger(cmd.Context(), newLogger(cmd.ErrOrStderr(), o.verbose)))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			return runRender(cmd, input, o)
		},
	}

	f := root.Flags()
	f.StringVarP(&o.output, "output", "o", "", "write XHTML to this file instead of stdout")
	f.StringVar(&o.format, "format", "md", "input format when reading stdin")
	f.StringVar(&o.charset, "charset", "", "declared character encoding")
	f.StringVar(&o.lang, "lang", "", "document language")
	f.StringVar(&o.title, "title", "", "document title")
	f.StringVar(&o.css, "css", "", "stylesheet URL")
	f.StringArrayVar(&o.linkRel, "html-link-rel", nil, "header link as rel:href (repeatable)")
	f.StringArrayVar(&o.linkRev, "html-link-rev", nil, "reverse header link as rev:href (repeatable)")
	f.BoolVar(&o.oldAnchor, "old-anchor", false, "derive anchors from label text instead of numbering them")
	f.BoolVar(&o.outputRBL, "output-rbl", false, "write a label file next to the output")
	f.StringVar(&o.labelDir, "label-dir", "", "directory holding label files of referenced documents (default: the input's directory)")
	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "enable verbose logging")

	return root
}

func runRender(cmd *cobra.Command, input string, o options) error {
	log := loggerFromContext(cmd.Context())

	opts, err := o.renderOptions(input)
	if err != nil {
		return err
	}
	if o.outputRBL && input == "-" && o.output == "" {
		return errors.New("--output-rbl needs --output or a named input file")
	}

	data, name, err := readInput(cmd.InOrStdin(), input, o.format)
	if err != nil {
		return err
	}
	p, err := parser.ForFile(name)
	if err != nil {
		return err
	}
	doc, err := p.Parse(bytes.NewReader(data), name)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}

	var ext labels.External
	switch {
	case o.labelDir != "":
		ext = labelfile.NewDir(o.labelDir, log)
	case input != "-":
		ext = labelfile.NewDir(filepath.Dir(input), log)
	}

	res, err := render.New(opts, ext, log).Render(doc)
	if err != nil {
		return err
	}

	if o.output == "" {
		if _, err := io.WriteString(cmd.OutOrStdout(), res.HTML); err != nil {
			return err
		}
	} else if err := os.WriteFile(o.output, []byte(res.HTML), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if o.outputRBL {
		target := o.output
		if target == "" {
			target = input
		}
		path := labelfile.Path(target)
		if err := labelfile.WriteFile(path, labelfile.FromEntries(filepath.Base(name), res.Labels.Entries())); err != nil {
			return fmt.Errorf("write label file: %w", err)
		}
		log.Debug("wrote label file", "path", path, "labels", res.Labels.Len())
	}

	log.Info("rendered",
		"input", input,
		"labels", res.Labels.Len(),
		"footnotes", res.Footnotes,
		"unresolved", len(res.Unresolved),
	)
	return nil
}

func (o options) renderOptions(input string) (render.Options, error) {
	opts := render.Options{
		Charset:       o.charset,
		Lang:          o.lang,
		Title:         o.title,
		CSS:           o.css,
		LegacyAnchors: o.oldAnchor,
		InputFilename: input,
	}
	if o.output != "" {
		opts.Filename = filepath.Base(o.output)
	}
	for _, s := range o.linkRel {
		l, err := render.ParseLink(s)
		if err != nil {
			return opts, fmt.Errorf("--html-link-rel: %w", err)
		}
		opts.LinkRel = append(opts.LinkRel, l)
	}
	for _, s := range o.linkRev {
		l, err := render.ParseLink(s)
		if err != nil {
			return opts, fmt.Errorf("--html-link-rev: %w", err)
		}
		opts.LinkRev = append(opts.LinkRev, l)
	}
	return opts, nil
}

// readInput returns the input bytes and the name its parser is chosen by.
func readInput(stdin io.Reader, input, format string) ([]byte, string, error) {
	if input == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}
		return data, "stdin." + format, nil
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, "", err
	}
	return data, input, nil
}
