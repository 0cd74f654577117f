// Command consent-render renders one client record from a JSON file into a
// consent PDF without starting the HTTP service.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"consentpdf/internal/domain"
	"consentpdf/internal/fonts"
	"consentpdf/internal/infra/logging"
	"consentpdf/internal/render"
)

type options struct {
	input    string
	output   string
	fonts    []string
	logLevel string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("consent-render", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&opts.input, "input", "i", "-", "JSON client record file (- for stdin)")
	fs.StringVarP(&opts.output, "output", "o", "", "PDF output file (- for stdout; default consent_<request_id>.pdf)")
	fs.StringArrayVar(&opts.fonts, "font", nil, "TrueType font candidate, may be repeated (default: system font locations)")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

func readRecord(path string, stdin io.Reader) (domain.ClientRecord, error) {
	var rec domain.ClientRecord
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return rec, err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return rec, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	logging.SetLogLevel(opts.logLevel)

	rec, err := readRecord(opts.input, stdin)
	if err != nil {
		return err
	}

	candidates := opts.fonts
	if len(candidates) == 0 {
		candidates = fonts.DefaultCandidates
	}
	pdf, err := render.New(fonts.Resolve(candidates, nil)).Render(rec)
	if err != nil {
		return err
	}

	out := opts.output
	if out == "" {
		out = domain.Filename(rec.RequestID)
	}
	if out == "-" {
		_, err = stdout.Write(pdf)
		return err
	}
	if err := os.WriteFile(out, pdf, 0o644); err != nil {
		return err
	}
	logging.Info("PDF written", "path", out, "bytes", len(pdf))
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "consent-render:", err)
		os.Exit(1)
	}
}
