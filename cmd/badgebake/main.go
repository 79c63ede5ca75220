// seehuhn.de/go/badge - Open Badges baking in Go
// Copyright (C) 2024  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Badgebake embeds Open Badges credentials into PNG and SVG images and
// extracts them again.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"

	"seehuhn.de/go/badge"
)

// exitAbsent is the exit status of "unbake" for images without a credential.
const exitAbsent = 3

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "bake":
		return cmdBake(args[1:], out, errOut)
	case "unbake":
		return cmdUnbake(args[1:], out, errOut)
	case "check":
		return cmdCheck(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "badgebake: bake Open Badges credentials into images")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  badgebake bake [--overwrite] [--recompress] [--compress-text] (--data <json> | --data-file <file>) <input> <output>")
	fmt.Fprintln(w, "  badgebake unbake <input> [<output>]")
	fmt.Fprintln(w, "  badgebake check (--data <json> | --data-file <file>)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - images are PNG or SVG; the format is detected from the contents")
	fmt.Fprintln(w, "  - an output of \"-\" writes to stdout")
	fmt.Fprintln(w, "  - comments and trailing commas are removed from .jsonc credential files")
	fmt.Fprintln(w, "  - unbake exits with status 3 if the image carries no credential")
	fmt.Fprintln(w, "  - all commands accept --verbose for debug logging on stderr")
}

// newLogger returns the logger used for diagnostics on stderr.
func newLogger(errOut io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))
}

// credentialFlags are the flags which select the credential to bake.
type credentialFlags struct {
	data     string
	dataFile string
}

func (c *credentialFlags) addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.data, "data", "", "credential JSON")
	fs.StringVar(&c.dataFile, "data-file", "", "file containing the credential JSON")
}

var errCredentialSource = errors.New("exactly one of --data and --data-file is required")

// load returns the credential text.  Files with extension .jsonc are
// converted to plain JSON first.
func (c *credentialFlags) load(logger *slog.Logger) (string, error) {
	switch {
	case (c.data == "") == (c.dataFile == ""):
		return "", errCredentialSource
	case c.data != "":
		return c.data, nil
	}

	body, err := os.ReadFile(c.dataFile)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(filepath.Ext(c.dataFile), ".jsonc") {
		logger.Debug("stripping JSONC comments", "file", c.dataFile)
		body = jsonc.ToJSON(body)
	}
	return string(body), nil
}

func parseFlags(fs *pflag.FlagSet, args []string) (ok bool, status int) {
	err := fs.Parse(args)
	if errors.Is(err, pflag.ErrHelp) {
		return false, 0
	} else if err != nil {
		return false, 2
	}
	return true, 0
}

func cmdBake(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("bake", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var cred credentialFlags
	cred.addFlags(fs)
	overwrite := fs.Bool("overwrite", false, "replace an existing credential")
	recompress := fs.Bool("recompress", false, "re-compress PNG pixel data")
	compressText := fs.Bool("compress-text", false, "store the credential in a compressed PNG text chunk")
	verbose := fs.BoolP("verbose", "v", false, "enable debug logging")
	if ok, status := parseFlags(fs, args); !ok {
		return status
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(errOut, "usage: badgebake bake [flags] (--data <json> | --data-file <file>) <input> <output>")
		return 2
	}
	logger := newLogger(errOut, *verbose)

	credential, err := cred.load(logger)
	if errors.Is(err, errCredentialSource) {
		fmt.Fprintf(errOut, "bake: %v\n", err)
		return 2
	} else if err != nil {
		fmt.Fprintf(errOut, "read credential: %v\n", err)
		return 1
	}

	input, output := fs.Arg(0), fs.Arg(1)
	data, err := os.ReadFile(input)
	if err != nil {
		fmt.Fprintf(errOut, "read input: %v\n", err)
		return 1
	}

	format := badge.DetectFormat(data)
	logger.Debug("baking", "input", input, "format", format, "bytes", len(data))

	var res []byte
	if format == badge.PNG {
		res, err = badge.BakePNG(data, credential, &badge.PNGOptions{
			Overwrite:    *overwrite,
			Recompress:   *recompress,
			CompressText: *compressText,
		})
	} else {
		if *recompress || *compressText {
			logger.Warn("PNG options ignored", "format", format)
		}
		res, err = badge.Bake(data, credential, *overwrite)
	}
	if err != nil {
		logger.Debug("bake failed", "kind", badge.KindOf(err))
		fmt.Fprintf(errOut, "bake %s: %v\n", input, err)
		return 1
	}

	if err := writeOutput(output, res, out); err != nil {
		fmt.Fprintf(errOut, "write output: %v\n", err)
		return 1
	}
	logger.Debug("wrote badge", "output", output, "bytes", len(res))
	return 0
}

func cmdUnbake(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("unbake", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	verbose := fs.BoolP("verbose", "v", false, "enable debug logging")
	if ok, status := parseFlags(fs, args); !ok {
		return status
	}
	if fs.NArg() < 1 || fs.NArg() > 2 {
		fmt.Fprintln(errOut, "usage: badgebake unbake <input> [<output>]")
		return 2
	}
	logger := newLogger(errOut, *verbose)

	input := fs.Arg(0)
	credential, ok, err := badge.ReadFile(input)
	if err != nil {
		logger.Debug("unbake failed", "kind", badge.KindOf(err))
		fmt.Fprintf(errOut, "unbake %s: %v\n", input, err)
		return 1
	}
	if !ok {
		fmt.Fprintf(errOut, "%s: no credential found\n", input)
		return exitAbsent
	}
	if !badge.IsValidJSON(credential) {
		logger.Warn("extracted credential is not valid JSON", "input", input)
	}

	if fs.NArg() == 2 && fs.Arg(1) != "-" {
		err = os.WriteFile(fs.Arg(1), []byte(credential), 0o644)
		if err != nil {
			fmt.Fprintf(errOut, "write output: %v\n", err)
			return 1
		}
		return 0
	}
	_, _ = fmt.Fprintln(out, credential)
	return 0
}

func cmdCheck(args []string, out io.Writer, errOut io.Writer) int {
	fs := pflag.NewFlagSet("check", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	var cred credentialFlags
	cred.addFlags(fs)
	verbose := fs.BoolP("verbose", "v", false, "enable debug logging")
	if ok, status := parseFlags(fs, args); !ok {
		return status
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: badgebake check (--data <json> | --data-file <file>)")
		return 2
	}
	logger := newLogger(errOut, *verbose)

	credential, err := cred.load(logger)
	if errors.Is(err, errCredentialSource) {
		fmt.Fprintf(errOut, "check: %v\n", err)
		return 2
	} else if err != nil {
		fmt.Fprintf(errOut, "read credential: %v\n", err)
		return 1
	}
	if !badge.IsValidJSON(credential) {
		fmt.Fprintln(errOut, badge.ErrInvalidCredential.Error())
		return 1
	}
	_, _ = fmt.Fprintln(out, "ok")
	return 0
}

// writeOutput writes data to the named file, or to stdout if name is "-".
func writeOutput(name string, data []byte, stdout io.Writer) error {
	if name == "-" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(name, data, 0o644)
}
