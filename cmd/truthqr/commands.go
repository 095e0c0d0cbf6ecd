// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/truthqr/lib/assembly"
	"github.com/bureau-foundation/truthqr/lib/chunk"
	"github.com/bureau-foundation/truthqr/lib/publish"
	"github.com/bureau-foundation/truthqr/lib/serializer"
)

// maxLineLength bounds one scanned line. Real fragments are a few
// kilobytes at most.
const maxLineLength = 4 * 1024 * 1024

func (a *app) commands() []*command {
	return []*command{
		publishCommand(),
		ingestCommand(),
		assembleCommand(),
		statusCommand(),
		forgetCommand(),
		purgeCommand(),
	}
}

// publishOutput is the --json form of publish.
type publishOutput struct {
	Code   string   `json:"code"`
	MIME   string   `json:"mime"`
	Digest string   `json:"digest"`
	Lines  []string `json:"lines"`
}

func publishCommand() *command {
	var code, strategy, inputFormat string
	var count, maxLen int
	var asJSON bool

	return &command{
		name:    "publish",
		summary: "encode a document into fragment lines",
		usage:   "truthqr publish [flags] [FILE|-]",
		flags: func(flagSet *pflag.FlagSet) {
			flagSet.StringVar(&code, "code", "", "document code (default: a generated UUID)")
			flagSet.StringVar(&strategy, "by", "", "chunking strategy: size or count (default from config)")
			flagSet.IntVar(&count, "count", 0, "number of fragments for --by count")
			flagSet.IntVar(&maxLen, "max-len", 0, "maximum fragment length for --by size")
			flagSet.StringVar(&inputFormat, "input-format", "auto", "format of the input document: json, jsonc, yaml, cbor, auto")
			flagSet.BoolVar(&asJSON, "json", false, "print code, digest and lines as JSON")
		},
		run: func(ctx context.Context, env *environment, args []string) error {
			if len(args) > 1 {
				return usageError("publish takes at most one input file")
			}
			data, err := env.readInput(args)
			if err != nil {
				return err
			}

			reader, err := serializer.ByName(inputFormat)
			if err != nil {
				return usageError("--input-format: %v", err)
			}
			var document any
			if err := reader.Decode(data, &document); err != nil {
				return usageError("reading document: %v", err)
			}

			publisher, err := env.config.NewPublisher()
			if err != nil {
				return err
			}
			opts, err := env.config.PublishOptions()
			if err != nil {
				return err
			}
			if strategy != "" {
				if opts.By, err = publish.ParseStrategy(strategy); err != nil {
					return usageError("--by: %v", err)
				}
			}
			if count > 0 {
				opts.Count = count
			}
			if maxLen > 0 {
				opts.MaxLen = maxLen
			}

			result, err := publisher.PublishResult(document, code, opts)
			if err != nil {
				return err
			}
			env.logger.Info("published document",
				"code", result.Code,
				"fragments", len(result.Lines),
				"mime", result.MIME,
				"digest", result.Digest,
			)

			if asJSON {
				return writeJSON(env.stdout, publishOutput{
					Code:   result.Code,
					MIME:   result.MIME,
					Digest: result.Digest,
					Lines:  result.Lines,
				})
			}
			for _, line := range result.Lines {
				fmt.Fprintln(env.stdout, line)
			}
			return nil
		},
	}
}

func ingestCommand() *command {
	var asJSON bool

	return &command{
		name:    "ingest",
		summary: "record scanned lines in the chunk store",
		usage:   "truthqr ingest [flags] [FILE|-]",
		flags: func(flagSet *pflag.FlagSet) {
			flagSet.BoolVar(&asJSON, "json", false, "print statuses as JSON")
		},
		run: func(ctx context.Context, env *environment, args []string) error {
			if len(args) > 1 {
				return usageError("ingest takes at most one input file")
			}
			store, err := env.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			assembler, err := env.config.NewAssembler(store, env.logger)
			if err != nil {
				return err
			}

			var codes []string
			seen := make(map[string]bool)
			accepted, rejected := 0, 0
			err = env.scanLines(args, func(line string) error {
				status, err := assembler.IngestLine(ctx, line)
				if err != nil {
					if chunk.ClassOf(err) == chunk.Unclassified {
						return err
					}
					rejected++
					env.logger.Warn("line rejected", "error", err)
					return nil
				}
				accepted++
				if !seen[status.Code] {
					seen[status.Code] = true
					codes = append(codes, status.Code)
				}
				return nil
			})
			if err != nil {
				return err
			}

			statuses := make([]chunk.Status, 0, len(codes))
			for _, code := range codes {
				status, err := assembler.Status(ctx, code)
				if err != nil {
					return err
				}
				statuses = append(statuses, status)
			}
			if err := env.printStatuses(statuses, asJSON); err != nil {
				return err
			}

			if rejected > 0 {
				return &exitError{code: exitUsage, err: fmt.Errorf("%d of %d lines rejected", rejected, accepted+rejected)}
			}
			return nil
		},
	}
}

// artifactOutput is the --metadata form of assemble.
type artifactOutput struct {
	Code   string `json:"code"`
	MIME   string `json:"mime"`
	Digest string `json:"digest"`
	Size   int    `json:"size"`
}

func assembleCommand() *command {
	var linesPath, outputPath string
	var metadata bool

	return &command{
		name:    "assemble",
		summary: "rebuild a document from the chunk store",
		usage:   "truthqr assemble [flags] [CODE]",
		flags: func(flagSet *pflag.FlagSet) {
			flagSet.StringVar(&linesPath, "lines", "", "ingest lines from FILE ('-' for stdin) before assembling")
			flagSet.StringVarP(&outputPath, "output", "o", "", "write the document to FILE instead of stdout")
			flagSet.BoolVar(&metadata, "metadata", false, "print the artifact's code, media type and digest as JSON instead of the document")
		},
		run: func(ctx context.Context, env *environment, args []string) error {
			if len(args) > 1 {
				return usageError("assemble takes at most one code")
			}
			var code string
			if len(args) == 1 {
				code = args[0]
			}
			if code == "" && linesPath == "" {
				return usageError("assemble needs a CODE or --lines")
			}

			store, err := env.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			assembler, err := env.config.NewAssembler(store, env.logger)
			if err != nil {
				return err
			}

			if linesPath != "" {
				code, err = env.ingestForAssembly(ctx, assembler, linesPath, code)
				if err != nil {
					return err
				}
			}

			if _, err := assembler.Assemble(ctx, code); err != nil {
				return err
			}
			artifact, ok, err := assembler.Artifact(ctx, code)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("artifact for %q vanished after assembly", code)
			}
			env.logger.Info("assembled document",
				"code", code,
				"mime", artifact.MIME,
				"digest", artifact.Digest,
				"size", len(artifact.Body),
			)

			if metadata {
				return writeJSON(env.stdout, artifactOutput{
					Code:   code,
					MIME:   artifact.MIME,
					Digest: artifact.Digest,
					Size:   len(artifact.Body),
				})
			}
			if outputPath != "" {
				return os.WriteFile(outputPath, artifact.Body, 0644)
			}
			_, err = env.stdout.Write(artifact.Body)
			return err
		},
	}
}

// ingestForAssembly feeds the lines at path to the store. With an
// explicit code every line is ingested as-is; without one a session
// locks onto the first accepted line and its code is returned.
func (env *environment) ingestForAssembly(ctx context.Context, assembler *assembly.Assembler, path, code string) (string, error) {
	input := []string{path}

	if code != "" {
		err := env.scanLines(input, func(line string) error {
			if _, err := assembler.IngestLine(ctx, line); err != nil {
				if chunk.ClassOf(err) == chunk.Unclassified {
					return err
				}
				env.logger.Warn("line rejected", "error", err)
			}
			return nil
		})
		return code, err
	}

	session := assembler.NewSession()
	err := env.scanLines(input, func(line string) error {
		if _, err := session.Ingest(ctx, line); err != nil {
			if chunk.ClassOf(err) == chunk.Unclassified {
				return err
			}
			env.logger.Warn("line rejected", "error", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if session.Code() == "" {
		return "", &exitError{
			code: exitIncomplete,
			err:  fmt.Errorf("no line accepted (%d rejected)", len(session.Errors())),
		}
	}
	return session.Code(), nil
}

func statusCommand() *command {
	var asJSON bool

	return &command{
		name:    "status",
		summary: "show received and missing fragments",
		usage:   "truthqr status [flags] CODE...",
		flags: func(flagSet *pflag.FlagSet) {
			flagSet.BoolVar(&asJSON, "json", false, "print statuses as JSON")
		},
		run: func(ctx context.Context, env *environment, args []string) error {
			if len(args) == 0 {
				return usageError("status needs at least one code")
			}
			store, err := env.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			statuses := make([]chunk.Status, 0, len(args))
			for _, code := range args {
				status, err := store.Status(ctx, code)
				if err != nil {
					return err
				}
				statuses = append(statuses, status)
			}
			return env.printStatuses(statuses, asJSON)
		},
	}
}

func forgetCommand() *command {
	return &command{
		name:    "forget",
		summary: "drop codes and their artifacts from the chunk store",
		usage:   "truthqr forget [flags] CODE...",
		run: func(ctx context.Context, env *environment, args []string) error {
			if len(args) == 0 {
				return usageError("forget needs at least one code")
			}
			store, err := env.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			for _, code := range args {
				if err := store.Forget(ctx, code); err != nil {
					return err
				}
				env.logger.Info("forgot code", "code", code)
			}
			return nil
		},
	}
}

// expiryPurger is implemented by stores whose expiry is lazy.
type expiryPurger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

func purgeCommand() *command {
	return &command{
		name:    "purge",
		summary: "delete expired sets from a sqlite store",
		usage:   "truthqr purge [flags]",
		run: func(ctx context.Context, env *environment, args []string) error {
			if len(args) > 0 {
				return usageError("purge takes no arguments")
			}
			store, err := env.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			purger, ok := store.(expiryPurger)
			if !ok {
				return usageError("purge requires the sqlite backend (%s sets expire on their own)", env.config.Store.Backend)
			}
			purged, err := purger.PurgeExpired(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(env.stdout, "purged %d expired sets\n", purged)
			return nil
		},
	}
}

// readInput returns the contents of the single file argument, or of
// stdin when there is none or it is "-".
func (env *environment) readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(env.stdin)
	}
	return os.ReadFile(args[0])
}

// scanLines calls visit for every non-blank line of the input named by
// args (stdin when empty or "-"). Surrounding whitespace is trimmed.
func (env *environment) scanLines(args []string, visit func(line string) error) error {
	input := env.stdin
	if len(args) > 0 && args[0] != "-" {
		file, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer file.Close()
		input = file
	}

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 64*1024), maxLineLength)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := visit(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading lines: %w", err)
	}
	return nil
}

func (env *environment) printStatuses(statuses []chunk.Status, asJSON bool) error {
	if asJSON {
		return writeJSON(env.stdout, statuses)
	}
	writer := tabwriter.NewWriter(env.stdout, 2, 0, 3, ' ', 0)
	fmt.Fprintf(writer, "CODE\tKIND\tRECEIVED\tMISSING\n")
	for _, status := range statuses {
		if status.Total == 0 {
			fmt.Fprintf(writer, "%s\t-\tunknown\t-\n", status.Code)
			continue
		}
		missing := "-"
		if len(status.Missing) > 0 {
			missing = strings.Trim(fmt.Sprint(status.Missing), "[]")
		}
		kind := status.Kind
		if kind == "" {
			kind = "-"
		}
		fmt.Fprintf(writer, "%s\t%s\t%d/%d\t%s\n", status.Code, kind, status.Received, status.Total, missing)
	}
	return writer.Flush()
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		return fmt.Errorf("writing JSON output: %w", err)
	}
	return nil
}
