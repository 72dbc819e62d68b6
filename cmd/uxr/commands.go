package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/starford/uxr/internal"
	"github.com/starford/uxr/internal/apperr"
	"github.com/starford/uxr/internal/markdown"
	"github.com/starford/uxr/internal/report"
	"github.com/starford/uxr/internal/reportservice"
	"github.com/starford/uxr/internal/session"
	"github.com/starford/uxr/internal/storage"
	pkgconfig "github.com/starford/uxr/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOrDefault(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// withCore opens the reports root and index for one-shot commands. Logs
// go to stderr so command output stays clean.
func withCore(ctx context.Context, cmd *cli.Command, fn func(*internal.Core) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	core, err := internal.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer core.Close()
	if err := core.Service.Sync(ctx); err != nil {
		logger.Warn("sync failed", slog.String("error", err.Error()))
	}
	return fn(core)
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP API, SSE stream and file watcher (default)",
		Action: serve,
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the report tools over MCP on stdin/stdout",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version))
		},
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Create a report with the default sections",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Report title"},
			&cli.StringFlag{Name: "author", Aliases: []string{"a"}, Usage: "Report author"},
			&cli.StringFlag{Name: "summary", Usage: "Summary paragraph"},
			&cli.StringFlag{Name: "category", Usage: "Category (added when new; defaults to the first category)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withCore(ctx, cmd, func(core *internal.Core) error {
				s := session.New(core.Service)
				if c := cmd.String("category"); c != "" {
					if err := s.SetCategory(ctx, c); err != nil {
						return err
					}
				}
				if err := s.Update(func(d *report.Document) error {
					d.Title = cmd.String("title")
					d.Author = cmd.String("author")
					d.Summary = cmd.String("summary")
					return nil
				}); err != nil {
					return err
				}
				res, err := s.Save(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.Root().Writer, res.Path)
				return nil
			})
		},
	}
}

func fmtCommand() *cli.Command {
	return &cli.Command{
		Name:      "fmt",
		Usage:     "Rewrite report files in canonical form",
		ArgsUsage: "<file>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "write", Aliases: []string{"w"}, Usage: "Write the result back instead of printing it"},
			&cli.BoolFlag{Name: "check", Usage: "Only report files that are not canonical"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return fmt.Errorf("fmt: at least one file is required")
			}
			out := cmd.Root().Writer
			var unformatted []string
			for _, file := range cmd.Args().Slice() {
				data, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("fmt: %w", err)
				}
				formatted := canonical(string(data), time.Now())
				switch {
				case cmd.Bool("check"):
					if formatted != string(data) {
						unformatted = append(unformatted, file)
						fmt.Fprintln(out, file)
					}
				case cmd.Bool("write"):
					if formatted != string(data) {
						abs, err := filepath.Abs(file)
						if err != nil {
							return fmt.Errorf("fmt: %w", err)
						}
						if err := storage.WriteAtomic(abs, []byte(formatted)); err != nil {
							return fmt.Errorf("fmt: %w", err)
						}
					}
				default:
					_, _ = io.WriteString(out, formatted)
				}
			}
			if len(unformatted) > 0 {
				return fmt.Errorf("fmt: %d file(s) not canonical", len(unformatted))
			}
			return nil
		},
	}
}

// canonical re-encodes a report file. The front-matter date is kept when it
// parses; otherwise today is used.
func canonical(text string, today time.Time) string {
	fm, _, _ := markdown.Split(text)
	date := today
	if d, err := time.Parse("2006-01-02", fm.Date); err == nil {
		date = d
	}
	return markdown.Encode(markdown.Decode(text, fm.Category), date)
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List reports, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "category", Usage: "Only reports in this category"},
			&cli.IntFlag{Name: "limit", Value: reportservice.ListLimit, Usage: "Maximum number of reports"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withCore(ctx, cmd, func(core *internal.Core) error {
				var (
					items []reportservice.ReportSummary
					err   error
				)
				limit := int(cmd.Int("limit"))
				if c := cmd.String("category"); c != "" {
					items, err = core.Service.ListCategory(ctx, c, limit)
				} else {
					items, err = core.Service.List(ctx, limit)
				}
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.Root().Writer, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "PATH\tDATE\tTITLE")
				for _, it := range items {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", it.Path, it.Date, it.Title)
				}
				return tw.Flush()
			})
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Copy a report out of the managed root",
		ArgsUsage: "<report path> [destination]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() == 0 {
				return fmt.Errorf("export: report path is required")
			}
			p, dest := cmd.Args().Get(0), cmd.Args().Get(1)
			return withCore(ctx, cmd, func(core *internal.Core) error {
				choose := promptChooser(cmd.Root().Reader, cmd.Root().ErrWriter)
				if dest != "" {
					choose = func(context.Context, string) (string, bool, error) { return dest, true, nil }
				}
				written, err := core.Service.Download(ctx, p, "", choose)
				if errors.Is(err, apperr.ErrCanceled) {
					fmt.Fprintln(cmd.Root().ErrWriter, "export canceled")
					return nil
				}
				if err != nil {
					return fmt.Errorf("export: %s", apperr.Message(err))
				}
				fmt.Fprintln(cmd.Root().Writer, written)
				return nil
			})
		},
	}
}

// promptChooser asks for a destination on in. An empty answer declines.
func promptChooser(in io.Reader, out io.Writer) reportservice.Chooser {
	return func(_ context.Context, suggested string) (string, bool, error) {
		fmt.Fprintf(out, "Export to [%s] (empty to cancel): ", suggested)
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", false, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return "", false, nil
		}
		return line, true, nil
	}
}
