package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/gookit/color"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/modman/internal/errors"
	"github.com/hpungsan/modman/internal/mod"
	"github.com/hpungsan/modman/internal/ops"
	"github.com/hpungsan/modman/internal/web"
)

// stdout is where command output goes; tests swap it.
var stdout io.Writer = os.Stdout

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *ops.Env) *cli.App {
	app := &cli.App{
		Name:    "modman",
		Usage:   "Balatro mod manager",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "Enable debug logging"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			listCmd(env),
			untrackedCmd(env),
			showCmd(env),
			installCmd(env),
			uninstallCmd(env),
			toggleCmd(env, "enable", true),
			toggleCmd(env, "disable", false),
			trackCmd(env),
			reindexCmd(env),
			serveCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

var listFlags = []cli.Flag{
	&cli.BoolFlag{Name: "refresh", Aliases: []string{"r"}, Usage: "Bypass the detection cache"},
	&cli.BoolFlag{Name: "table", Usage: "Print a coloured table instead of JSON"},
}

// listCmd creates the list command.
func listCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List every mod in the mods directory",
		Flags: listFlags,
		Action: func(c *cli.Context) error {
			output, err := ops.Detect(c.Context, env, ops.DetectInput{Refresh: c.Bool("refresh")})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("table") {
				return outputTable(stdout, output.Mods)
			}
			return outputJSON(output)
		},
	}
}

// untrackedCmd creates the untracked command.
func untrackedCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "untracked",
		Usage: "List mods that are not tracked",
		Flags: listFlags,
		Action: func(c *cli.Context) error {
			output, err := ops.Untracked(c.Context, env, ops.DetectInput{Refresh: c.Bool("refresh")})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("table") {
				return outputTable(stdout, output.Mods)
			}
			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one mod's details",
		ArgsUsage: "<name>",
		Action: func(c *cli.Context) error {
			output, err := ops.Show(c.Context, env, c.Args().First())
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// installCmd creates the install command.
func installCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "install",
		Usage:     "Install a mod from a zip, tar or tar.gz archive (\"-\" reads stdin)",
		ArgsUsage: "<archive|->",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Directory name for archives without a single top-level folder"},
			&cli.StringFlag{Name: "source", Usage: "URL or file name the archive came from"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("archive path is required"))
			}
			input := ops.InstallInput{
				File:   c.Args().First(),
				Source: c.String("source"),
				Name:   c.String("name"),
			}
			if input.File == "-" {
				if !stdinHasData() {
					return outputError(errors.NewInvalidRequest("archive must be piped via stdin"))
				}
				payload, err := readStdin(ops.MaxArchiveBytes)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.File = ""
				input.Payload = payload
			}

			output, err := ops.Install(c.Context, env, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// uninstallCmd creates the uninstall command.
func uninstallCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "uninstall",
		Usage:     "Remove a tracked mod",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "cascade", Aliases: []string{"c"}, Usage: "Also remove mods that depend on it"},
			&cli.BoolFlag{Name: "fail-fast", Usage: "Stop a cascade at the first failure"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Show what would be removed"},
		},
		Action: func(c *cli.Context) error {
			input := ops.UninstallInput{
				Name:    c.Args().First(),
				Cascade: c.Bool("cascade"),
				DryRun:  c.Bool("dry-run"),
			}
			if c.IsSet("fail-fast") {
				failFast := c.Bool("fail-fast")
				input.FailFast = &failFast
			}

			output, err := ops.Uninstall(c.Context, env, input)
			if err != nil {
				return outputError(err)
			}
			if err := outputJSON(output); err != nil {
				return err
			}
			if !output.Complete {
				return cli.Exit(fmt.Sprintf("%d mod(s) could not be removed", len(output.Failed)), 1)
			}
			return nil
		},
	}
}

// toggleCmd creates the enable and disable commands.
func toggleCmd(env *ops.Env, name string, enabled bool) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     strings.ToUpper(name[:1]) + name[1:] + " a mod",
		ArgsUsage: "<name>",
		Action: func(c *cli.Context) error {
			output, err := ops.SetEnabled(c.Context, env, ops.ToggleInput{Name: c.Args().First(), Enabled: enabled})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// trackCmd creates the track command.
func trackCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "track",
		Usage:     "Track untracked mods (all of them when no names are given)",
		ArgsUsage: "[names...]",
		Action: func(c *cli.Context) error {
			output, err := ops.Track(c.Context, env, ops.TrackInput{Names: c.Args().Slice()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// reindexCmd creates the reindex command.
func reindexCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "reindex",
		Usage: "Drop records of vanished mods and rescan",
		Action: func(c *cli.Context) error {
			output, err := ops.Reindex(c.Context, env)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the local web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8375, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			port := c.Int("port")
			if port < 1 || port > 65535 {
				return outputError(errors.NewInvalidRequest("port must be between 1 and 65535"))
			}
			srv := web.NewServer(env, Version, c.String("bind"), port)
			if err := web.Run(srv); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var modErr *errors.ModError
	if stderrors.As(err, &modErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", modErr.Code, modErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all of stdin, failing when it exceeds limit bytes.
func readStdin(limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("input exceeds %d bytes", limit)
	}
	return data, nil
}

// outputTable prints mods as an aligned, coloured table.
func outputTable(w io.Writer, mods []mod.Descriptor) error {
	if len(mods) == 0 {
		_, err := fmt.Fprintln(w, color.Gray.Sprint("no mods found"))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, color.Bold.Sprint("NAME\tID\tVERSION\tTRACKED\tSTATE"))
	for _, d := range mods {
		version := "-"
		if d.Version != nil {
			version = *d.Version
		}
		tracked := color.Gray.Sprint("no")
		if d.IsTracked {
			tracked = color.Cyan.Sprint("yes")
		}
		state := color.Red.Sprint("disabled")
		if d.Enabled {
			state = color.Green.Sprint("enabled")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", color.Cyan.Sprint(d.Name), d.ID, color.Yellow.Sprint(version), tracked, state)
	}
	return tw.Flush()
}
