package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/treevolume/internal/version"
)

// Exit codes.
const (
	exitOK     = 0
	exitError  = 1
	exitFailed = 2 // -strict and at least one file failed
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run dispatches a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return exitError
	}

	command, rest := args[0], args[1:]
	env := &env{ctx: ctx, stdout: stdout, stderr: stderr}

	var err error
	switch command {
	case "convert":
		err = env.handleConvert(rest)
	case "extract":
		err = env.handleExtract(rest)
	case "volume":
		err = env.handleVolume(rest)
	case "pipeline":
		err = env.handlePipeline(rest)
	case "runs":
		err = env.handleRuns(rest)
	case "serve":
		err = env.handleServe(rest)
	case "migrate":
		err = env.handleMigrate(rest)
	case "version":
		fmt.Fprintf(stdout, "treevolume %s\n", version.String())
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return exitError
	}

	switch {
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errStrictFailures):
		return exitFailed
	case err != nil:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `treevolume - estimate tree wood volume from raycloud tree files

Usage: treevolume <command> [options]

Commands:
  convert    Convert raw x y z point dumps into point clouds (PLY or ASC)
  extract    Run the tree extraction tool on every point cloud in a directory
  volume     Compute the volume of every tree file in a directory
  pipeline   convert, extract and volume in one go
  runs       List stored volume runs, or the trees of one run
  serve      Serve the debug console over the results database
  migrate    Manage the results database schema (up, down, status, force)
  version    Show version
  help       Show this help message

Common Flags:
  -config <file>   JSON pipeline configuration; flags take precedence
  -workers <n>     Files processed concurrently (default: one per CPU)

Examples:
  treevolume convert -in scans/ -out clouds/
  treevolume extract -in clouds/ -timeout 20m
  treevolume volume -in clouds/ -csv volumes.csv -histogram volumes.png -save
  treevolume pipeline -in scans/ -work clouds/ -csv volumes.csv -strict
  treevolume runs -db treevolume.db

Run 'treevolume <command> -h' for the flags of a command.`)
}
