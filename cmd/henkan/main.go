// Copyright 2025 The henkan Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the henkan kana to kanji conversion server and its
interactive debugging shell.

henkan segments a kana reading into dictionary words, ranks every
segmentation by word and connection costs, and learns from the candidates the
user confirms. It runs as a MessagePack IPC server for input method front
ends, or as a line-oriented shell for testing.

# Usage

Start the server with the dictionaries named in the config file:

	henkan

Use explicit dictionaries and enable debug logging:

	henkan -sys /usr/share/henkan/dict -add ~/my.tsv -d

Run the interactive shell:

	henkan -c

Compile a text dictionary to the binary format:

	henkan -compile words.tsv words.bin

Print the learned dictionary file names (for backup or deletion scripts):

	henkan -names

# Dictionaries

A system path is either a dictionary file or a directory holding dictionary
files and an optional matrix.def connection matrix. Text dictionaries have one
entry per line:

	reading<TAB>surface<TAB>left<TAB>right<TAB>cost[<TAB>value]

# Configuration

The config file is created with defaults if it doesn't exist:

	[engine]
	ambiguous_search = false
	use_input_as_top_candidate = false

	[dict]
	system_paths = ["dict"]

	[learn]
	step = 200

	[server]
	max_candidates = 20

The [server] section is reloaded while the server runs.

# Command Line Flags

	-sys path       System dictionary path, repeatable (default from config)
	-add path       Additional dictionary path, repeatable
	-learn dir      Learned dictionary directory
	-config file    Config file path
	-ambiguous      Match readings that differ in voicing marks or small kana
	-d              Enable debug logging
	-c              Run the interactive shell instead of the server
	-names          Print learned dictionary file names and exit
	-compile in     Compile a text dictionary to the binary file given as the next argument
	-version        Show the version
*/
package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/bastiangx/henkan/internal/cli"
	"github.com/bastiangx/henkan/internal/logger"
	"github.com/bastiangx/henkan/internal/utils"
	"github.com/bastiangx/henkan/pkg/config"
	"github.com/bastiangx/henkan/pkg/dictionary"
	"github.com/bastiangx/henkan/pkg/engine"
	"github.com/bastiangx/henkan/pkg/server"
)

const (
	Version = "0.1.0"
	gh      = "https://github.com/bastiangx/henkan"
)

// pathList is a repeatable, comma separated path flag.
type pathList []string

func (p *pathList) String() string {
	return strings.Join(*p, ",")
}

func (p *pathList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*p = append(*p, part)
		}
	}
	return nil
}

// sigHandler flushes the learned dictionary and exits on SIGINT/SIGTERM.
func sigHandler(cleanup func()) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		cleanup()
		os.Exit(0)
	}()
}

// main only manages the flow; the work lives in the engine, server and cli packages.
func main() {
	var sysPaths, addPaths pathList
	flag.Var(&sysPaths, "sys", "System dictionary file or directory (repeatable)")
	flag.Var(&addPaths, "add", "Additional dictionary file or directory (repeatable)")
	learnDir := flag.String("learn", "", "Learned dictionary directory")
	configFile := flag.String("config", "", "Path to a custom config file")
	ambiguous := flag.Bool("ambiguous", false, "Match readings that differ in voicing marks or small kana")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run the interactive shell, useful for testing and debugging")
	showNames := flag.Bool("names", false, "Print learned dictionary file names and exit")
	compileIn := flag.String("compile", "", "Compile this text dictionary to the binary file named by the next argument")
	showVersion := flag.Bool("version", false, "Show current version")
	flag.Parse()

	logger.SetDebug(*debugMode)

	if *showVersion {
		printVersion()
		return
	}
	if *showNames {
		for _, name := range engine.LearnedNames() {
			fmt.Println(name)
		}
		return
	}
	if *compileIn != "" {
		if err := compile(*compileIn, flag.Arg(0)); err != nil {
			log.Fatalf("Compile failed: %v", err)
		}
		return
	}

	cfg, configPath, err := config.LoadConfigWithPriority(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(configPath))

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Error("Either env is not set or system is not supported")
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}

	if len(sysPaths) == 0 {
		sysPaths = cfg.Dict.SystemPaths
	}
	resolved := make([]string, len(sysPaths))
	for i, p := range sysPaths {
		resolved[i] = p
		if !utils.FileExists(p) {
			resolved[i] = pathResolver.GetDictDir(p)
		}
	}
	if *learnDir == "" {
		*learnDir = cfg.Dict.LearnDir
	}
	dir := pathResolver.GetLearnDir(*learnDir)

	opts := cfg.EngineOptions()
	opts.AdditionalDictPaths = append(opts.AdditionalDictPaths, addPaths...)
	opts.AmbiguousSearch = opts.AmbiguousSearch || *ambiguous

	log.Debug("Loading dictionaries", "system", resolved, "additional", opts.AdditionalDictPaths, "learn", dir)
	eng, err := engine.New(resolved, dir, opts)
	if err != nil {
		log.Fatalf("Failed to init engine: %v", err)
	}
	sigHandler(func() { eng.Close() })
	defer eng.Close()

	if *cliMode {
		log.SetReportTimestamp(false)
		inputHandler, err := cli.NewInputHandler(eng, cfg.CLI)
		if err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		if err := inputHandler.Start(); err != nil {
			log.Errorf("CLI error: %v", err)
		}
		return
	}

	srv := server.NewServer(eng, cfg.Server)
	if cfg.Server.WatchConfig && configPath != "" {
		watcher := config.NewWatcher(configPath, cfg)
		watcher.OnChange(func(c *config.Config) { srv.SetConfig(c.Server) })
		if err := watcher.Start(); err != nil {
			log.Warnf("Config hot reload disabled: %v", err)
		} else {
			defer watcher.Close()
			go func() {
				for err := range watcher.Errors() {
					log.Warn("Config reload failed", "error", err)
				}
			}()
		}
	}

	showStartupInfo(resolved, dir, eng.Stats())
	if err := srv.Start(); err != nil {
		log.Errorf("Server stopped: %v", err)
	}
}

// compile converts a text dictionary into the binary format.
func compile(in, out string) error {
	if out == "" {
		return fmt.Errorf("missing output path: henkan -compile in.tsv out.bin")
	}
	if dictionary.DetectFileFormat(out) != dictionary.FormatBinary {
		return fmt.Errorf("output %s must end in .bin", out)
	}
	entries, err := dictionary.LoadFile(in)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := dictionary.WriteBinary(&buf, entries); err != nil {
		return err
	}
	if err := utils.WriteFileAtomic(out, buf.Bytes()); err != nil {
		return err
	}
	log.Infof("Wrote %d entries to %s", len(entries), out)
	return nil
}

func printVersion() {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	l.SetStyles(styles)

	l.Print("")
	l.Print("[ henkan ] kana to kanji conversion")
	l.Print("", "version", Version)
	l.Print("")
	l.Print("use -h or --help to see available options")
	l.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process on stderr.
func showStartupInfo(dicts []string, learnDir string, stats map[string]int) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("==========")
	println("  henkan  ")
	println("==========")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("dictionaries: %v", dicts)
	log.Infof("learned dir: ( %s )", learnDir)
	log.Info("entries", "system", stats["system"], "additional", stats["additional"], "learned", stats["learned"])
	log.Info("status: ready")
	println("==========")

	log.SetLevel(currentLevel)
}
