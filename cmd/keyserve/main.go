// Copyright 2025 The WordServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main runs the keyserve input method server and its debug CLI.

keyserve turns raw key presses into text with word suggestions,
auto-correction, sentence capitalization and automatic punctuation. The
keyboard UI starts it as a child process and talks MessagePack over
stdin/stdout; see package server for the protocol.

# Usage

Start the server with default settings:

	keyserve

Use a custom dictionary directory and enable debug logging:

	keyserve -dict /path/to/dictionaries -d

Type into an in-memory field interactively:

	keyserve -c -lang en

The dictionary directory holds one binary trie per language, named after
the language code, such as en.dict.

# Configuration

Settings live in a TOML file under the user config directory, created with
defaults on first run:

	[engine]
	max_suggestions = 4
	max_candidates = 10
	max_corrections = 1

	[session]
	suggest = true
	correct = true
	double_space_ms = 700
	layout = "qwerty"

	[server]
	max_input = 60
	dict_dir = "dictionaries"

Values with the wrong type fall back to their defaults one by one.

# Command Line Flags

	-d        Enable debug logging
	-c        Run the interactive CLI instead of the server
	-config   Path to a config file
	-dict     Dictionary directory (default from config)
	-lang     Language for the CLI (default "en")
	-limit    Words listed by the CLI "?" command
	-list     Load every dictionary, print a summary and exit
	-rebuild-config
	          Overwrite the config file with defaults and exit
	-version  Show the version
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastiangx/keyserve/internal/cli"
	"github.com/bastiangx/keyserve/internal/logger"
	"github.com/bastiangx/keyserve/internal/utils"
	"github.com/bastiangx/keyserve/pkg/config"
	"github.com/bastiangx/keyserve/pkg/dictionary"
	"github.com/bastiangx/keyserve/pkg/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.1.0-beta"
	gh      = "https://github.com/bastiangx/keyserve"
)

// sigHandler exits normally on interrupt. The server blocks on stdin, so
// there is nothing to unwind.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

func main() {
	sigHandler()

	showVersion := flag.Bool("version", false, "Show current version")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	configPath := flag.String("config", "", "Path to a custom config file")
	dictDir := flag.String("dict", "", "Directory containing the .dict files (default from config)")
	lang := flag.String("lang", "en", "Language the CLI types in")
	limit := flag.Int("limit", 20, "Number of words the CLI lists for '?'")
	rebuild := flag.Bool("rebuild-config", false, "Overwrite the config file with defaults and exit")
	list := flag.Bool("list", false, "Load every dictionary, print a summary and exit")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger.Configure(*debugMode)

	cfg, activePath := config.LoadConfigWithPriority(*configPath)
	log.Debugf("Using config: %s", config.ActivePath(activePath))

	if *rebuild {
		if activePath == "" {
			log.Fatal("No config file to rebuild")
		}
		if err := config.RebuildConfigFile(activePath); err != nil {
			log.Fatalf("Failed to rebuild config: %v", err)
		}
		log.Printf("Rebuilt %s with defaults", activePath)
		return
	}

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}

	log.Debugf("Executable dir: %s", pathResolver.ExecutableDir())

	dir := cfg.Server.DictDir
	if *dictDir != "" {
		dir = *dictDir
	}
	resolvedDictDir := pathResolver.DictionaryDir(dir, "*"+dictionary.FileExtension)
	log.Debugf("Using dictionary dir at: %s", resolvedDictDir)

	if *list {
		if err := listDictionaries(resolvedDictDir); err != nil {
			log.Fatalf("Listing dictionaries: %v", err)
		}
		return
	}

	if *cliMode {
		handler := cli.NewInputHandler(cfg, resolvedDictDir, *lang, *limit)
		if err := handler.Start(); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	srv := server.NewStdioServer(cfg, resolvedDictDir)
	showStartupInfo(resolvedDictDir)
	if err := srv.Start(context.Background()); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

func printVersion() {
	banner := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	banner.SetStyles(styles)

	banner.Print("")
	banner.Print("[ keyserve ] Predictive text for on-screen keyboards")
	banner.Print("", "version", Version)
	banner.Print("")
	banner.Print("use -h or --help to see available options")
	banner.Print("Github Repo", "gh", gh)
}

// showStartupInfo goes to stderr; stdout carries the protocol.
func showStartupInfo(dictDir string) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)
	defer log.SetLevel(currentLevel)

	log.Infof("keyserve %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("dictionary dir: ( %s )", dictDir)
	log.Info("status: ready")
}

// listDictionaries fully loads each dictionary so broken tries show up
// before a keyboard hits them.
func listDictionaries(dir string) error {
	langs, err := dictionary.NewCatalog(dir).Languages()
	if err != nil {
		return err
	}
	if len(langs) == 0 {
		log.Warnf("No dictionaries in %s", dir)
		return nil
	}
	for _, lang := range langs {
		dict, err := dictionary.LoadFile(lang.Filename)
		if err != nil {
			log.Errorf("%s: %v", lang.Language, err)
			continue
		}
		idx, err := dictionary.NewIndex(dict)
		if err != nil {
			log.Errorf("%s: %v", lang.Language, err)
			continue
		}
		log.Print(lang.Language, "words", idx.Len(), "chars", lang.Chars,
			"max_len", lang.MaxWordLength, "bytes", lang.Size)
	}
	return nil
}
