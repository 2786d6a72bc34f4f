// enginectl is the maintenance CLI for engine deployments.
//
// Usage:
//
//	enginectl validate --catalog catalog.yaml   # lint a function catalog
//	enginectl config --config engine.yaml       # resolve and print config
//	enginectl version
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/agendo/engine/catalog"
	"github.com/agendo/engine/config"
	"github.com/agendo/engine/registry"
)

var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "validate":
		err = runValidate(os.Args[2:])
	case "config":
		err = runConfig(os.Args[2:])
	case "version":
		fmt.Printf("enginectl %s (%s)\n", Version, GitCommit)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`enginectl - engine maintenance commands

Commands:
  validate --catalog <path>   load a YAML function catalog and report problems
  config   --config <path>    resolve configuration and print the effective values
  version                     print version information`)
}

// runValidate loads a catalog the same way the engine does at start-up
// and reports what would be registered.
func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	catalogPath := fs.String("catalog", "catalog.yaml", "path to the YAML function catalog")
	verbose := fs.Bool("v", false, "log every registered function")
	if err := fs.Parse(args); err != nil {
		return err
	}

	provider, err := catalog.Load(*catalogPath)
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	if *verbose {
		logger, err = config.BuildLogger(config.LogConfig{Level: "info", Format: "console"})
		if err != nil {
			return err
		}
		defer logger.Sync() //nolint:errcheck
	}

	reg := registry.New(logger)
	domains := provider.Domains()
	registered := reg.LoadCatalog(provider, domains...)

	stats := reg.Stats()
	fmt.Printf("catalog ok: %d functions across %d domains\n", registered, len(stats.ByDomain))
	for domain, count := range stats.ByDomain {
		fmt.Printf("  %-20s %d\n", domain, count)
	}
	if stats.Deprecated > 0 {
		fmt.Printf("  deprecated: %d\n", stats.Deprecated)
	}
	return nil
}

// runConfig resolves defaults, file and environment overrides and prints
// the effective configuration as YAML.
func runConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	configPath := fs.String("config", "", "path to the engine config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.NewLoader().WithConfigPath(*configPath).Load()
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	os.Stdout.Write(out)
	return nil
}
