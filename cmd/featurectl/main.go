/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// featurectl inspects feature datasets and publishes their manifests to the
// DynamoDB dataset catalog.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/joho/godotenv"

	"github.com/suparena/featureloader"
	"github.com/suparena/featureloader/datastore/ddb"
	"github.com/suparena/featureloader/storagemodels"
	"github.com/suparena/featureloader/tfrecord"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	vFlag       = flag.Bool("v", false, "Show version information (short)")
	dataDir     = flag.String("data", ".", "Dataset directory holding "+featureloader.SchemaFile)
	mode        = flag.String("mode", "data_train", "Dataset mode (subdirectory of record files)")
	compression = flag.String("compression", "", "Record compression: GZIP, ZLIB or empty")
	envFile     = flag.String("env", "", "Optional .env file with catalog credentials")
	debug       = flag.Bool("debug", false, "Enable debug logging")
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: featurectl [flags] <command>

Commands:
  inspect   print the schema and record files of a dataset
  manifest  print the dataset manifest as JSON
  publish   store the dataset manifest in the catalog table
  history   list published manifests of the dataset

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *versionFlag || *vFlag {
		info := featureloader.GetVersionInfo()
		fmt.Printf("featurectl version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		os.Exit(0)
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
	if *debug {
		logger = level.NewFilter(logger, level.AllowDebug())
	} else {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, flag.Arg(0), logger); err != nil {
		level.Error(logger).Log("msg", "command failed", "command", flag.Arg(0), "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, logger log.Logger) error {
	c, err := tfrecord.ParseCompression(*compression)
	if err != nil {
		return err
	}
	reader, err := featureloader.New(*dataDir, featureloader.WithLogger(logger), featureloader.WithCompression(c))
	if err != nil {
		return err
	}

	switch command {
	case "inspect":
		return inspect(ctx, reader)
	case "manifest":
		m, err := reader.Manifest(ctx, *mode)
		if err != nil {
			return err
		}
		return printJSON(m)
	case "publish":
		store, err := catalog(ctx, logger)
		if err != nil {
			return err
		}
		m, err := reader.Publish(ctx, store, *mode)
		if err != nil {
			return err
		}
		fmt.Println(m.ID)
		return nil
	case "history":
		store, err := catalog(ctx, logger)
		if err != nil {
			return err
		}
		manifests, err := store.Query(ctx, storagemodels.ManifestsByDataDir(reader.DataDir(), *mode))
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMODE\tFILES\tRECORDS\tCREATED")
		for _, m := range manifests {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", m.ID, m.Mode, len(m.Files), m.Records, m.CreatedAt)
		}
		return w.Flush()
	}
	return fmt.Errorf("unknown command %q", command)
}

func inspect(ctx context.Context, reader *featureloader.DataReader) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tKIND\tDESCRIPTION")
	for _, f := range reader.Features().All() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", f.Key(), f.Kind(), f.Description())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	m, err := reader.Manifest(ctx, *mode)
	if err != nil {
		return err
	}
	fmt.Printf("\n%s: %d files, %d records\n", *mode, len(m.Files), m.Records)
	for _, f := range m.Files {
		fmt.Printf("  %s\t%d\n", f.Name, f.Records)
	}
	return nil
}

// catalog opens the manifest table named by AWS_DDB_TABLE.
func catalog(ctx context.Context, logger log.Logger) (*ddb.DynamodbDataStore[storagemodels.DatasetManifest], error) {
	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", *envFile, err)
		}
	} else if err := godotenv.Load(); err == nil {
		level.Debug(logger).Log("msg", "loaded .env")
	}

	table := os.Getenv("AWS_DDB_TABLE")
	if table == "" {
		return nil, fmt.Errorf("AWS_DDB_TABLE is not set")
	}
	return ddb.NewDynamodbDataStore[storagemodels.DatasetManifest](ctx,
		os.Getenv("AWS_ACCESS_KEY"), os.Getenv("AWS_SECRET_KEY"), os.Getenv("AWS_REGION"), table)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
