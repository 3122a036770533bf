// Command seedtypes loads content type definitions from YAML files and
// upserts them into content_types. Definitions are validated with the same
// parser the worker uses, so a file that seeds successfully is guaranteed to
// load at generation time.
//
// Usage:
//
//	seedtypes -dir ./contenttypes
//	seedtypes -file ./contenttypes/ad-video.yaml
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"server/internal/contenttype"
	"server/internal/infra"
	"server/internal/sqlinline"
)

type typeFile struct {
	ID         string         `yaml:"id"`
	Name       string         `yaml:"name"`
	Category   string         `yaml:"category"`
	Version    int            `yaml:"version"`
	Definition map[string]any `yaml:"definition"`
}

func main() {
	dir := flag.String("dir", "", "directory of YAML content type definitions")
	file := flag.String("file", "", "single YAML content type definition")
	flag.Parse()

	if (*dir == "") == (*file == "") {
		fmt.Fprintln(os.Stderr, "usage: seedtypes -dir <directory> | -file <path>")
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		fatalf("load config: %v", err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		fatalf("connect database: %v", err)
	}
	defer pool.Close()
	runner := infra.NewSQLRunner(pool, logger)

	paths, err := collectPaths(*dir, *file)
	if err != nil {
		fatalf("%v", err)
	}
	if len(paths) == 0 {
		fatalf("no YAML files found")
	}

	for _, path := range paths {
		if err := seedFile(ctx, runner, path); err != nil {
			fatalf("%s: %v", path, err)
		}
		logger.Info().Str("file", path).Msg("seedtypes: upserted content type")
	}
}

func collectPaths(dir, file string) ([]string, error) {
	if file != "" {
		return []string{file}, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	return paths, nil
}

func seedFile(ctx context.Context, runner *infra.SQLRunner, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var tf typeFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return fmt.Errorf("decode yaml: %w", err)
	}
	if strings.TrimSpace(tf.ID) == "" {
		return fmt.Errorf("missing id")
	}
	if strings.TrimSpace(tf.Name) == "" {
		return fmt.Errorf("missing name")
	}
	if tf.Version < 1 {
		tf.Version = 1
	}

	definition, err := json.Marshal(tf.Definition)
	if err != nil {
		return fmt.Errorf("encode definition: %w", err)
	}
	// Reject files the generation pipeline would not be able to load.
	if _, err := contenttype.ParseDefinition(tf.ID, tf.Name, tf.Category, tf.Version, definition); err != nil {
		return err
	}

	_, err = runner.Exec(ctx, sqlinline.QUpsertContentType,
		tf.ID, tf.Name, tf.Category, tf.Version, definition)
	return err
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "seedtypes: "+format+"\n", args...)
	os.Exit(1)
}
