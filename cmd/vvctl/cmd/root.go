// Package cmd provides the vvctl commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"visionvault/internal/captioner"
	"visionvault/internal/hidden"
	"visionvault/internal/indexer"
	"visionvault/internal/library"
	"visionvault/internal/logging"
	"visionvault/internal/media"
	"visionvault/internal/startup"
	"visionvault/internal/tagstore"
	"visionvault/internal/tagsync"
	"visionvault/internal/workers"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	mediaDir   string
	logLevel   string
	json       bool
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd creates the root command for vvctl.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "vvctl",
		Short: "Maintain a VisionVault media tree from the command line",
		Long: `vvctl reads and updates the tag stores of a VisionVault media tree
directly. It takes the same root store lock as the server, so it is safe
to run while the server is up.

The media directory comes from --media-dir, VISIONVAULT_MEDIA_DIR,
MEDIA_DIR or the config file, in that order.`,
		Version:       startup.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.SetVersionTemplate("vvctl version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (YAML or TOML)")
	cmd.PersistentFlags().StringVarP(&opts.mediaDir, "media-dir", "d", "", "Media directory (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "Write JSON instead of text")

	cmd.AddCommand(newReindexCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newLsCmd(opts))
	cmd.AddCommand(newTagCmd(opts))
	cmd.AddCommand(newRmCmd(opts))
	cmd.AddCommand(newCaptionCmd(opts))
	cmd.AddCommand(newVerifyCmd(opts))
	cmd.AddCommand(newVersionCmd(opts))

	return cmd
}

// env is the set of components a command works with.
type env struct {
	cfg     *startup.Config
	coord   *tagsync.Coordinator
	scanner *media.Scanner
	lib     *library.Library
	idx     *indexer.Indexer
}

// openEnv loads the configuration and builds the stores on top of it.
func openEnv(opts *rootOptions) (*env, error) {
	level, ok := logging.ParseLevel(opts.logLevel)
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", opts.logLevel)
	}
	logging.SetLevel(level)

	cfg, err := startup.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.mediaDir != "" {
		if cfg.MediaDir, err = filepath.Abs(opts.mediaDir); err != nil {
			return nil, fmt.Errorf("resolving media directory: %w", err)
		}
	}
	workers.SetOverride(cfg.SweepWorkers)

	attr := hidden.OS()
	storeOpts := cfg.TagStoreOptions()
	storeOpts.Attribute = attr

	dirs, err := tagstore.NewDirStore(storeOpts)
	if err != nil {
		return nil, err
	}
	roots, err := tagstore.NewRootStore(cfg.MediaDir, storeOpts)
	if err != nil {
		return nil, err
	}
	coord := tagsync.New(roots, dirs, tagsync.Options{Attribute: attr})
	scanner := media.NewScanner(cfg.MediaDir, dirs, attr)

	libOpts := library.Options{UploadMaxBytes: cfg.UploadMaxBytes}
	if capt := captioner.New(cfg.CaptionerClientConfig()); capt.Enabled() {
		libOpts.Captioner = capt
	}

	return &env{
		cfg:     cfg,
		coord:   coord,
		scanner: scanner,
		lib:     library.New(scanner, coord, libOpts),
		idx:     indexer.New(scanner, coord, indexer.Options{}),
	}, nil
}

// Close releases the root store lock.
func (e *env) Close() error {
	return e.coord.Close()
}

// withEnv opens the environment for the duration of fn.
func withEnv(opts *rootOptions, fn func(e *env) error) error {
	e, err := openEnv(opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := e.Close(); cerr != nil {
			logging.Warn("Failed to release root store lock: %v", cerr)
		}
	}()
	return fn(e)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
