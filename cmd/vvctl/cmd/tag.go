package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"visionvault/internal/library"
)

func newTagCmd(opts *rootOptions) *cobra.Command {
	var name, tags, description string

	cmd := &cobra.Command{
		Use:   "tag <path>",
		Short: "Rename a file or change its tags",
		Long: `Change the name, tags or description of one file. Only the flags that
are given change; --tags untagged resets the file to untagged.

Examples:
  vvctl tag holiday/IMG_0001.jpg --tags "beach, sunset"
  vvctl tag holiday/IMG_0001.jpg --name sunset.jpg --description "Last evening"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u library.Update
			if cmd.Flags().Changed("name") {
				u.Name = &name
			}
			if cmd.Flags().Changed("tags") {
				u.Tags = &tags
			}
			if cmd.Flags().Changed("description") {
				u.Description = &description
			}
			if u.Name == nil && u.Tags == nil && u.Description == nil {
				return errors.New("nothing to change: give --name, --tags or --description")
			}

			return withEnv(opts, func(e *env) error {
				rec, err := e.lib.UpdateFile(args[0], u)
				if err != nil {
					return err
				}
				if opts.json {
					return writeJSON(cmd.OutOrStdout(), rec)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", rec.Key, orDash(rec.Tags), orDash(rec.Description))
				return err
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New file name in the same directory")
	cmd.Flags().StringVar(&tags, "tags", "", "Comma-separated tags")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	return cmd
}
