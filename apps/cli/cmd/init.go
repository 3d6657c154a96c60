package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitrun/packages/core/config"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a starter config and example document",
	Long: `Create .hitrun.yaml and example.http in the current directory.

Examples:
  hitrun init
  hitrun init --force`,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

const exampleDocument = `---
host: https://httpbin.org
---
###
---
id: post
description: echo a JSON body
---
POST /anything
Content-Type: application/json

{"name": "<%= .name %>"}

HTTP/1.1 200
Content-Type: application/json

{"json": {"name": "<%= .name %>"}}
###
---
needs: post
description: reuse a value from the post block
---
GET /anything/<%= .post.body.json.name %>

HTTP/1.1 200
`

func initCommand(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	configFile := filepath.Join(cwd, config.Filenames[0])
	exampleFile := filepath.Join(cwd, "example.http")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if _, err := os.Stat(f); err == nil {
				return fmt.Errorf("file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	cfg := config.DefaultConfig()
	cfg.Timeout = 30000
	cfg.Headers = map[string]string{"User-Agent": "hitrun/" + version}
	cfg.Vars = map[string]any{"name": "hitrun"}
	if err := cfg.Save(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.WriteFile(exampleFile, []byte(exampleDocument), 0o644); err != nil {
		return fmt.Errorf("failed to create example file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", exampleFile)

	fmt.Fprintln(cmd.OutOrStdout(), "\nRun it with: hitrun run example.http")
	return nil
}
