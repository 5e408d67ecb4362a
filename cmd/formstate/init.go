package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vango-dev/formstate/internal/config"
	"github.com/vango-dev/formstate/internal/errors"
)

const exampleSchema = `id: contact
title: Contact us
fields:
  - name: name
    kind: text
    rules:
      - {rule: required, message: "Please tell us your name"}
  - name: email
    kind: email
    rules: [required]
  - name: message
    kind: textarea
    rules:
      - required
      - {rule: maxLength, value: 2000}
  - name: newsletter
    kind: checkbox
    default: false
`

func initCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create formstate.json and an example schema",
		Long: `Create a formstate.json with default settings and an example
contact form schema in the schema directory.

Examples:
  formstate init
  formstate init deploy --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing files")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	out := cmd.OutOrStdout()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	configPath := filepath.Join(dir, config.ConfigFileName)
	if err := checkWritable(configPath, force); err != nil {
		return err
	}
	cfg := config.New()
	if err := cfg.SaveTo(configPath); err != nil {
		return err
	}
	success(out, "Created %s", configPath)

	schemaPath := filepath.Join(cfg.SchemasPath(), "contact.yaml")
	if err := checkWritable(schemaPath, force); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(schemaPath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(schemaPath, []byte(exampleSchema), 0644); err != nil {
		return err
	}
	success(out, "Created %s", schemaPath)

	info(out, "Run 'formstate serve --config %s' to start the server", configPath)
	return nil
}

func checkWritable(path string, force bool) error {
	if force {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return errors.New("F162").WithDetail(path)
	}
	return nil
}
