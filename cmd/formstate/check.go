package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/formstate/internal/errors"
	"github.com/vango-dev/formstate/pkg/form"
	"github.com/vango-dev/formstate/pkg/schema"
)

func checkCmd() *cobra.Command {
	var (
		schemaFile string
		valuesFile string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a values file against a form schema",
		Long: `Validate form values against a schema, the way a submit would.

The values file is a JSON or YAML object keyed by field name. Fields
missing from it take their schema default. Async validators are not
available from the command line; only schema rules are checked.

Exits with status 1 when any field is invalid.

Examples:
  formstate check --schema forms/signup.yaml --values signup.json
  formstate check -s forms/contact.yaml -v contact.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return runCheck(ctx, cmd, schemaFile, valuesFile)
		},
	}

	cmd.Flags().StringVarP(&schemaFile, "schema", "s", "", "Form schema file (YAML or JSON)")
	cmd.Flags().StringVarP(&valuesFile, "values", "v", "", "Values file (JSON or YAML)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Maximum validation time")
	cmd.MarkFlagRequired("schema")
	cmd.MarkFlagRequired("values")

	return cmd
}

func runCheck(ctx context.Context, cmd *cobra.Command, schemaFile, valuesFile string) error {
	sch, err := schema.LoadFile(schemaFile)
	if err != nil {
		return err
	}
	values, err := readValuesFile(valuesFile, sch)
	if err != nil {
		return err
	}

	f, err := sch.NewForm(
		form.WithValidateOnChange(false),
		form.WithValidateOnBlur(false),
		form.WithInitialValues(values),
	)
	if err != nil {
		return err
	}
	defer f.Close()

	valid, err := f.Validate(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if valid {
		success(out, "%s: %d fields valid", sch.ID, len(f.Fields()))
		return nil
	}

	problems := f.Errors()
	names := make([]string, 0, len(problems))
	for name, msg := range problems {
		if msg != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		errorMsg(out, "%s: %s", name, problems[name])
	}
	return errors.New("F161").
		WithDetail(valuesFile + " has " + plural(len(names), "invalid field"))
}

// readValuesFile decodes a values file and coerces each entry to the kind
// of its field. Unknown fields are rejected.
func readValuesFile(path string, sch *schema.Schema) (form.Values, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("F160").WithDetail(path).Wrap(err)
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &raw)
	default:
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, errors.New("F160").WithDetail(path).Wrap(err)
	}

	values := make(form.Values, len(raw))
	for name, v := range raw {
		kind, ok := sch.Kind(name)
		if !ok {
			return nil, errors.New("F160").
				WithDetail(path + ": unknown field " + name).
				WithSuggestion("Fields of " + sch.ID + ": " + strings.Join(sch.FieldNames(), ", "))
		}
		cv, err := kind.Coerce(v)
		if err != nil {
			return nil, errors.New("F160").WithDetail(path + ": field " + name).Wrap(err)
		}
		values[name] = cv
	}
	return values, nil
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
