package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/ajoealex/data-bucket-ui/pkg/api"
	"github.com/ajoealex/data-bucket-ui/pkg/cliconfig"
	"github.com/ajoealex/data-bucket-ui/pkg/descriptor"
	"github.com/ajoealex/data-bucket-ui/pkg/registry"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List buckets on the connected server",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, conn, err := activeConnection()
		if err != nil {
			return err
		}

		reg := registry.New(c, registry.WithLogger(newLogger()))
		buckets, err := reg.Refresh(cmd.Context())
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(buckets)
		}

		if len(buckets) == 0 {
			fmt.Println("No buckets yet - create one with 'databucket create'")
			return nil
		}
		printBucketsTable(buckets, conn.ServerURL)
		return nil
	},
}

var (
	bucketName   string
	bucketType   string
	bucketBody   string
	bucketStatus string
)

func addDescriptorFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&bucketName, "name", "", "Bucket name")
	cmd.Flags().StringVar(&bucketType, "type", "", "Mock response type (json, xml, text)")
	cmd.Flags().StringVar(&bucketBody, "body", "", "Mock response body")
	cmd.Flags().StringVar(&bucketStatus, "status", "", "Mock status code")
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a bucket with a configurable mock response",
	Long: `Create validates the descriptor locally (name uniqueness, response type,
JSON well-formedness, status code) before anything is sent to the server.
Without flags an interactive form is shown.`,
	Example: `  databucket create --name orders --type json --body '{"ok": true}' --status 201
  databucket create`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, conn, err := activeConnection()
		if err != nil {
			return err
		}

		reg := registry.New(c, registry.WithLogger(newLogger()))
		existing, err := reg.Refresh(cmd.Context())
		if err != nil {
			return err
		}

		name, respType, body, status := bucketName, bucketType, bucketBody, bucketStatus
		if name == "" {
			if err := promptDescriptorForm(&name, &respType, &body, &status); err != nil {
				return err
			}
		} else {
			applyDescriptorDefaults(&respType, &body, &status)
		}

		v := descriptor.Validator{MaxBuckets: cliconfig.DefaultMaxBuckets}
		normalized, err := v.Validate(name, respType, body, status, existing, "")
		if err != nil {
			return describeValidationError(err)
		}

		id, err := reg.Create(cmd.Context(), normalized.Bucket())
		if err != nil {
			return err
		}

		fmt.Printf("Created bucket %q\n", name)
		fmt.Printf("  ID:       %s\n", id)
		fmt.Printf("  Capture:  %s\n", api.CaptureURL(conn.ServerURL, id))
		return nil
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <bucket-id>",
	Short: "Edit a bucket's mock response configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		c, _, err := activeConnection()
		if err != nil {
			return err
		}

		reg := registry.New(c, registry.WithLogger(newLogger()))
		existing, err := reg.Refresh(cmd.Context())
		if err != nil {
			return err
		}
		current, ok := existing[id]
		if !ok {
			return fmt.Errorf("bucket not found: %s (check the ID with 'databucket list')", id)
		}

		name, respType, body, status := bucketName, bucketType, bucketBody, bucketStatus
		if name == "" && respType == "" && body == "" && status == "" {
			name, respType, body, status = prefillDescriptor(current)
			if err := promptEditForm(&name, &respType, &body, &status); err != nil {
				return err
			}
		} else {
			prefName, prefType, prefBody, prefStatus := prefillDescriptor(current)
			if name == "" {
				name = prefName
			}
			if respType == "" {
				respType = prefType
			}
			if body == "" {
				body = descriptor.BodyForTypeSwitch(prefType, respType, prefBody)
			}
			if status == "" {
				status = prefStatus
			}
		}

		v := descriptor.Validator{}
		normalized, err := v.Validate(name, respType, body, status, existing, id)
		if err != nil {
			return describeValidationError(err)
		}

		if err := reg.Update(cmd.Context(), id, normalized.Bucket()); err != nil {
			return err
		}
		fmt.Printf("Updated bucket %s\n", id)
		return nil
	},
}

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete <bucket-id>",
	Short: "Delete a bucket and everything it captured",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]

		c, _, err := activeConnection()
		if err != nil {
			return err
		}

		opts := []registry.Option{registry.WithLogger(newLogger())}
		if !deleteYes {
			opts = append(opts, registry.WithConfirm(confirmPrompt))
		}
		reg := registry.New(c, opts...)

		if err := reg.Delete(cmd.Context(), id); err != nil {
			if errors.Is(err, registry.ErrDeclined) {
				fmt.Println("Aborted")
				return nil
			}
			return err
		}
		fmt.Printf("Deleted bucket %s\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
	addDescriptorFlags(createCmd)
	addDescriptorFlags(editCmd)
	deleteCmd.Flags().BoolVar(&deleteYes, "yes", false, "Skip the confirmation prompt")
}

// applyDescriptorDefaults fills unset flag values the way the dashboard's
// create modal does.
func applyDescriptorDefaults(respType, body, status *string) {
	if *respType == "" {
		*respType = api.ResponseTypeJSON
	}
	if *body == "" {
		*body = descriptor.DefaultBody(*respType)
	}
	if *status == "" {
		*status = "200"
	}
}

// prefillDescriptor renders a bucket's current configuration back into
// editable form values.
func prefillDescriptor(b *api.Bucket) (name, respType, body, status string) {
	name = b.Name
	respType = b.MockResponseType
	if respType == "" {
		respType = api.ResponseTypeJSON
	}
	body = bodyString(b.MockResponse, respType)
	status = strconv.Itoa(b.MockStatusCode)
	if b.MockStatusCode == 0 {
		status = "200"
	}
	return name, respType, body, status
}

// promptDescriptorForm runs the interactive create flow: name and type
// first, then the body prefilled with the type's placeholder.
func promptDescriptorForm(name, respType, body, status *string) error {
	*respType = api.ResponseTypeJSON
	*status = "200"
	if err := huh.NewForm(huh.NewGroup(
		nameInput(name),
		typeSelect(respType),
	)).Run(); err != nil {
		return err
	}

	*body = descriptor.DefaultBody(*respType)
	return huh.NewForm(huh.NewGroup(
		bodyText(body, *respType),
		statusInput(status),
	)).Run()
}

// promptEditForm runs the interactive edit flow. Switching the response type
// resets the body only while it is still the previous type's untouched
// placeholder.
func promptEditForm(name, respType, body, status *string) error {
	prevType := *respType
	if err := huh.NewForm(huh.NewGroup(
		nameInput(name),
		typeSelect(respType),
	)).Run(); err != nil {
		return err
	}

	*body = descriptor.BodyForTypeSwitch(prevType, *respType, *body)
	return huh.NewForm(huh.NewGroup(
		bodyText(body, *respType),
		statusInput(status),
	)).Run()
}

func nameInput(name *string) *huh.Input {
	return huh.NewInput().
		Title("Bucket name").
		Placeholder("my-webhook-bucket").
		Value(name).
		Validate(func(s string) error {
			if s == "" {
				return errors.New("name is required")
			}
			return nil
		})
}

func typeSelect(respType *string) *huh.Select[string] {
	return huh.NewSelect[string]().
		Title("Mock response type").
		Options(
			huh.NewOption("JSON", api.ResponseTypeJSON),
			huh.NewOption("XML", api.ResponseTypeXML),
			huh.NewOption("Plain text", api.ResponseTypeText),
		).
		Value(respType)
}

func bodyText(body *string, respType string) *huh.Text {
	return huh.NewText().
		Title(fmt.Sprintf("Mock response body (%s)", respType)).
		Value(body)
}

func statusInput(status *string) *huh.Input {
	return huh.NewInput().
		Title("Mock status code").
		Placeholder("200").
		Value(status).
		Validate(func(s string) error {
			if _, err := strconv.Atoi(s); err != nil {
				return errors.New("status code must be an integer")
			}
			return nil
		})
}

// confirmPrompt is the synchronous yes/no gate used for destructive
// operations.
func confirmPrompt(prompt string) bool {
	var ok bool
	err := huh.NewConfirm().
		Title(prompt).
		Affirmative("Yes").
		Negative("No").
		Value(&ok).
		Run()
	return err == nil && ok
}

// describeValidationError keeps validator failures readable on the CLI.
func describeValidationError(err error) error {
	var dup *descriptor.DuplicateNameError
	var quota *descriptor.QuotaError
	switch {
	case errors.Is(err, descriptor.ErrInvalidJSON):
		return fmt.Errorf("%v - fix the body or switch the response type", err)
	case errors.As(err, &dup):
		return fmt.Errorf("%v - pick a different name", dup)
	case errors.As(err, &quota):
		return fmt.Errorf("%v - delete an unused bucket first", quota)
	default:
		return err
	}
}
