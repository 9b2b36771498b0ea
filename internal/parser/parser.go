package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	vkerrors "vagrantkit/internal/errors"
	"vagrantkit/pkg/kitchen"
)

const (
	// DefaultKitchenFile is read when neither a path nor KITCHEN_YAML is given.
	DefaultKitchenFile = ".kitchen.yml"

	// DefaultLocalKitchenFile is merged over the kitchen file when present.
	DefaultLocalKitchenFile = ".kitchen.local.yml"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// KitchenFilePath resolves the kitchen file to read: the explicit path,
// then $KITCHEN_YAML, then .kitchen.yml in the working directory.
func KitchenFilePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("KITCHEN_YAML"); env != "" {
		return env
	}
	return DefaultKitchenFile
}

// Parse reads and validates a kitchen file, merging the local override file
// that sits next to it.
func Parse(filePath string) (*kitchen.File, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, vkerrors.NewKitchenFileError(
			fmt.Sprintf("Failed to locate kitchen file %s", filePath),
			"The file does not exist",
			"Create a .kitchen.yml or point --file or KITCHEN_YAML at one",
			fmt.Errorf("kitchen file not found: %s", filePath),
		)
	}

	// Config bags carry dotted keys such as "vm.boot_timeout".
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(filePath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, vkerrors.NewParseError(
			fmt.Sprintf("Failed to read kitchen file %s", filePath),
			err.Error(),
			"Check the YAML syntax",
			fmt.Errorf("failed to read kitchen file: %w", err),
		)
	}

	localPath := localFilePath(filePath)
	if _, err := os.Stat(localPath); err == nil {
		v.SetConfigFile(localPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, vkerrors.NewParseError(
				fmt.Sprintf("Failed to read local kitchen file %s", localPath),
				err.Error(),
				"Check the YAML syntax",
				fmt.Errorf("failed to merge local kitchen file: %w", err),
			)
		}
	}

	var kf kitchen.File
	if err := v.Unmarshal(&kf); err != nil {
		return nil, vkerrors.NewParseError(
			fmt.Sprintf("Failed to parse kitchen file %s", filePath),
			err.Error(),
			"Check that driver, provisioner and verifier are mappings and platforms and suites are lists",
			fmt.Errorf("failed to parse kitchen file - malformed YAML: %w", err),
		)
	}

	if err := validate.Struct(&kf); err != nil {
		verr := formatValidationError(err)
		return nil, vkerrors.NewConfigError(
			fmt.Sprintf("Invalid kitchen file %s", filePath),
			verr.Error(),
			"",
			verr,
		)
	}

	root, err := filepath.Abs(filepath.Dir(filePath))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve kitchen root: %w", err)
	}
	kf.Root = root

	return &kf, nil
}

// DecodeBag decodes a configuration bag into out and validates the result.
// Scalars are weakly typed so "true" and "8080" decode into bool and int fields.
func DecodeBag(bag kitchen.Bag, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to create config decoder: %w", err)
	}

	if err := decoder.Decode(map[string]interface{}(bag)); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := validate.Struct(out); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func localFilePath(filePath string) string {
	name := os.Getenv("KITCHEN_LOCAL_YAML")
	if name == "" {
		name = DefaultLocalKitchenFile
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(filepath.Dir(filePath), name)
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var errorMessages []string
		for _, e := range validationErrors {
			errorMessages = append(errorMessages, formatFieldError(e))
		}

		if len(errorMessages) == 1 {
			return fmt.Errorf("validation error: %s", errorMessages[0])
		}

		var b strings.Builder
		b.WriteString("validation errors:\n")
		for _, msg := range errorMessages {
			fmt.Fprintf(&b, "  - %s\n", msg)
		}
		return fmt.Errorf("%s", b.String())
	}
	return fmt.Errorf("validation failed: %w", err)
}

// formatFieldError formats a single validation error into a user-friendly message.
func formatFieldError(e validator.FieldError) string {
	field := e.Field()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("field '%s' is required but missing", field)
	case "min":
		return fmt.Sprintf("field '%s' must have at least %s entries", field, e.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", field, e.Param())
	case "eq":
		return fmt.Sprintf("field '%s' must be %s", field, e.Param())
	default:
		return fmt.Sprintf("field '%s' failed validation (%s)", field, tag)
	}
}
