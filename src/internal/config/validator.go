package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidateConfig validates the entire configuration and returns all validation errors
func (c *Config) ValidateConfig() error {
	var validationErrors ValidationErrors

	if c.General == nil {
		validationErrors = append(validationErrors, ValidationError{
			FieldPath: "general",
			Message:   "configuration must contain 'general' section",
		})
	} else {
		if err := validate.Struct(c.General); err != nil {
			validationErrors = append(validationErrors, convertValidatorErrors(err, "general", "")...)
		}
		if c.General.SQLPropertiesFile != "" {
			validationErrors = append(validationErrors, checkFileExists(c.GetAbsSQLPropertiesFile(), "general.sql_properties_file", "")...)
		}
	}

	if c.ConfigStore == nil {
		validationErrors = append(validationErrors, ValidationError{
			FieldPath: "config_store",
			Message:   "configuration must contain 'config_store' section",
		})
	} else if err := validate.Struct(c.ConfigStore); err != nil {
		validationErrors = append(validationErrors, convertValidatorErrors(err, "config_store", "")...)
	}

	validationErrors = append(validationErrors, c.validateConnections()...)
	validationErrors = append(validationErrors, c.validateHosts()...)
	validationErrors = append(validationErrors, c.validateSSH()...)
	validationErrors = append(validationErrors, c.validateEncodings()...)

	if c.DNS != nil {
		if err := validate.Struct(c.DNS); err != nil {
			validationErrors = append(validationErrors, convertValidatorErrors(err, "dns", "")...)
		}
	}

	if len(validationErrors) > 0 {
		return validationErrors
	}

	return nil
}

func (c *Config) validateConnections() ValidationErrors {
	var validationErrors ValidationErrors
	seenNames := make(map[string]bool)

	for i, conn := range c.Connections {
		itemName := conn.Name
		if itemName == "" {
			itemName = fmt.Sprintf("connection[%d]", i)
		}

		if err := validate.Struct(conn); err != nil {
			validationErrors = append(validationErrors, convertValidatorErrors(err, fmt.Sprintf("connection.%d", i), itemName)...)
		}

		if seenNames[conn.Name] {
			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: "name",
				Message:   fmt.Sprintf("duplicate connection name: %s", conn.Name),
			})
		}
		seenNames[conn.Name] = true
	}

	return validationErrors
}

func (c *Config) validateHosts() ValidationErrors {
	var validationErrors ValidationErrors
	seenCodes := make(map[string]bool)

	for i, host := range c.Hosts {
		itemName := host.Code
		if itemName == "" {
			itemName = fmt.Sprintf("host[%d]", i)
		}

		if err := validate.Struct(host); err != nil {
			validationErrors = append(validationErrors, convertValidatorErrors(err, fmt.Sprintf("host.%d", i), itemName)...)
		}

		// Host codes must resolve to exactly one endpoint
		if seenCodes[host.Code] {
			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: "code",
				Message:   fmt.Sprintf("duplicate host code: %s", host.Code),
			})
		}
		seenCodes[host.Code] = true
	}

	return validationErrors
}

func (c *Config) validateSSH() ValidationErrors {
	if c.SSH == nil {
		return nil
	}

	var validationErrors ValidationErrors
	if err := validate.Struct(c.SSH); err != nil {
		validationErrors = append(validationErrors, convertValidatorErrors(err, "ssh", "")...)
	}

	if c.SSH.PrivateKeyFile == "" && c.SSH.Password == "" {
		validationErrors = append(validationErrors, ValidationError{
			FieldPath: "ssh",
			Message:   "must specify private_key_file or password",
		})
	}
	if c.SSH.PrivateKeyFile != "" {
		validationErrors = append(validationErrors, checkFileExists(c.GetAbsPrivateKeyFile(), "ssh.private_key_file", "")...)
	}

	if c.SSH.KnownHostsFile == "" && !c.SSH.InsecureIgnoreHostKey {
		validationErrors = append(validationErrors, ValidationError{
			FieldPath: "ssh.known_hosts_file",
			Message:   "is required unless insecure_ignore_host_key is set",
		})
	}
	if c.SSH.KnownHostsFile != "" {
		validationErrors = append(validationErrors, checkFileExists(c.GetAbsKnownHostsFile(), "ssh.known_hosts_file", "")...)
	}

	return validationErrors
}

func (c *Config) validateEncodings() ValidationErrors {
	var validationErrors ValidationErrors
	seenKeys := make(map[string]bool)

	for i, enc := range c.Encodings {
		itemName := enc.SyntaxKey
		if itemName == "" {
			itemName = fmt.Sprintf("encoding[%d]", i)
		}

		if err := validate.Struct(enc); err != nil {
			validationErrors = append(validationErrors, convertValidatorErrors(err, fmt.Sprintf("encoding.%d", i), itemName)...)
		}

		if seenKeys[enc.SyntaxKey] {
			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: "syntax_key",
				Message:   fmt.Sprintf("duplicate syntax key: %s", enc.SyntaxKey),
			})
		}
		seenKeys[enc.SyntaxKey] = true

		for j, field := range enc.Fields {
			if strings.TrimSpace(field) == "" {
				validationErrors = append(validationErrors, ValidationError{
					ItemName:  itemName,
					FieldPath: fmt.Sprintf("fields.%d", j),
					Message:   "field name cannot be empty",
				})
			}
		}
	}

	return validationErrors
}

func checkFileExists(path, fieldPath, itemName string) ValidationErrors {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return ValidationErrors{{
			ItemName:  itemName,
			FieldPath: fieldPath,
			Message:   fmt.Sprintf("file does not exist: %s", path),
		}}
	}
	return nil
}

// convertValidatorErrors converts go-playground/validator errors to our ValidationError format
func convertValidatorErrors(err error, fieldPrefix string, itemName string) ValidationErrors {
	var validationErrors ValidationErrors

	var validatorErrs validator.ValidationErrors
	if errors.As(err, &validatorErrs) {
		for _, e := range validatorErrs {
			fieldPath := fieldPrefix
			if e.Field() != "" {
				// e.Field() returns the TOML tag name because we registered TagNameFunc
				if fieldPrefix != "" {
					fieldPath = fieldPrefix + "." + e.Field()
				} else {
					fieldPath = e.Field()
				}
			}

			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: fieldPath,
				Message:   getValidationMessage(e),
			})
		}
	}

	return validationErrors
}
