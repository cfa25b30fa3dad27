package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/webscan-io/was/v2/internal/auth"
	"github.com/webscan-io/was/v2/internal/constants"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Config represents the CLI configuration.
type Config struct {
	API       string `json:"api,omitempty"        yaml:"api,omitempty"`
	AccessKey string `json:"access_key,omitempty" yaml:"access_key,omitempty"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty"`
	Proxy     string `json:"proxy,omitempty"      yaml:"proxy,omitempty"`
	Output    string `json:"output"               yaml:"output"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  "Manage wasctl configuration including the API endpoint and key pair",
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())
	cmd.AddCommand(newConfigSetKeysCommand())
	cmd.AddCommand(newConfigClearCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  "Display the current CLI configuration with the key pair masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := loadConfig()
			redacted := *config
			redacted.AccessKey = auth.MaskKey(config.AccessKey)
			redacted.SecretKey = auth.MaskKey(config.SecretKey)

			output := viper.GetString("output")
			switch output {
			case constants.FormatJSON:
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")

				return encoder.Encode(&redacted)
			case constants.FormatYAML:
				encoder := yaml.NewEncoder(os.Stdout)

				return encoder.Encode(&redacted)
			default:
				return displayConfigTable(&redacted)
			}
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long:  "Set a configuration value (api, access_key, secret_key, proxy, output)",
		Args:  cobra.ExactArgs(constants.TwoArgumentsMax),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			value := args[1]

			config := loadConfig()

			err := setConfigValue(config, key, value)
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			return outputConfigUpdateResult("Set", key, displayConfigValue(key, value))
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY",
		Short: "Unset a configuration value",
		Long:  "Remove a configuration value (api, access_key, secret_key, proxy, output)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			config := loadConfig()

			err := setConfigValue(config, key, "")
			if err != nil {
				return err
			}

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			return outputConfigUpdateResult("Unset", key, "")
		},
	}
}

func newConfigSetKeysCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-keys",
		Short: "Store the API key pair",
		Long:  "Prompt for the access and secret keys without echoing and store them in the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			accessKey, err := promptForKey("Access key: ")
			if err != nil {
				return err
			}

			secretKey, err := promptForKey("Secret key: ")
			if err != nil {
				return err
			}

			config := loadConfig()
			config.AccessKey = accessKey
			config.SecretKey = secretKey

			err = saveConfigStruct(config)
			if err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			fmt.Printf("Stored key pair: accessKey=%s; secretKey=%s\n",
				auth.MaskKey(accessKey), auth.MaskKey(secretKey))

			return nil
		},
	}
}

func newConfigClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear configuration",
		Long:  "Remove the configuration file including the stored key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile := viper.ConfigFileUsed()
			if configFile == "" {
				home, _ := os.UserHomeDir()
				configFile = filepath.Join(home, ".wasctl", "config.yml")
			}

			err := os.Remove(configFile)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("failed to remove config file: %w", err)
			}

			return outputConfigUpdateResult("Cleared", "all configuration", "")
		},
	}
}

func loadConfig() *Config {
	return &Config{
		API:       viper.GetString("api"),
		AccessKey: viper.GetString("access_key"),
		SecretKey: viper.GetString("secret_key"),
		Proxy:     viper.GetString("proxy"),
		Output:    viper.GetString("output"),
	}
}

func setConfigValue(config *Config, key, value string) error {
	switch key {
	case "api":
		config.API = value
	case "access_key":
		config.AccessKey = value
	case "secret_key":
		config.SecretKey = value
	case "proxy":
		config.Proxy = value
	case "output":
		config.Output = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
	}

	return nil
}

// displayConfigValue masks key material in confirmation output.
func displayConfigValue(key, value string) string {
	if key == "access_key" || key == "secret_key" {
		return auth.MaskKey(value)
	}

	return value
}

func saveConfigStruct(config *Config) error {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}

		configDir := filepath.Join(home, ".wasctl")

		err = os.MkdirAll(configDir, constants.ConfigDirPerm)
		if err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}

		configFile = filepath.Join(configDir, "config.yml")
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	err = os.WriteFile(configFile, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func promptForKey(prompt string) (string, error) {
	fmt.Print(prompt)

	keyBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read key: %w", err)
	}

	fmt.Println()

	key := strings.TrimSpace(string(keyBytes))
	if key == "" {
		return "", ErrEmptyInput
	}

	return key, nil
}

// displayConfigTable displays configuration in a table format.
func displayConfigTable(config *Config) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")

	endpoint := config.API
	if endpoint == "" {
		endpoint = constants.DefaultAPIEndpoint + " (default)"
	}

	_ = table.Append("API", endpoint)
	_ = table.Append("Access Key", formatConfigValue(config.AccessKey))
	_ = table.Append("Secret Key", formatConfigValue(config.SecretKey))
	_ = table.Append("Proxy", formatConfigValue(config.Proxy))
	_ = table.Append("Output", config.Output)

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func formatConfigValue(value string) string {
	if value == "" {
		return "-"
	}

	return value
}

func outputConfigUpdateResult(action, key, value string) error {
	output := viper.GetString("output")

	switch output {
	case constants.FormatJSON, constants.FormatYAML:
		result := map[string]string{
			"action": action,
			"key":    key,
		}
		if value != "" {
			result["value"] = value
		}

		if output == constants.FormatJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")

			return encoder.Encode(result)
		}

		encoder := yaml.NewEncoder(os.Stdout)

		return encoder.Encode(result)
	default:
		if value != "" {
			fmt.Printf("%s %s = %s\n", action, key, value)
		} else {
			fmt.Printf("%s %s\n", action, key)
		}

		return nil
	}
}
