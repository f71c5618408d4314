package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/redtape/internal/config"
	"github.com/ppiankov/redtape/internal/exclusions"
	"github.com/ppiankov/redtape/internal/profile"
	"github.com/ppiankov/redtape/internal/systemd"
)

var (
	initProfile        string
	initForce          bool
	initInstallSystemd bool
)

func init() {
	initCmd.Flags().StringVar(&initProfile, "profile", "", "Built-in profile to copy into ~/.redtape/profiles for editing")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config files")
	initCmd.Flags().BoolVar(&initInstallSystemd, "install-systemd", false, "Install the redtape-watch user service unit (Linux only)")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap redtape configuration",
	Long: `Creates the config directory with a commented run config, the default
benefit exclusion list, and the profile directory, all under ~/.redtape/.

With --install-systemd: installs a redtape-watch.service user unit so the
inbox service runs under systemd.

Existing files are left alone unless --force is set.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := initConfigDir()
	if err != nil {
		return err
	}

	var created []string

	profilesDir := filepath.Join(configDir, "profiles")
	if err := os.MkdirAll(profilesDir, 0o755); err != nil {
		return fmt.Errorf("create profiles directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	if wrote, err := writeIfMissing(configPath, config.DefaultConfigYAML()); err != nil {
		return err
	} else if wrote {
		created = append(created, configPath)
	}

	exclusionsPath := filepath.Join(configDir, "exclusions.yaml")
	exclusionsContent, err := defaultExclusionsYAML()
	if err != nil {
		return fmt.Errorf("generate default exclusions: %w", err)
	}
	if wrote, err := writeIfMissing(exclusionsPath, exclusionsContent); err != nil {
		return err
	} else if wrote {
		created = append(created, exclusionsPath)
	}

	// Copy a built-in profile out as an editable starting point.
	if initProfile != "" {
		prof, loadErr := profile.Load(initProfile)
		if loadErr != nil {
			return fmt.Errorf("unknown profile %q: %w", initProfile, loadErr)
		}
		content, err := yaml.Marshal(prof)
		if err != nil {
			return fmt.Errorf("render profile %q: %w", initProfile, err)
		}
		header := "# Copied from the built-in profile. Edit freely; this file\n# shadows the built-in of the same name.\n\n"
		profPath := filepath.Join(profilesDir, initProfile+".yaml")
		if wrote, err := writeIfMissing(profPath, header+string(content)); err != nil {
			return err
		} else if wrote {
			created = append(created, profPath)
		}
	}

	// Install the watch service unit if requested.
	if initInstallSystemd {
		if runtime.GOOS != "linux" {
			return fmt.Errorf("--install-systemd is only supported on Linux")
		}

		unitPath, err := systemd.UserUnitPath()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(unitPath), 0o755); err != nil {
			return fmt.Errorf("create systemd user directory: %w", err)
		}
		if err := os.WriteFile(unitPath, []byte(systemd.WatchUnit()), 0o644); err != nil {
			return fmt.Errorf("write systemd unit: %w", err)
		}
		created = append(created, unitPath)

		// Reload systemd.
		if err := exec.Command("systemctl", "--user", "daemon-reload").Run(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: systemctl --user daemon-reload failed: %v\n", err)
		}
	}

	fmt.Println("redtape init complete.")
	fmt.Println()
	if len(created) > 0 {
		fmt.Println("Created:")
		for _, path := range created {
			fmt.Printf("  %s\n", path)
		}
		fmt.Println()
	} else {
		fmt.Println("All files already exist (use --force to overwrite).")
		fmt.Println()
	}

	fmt.Println("Verify:")
	fmt.Println("  redtape doctor")
	fmt.Println()
	fmt.Println("Adjudicate a case:")
	if initProfile != "" {
		fmt.Printf("  redtape run --profile %s <case.json>\n", initProfile)
	} else {
		fmt.Println("  redtape run <case.json>")
	}
	fmt.Println()
	fmt.Println("Or run the inbox service:")
	fmt.Println("  redtape watch")

	if initInstallSystemd {
		fmt.Println()
		fmt.Println("Enable the watch service:")
		fmt.Println("  systemctl --user enable --now redtape-watch")
	}

	return nil
}

// initConfigDir returns the configuration directory.
func initConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".redtape"), nil
}

// writeIfMissing writes content to path if it doesn't exist or --force is set.
// Returns true if the file was written.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// defaultExclusionsYAML generates a commented default exclusions.yaml.
func defaultExclusionsYAML() (string, error) {
	data, err := yaml.Marshal(exclusions.DefaultPatterns)
	if err != nil {
		return "", err
	}
	header := "# Redtape benefit exclusions.\n" +
		"# An excluded service line is denied without an oracle consult.\n" +
		"# Services: glob patterns. Diagnoses: ICD-10 prefixes. Keywords: substrings.\n" +
		"#\n" +
		"# Edit this file to customize what the simulated plan never covers.\n\n"
	return header + string(data), nil
}
