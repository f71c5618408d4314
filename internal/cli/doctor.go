package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ppiankov/redtape/internal/config"
	"github.com/ppiankov/redtape/internal/exclusions"
	"github.com/ppiankov/redtape/internal/levels"
	"github.com/ppiankov/redtape/internal/profile"
	"github.com/ppiankov/redtape/internal/systemd"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check system readiness and diagnose configuration issues",
	RunE:  runDoctor,
}

type checkResult struct {
	label  string
	ok     bool
	detail string
	fix    string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	var checks []checkResult

	// 1. Binary location and version.
	execPath, _ := os.Executable()
	if execPath != "" {
		checks = append(checks, checkResult{
			label:  "redtape binary",
			ok:     true,
			detail: fmt.Sprintf("%s (v%s)", execPath, version),
		})
	} else {
		checks = append(checks, checkResult{
			label:  "redtape binary",
			ok:     false,
			detail: "cannot determine executable path",
		})
	}

	// 2. Config directory.
	home, homeErr := os.UserHomeDir()
	configDir := ""
	if homeErr == nil {
		configDir = filepath.Join(home, ".redtape")
	}

	if configDir != "" {
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			checks = append(checks, checkResult{
				label:  "config directory",
				ok:     true,
				detail: configDir,
			})
		} else {
			checks = append(checks, checkResult{
				label:  "config directory",
				ok:     false,
				detail: "missing",
				fix:    "redtape init",
			})
		}
	} else {
		checks = append(checks, checkResult{
			label:  "config directory",
			ok:     false,
			detail: "cannot determine home directory",
		})
	}

	// 3. Run config. A missing file is fine; the built-in defaults apply.
	cfg := config.Default()
	if configDir != "" {
		configPath := filepath.Join(configDir, "config.yaml")
		if _, statErr := os.Stat(configPath); statErr != nil {
			checks = append(checks, checkResult{
				label:  "config.yaml",
				ok:     true,
				detail: "missing (built-in defaults)",
			})
		} else if loaded, _, err := config.LoadWithHash(""); err != nil {
			checks = append(checks, checkResult{
				label:  "config.yaml",
				ok:     false,
				detail: err.Error(),
				fix:    "redtape init --force",
			})
		} else {
			cfg = loaded
			checks = append(checks, checkResult{
				label:  "config.yaml",
				ok:     true,
				detail: "loads cleanly",
			})
		}
	}

	// 4. Reviewer profile named in the config.
	if p, err := profile.Load(cfg.Profile); err != nil {
		checks = append(checks, checkResult{
			label:  "profile",
			ok:     false,
			detail: err.Error(),
			fix:    "redtape profile list",
		})
	} else if err := profile.Validate(p); err != nil {
		checks = append(checks, checkResult{
			label:  "profile",
			ok:     false,
			detail: err.Error(),
		})
	} else {
		checks = append(checks, checkResult{
			label:  "profile",
			ok:     true,
			detail: cfg.Profile,
		})
	}

	// 5. Review level table.
	if table, err := levels.Load(cfg.LevelsPath); err != nil {
		checks = append(checks, checkResult{
			label:  "review table",
			ok:     false,
			detail: err.Error(),
		})
	} else {
		checks = append(checks, checkResult{
			label:  "review table",
			ok:     true,
			detail: fmt.Sprintf("%d levels", len(table.All())),
		})
	}

	// 6. Benefit exclusion list.
	if _, err := exclusions.Load(""); err != nil {
		checks = append(checks, checkResult{
			label:  "exclusion list",
			ok:     false,
			detail: err.Error(),
		})
	} else {
		checks = append(checks, checkResult{
			label:  "exclusion list",
			ok:     true,
			detail: "loads cleanly",
		})
	}

	// 7. Watch service unit (Linux only). Informational either way; the
	// watch service runs fine in the foreground.
	if runtime.GOOS == "linux" {
		detail := "not installed (optional)"
		if path := systemd.Installed(); path != "" {
			detail = path
		}
		checks = append(checks, checkResult{
			label:  "watch unit",
			ok:     true,
			detail: detail,
		})
	}

	// 8. Oracle API keys. Scripted and bedrock backends take no key env.
	checks = append(checks, keyEnvChecks(cfg)...)

	// Print results.
	hasFailures := false
	for _, c := range checks {
		mark := "✓"
		if !c.ok {
			mark = "✗"
			hasFailures = true
		}
		line := fmt.Sprintf("%s %-20s %s", mark, c.label+":", c.detail)
		if !c.ok && c.fix != "" {
			line += fmt.Sprintf("  ->  %s", c.fix)
		}
		fmt.Println(line)
	}

	if hasFailures {
		fmt.Println()
		fmt.Println("Some checks failed. Run the suggested commands to fix.")
		return fmt.Errorf("doctor found issues")
	}

	fmt.Println()
	fmt.Println("All checks passed.")
	return nil
}

// keyEnvChecks verifies the API key environment variables the configured
// backends will read. Both roles on the same variable get one check.
func keyEnvChecks(cfg *config.Config) []checkResult {
	var checks []checkResult
	seen := make(map[string]bool)
	for _, o := range []config.Oracle{cfg.Provider, cfg.Payor} {
		env := o.APIKeyEnv
		if env == "" || seen[env] {
			continue
		}
		seen[env] = true
		if os.Getenv(env) != "" {
			checks = append(checks, checkResult{
				label:  "$" + env,
				ok:     true,
				detail: "set",
			})
		} else {
			checks = append(checks, checkResult{
				label:  "$" + env,
				ok:     false,
				detail: "not set",
				fix:    fmt.Sprintf("export %s=<key>", env),
			})
		}
	}
	return checks
}
