package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/redtape/internal/profile"
)

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileCheckCmd)
	profileCmd.AddCommand(profileShowCmd)
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage reviewer profiles",
	Long:  "List, check, and inspect the posture profiles that shape how the\nsimulated payer reviews requests.",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available reviewer profiles",
	RunE:  runProfileList,
}

var profileCheckCmd = &cobra.Command{
	Use:   "check <name>",
	Short: "Validate a profile loads cleanly",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileCheck,
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a profile's postures and exclusions",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileShow,
}

func runProfileList(cmd *cobra.Command, args []string) error {
	names := profile.List()
	if len(names) == 0 {
		fmt.Println("No profiles available.")
		return nil
	}

	fmt.Println("Available profiles:")
	for _, name := range names {
		p, err := profile.Load(name)
		if err != nil {
			fmt.Printf("  %-12s (error loading: %v)\n", name, err)
			continue
		}
		fmt.Printf("  %-12s %s\n", name, p.Description)
	}
	return nil
}

func runProfileCheck(cmd *cobra.Command, args []string) error {
	name := args[0]
	p, err := profile.Load(name)
	if err != nil {
		return fmt.Errorf("failed to load profile %q: %w", name, err)
	}

	if err := profile.Validate(p); err != nil {
		return fmt.Errorf("profile %q is invalid: %w", name, err)
	}

	fmt.Printf("Profile %q is valid.\n", name)
	fmt.Printf("  Provider posture:    %s\n", setOrEmpty(p.ProviderPosture))
	fmt.Printf("  Payor posture:       %s\n", setOrEmpty(p.PayorPosture))
	if p.PendBudget != nil {
		fmt.Printf("  Pend budget:         %d\n", *p.PendBudget)
	} else {
		fmt.Printf("  Pend budget:         table default\n")
	}
	if p.Exclusions != nil {
		fmt.Printf("  Excluded services:   %d\n", len(p.Exclusions.Services))
		fmt.Printf("  Excluded diagnoses:  %d\n", len(p.Exclusions.Diagnoses))
		fmt.Printf("  Excluded keywords:   %d\n", len(p.Exclusions.Keywords))
	}
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	name := args[0]
	p, err := profile.Load(name)
	if err != nil {
		return fmt.Errorf("failed to load profile %q: %w", name, err)
	}

	fmt.Printf("Profile: %s (%s)\n", p.Name, p.Description)
	fmt.Println()

	if p.ProviderPosture != "" {
		fmt.Println("Provider posture:")
		fmt.Println(p.ProviderPosture)
	}

	if p.PayorPosture != "" {
		fmt.Println("Payor posture:")
		fmt.Println(p.PayorPosture)
	}

	if p.PendBudget != nil {
		fmt.Printf("Pend budget: %d\n", *p.PendBudget)
		fmt.Println()
	}

	if p.Exclusions != nil {
		if len(p.Exclusions.Services) > 0 {
			fmt.Println("Excluded services:")
			for _, s := range p.Exclusions.Services {
				fmt.Printf("  - %s\n", s)
			}
			fmt.Println()
		}
		if len(p.Exclusions.Diagnoses) > 0 {
			fmt.Println("Excluded diagnoses:")
			for _, d := range p.Exclusions.Diagnoses {
				fmt.Printf("  - %s\n", d)
			}
			fmt.Println()
		}
		if len(p.Exclusions.Keywords) > 0 {
			fmt.Println("Excluded keywords:")
			for _, k := range p.Exclusions.Keywords {
				fmt.Printf("  - %s\n", k)
			}
			fmt.Println()
		}
	}

	fmt.Println("To apply at runtime:")
	fmt.Printf("  redtape run --profile %s <case.json>\n", name)
	fmt.Printf("  redtape watch --profile %s\n", name)
	return nil
}

func setOrEmpty(s string) string {
	if s == "" {
		return "empty"
	}
	return "set"
}
