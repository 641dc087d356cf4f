package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lola/internal/app"
	"lola/internal/market"
)

type ExitCoder interface {
	ExitCode() int
}

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }
func (e *exitError) ExitCode() int { return e.code }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if ex, ok := err.(ExitCoder); ok {
			os.Exit(ex.ExitCode())
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var home string
	var jsonOutput bool

	newSvc := func() (*app.Service, error) {
		return app.New(app.Options{
			ConfigPath: configPath,
			Home:       home,
			Choose:     promptChooser(jsonOutput),
		})
	}

	cmd := &cobra.Command{
		Use:           "lola",
		Short:         "Package manager for portable AI assistant skill modules",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	cmd.PersistentFlags().StringVar(&home, "home", "", "lola home directory (default $LOLA_HOME or ~/.lola)")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")

	cmd.AddCommand(newModCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newInstallCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newUninstallCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newUpdateCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newListCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newMarketCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newDoctorCmd(newSvc, &jsonOutput))
	cmd.AddCommand(newVersionCmd(&jsonOutput))

	return cmd
}

// promptChooser resolves marketplace ambiguity interactively when stdin
// is a terminal. In non-interactive runs it stays nil, so ambiguity is a
// terminal error naming every candidate.
func promptChooser(jsonOutput bool) func([]market.Candidate) (market.Candidate, error) {
	if jsonOutput || !stdinIsTerminal() {
		return nil
	}
	return func(candidates []market.Candidate) (market.Candidate, error) {
		fmt.Printf("module %q is offered by multiple marketplaces:\n", candidates[0].Name)
		for i, c := range candidates {
			version := c.Version
			if version == "" {
				version = "-"
			}
			fmt.Printf("  [%d] %s (version %s) %s\n", i+1, c.Marketplace, version, c.Description)
		}
		fmt.Print("choose [1]: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return market.Candidate{}, fmt.Errorf("CLI_CHOICE: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return candidates[0], nil
		}
		idx, err := strconv.Atoi(line)
		if err != nil || idx < 1 || idx > len(candidates) {
			return market.Candidate{}, fmt.Errorf("CLI_CHOICE: invalid selection %q", line)
		}
		return candidates[idx-1], nil
	}
}

func stdinIsTerminal() bool {
	st, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return st.Mode()&os.ModeCharDevice != 0
}

func print(jsonOutput bool, v any, text string) error {
	if jsonOutput {
		blob, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(blob))
		return nil
	}
	if text != "" {
		fmt.Println(text)
	}
	return nil
}
