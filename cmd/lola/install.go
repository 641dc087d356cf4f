package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lola/internal/app"
	"lola/internal/config"
	"lola/internal/installer"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed)
)

func newInstallCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	var assistant string
	var scope string

	cmd := &cobra.Command{
		Use:   "install <module> [project-path]",
		Short: "Install a module's skills into AI assistants",
		Long:  "Installs a module for the requested assistants. Without -a every supported assistant is targeted; assistants that do not support the chosen scope are skipped.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			req, err := buildRequest(args, assistant, scope)
			if err != nil {
				return err
			}
			results, err := svc.Installer.Install(cmd.Context(), req)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, resultsJSON(results), "")
			}
			failed := 0
			for _, res := range results {
				switch res.Status {
				case installer.StatusInstalled:
					okColor.Printf("%s: installed %s\n", res.Assistant, strings.Join(append(res.Skills, res.Commands...), ", "))
					if res.RegistryWarning != "" {
						warnColor.Println("  " + res.RegistryWarning)
					}
				case installer.StatusSkipped:
					warnColor.Printf("%s: skipped (%s)\n", res.Assistant, res.Message)
				default:
					failed++
					failColor.Printf("%s: failed: %v\n", res.Assistant, res.Err)
				}
			}
			if failed > 0 {
				return &exitError{code: 1, msg: fmt.Sprintf("install failed for %d assistant(s)", failed)}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&assistant, "assistant", "a", "", "target assistant (default: all)")
	cmd.Flags().StringVarP(&scope, "scope", "s", "user", "installation scope: user|project")
	return cmd
}

func buildRequest(args []string, assistant, scope string) (installer.Request, error) {
	sc, err := config.ParseScope(scope)
	if err != nil {
		return installer.Request{}, err
	}
	req := installer.Request{Module: args[0], Scope: sc}
	if assistant != "" {
		req.Assistants = []string{assistant}
	}
	if sc == config.ScopeProject {
		if len(args) < 2 {
			return installer.Request{}, fmt.Errorf("CLI_PROJECT_PATH: project path is required for project scope")
		}
		abs, err := filepath.Abs(args[1])
		if err != nil {
			return installer.Request{}, err
		}
		req.ProjectPath = abs
	}
	return req, nil
}

func resultsJSON(results []installer.AssistantResult) []map[string]any {
	out := make([]map[string]any, 0, len(results))
	for _, res := range results {
		entry := map[string]any{
			"assistant": res.Assistant,
			"status":    string(res.Status),
		}
		if res.Err != nil {
			entry["error"] = res.Err.Error()
		}
		if res.Message != "" {
			entry["message"] = res.Message
		}
		if res.RegistryWarning != "" {
			entry["registryWarning"] = res.RegistryWarning
		}
		if len(res.Skills) > 0 {
			entry["skills"] = res.Skills
		}
		if len(res.Commands) > 0 {
			entry["commands"] = res.Commands
		}
		out = append(out, entry)
	}
	return out
}

func newUninstallCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	var assistant string
	var scope string
	var force bool

	cmd := &cobra.Command{
		Use:   "uninstall <module> [project-path]",
		Short: "Remove a module's installed artifacts",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			req := installer.UninstallRequest{Module: args[0], Assistant: assistant, Force: force}
			if scope != "" {
				sc, err := config.ParseScope(scope)
				if err != nil {
					return err
				}
				req.Scope = sc
			}
			if len(args) > 1 {
				abs, err := filepath.Abs(args[1])
				if err != nil {
					return err
				}
				req.ProjectPath = abs
			}
			removals, err := svc.Installer.Uninstall(cmd.Context(), req)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, removals, "")
			}
			if len(removals) == 0 {
				warnColor.Printf("no installations found for %q\n", args[0])
				return nil
			}
			failed := 0
			for _, rm := range removals {
				if rm.Err != nil {
					failed++
					failColor.Printf("%s/%s: %v\n", rm.Assistant, rm.Scope, rm.Err)
					continue
				}
				okColor.Printf("%s/%s: removed %d artifact(s)\n", rm.Assistant, rm.Scope, len(rm.Artifacts))
			}
			if failed > 0 {
				return &exitError{code: 1, msg: fmt.Sprintf("uninstall failed for %d installation(s)", failed)}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&assistant, "assistant", "a", "", "filter by assistant")
	cmd.Flags().StringVarP(&scope, "scope", "s", "", "filter by scope: user|project")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "drop registry records even when artifact removal fails")
	return cmd
}

func newUpdateCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	var assistant string

	cmd := &cobra.Command{
		Use:   "update [module]",
		Short: "Regenerate installed artifacts from the module store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			req := installer.UpdateRequest{Assistant: assistant}
			if len(args) > 0 {
				req.Module = args[0]
			}
			results, err := svc.Installer.Update(cmd.Context(), req)
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, results, "")
			}
			if len(results) == 0 {
				warnColor.Println("no installations to update")
				return nil
			}
			failed := 0
			for _, res := range results {
				switch res.Status {
				case installer.StatusInstalled:
					okColor.Printf("%s -> %s: updated\n", res.Module, res.Assistant)
				case installer.StatusSkipped:
					warnColor.Printf("%s -> %s: %s\n", res.Module, res.Assistant, res.Message)
				default:
					failed++
					failColor.Printf("%s -> %s: %v\n", res.Module, res.Assistant, res.Err)
				}
			}
			if failed > 0 {
				return &exitError{code: 1, msg: fmt.Sprintf("update failed for %d installation(s)", failed)}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&assistant, "assistant", "a", "", "filter by assistant")
	return cmd
}

func newListCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	var assistant string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List installed modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			installations, err := svc.Registry.All()
			if err != nil {
				return err
			}
			if assistant != "" {
				filtered := installations[:0]
				for _, inst := range installations {
					if inst.Assistant == assistant {
						filtered = append(filtered, inst)
					}
				}
				installations = filtered
			}
			if *jsonOutput {
				return print(true, installations, "")
			}
			if len(installations) == 0 {
				fmt.Println("no modules installed")
				return nil
			}
			for _, inst := range installations {
				location := inst.Scope
				if inst.ProjectPath != "" {
					location += " " + inst.ProjectPath
				}
				fmt.Printf("- %s -> %s (%s): %s\n", inst.Module, inst.Assistant, location, strings.Join(inst.Skills, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&assistant, "assistant", "a", "", "filter by assistant")
	return cmd
}
