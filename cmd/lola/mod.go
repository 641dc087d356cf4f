package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lola/internal/app"
)

func newModCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	modCmd := &cobra.Command{Use: "mod", Aliases: []string{"module", "modules"}, Short: "Manage registered modules"}

	var kind string
	var ref string
	addCmd := &cobra.Command{
		Use:     "add <locator>",
		Aliases: []string{"register"},
		Short:   "Fetch a module and register it in the store",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			m, err := svc.ModAdd(cmd.Context(), args[0], kind, ref)
			if err != nil {
				return err
			}
			return print(*jsonOutput, m.Manifest, fmt.Sprintf("added module %s %s (%d skills, %d commands)", m.Name, m.Version, len(m.Skills), len(m.Commands)))
		},
	}
	addCmd.Flags().StringVar(&kind, "kind", "", "source kind: git|zip|tar|folder (default: inferred)")
	addCmd.Flags().StringVar(&ref, "ref", "", "git branch or tag")

	var force bool
	removeCmd := &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"remove", "delete"},
		Short:   "Deregister a module",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			if err := svc.ModRemove(args[0], force); err != nil {
				return err
			}
			return print(*jsonOutput, map[string]string{"removed": args[0]}, "removed module "+args[0])
		},
	}
	removeCmd.Flags().BoolVarP(&force, "force", "f", false, "remove even when installations exist")

	listCmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List registered modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			mods, err := svc.Store.List()
			if err != nil {
				return err
			}
			if *jsonOutput {
				manifests := make([]any, 0, len(mods))
				for _, m := range mods {
					manifests = append(manifests, map[string]any{
						"name": m.Name, "version": m.Version, "skills": m.Skills, "commands": m.Commands, "checksum": m.Checksum,
					})
				}
				return print(true, manifests, "")
			}
			if len(mods) == 0 {
				fmt.Println("no modules registered")
				return nil
			}
			for _, m := range mods {
				fmt.Printf("- %s %s (%d skills, %d commands)\n", m.Name, m.Version, len(m.Skills), len(m.Commands))
			}
			return nil
		},
	}

	refreshCmd := &cobra.Command{
		Use:     "update <name>",
		Aliases: []string{"refresh"},
		Short:   "Re-fetch a module from its recorded origin",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			m, err := svc.ModRefresh(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return print(*jsonOutput, m.Manifest, fmt.Sprintf("refreshed module %s %s; run 'lola update %s' to regenerate installed artifacts", m.Name, m.Version, m.Name))
		},
	}

	modCmd.AddCommand(addCmd, removeCmd, listCmd, refreshCmd)
	return modCmd
}
