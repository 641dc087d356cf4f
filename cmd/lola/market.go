package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lola/internal/app"
)

func newMarketCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	marketCmd := &cobra.Command{Use: "market", Aliases: []string{"marketplace"}, Short: "Manage module marketplaces"}

	addCmd := &cobra.Command{
		Use:   "add <name> <url>",
		Short: "Register a marketplace catalog",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			mk, err := svc.Market.Add(args[0], args[1])
			if err != nil {
				return err
			}
			if _, err := svc.Market.Refresh(cmd.Context(), mk.Name); err != nil {
				warnColor.Printf("marketplace added, but the initial catalog fetch failed: %v\n", err)
				warnColor.Println("run 'lola market update' once the catalog is reachable")
				return nil
			}
			return print(*jsonOutput, map[string]string{"added": args[0]}, "added marketplace "+args[0])
		},
	}

	removeCmd := &cobra.Command{
		Use:     "rm <name>",
		Aliases: []string{"remove"},
		Short:   "Deregister a marketplace",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			if err := svc.Market.Remove(args[0]); err != nil {
				return err
			}
			return print(*jsonOutput, map[string]string{"removed": args[0]}, "removed marketplace "+args[0])
		},
	}

	listCmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List registered marketplaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			markets, err := svc.Market.List()
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, markets, "")
			}
			if len(markets) == 0 {
				fmt.Println("no marketplaces registered")
				return nil
			}
			for _, m := range markets {
				state := "enabled"
				if !m.Enabled {
					state = "disabled"
				}
				fmt.Printf("- %s (%s) %s\n", m.Name, state, m.URL)
			}
			return nil
		},
	}

	enableCmd := &cobra.Command{
		Use:   "enable <name>",
		Short: "Enable a marketplace for resolution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			if _, err := svc.Market.SetEnabled(args[0], true); err != nil {
				return err
			}
			return print(*jsonOutput, map[string]string{"enabled": args[0]}, "enabled marketplace "+args[0])
		},
	}

	disableCmd := &cobra.Command{
		Use:   "disable <name>",
		Short: "Disable a marketplace without removing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			if _, err := svc.Market.SetEnabled(args[0], false); err != nil {
				return err
			}
			return print(*jsonOutput, map[string]string{"disabled": args[0]}, "disabled marketplace "+args[0])
		},
	}

	updateCmd := &cobra.Command{
		Use:     "update [name]",
		Aliases: []string{"refresh"},
		Short:   "Refresh cached marketplace catalogs",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			refreshed, err := svc.Market.Refresh(cmd.Context(), name)
			if err != nil {
				return err
			}
			if len(refreshed) == 0 {
				fmt.Println("no enabled marketplaces")
				return nil
			}
			for _, mk := range refreshed {
				okColor.Printf("%s: refreshed\n", mk.Name)
			}
			return nil
		},
	}

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search enabled marketplace catalogs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			results, err := svc.Market.Search(args[0])
			if err != nil {
				return err
			}
			if *jsonOutput {
				return print(true, results, "")
			}
			if len(results) == 0 {
				fmt.Println("no matches")
				return nil
			}
			for _, r := range results {
				version := r.Version
				if version == "" {
					version = "-"
				}
				fmt.Printf("- %s %s [%s] %s\n", r.Name, version, r.Marketplace, r.Description)
			}
			return nil
		},
	}

	marketCmd.AddCommand(addCmd, removeCmd, listCmd, enableCmd, disableCmd, updateCmd, searchCmd)
	return marketCmd
}
