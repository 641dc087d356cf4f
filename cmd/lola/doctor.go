package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lola/internal/app"
	"lola/internal/doctor"
)

func newDoctorCmd(newSvc func() (*app.Service, error), jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the health of the lola home directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSvc()
			if err != nil {
				return err
			}
			report := svc.Doctor.Run()
			if *jsonOutput {
				return print(true, report, "")
			}
			fmt.Printf("modules: %d, installations: %d\n", report.Modules, report.Installs)
			for _, f := range report.Findings {
				switch f.Level {
				case doctor.LevelError:
					failColor.Printf("error %s: %s\n", f.Code, f.Message)
				case doctor.LevelWarn:
					warnColor.Printf("warn %s: %s\n", f.Code, f.Message)
				default:
					fmt.Printf("info %s: %s\n", f.Code, f.Message)
				}
			}
			if report.Healthy {
				okColor.Println("everything looks healthy")
				return nil
			}
			return &exitError{code: 1, msg: "doctor found problems"}
		},
	}
}
