package cli

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"online-quiz/internal/app"
)

// NewReportCmd prints a quiz report read from the configured event log.
func NewReportCmd() *cobra.Command {
	var (
		participantID string
		format        string
	)
	cmd := &cobra.Command{
		Use:   "report QUIZ_ID",
		Short: "Print a participant's text report or the CSV verdict matrix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := logrus.New()
			log.SetOutput(io.Discard)

			events, closeEvents, err := openEventLog(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer closeEvents()
			service := app.NewQuizService(events, log)

			var text string
			switch format {
			case "text":
				if participantID == "" {
					return fmt.Errorf("--participant is required for text reports")
				}
				text, _, err = service.ReportText(cmd.Context(), args[0], participantID)
			case "csv":
				text, _, err = service.ReportCSV(cmd.Context(), args[0])
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		},
	}
	cmd.Flags().StringVar(&participantID, "participant", "", "participant id for text reports")
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "report format: text or csv")
	return cmd
}
