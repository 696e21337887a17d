package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Blynx-ai/blynx-backend/internal/model"
	"github.com/Blynx-ai/blynx-backend/internal/publish"
)

var runFlags struct {
	name         string
	industryType string
	customerType string
	aboutUs      string
	landingPage  string
	instagram    string
	linkedin     string
	x            string
	userID       int64
	jsonOut      bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one evaluation flow and print the report",
	Long:  "Starts a flow for the given business profile, streams progress logs to stderr, and prints the final report to stdout.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		business := model.Business{
			ID:             1,
			Name:           runFlags.name,
			IndustryType:   runFlags.industryType,
			CustomerType:   runFlags.customerType,
			AboutUs:        runFlags.aboutUs,
			LandingPageURL: runFlags.landingPage,
			InstagramURL:   runFlags.instagram,
			LinkedInURL:    runFlags.linkedin,
			XURL:           runFlags.x,
		}
		if len(business.SourceURLs()) == 0 {
			return eris.New("at least one source URL flag is required")
		}

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		flowID, err := env.manager.Start(ctx, runFlags.userID, business)
		if err != nil {
			return eris.Wrap(err, "start flow")
		}
		zap.L().Info("flow started", zap.String("flow_id", flowID))

		events, err := env.publisher.Subscribe(ctx, flowID)
		if err != nil {
			return eris.Wrap(err, "subscribe to flow")
		}

		// Forward a stop request to the engine when the user interrupts;
		// the subscription then drains to the STOPPED status event.
		go func() {
			<-ctx.Done()
			if stopErr := env.manager.Stop(flowID, runFlags.userID); stopErr != nil {
				zap.L().Debug("stop on interrupt", zap.Error(stopErr))
			}
		}()

		final := streamEvents(events)
		if final == nil {
			return eris.New("flow ended without a status event")
		}
		if *final != model.FlowStatusCompleted {
			return eris.Errorf("flow %s finished as %s", flowID, *final)
		}

		report, err := env.manager.State().Report(flowID)
		if err != nil {
			return eris.Wrap(err, "read report")
		}
		return printReport(report)
	},
}

// streamEvents prints progress to stderr and returns the final status.
func streamEvents(events <-chan publish.Event) *model.FlowStatus {
	for ev := range events {
		switch ev.Type {
		case publish.EventLogs:
			for _, entry := range ev.Logs {
				fmt.Fprintf(os.Stderr, "[%s] %s: %s\n",
					entry.Timestamp.Format("15:04:05"), entry.Agent, entry.Message)
			}
		case publish.EventStatus:
			status := ev.Status
			return &status
		}
	}
	return nil
}

func printReport(report *model.Report) error {
	if runFlags.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(report), "encode report")
	}

	fmt.Printf("Blynx Score: %.1f (%s)\n", report.Score.Final, report.Score.Grade)
	fmt.Printf("  accuracy:   %.1f\n", report.Score.Accuracy)
	fmt.Printf("  impact:     %.1f\n", report.Score.Impact)
	fmt.Printf("  language:   %.1f\n", report.Score.Language)
	fmt.Printf("  brand:      %.1f\n", report.Score.Brand)
	fmt.Printf("  reputation: %.1f\n", report.Score.Reputation)
	fmt.Printf("  risk penalty: %.1f\n", report.Score.RedFlagPenalty)
	fmt.Printf("Sources: %d scraped, %d failed\n",
		report.Stats.CompletedSources, report.Stats.FailedSources)
	if report.Score.Breakdown != "" {
		fmt.Printf("Breakdown: %s\n", report.Score.Breakdown)
	}
	return nil
}

func init() {
	runCmd.Flags().StringVar(&runFlags.name, "name", "", "business name (required)")
	runCmd.Flags().StringVar(&runFlags.industryType, "industry", "", "industry type")
	runCmd.Flags().StringVar(&runFlags.customerType, "customer-type", "", "customer type (b2b, b2c, ...)")
	runCmd.Flags().StringVar(&runFlags.aboutUs, "about", "", "about-us blurb")
	runCmd.Flags().StringVar(&runFlags.landingPage, "landing-page", "", "landing page URL")
	runCmd.Flags().StringVar(&runFlags.instagram, "instagram", "", "Instagram profile URL")
	runCmd.Flags().StringVar(&runFlags.linkedin, "linkedin", "", "LinkedIn page URL")
	runCmd.Flags().StringVar(&runFlags.x, "x", "", "X profile URL")
	runCmd.Flags().Int64Var(&runFlags.userID, "user", 1, "user ID owning the flow")
	runCmd.Flags().BoolVar(&runFlags.jsonOut, "json", false, "print the full report as JSON")
	runCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(runCmd)
}
