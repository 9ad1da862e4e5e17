package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"backoffice/internal/bootstrap"
	"backoffice/internal/cfdi"
)

func newCFDICommand(ctx *commandContext) *cobra.Command {
	cfdiCmd := &cobra.Command{
		Use:   "cfdi",
		Short: "Inspect and drive the CFDI issuance queue",
	}
	cfdiCmd.AddCommand(newDrainCommand(ctx))
	cfdiCmd.AddCommand(newRecoverCommand(ctx))
	cfdiCmd.AddCommand(newJobsCommand(ctx))
	return cfdiCmd
}

func newDrainCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "drain",
		Short: "Process up to --limit queued jobs once",
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			return ctx.withApp(cmd.Context(), func(app *bootstrap.App) error {
				processed, err := app.CFDIService.Drain(cmd.Context(), limit)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "processed %d job(s)\n", processed)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", cfdi.DefaultDrainLimit, "Maximum references to pop")
	return cmd
}

func newRecoverCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Re-queue every job still pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *bootstrap.App) error {
				n, err := app.CFDIService.Recover(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "requeued %d job(s)\n", n)
				return nil
			})
		},
	}
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List issuance jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *bootstrap.App) error {
				jobs, err := app.CFDIService.ListJobs(cmd.Context(), status)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Quote", "Customer", "Total", "Status", "Attempts", "Updated", "Last error"},
					jobRows(jobs),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (pending, sent, failed)")
	return cmd
}

func jobRows(jobs []cfdi.Job) [][]string {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		lastError := ""
		if job.LastError != nil {
			lastError = truncate(*job.LastError, 48)
		}
		rows = append(rows, []string{
			job.ID,
			job.QuoteID,
			job.Customer,
			strconv.FormatFloat(job.Total, 'f', 2, 64),
			job.Status,
			strconv.Itoa(job.Attempts),
			job.UpdatedAt.Format(time.RFC3339),
			lastError,
		})
	}
	return rows
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
