package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wordhaven/vocab-cli/internal/model"
	"github.com/wordhaven/vocab-cli/internal/store"
)

var (
	jobsStatus   string
	jobsFolderID string
	jobsLimit    int
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List import jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.New(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close()

		jobs, err := st.ListJobs(ctx, store.JobFilter{
			Status:   model.JobStatus(jobsStatus),
			FolderID: jobsFolderID,
			Limit:    jobsLimit,
		})
		if err != nil {
			return err
		}

		if len(jobs) == 0 {
			fmt.Println("no jobs")
			return nil
		}
		for _, j := range jobs {
			fmt.Printf("%s  %-9s  %s  parsed=%d enriched=%d dup=%d failed=%d  %s\n",
				j.ID, j.Status, j.Metadata.FileName,
				j.Counters.Parsed, j.Counters.Enriched, j.Counters.Duplicates, j.Counters.Failed,
				j.CreatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		return nil
	},
}

func init() {
	jobsCmd.Flags().StringVar(&jobsStatus, "status", "", "filter by status")
	jobsCmd.Flags().StringVar(&jobsFolderID, "folder", "", "filter by folder id")
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 50, "max jobs to list")
	rootCmd.AddCommand(jobsCmd)
}
