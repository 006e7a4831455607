package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/wordhaven/vocab-cli/internal/blob"
	"github.com/wordhaven/vocab-cli/internal/importer"
	"github.com/wordhaven/vocab-cli/internal/model"
	"github.com/wordhaven/vocab-cli/internal/store"
)

var (
	importFolderID    string
	importFolderName  string
	importAllowUpdate bool
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a word list file synchronously",
	Long:  "Runs the full parse, enrich, and save pipeline on one file and prints the job report. Accepts .txt, .xlsx, and .xlsm files.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := args[0]

		if _, err := os.Stat(path); err != nil {
			return eris.Wrap(err, "import: open file")
		}
		if importFolderID == "" && importFolderName == "" {
			return eris.New("import: --folder or --folder-name is required")
		}

		st, err := store.New(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		folderID := importFolderID
		if folderID == "" {
			folder, err := st.CreateFolder(ctx, importFolderName)
			if err != nil {
				return eris.Wrap(err, "import: create folder")
			}
			folderID = folder.ID
			fmt.Printf("created folder %s (%s)\n", folder.Name, folder.ID)
		} else if _, err := st.GetFolder(ctx, folderID); err != nil {
			return eris.Wrapf(err, "import: folder %s", folderID)
		}

		now := time.Now().UTC()
		job := &model.Job{
			ID:       uuid.New().String(),
			FolderID: folderID,
			Status:   model.JobStatusPending,
			Metadata: model.JobMetadata{
				FilePath: path,
				FileName: filepath.Base(path),
				Options:  model.ImportOptions{AllowUpdate: importAllowUpdate},
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := st.CreateJob(ctx, job); err != nil {
			return eris.Wrap(err, "import: create job")
		}

		orch := importer.New(st, blob.New(cfg.Storage.Root), cfg)
		if err := orch.Run(ctx, job.ID); err != nil {
			return err
		}

		done, err := st.GetJob(ctx, job.ID)
		if err != nil {
			return eris.Wrap(err, "import: load report")
		}

		out, err := json.MarshalIndent(map[string]any{
			"job_id":   done.ID,
			"status":   done.Status,
			"counters": done.Counters,
			"report":   done.Report,
		}, "", "  ")
		if err != nil {
			return eris.Wrap(err, "import: encode report")
		}
		fmt.Println(string(out))

		if done.Status == model.JobStatusFailed {
			return eris.New("import: job failed")
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFolderID, "folder", "", "target folder id")
	importCmd.Flags().StringVar(&importFolderName, "folder-name", "", "create a folder with this name and import into it")
	importCmd.Flags().BoolVar(&importAllowUpdate, "allow-update", false, "update existing entries instead of skipping them")
	rootCmd.AddCommand(importCmd)
}
