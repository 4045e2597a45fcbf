// Command syncengine drives the sync core from a terminal (SPEC_FULL.md
// §2). Grounded on cuemby-warren/cmd/warren: a cobra rootCmd with global
// logging flags and cobra.OnInitialize, plus one subcommand per operating
// mode instead of warren's per-cluster-role commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vesperpad/sync-engine/authbroker"
	"github.com/vesperpad/sync-engine/config"
	"github.com/vesperpad/sync-engine/fakeremote"
	"github.com/vesperpad/sync-engine/gateway"
	"github.com/vesperpad/sync-engine/localstore"
	"github.com/vesperpad/sync-engine/logx"
	"github.com/vesperpad/sync-engine/model"
	"github.com/vesperpad/sync-engine/orchestrator"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "syncengine",
	Short: "Remote-to-local note sync engine",
	Long: `syncengine drives the remote-to-local synchronization pipeline: incremental
and full sync, per-entity reconciliation, conflict resolution, lazy content
fetch, and linked-notebook fan-out.`,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides DB_PATH)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(demoCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	logx.Init(logx.Config{Level: logx.Level(level), JSONOutput: jsonOut})
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one sync session against a SQLite-backed local store",
	Long: `run wires the SQLite localstore, a scripted NoteStore scenario (since
credential acquisition and live transport are out of scope, SPEC_FULL.md §1),
and runs one orchestrator session to completion, logging every emitted event.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scenarioName, _ := cmd.Flags().GetString("scenario")
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		store, err := localstore.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open local store: %w", err)
		}
		defer store.Close()

		return runSession(cmd.Context(), cfg, store, newCheckpointFile(cfg.DBPath), scenarioName)
	},
}

func init() {
	runCmd.Flags().String("scenario", "cold-full-sync", "fakeremote scenario to synchronize against")
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the last persisted sync checkpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		params, err := newCheckpointFile(cfg.DBPath).load()
		if err != nil {
			return fmt.Errorf("load checkpoint: %w", err)
		}
		if len(params) == 0 {
			fmt.Println("no sync has completed yet")
			return nil
		}
		for scope, p := range params {
			label := "own account"
			if scope != model.OwnScope {
				label = "linked notebook " + string(scope)
			}
			fmt.Printf("%s: lastUpdateCount=%d lastSyncTime=%s everFullySynced=%t\n",
				label, p.LastUpdateCount, p.LastSyncTime.Format(time.RFC3339), p.EverFullySynced)
		}
		return nil
	},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a sync session against the in-process fakeremote, no external dependencies",
	Long: `demo runs entirely against an in-memory local store and the in-process
fakeremote package, so the whole pipeline is exercisable with zero external
dependencies (SPEC_FULL.md §2) — useful for seeing the progress/event signals
the core emits without a real database or remote service.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		scenarioName, _ := cmd.Flags().GetString("scenario")
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		store := localstore.NewMemory()
		return runSession(cmd.Context(), cfg, store, checkpointFile{path: os.DevNull}, scenarioName)
	},
}

func init() {
	demoCmd.Flags().String("scenario", "cold-full-sync", "fakeremote scenario to synchronize against")
}

func scenarioByName(name string) (fakeremote.Scenario, error) {
	switch name {
	case "cold-full-sync":
		return fakeremote.ColdFullSync(), nil
	case "incremental-with-expunge":
		return fakeremote.IncrementalWithExpunge(), nil
	case "rate-limit-retry":
		return fakeremote.RateLimitRetry(3), nil
	case "note-conflict-dirty-local":
		return fakeremote.NoteConflictWithDirtyLocal(), nil
	case "protocol-mismatch":
		return fakeremote.ProtocolMismatch(), nil
	case "linked-notebook-sync-skipped":
		return fakeremote.LinkedNotebookSyncSkipped(), nil
	default:
		return fakeremote.Scenario{}, fmt.Errorf("unknown scenario %q", name)
	}
}

func runSession(ctx context.Context, cfg config.Config, store gateway.LocalStoreGateway, cp checkpointFile, scenarioName string) error {
	scenario, err := scenarioByName(scenarioName)
	if err != nil {
		return err
	}
	remote := fakeremote.New(scenario)

	broker := authbroker.New()
	broker.SetUserToken("demo-token")
	for _, ln := range remote.LinkedNotebookList() {
		if err := store.AddLinkedNotebook(ctx, ln); err != nil {
			return fmt.Errorf("register linked notebook %s: %w", ln.GUID, err)
		}
		broker.SetLinkedNotebookToken(model.LinkedNotebookToken{
			LinkedNotebookGUID: ln.GUID,
			Token:              "demo-linked-token",
			Expiry:             time.Now().Add(24 * time.Hour),
		})
	}

	orch := orchestrator.New(orchestrator.Config{
		ClientName:               cfg.ClientName,
		MajorVersion:             cfg.MajorVersion,
		MinorVersion:             cfg.MinorVersion,
		DownloadNoteThumbnails:   cfg.DownloadNoteThumbnails,
		DownloadInkNoteImages:    cfg.DownloadInkNoteImages,
		InkNoteImagesStoragePath: cfg.InkNoteImagesStoragePath,
	}, orchestrator.Deps{
		UserStore:    remote,
		OwnNoteStore: remote,
		LinkedNoteStores: func(ln model.LinkedNotebook) (gateway.NoteStore, error) {
			return remote, nil
		},
		LocalStore: store,
		AuthBroker: broker,
		Emitter:    consoleEmitter{log: logx.WithComponent("session")},
	})

	priorParams, err := cp.load()
	if err != nil {
		return fmt.Errorf("load checkpoint: %w", err)
	}
	afterUSN := model.USN(0)
	if p, ok := priorParams[model.OwnScope]; ok {
		orch.SetLastSyncParameters(model.OwnScope, p)
		afterUSN = p.LastUpdateCount
	} else {
		orch.SetLastSyncParameters(model.OwnScope, model.SyncParameters{})
	}
	for guid, p := range priorParams {
		if guid != model.OwnScope {
			orch.SetLastSyncParameters(guid, p)
		}
	}

	sigCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	outcome, err := orch.Start(sigCtx, afterUSN)
	if err != nil {
		return fmt.Errorf("session failed: %w", err)
	}

	newParams := map[model.Scope]model.SyncParameters{
		model.OwnScope: {
			LastUpdateCount: outcome.LastUpdateCount,
			LastSyncTime:    outcome.LastSyncTime,
			EverFullySynced: true,
		},
	}
	for guid, usn := range outcome.PerLinkedNotebook.LastUpdateCount {
		newParams[model.Scope(guid)] = model.SyncParameters{
			LastUpdateCount: usn,
			LastSyncTime:    time.Unix(outcome.PerLinkedNotebook.LastSyncTime[guid], 0),
			EverFullySynced: true,
		}
	}
	if err := cp.save(newParams); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	fmt.Printf("sync complete: lastUpdateCount=%d\n", outcome.LastUpdateCount)
	return nil
}
