// Package tasks runs the long-lived operations of a chart project with progress reporting.
//
// # Load Pipeline
//
// [Pipeline.Run] turns a [models.Project] into a live [models.Session] through ordered stages:
//
//  1. [StageValidate] : name and designer must be present; nothing touches the disk before this passes
//  2. [StageChart] : best-effort copy to <stem>_backup<ext>, then read the chart and check it is JSON
//  3. [StageBackgrounds] : decode the color, gray and linear layers that the layer count maps to
//  4. [StageMusic] : pick a codec from the extension, then decode
//  5. [StageVideo] : note <projectFolder>/background.mp4 when present
//  6. [StageFinalize] : save preferences, enter the editor, re-save the descriptor, commit, record as recent
//
// The first failing stage ends the run with a [StageError] carrying a localized message.
// The session is committed to the [models.Workspace] only at the end of Finalize; a failed
// run releases it and leaves the previous session live.
//
// # Progress Reporting
//
// [Pipeline.Progress] can be polled at any time and never decreases within a run. The
// checkpoints are 0.5 after validation, 0.6 after the chart, 0.65 after layer mapping,
// 0.7/0.8/0.9 after each background role, 0.95 before the editor transition (whose own
// progress p maps to 0.95+0.05p) and 1.0 at the end. Updates are also pushed as
// [ProgressUpdate] values through an optional channel using select with default, so a
// slow consumer never blocks a run.
//
// # Backups and Saving
//
// [BackupScheduler] uploads the live chart text as the backup file after an initial delay
// and then on a fixed interval. [ChartSaver] writes the live chart to disk and uploads it
// when cloud autosave is enabled.
package tasks
