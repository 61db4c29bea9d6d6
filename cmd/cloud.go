package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/desertthunder/lapx/internal/locale"
	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/server"
	"github.com/desertthunder/lapx/internal/services"
	"github.com/desertthunder/lapx/internal/shared"
	"github.com/desertthunder/lapx/internal/tasks"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

// openForSync loads the project named by the "project" argument so the sync client has a live session.
func (r *Runner) openForSync(ctx context.Context, cmd *cli.Command) (*models.Project, *models.Session, error) {
	lapPath := cmd.StringArg("project")
	if lapPath == "" {
		return nil, nil, fmt.Errorf("%w: project path", shared.ErrMissingArgument)
	}
	project, session, err := r.loadSession(ctx, lapPath)
	if err != nil {
		return nil, nil, r.describeOpenError(err)
	}
	return project, session, nil
}

func (r *Runner) describeStatus(status services.Status) string {
	return r.catalog.Localize(status.MessageKey())
}

func (r *Runner) describeLastModified(lm services.LastModified, now time.Time) string {
	if lm.Never {
		return r.catalog.Localize(locale.CloudNeverUploaded)
	}
	return fmt.Sprintf("%s (%s)", lm.Time.Local().Format(time.DateTime), humanize.RelTime(lm.Time, now, "ago", "from now"))
}

// syncError turns a not-ready [services.StatusError] into its localized message.
func (r *Runner) syncError(err error) error {
	if status, ok := services.IsStatusError(err); ok {
		return fmt.Errorf("%s: %w", r.describeStatus(status), err)
	}
	return err
}

func transferKind(cmd *cli.Command) (models.TransferKind, error) {
	return models.ParseTransferKind(cmd.String("kind"))
}

// CloudStatus reports the sync precondition and, when ready, the remote chart and backup times.
//
// Without a project argument only the device id and reachability are checked.
func (r *Runner) CloudStatus(ctx context.Context, cmd *cli.Command) error {
	if cmd.StringArg("project") != "" {
		if _, _, err := r.openForSync(ctx, cmd); err != nil {
			return err
		}
	}

	client := r.syncClient()
	status := client.Status(ctx)

	r.writePlainHeader("Cloud")
	r.writePlain("Server:  %s\n", r.config.Cloud.BaseURL)
	r.writePlain("Device:  %s\n", orUnset(client.UserID()))
	r.writePlain("Status:  %s\n", r.describeStatus(status))

	if status != services.StatusReady {
		return nil
	}

	now := time.Now()
	for _, kind := range []models.TransferKind{models.TransferChart, models.TransferBackup} {
		lm, err := client.QueryLastModified(ctx, kind)
		if err != nil {
			r.writePlain("%-8s error: %v\n", kind.String()+":", err)
			continue
		}
		r.writePlain("%-8s %s\n", kind.String()+":", r.describeLastModified(lm, now))
	}
	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}

// CloudMtime prints when one remote file was last uploaded.
func (r *Runner) CloudMtime(ctx context.Context, cmd *cli.Command) error {
	kind, err := transferKind(cmd)
	if err != nil {
		return err
	}
	if _, _, err := r.openForSync(ctx, cmd); err != nil {
		return err
	}

	lm, err := r.syncClient().QueryLastModified(ctx, kind)
	if err != nil {
		return r.syncError(err)
	}
	if cmd.Bool("raw") {
		if lm.Never {
			return r.writePlain("%s\n", services.NotUploadedBefore)
		}
		return r.writePlain("%s\n", services.FormatLastModified(lm.Time))
	}
	return r.writePlain("%s: %s\n", kind, r.describeLastModified(lm, time.Now()))
}

func (r *Runner) uploadPayload(project *models.Project, session *models.Session, kind models.TransferKind) ([]byte, error) {
	if kind != models.TransferMusic {
		return []byte(session.ChartText()), nil
	}
	data, err := afero.ReadFile(r.fs, project.MusicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read music: %w", err)
	}
	return data, nil
}

// CloudUpload sends the live chart, a backup of it, or the music file.
func (r *Runner) CloudUpload(ctx context.Context, cmd *cli.Command) error {
	kind, err := transferKind(cmd)
	if err != nil {
		return err
	}
	project, session, err := r.openForSync(ctx, cmd)
	if err != nil {
		return err
	}
	payload, err := r.uploadPayload(project, session, kind)
	if err != nil {
		return err
	}

	quiet := cmd.Bool("quiet")
	step := 0.0
	onProgress := func(p float64) {
		if quiet || p < step {
			return
		}
		r.writePlain("[%3.0f%%] uploading %s\n", p*100, kind)
		step = p + 0.25
	}

	result, err := r.syncClient().Upload(ctx, kind, payload, onProgress)
	if err != nil {
		return r.syncError(err)
	}
	if !result.Sent {
		return r.writePlain("upload already in progress, nothing sent\n")
	}
	r.writePlain("✓ Uploaded %s (%s)\n", kind, humanize.Bytes(uint64(result.Bytes)))
	r.writePlain("  last modified: %s\n", r.describeLastModified(result.LastModified, time.Now()))
	return nil
}

// CloudDownload fetches a remote chart or backup and writes it as a .txt file.
func (r *Runner) CloudDownload(ctx context.Context, cmd *cli.Command) error {
	kind, err := transferKind(cmd)
	if err != nil {
		return err
	}
	if kind == models.TransferMusic {
		return fmt.Errorf("%w: music cannot be downloaded", shared.ErrInvalidArgument)
	}
	if _, _, err := r.openForSync(ctx, cmd); err != nil {
		return err
	}

	text, found, err := r.syncClient().Download(ctx, kind)
	if err != nil {
		return r.syncError(err)
	}
	if !found {
		return fmt.Errorf("%w: no %s stored for this project", shared.ErrNotFound, kind)
	}

	output := cmd.String("output")
	if output == "" {
		return r.writePlain("%s\n", text)
	}
	path, err := services.WriteChart(r.fs, output, text)
	if err != nil {
		return err
	}
	r.writePlain("✓ Downloaded %s to %s (%s)\n", kind, path, humanize.Bytes(uint64(len(text))))
	return nil
}

// CloudBackup loads a project and runs the periodic backup until interrupted.
func (r *Runner) CloudBackup(ctx context.Context, cmd *cli.Command) error {
	if _, _, err := r.openForSync(ctx, cmd); err != nil {
		return err
	}

	delay := r.config.Cloud.BackupDelay()
	if cmd.IsSet("delay") {
		delay = cmd.Duration("delay")
	}
	interval := r.config.Cloud.BackupInterval()
	if cmd.IsSet("interval") {
		interval = cmd.Duration("interval")
	}
	return r.runBackup(ctx, delay, interval)
}

// runBackup starts the backup loop for the live session and blocks until ctx ends or SIGINT/SIGTERM.
func (r *Runner) runBackup(ctx context.Context, delay, interval time.Duration) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := tasks.NewBackupScheduler(r.syncClient(), r.workspace, delay, interval, r.logger)
	if !scheduler.Start(ctx) {
		return fmt.Errorf("%w: %s", shared.ErrNetwork, r.catalog.Localize(locale.CloudNetworkUnreachable))
	}
	r.writePlain("Backing up every %s (first in %s). Press Ctrl+C to stop.\n", interval, delay)

	select {
	case <-ctx.Done():
	case <-scheduler.Done():
	}
	scheduler.Stop()
	r.writePlain("Backup stopped.\n")
	return nil
}

// CloudServe runs the cloud emulator backed by a folder.
func (r *Runner) CloudServe(ctx context.Context, cmd *cli.Command) error {
	host := r.config.Server.Host
	if cmd.IsSet("host") {
		host = cmd.String("host")
	}
	port := r.config.Server.Port
	if cmd.IsSet("port") {
		port = cmd.Int("port")
	}
	root := cmd.String("root")
	if root == "" {
		return fmt.Errorf("%w: storage root", shared.ErrMissingArgument)
	}
	if err := r.fs.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("failed to create storage root: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := server.NewCloudStore(r.fs, root)
	router := server.NewCloudRouter(store, r.config.Cloud, r.logger)
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	r.writePlain("Serving %s on http://%s\n", root, addr)
	for _, path := range router.Paths() {
		r.writePlain("  POST %s\n", path)
	}
	return server.Serve(ctx, addr, router, r.logger)
}
