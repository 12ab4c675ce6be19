package tui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"

	"github.com/joe/gamesync/internal/syncengine"
	"github.com/joe/gamesync/internal/tui/shared"
	"github.com/joe/gamesync/pkg/signature"
)

// PlainReporter prints engine events as lines, with a byte progress bar
// during the transfer. It is used when stdout is not a terminal or --plain
// was given.
type PlainReporter struct {
	mu  sync.Mutex
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewPlainReporter writes to out.
func NewPlainReporter(out io.Writer) *PlainReporter {
	return &PlainReporter{out: out}
}

// Emit implements syncengine.EventEmitter.
func (r *PlainReporter) Emit(event syncengine.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch e := event.(type) {
	case syncengine.TreeBuilt:
		r.printf("tree: %d menus, %d games, %s\n", e.Menus, e.Games, shared.FormatBytes(e.TotalSize))
	case syncengine.CapacityChecked:
		status := "ok"
		if !e.OK {
			status = "NOT ENOUGH SPACE"
		}

		r.printf("space: need %s of %s available, %s\n",
			shared.FormatBytes(e.Required), shared.FormatBytes(e.Available), status)
	case syncengine.TargetListed:
		r.printf("target: %d files, %s via %s\n", e.Files, shared.FormatBytes(e.Bytes), e.Transport)
	case syncengine.PlanComputed:
		p := e.Plan
		r.printf("plan: upload %d (%s), delete %d (%s), protected %d, unchanged %d\n",
			p.FilesToUpload, shared.FormatBytes(p.BytesToUpload),
			p.FilesToDelete, shared.FormatBytes(p.BytesToDelete),
			p.FilesProtected, p.FilesUnchanged)
	case syncengine.DeleteComplete:
		r.printf("deleted %d files (%s)\n", e.Files, shared.FormatBytes(e.Bytes))
	case syncengine.TransferStarted:
		r.printf("uploading %d files (%s) via %s\n", e.Files, shared.FormatBytes(e.Bytes), e.Transport)
		r.bar = progressbar.NewOptions64(e.Bytes,
			progressbar.OptionSetWriter(r.out),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(shared.ProgressBarWidth),
			progressbar.OptionThrottle(shared.TickIntervalMs*time.Millisecond),
			progressbar.OptionSetDescription("upload"),
		)
	case syncengine.TransferProgress:
		if r.bar != nil {
			_ = r.bar.Set64(e.Progress.BytesDone)
		}
	case syncengine.TransferComplete:
		if r.bar != nil {
			_ = r.bar.Finish()
			r.bar = nil
			r.printf("\n")
		}

		r.printf("uploaded %d files (%s) in %s\n", e.Files, shared.FormatBytes(e.Bytes), shared.FormatDuration(e.Duration))
	case syncengine.RelinkComplete:
		if e.Err != nil {
			r.printf("warning: relink failed: %v\n", e.Err)
		} else {
			r.printf("relinked %d original games\n", e.Games)
		}
	case syncengine.ConfigPersisted:
		r.printf("device config saved (%d keys)\n", e.Keys)
	case syncengine.ErrorOccurred:
		r.printf("error during %s: %v\n", e.Phase, e.Err)
	case syncengine.SyncComplete:
		PrintSummary(r.out, e.Result)
	}
}

func (r *PlainReporter) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, format, args...)
}

// PrintPlan writes one table row per file a run would upload or delete.
// Stale files matched by protect are listed as kept.
func PrintPlan(out io.Writer, plan *signature.Plan, protect *syncengine.ProtectFilter) {
	if plan == nil {
		return
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Action", "Path", "Size", "Modified"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)

	for _, e := range plan.ToDelete {
		action := "delete"
		if protect.Protects(e.Path) {
			action = "keep"
		}

		table.Append(planRow(action, e))
	}

	for _, e := range plan.ToUpload {
		table.Append(planRow("upload", e))
	}

	table.Render()
}

func planRow(action string, e *signature.Entry) []string {
	return []string{action, e.Path, shared.FormatBytes(e.Size), e.ModTime.Format(time.DateTime)}
}

// PrintSummary writes the outcome of a run.
func PrintSummary(out io.Writer, result *syncengine.SyncResult) {
	if result == nil {
		return
	}

	switch {
	case result.Err != nil:
		_, _ = fmt.Fprintf(out, "sync failed: %v\n", result.Err)
	case result.DryRun:
		_, _ = fmt.Fprintf(out, "dry run complete, nothing was changed (%s)\n", shared.FormatDuration(result.Duration))
	default:
		_, _ = fmt.Fprintf(out, "sync complete: uploaded %d files (%s), deleted %d files via %s in %s\n",
			result.FilesUploaded, shared.FormatBytes(result.BytesUploaded),
			result.FilesDeleted, result.Transport, shared.FormatDuration(result.Duration))
	}
}
