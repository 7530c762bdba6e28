package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/slok/zimg/internal/gallery"
	"github.com/slok/zimg/internal/model"
)

const promptColumnWidth = 40

// TablePrinter prints image generation information in a human table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintTask prints the task state with a progress bar.
func (t *TablePrinter) PrintTask(task model.Task) error {
	fmt.Fprintf(t.writer, "Task:       %s\n", task.ID)
	fmt.Fprintf(t.writer, "Status:     %s\n", task.Status)

	progress := ProgressBar(task.Progress)
	if task.TotalSteps > 0 {
		progress = fmt.Sprintf("%s (step %d/%d)", progress, task.CurrentStep, task.TotalSteps)
	}
	fmt.Fprintf(t.writer, "Progress:   %s\n", progress)

	if task.Message != "" {
		fmt.Fprintf(t.writer, "Message:    %s\n", task.Message)
	}
	if task.Error != "" {
		fmt.Fprintf(t.writer, "Error:      %s\n", task.Error)
	}
	if task.Result != nil {
		fmt.Fprintf(t.writer, "Image:      %s (%s)\n", task.Result.ID, task.Result.Filename)
	}

	return nil
}

// PrintSystemStatus prints the host utilization.
func (t *TablePrinter) PrintSystemStatus(status model.SystemStatus) error {
	cpu := status.CPU
	fmt.Fprintf(t.writer, "CPU:        %.1f%% (%d cores @ %.0f MHz)\n", cpu.UsagePercent, cpu.Cores, cpu.FrequencyMHz)

	mem := status.Memory
	fmt.Fprintf(t.writer, "Memory:     %s, %.1f GB available\n", FormatUsageGB(mem.UsedGB, mem.TotalGB, mem.UsagePercent), mem.AvailableGB)

	if gpu := status.GPU; gpu != nil && gpu.Available {
		fmt.Fprintf(t.writer, "GPU:        %s %.1f%%\n", gpu.Name, gpu.UsagePercent)
		fmt.Fprintf(t.writer, "GPU Memory: %s\n", FormatUsageGB(gpu.MemoryUsedGB, gpu.MemoryTotalGB, gpu.MemoryUsagePercent()))
		fmt.Fprintf(t.writer, "GPU Temp:   %.0f°C\n", gpu.TemperatureC)
	} else {
		fmt.Fprintf(t.writer, "GPU:        not available\n")
	}

	if disk := status.Disk; disk != nil {
		fmt.Fprintf(t.writer, "Disk:       %s, %.1f GB free (%s)\n", FormatUsageGB(disk.UsedGB, disk.TotalGB, disk.UsagePercent), disk.FreeGB, disk.Path)
	}

	fmt.Fprintf(t.writer, "Updated:    %s\n", FormatTimestamp(status.Timestamp))

	return nil
}

// PrintHistory prints a history page in a table format.
func (t *TablePrinter) PrintHistory(page model.HistoryPage) error {
	if len(page.Images) == 0 {
		fmt.Fprintln(t.writer, "No images found")
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "ID\tPROMPT\tSIZE\tSTEPS\tFILE SIZE\tCREATED")
	for _, img := range page.Images {
		fmt.Fprintf(tw, "%s\t%s\t%dx%d\t%d\t%s\t%s\n",
			img.ID,
			Truncate(img.Prompt, promptColumnWidth),
			img.Width, img.Height,
			img.NumInferenceSteps,
			FormatBytes(img.SizeBytes),
			TimeAgo(img.CreatedAt),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(t.writer, "\nPage %d/%d (%d images)\n", page.Page, max(page.TotalPages(), 1), page.Total)

	return nil
}

// PrintImage prints detailed image metadata.
func (t *TablePrinter) PrintImage(img model.ImageRecord) error {
	fmt.Fprintf(t.writer, "ID:         %s\n", img.ID)
	fmt.Fprintf(t.writer, "Filename:   %s\n", img.Filename)
	fmt.Fprintf(t.writer, "Prompt:     %s\n", img.Prompt)
	if img.NegativePrompt != "" {
		fmt.Fprintf(t.writer, "Negative:   %s\n", img.NegativePrompt)
	}
	fmt.Fprintf(t.writer, "Size:       %dx%d\n", img.Width, img.Height)
	fmt.Fprintf(t.writer, "Steps:      %d\n", img.NumInferenceSteps)
	if img.Seed != nil {
		fmt.Fprintf(t.writer, "Seed:       %d\n", *img.Seed)
	}
	fmt.Fprintf(t.writer, "GPU:        %t\n", img.UseGPU)
	fmt.Fprintf(t.writer, "File size:  %s\n", FormatBytes(img.SizeBytes))
	if img.GenerationTimeMS != nil {
		fmt.Fprintf(t.writer, "Took:       %s\n", FormatDurationMS(*img.GenerationTimeMS))
	}
	fmt.Fprintf(t.writer, "Created:    %s\n", FormatTimestamp(img.CreatedAt))

	return nil
}

// PrintBatchResult prints the per image outcome of a batch operation and a summary.
func (t *TablePrinter) PrintBatchResult(res gallery.BatchResult) error {
	saved := map[string]string{}
	for _, s := range res.Saved {
		saved[s.ImageID] = s.Path
	}

	for _, id := range res.Succeeded {
		if path, ok := saved[id]; ok {
			fmt.Fprintf(t.writer, "OK       %s -> %s\n", id, path)
			continue
		}
		fmt.Fprintf(t.writer, "OK       %s\n", id)
	}
	for _, f := range res.Failed {
		fmt.Fprintf(t.writer, "FAILED   %s: %s\n", f.ID, f.Err)
	}
	for _, id := range res.Skipped {
		fmt.Fprintf(t.writer, "SKIPPED  %s (not on the current page)\n", id)
	}
	for _, id := range res.Aborted {
		fmt.Fprintf(t.writer, "ABORTED  %s\n", id)
	}

	fmt.Fprintf(t.writer, "\n%d succeeded, %d failed, %d skipped, %d aborted\n",
		len(res.Succeeded), len(res.Failed), len(res.Skipped), len(res.Aborted))

	return nil
}

// PrintSavedArtifacts prints the locally saved images in a table format.
func (t *TablePrinter) PrintSavedArtifacts(saved []model.SavedArtifact) error {
	if len(saved) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tIMAGE\tPATH\tSIZE\tSAVED")
	for _, s := range saved {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.ImageID, s.Path, FormatBytes(s.SizeBytes), TimeAgo(s.SavedAt))
	}

	return nil
}

// PrintCleanup prints the history cleanup result.
func (t *TablePrinter) PrintCleanup(res model.CleanupResult) error {
	msg := res.Message
	if msg == "" {
		msg = "Cleanup completed"
	}
	fmt.Fprintf(t.writer, "%s: %d deleted, %d remaining\n", msg, res.DeletedCount, res.RemainingCount)
	return nil
}

// PrintMessage prints a simple message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}
