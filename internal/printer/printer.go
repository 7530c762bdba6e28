package printer

import (
	"github.com/slok/zimg/internal/gallery"
	"github.com/slok/zimg/internal/model"
)

// Printer knows how to print image generation information in different formats.
type Printer interface {
	PrintTask(task model.Task) error
	PrintSystemStatus(status model.SystemStatus) error
	PrintHistory(page model.HistoryPage) error
	PrintImage(img model.ImageRecord) error
	PrintBatchResult(res gallery.BatchResult) error
	PrintSavedArtifacts(saved []model.SavedArtifact) error
	PrintCleanup(res model.CleanupResult) error
	PrintMessage(msg string) error
}
