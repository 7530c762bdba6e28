package model

import "time"

// ImageRecord is a generated image (artifact) and its metadata.
type ImageRecord struct {
	ID                string
	Filename          string
	Prompt            string
	NegativePrompt    string
	Width             int
	Height            int
	NumInferenceSteps int
	UseGPU            bool
	Seed              *int64
	SizeBytes         int64
	GenerationTimeMS  *float64
	CreatedAt         time.Time
}

// HistoryPage is a page of the generation history, newest first.
type HistoryPage struct {
	Images   []ImageRecord
	Total    int
	Page     int
	PageSize int
}

// TotalPages returns the number of pages for the history.
func (h HistoryPage) TotalPages() int {
	if h.PageSize <= 0 {
		return 0
	}
	return (h.Total + h.PageSize - 1) / h.PageSize
}

// Find returns the image with the ID on the page.
func (h HistoryPage) Find(id string) (ImageRecord, bool) {
	for _, img := range h.Images {
		if img.ID == id {
			return img, true
		}
	}
	return ImageRecord{}, false
}

// CleanupResult is the result of a remote history retention cleanup.
type CleanupResult struct {
	Message        string
	DeletedCount   int
	RemainingCount int
}

// SavedArtifact is a downloaded image stored on the local filesystem.
type SavedArtifact struct {
	ID        string
	ImageID   string
	Filename  string
	Path      string
	Prompt    string
	SizeBytes int64
	SavedAt   time.Time
}
