package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default zimg data directory name (relative to home).
	DefaultDataDir = ".zimg"
	// DownloadsDir is the subdirectory where downloaded images are saved.
	DownloadsDir = "downloads"
	// DBFile is the saved images ledger database filename.
	DBFile = "zimg.db"

	// DefaultAPIURL is the image generation service base URL.
	DefaultAPIURL = "http://localhost:15000"
	// DefaultDevServerAddress is the address the development backend listens on.
	DefaultDevServerAddress = "localhost:15000"
)

// DownloadsPath returns the default directory for downloaded images.
func DownloadsPath(dataDir string) string {
	return filepath.Join(dataDir, DownloadsDir)
}

// DBPath returns the default saved images ledger database path.
func DBPath(dataDir string) string {
	return filepath.Join(dataDir, DBFile)
}
