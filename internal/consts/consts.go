// Package consts defines application-wide constants.
package consts

import "time"

const (
	// DefaultHandlerTimeout is the default timeout for HTTP handlers.
	DefaultHandlerTimeout = 30 * time.Second
	// DefaultFetchTimeout is the default timeout for a metadata fetch.
	DefaultFetchTimeout = 60 * time.Second
	// DefaultThumbnailTimeout is the default timeout for one thumbnail fetch.
	DefaultThumbnailTimeout = 10 * time.Second
	// DefaultSearchLimit is the number of results requested for a search query.
	DefaultSearchLimit = 20
	// DefaultQuality is the quality selector meaning "no constraint".
	DefaultQuality = "best"
	// DefaultSimulateTime is the default time to simulate processing in the mock downloader.
	DefaultSimulateTime = 1 * time.Second
)

// Job status lines shown to the user. The downloader and orchestrator emit
// these through status events.
const (
	StatusFetchingMetadata = "Fetching metadata..."
	StatusMetadataReady    = "Metadata ready"
	StatusStarting         = "Starting..."
	StatusProcessing       = "Processing..."
	StatusPaused           = "Paused"
	StatusResuming         = "Resuming..."
	StatusDone             = "Done"
	StatusStopped          = "Stopped"
)

// HTTP response messages.
const (
	// RespInvalidRequestBody is returned when the request body is invalid.
	RespInvalidRequestBody = "invalid request body"
	// RespQueryParamMissing is returned when a required query parameter is missing or invalid.
	RespQueryParamMissing = "query param missing or invalid"
	// RespUnprocessableEntity is returned when the request cannot be processed.
	RespUnprocessableEntity = "unprocessable entity"
	// RespResolveFail is returned when a metadata fetch fails.
	RespResolveFail = "metadata fetch failed"
	// RespRecordResolved is returned when a record is resolved and added to the selection.
	RespRecordResolved = "record resolved"
	// RespSelectionRetrieved is returned when the selection is successfully listed.
	RespSelectionRetrieved = "selection retrieved"
	// RespSelectionEmpty is returned when the selection has no records.
	RespSelectionEmpty = "selection is empty"
	// RespRecordRemoved is returned when a record is removed from the selection.
	RespRecordRemoved = "record removed"
	// RespSelectionCleared is returned when the selection is cleared.
	RespSelectionCleared = "selection cleared"
	// RespRecordNotFound is returned when a record is not in the selection.
	RespRecordNotFound = "record not found"
	// RespRunStarted is returned when a run is successfully started.
	RespRunStarted = "run started"
	// RespRunStartFail is returned when a run cannot be started.
	RespRunStartFail = "run start failed"
	// RespRunActive is returned when a run is already in progress.
	RespRunActive = "run already active"
	// RespRunRetrieved is returned when run status is successfully retrieved.
	RespRunRetrieved = "run retrieved"
	// RespNoRun is returned when no run has been started.
	RespNoRun = "no active run"
	// RespRunPaused is returned when the run is paused.
	RespRunPaused = "run paused"
	// RespRunResumed is returned when the run is resumed.
	RespRunResumed = "run resumed"
	// RespRunStopped is returned when the run is stopped.
	RespRunStopped = "run stopped"
)

// Downloader identifiers.
const (
	// DownloaderYTdlp is the yt-dlp downloader identifier.
	DownloaderYTdlp = "ytdlp"
	// DownloaderMock is the mock downloader identifier for testing.
	DownloaderMock = "mock"
)
