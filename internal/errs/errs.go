// Package errs defines common error variables used across the application.
package errs

import "errors"

var (
	// ErrInvalidRequestBody indicates that the request body is invalid or cannot be parsed.
	ErrInvalidRequestBody = errors.New("invalid request body")
)

// Valid request errors.
var (
	// ErrInvalidURL indicates that the URL field in the request is invalid.
	ErrInvalidURL = errors.New("invalid url field")
	// ErrInvalidKind indicates that the output kind is neither audio nor video.
	ErrInvalidKind = errors.New("invalid kind field")
	// ErrInvalidContainer indicates that the container field is empty.
	ErrInvalidContainer = errors.New("invalid container field")
)

// Classification errors. Reported before any collaborator call is made.
var (
	// ErrRadioUnsupported indicates that the URL points to an auto-generated
	// radio/mix pseudo-playlist, which cannot be enumerated.
	ErrRadioUnsupported = errors.New("radio and mix playlists are not supported")
)

// Resolution errors.
var (
	// ErrFetchTimeout indicates that the metadata fetch exceeded its deadline.
	ErrFetchTimeout = errors.New("metadata fetch timed out")
	// ErrEmptyMetadata indicates that the extractor returned no usable metadata.
	ErrEmptyMetadata = errors.New("extractor returned empty metadata")
)

// Run and orchestrator errors.
var (
	// ErrRunActive indicates that a run is already in progress.
	ErrRunActive = errors.New("a run is already active")
	// ErrNoRun indicates that no run has been started.
	ErrNoRun = errors.New("no active run")
	// ErrNoJobs indicates that a run was started with an empty job list.
	ErrNoJobs = errors.New("no jobs to process")
	// ErrOutputDir indicates that the output directory is not creatable or
	// writable. This error is fatal to the whole run.
	ErrOutputDir = errors.New("output directory unusable")
	// ErrRunStopped indicates that the run was stopped by the user.
	ErrRunStopped = errors.New("run stopped by user")
)

// Selection errors.
var (
	// ErrRecordNotFound indicates that the record is not in the selection set.
	ErrRecordNotFound = errors.New("record not found in selection")
	// ErrSelectionEmpty indicates that the selection set is empty.
	ErrSelectionEmpty = errors.New("selection is empty")
)

// Downloader errors.
var (
	// ErrDownloadFailed indicates that the download failed.
	ErrDownloadFailed = errors.New("download failed")
	// ErrBinaryNotFound indicates that the required binary was not found.
	ErrBinaryNotFound = errors.New("binary not found")
	// ErrUnsupportedPlatform indicates that the current platform is not supported.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// Proxy errors.
var (
	// ErrNoProxiesAvailable indicates that no proxies are available.
	ErrNoProxiesAvailable = errors.New("no proxies available")
)
