// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration.
type Config struct {
	HTTP       HTTP
	App        App
	Fetch      Fetch
	Dir        Dir
	DepManager DepManager
	Proxy      Proxy
}

// App holds application-wide configuration.
type App struct {
	LogLevel string `env:"KONBATA_APP_LOG_LEVEL" envDefault:"info"`
}

// Fetch holds metadata resolution configuration.
type Fetch struct {
	// Timeout bounds one metadata fetch; a fetch that exceeds it fails the job.
	Timeout time.Duration `env:"KONBATA_FETCH_TIMEOUT" envDefault:"60s"`
	// Concurrency caps in-flight metadata fetches per run. 0 means unbounded,
	// matching the reference behavior of eager per-item dispatch.
	Concurrency int `env:"KONBATA_FETCH_CONCURRENCY" envDefault:"0"`
	// SearchLimit is the number of results requested for a search query.
	SearchLimit int `env:"KONBATA_FETCH_SEARCH_LIMIT" envDefault:"20"`
	// ThumbnailTimeout bounds one best-effort thumbnail fetch.
	ThumbnailTimeout time.Duration `env:"KONBATA_FETCH_THUMBNAIL_TIMEOUT" envDefault:"10s"`
}

// HTTP holds HTTP server configuration.
type HTTP struct {
	Port            string        `env:"KONBATA_HTTP_PORT"             envDefault:":8080"`
	HandlerTimeout  time.Duration `env:"KONBATA_HTTP_HANDLER_TIMEOUT"  envDefault:"20s"`
	ResolveTimeout  time.Duration `env:"KONBATA_HTTP_RESOLVE_TIMEOUT"  envDefault:"90s"`
	ShutdownTimeout time.Duration `env:"KONBATA_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Dir holds directory paths for downloads and the yt-dlp cache.
type Dir struct {
	Downloads string `env:"KONBATA_DIR_DOWNLOADS" envDefault:"./data/downloads"` // default output dir for runs
	Cache     string `env:"KONBATA_DIR_CACHE"     envDefault:"./data/cache"`     // yt-dlp cache (meta, sigs)

	// see: https://github.com/yt-dlp/yt-dlp/blob/2025.09.05/README.md#output-template
	FilenameTemplate string `env:"KONBATA_DIR_FILENAME_TEMPLATE" envDefault:"%(title).200s [%(id)s].%(ext)s"`
}

// SetAbsPaths converts all directory paths to absolute paths.
func (c *Dir) SetAbsPaths() error {
	var err error
	if c.Downloads, err = filepath.Abs(c.Downloads); err != nil {
		return fmt.Errorf("downloads: %w", err)
	}

	if c.Cache, err = filepath.Abs(c.Cache); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	return nil
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	cfg := &Config{}

	err := env.Parse(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	err = cfg.Dir.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set absolute paths: %w", err)
	}

	err = cfg.DepManager.SetAbsPaths()
	if err != nil {
		return nil, fmt.Errorf("set dep manager absolute paths: %w", err)
	}

	cfg.Proxy.parseList()

	return cfg, nil
}

// DepManager holds binary dependency management configuration.
type DepManager struct {
	// BinsDir is the directory where binaries are stored
	BinsDir string `env:"KONBATA_DEPMANAGER_BINS_DIR" envDefault:"./bins"`
	// UseSystemBinaries indicates whether to use system-installed binaries or download them.
	UseSystemBinaries bool `env:"KONBATA_DEPMANAGER_USE_SYSTEM_BINARIES" envDefault:"false"`
	// UpdateInterval is how often to check for binary updates
	UpdateInterval time.Duration `env:"KONBATA_DEPMANAGER_UPDATE_INTERVAL" envDefault:"24h"`

	// ffmpeg binary URLs per platform.
	FFmpegSHA256SumsURL string `env:"KONBATA_DEPMANAGER_FFMPEG_SHA256SUMS_URL" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/checksums.sha256"`                        //nolint:lll
	FFmpegLinuxARM64    string `env:"KONBATA_DEPMANAGER_FFMPEG_LINUX_ARM64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linuxarm64-gpl.tar.xz"` //nolint:lll
	FFmpegLinuxAMD64    string `env:"KONBATA_DEPMANAGER_FFMPEG_LINUX_AMD64" envDefault:"https://github.com/BtbN/FFmpeg-Builds/releases/latest/download/ffmpeg-master-latest-linux64-gpl.tar.xz"`    //nolint:lll

	// yt-dlp binary URLs per platform.
	YTdlpSHA256SumsURL string `env:"KONBATA_DEPMANAGER_YTDLP_SHA256SUMS_URL" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/SHA2-256SUMS"`      //nolint:lll
	YTdlpLinuxARM64    string `env:"KONBATA_DEPMANAGER_YTDLP_LINUX_ARM64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux_aarch64"` //nolint:lll
	YTdlpLinuxAMD64    string `env:"KONBATA_DEPMANAGER_YTDLP_LINUX_AMD64" envDefault:"https://github.com/yt-dlp/yt-dlp/releases/latest/download/yt-dlp_linux"`         //nolint:lll
}

// SetAbsPaths converts the BinsDir path to an absolute path.
func (d *DepManager) SetAbsPaths() error {
	var err error
	if d.BinsDir, err = filepath.Abs(d.BinsDir); err != nil {
		return fmt.Errorf("bins dir: %w", err)
	}

	return nil
}

// Proxy holds proxy configuration for collaborator invocations.
type Proxy struct {
	// List is a comma-separated list of proxy URLs in socks5h or http format
	List string `env:"KONBATA_PROXY_LIST" envDefault:""`
	// HealthCheck enables a TCP dial check before handing out a proxy
	HealthCheck bool `env:"KONBATA_PROXY_HEALTH_CHECK" envDefault:"true"`
	// HealthTimeout bounds one proxy health check
	HealthTimeout time.Duration `env:"KONBATA_PROXY_HEALTH_TIMEOUT" envDefault:"5s"`

	// URLs is the parsed list of proxy URLs
	URLs []string `env:"-"`
}

// parseList parses the comma-separated proxy list.
func (p *Proxy) parseList() {
	if p.List == "" {
		return
	}

	for proxy := range strings.SplitSeq(p.List, ",") {
		proxy = strings.TrimSpace(proxy)
		if proxy != "" {
			p.URLs = append(p.URLs, proxy)
		}
	}
}
