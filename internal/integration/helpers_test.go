//go:build integration
// +build integration

package integration_test

import (
	_ "embed"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"konbata/internal/config"
	"konbata/internal/depmanager"
	"konbata/internal/downloader"
	"konbata/internal/fetcher"
	httprouter "konbata/internal/infrastructure/delivery/http"
	"konbata/internal/orchestrator"
	"konbata/internal/selection"
	"konbata/internal/ws"
)

//go:embed testdata/fake-ytdlp.sh
var fakeYTdlpScript string

// ffmpeg and ffprobe are never executed by these tests, the stubs only
// satisfy the system binary lookup.
const fakeToolScript = "#!/bin/sh\nexit 0\n"

type integrationFixture struct {
	cfg    *config.Config
	fetch  fetcher.Fetcher
	dl     *downloader.Mock
	sel    *selection.Set
	orc    *orchestrator.Orchestrator
	client *http.Client
	url    string
}

// newIntegrationFixture wires the real fetcher against a fake yt-dlp binary
// installed through the dependency manager, with the full HTTP stack on top.
// Downloads run through the mock execution unit.
func newIntegrationFixture(t *testing.T, mode string) *integrationFixture {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("integration fake yt-dlp helper uses shell script")
	}

	baseDir := t.TempDir()
	binsDir := filepath.Join(baseDir, "bins")
	downloadsDir := filepath.Join(baseDir, "downloads")
	cacheDir := filepath.Join(baseDir, "cache")

	for _, dir := range []string{binsDir, downloadsDir, cacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	cfg, err := config.New()
	if err != nil {
		t.Fatalf("config new: %v", err)
	}

	cfg.DepManager.BinsDir = binsDir
	cfg.DepManager.UseSystemBinaries = true
	cfg.Dir.Downloads = downloadsDir
	cfg.Dir.Cache = cacheDir
	cfg.Fetch.Timeout = 5 * time.Second

	if err := os.WriteFile(filepath.Join(binsDir, "yt-dlp"), []byte(fakeYTdlpScript), 0o755); err != nil {
		t.Fatalf("write fake yt-dlp: %v", err)
	}

	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		if err := os.WriteFile(filepath.Join(binsDir, tool), []byte(fakeToolScript), 0o755); err != nil {
			t.Fatalf("write fake %s: %v", tool, err)
		}
	}

	t.Setenv("PATH", binsDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	t.Setenv("KONBATA_FAKE_MODE", mode)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	depMgr := depmanager.New(log, cfg)
	if err := depMgr.SetSystemBinaries(); err != nil {
		t.Fatalf("set system binaries: %v", err)
	}

	fetch := fetcher.New(log, cfg, depMgr, nil, nil)

	dl := downloader.NewMock()
	dl.SimulateTime = 40 * time.Millisecond

	sel := selection.New(log)
	orc := orchestrator.New(log, cfg, fetch, dl, nil, nil)

	hub := ws.NewHub(log, orc.Events(), nil)
	go hub.Run(t.Context())

	router := httprouter.New(log, cfg, fetch, sel, orc, hub, nil)
	server := httptest.NewServer(router)

	client := server.Client()
	client.Timeout = 10 * time.Second

	t.Cleanup(server.Close)

	return &integrationFixture{
		cfg:    cfg,
		fetch:  fetch,
		dl:     dl,
		sel:    sel,
		orc:    orc,
		client: client,
		url:    server.URL,
	}
}
