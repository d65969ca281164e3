package services

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/snapvault/internal/blobstore"
	"github.com/dmitrijs2005/snapvault/internal/common"
	"github.com/dmitrijs2005/snapvault/internal/logging"
	"github.com/dmitrijs2005/snapvault/internal/server/models"
	"github.com/dmitrijs2005/snapvault/internal/server/repositories/repomanager"
	"golang.org/x/sync/errgroup"
)

// Phase names the pipeline stage a progress update refers to.
type Phase string

const (
	PhaseResolving  Phase = "resolving"
	PhaseFetching   Phase = "fetching"
	PhaseAssembling Phase = "assembling"
)

// Progress is one observable pipeline step: Item of Total finished or
// entering the given phase.
type Progress struct {
	Phase Phase
	Item  int
	Total int
}

// ProgressTracker lets a caller poll (Snapshot) or subscribe (Updates) to
// pipeline progress. Publishing never blocks the pipeline: a slow subscriber
// just misses intermediate updates.
type ProgressTracker struct {
	mu  sync.Mutex
	cur Progress
	sub chan Progress
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{sub: make(chan Progress, 16)}
}

func (t *ProgressTracker) publish(p Progress) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.cur = p
	t.mu.Unlock()
	select {
	case t.sub <- p:
	default:
	}
}

func (t *ProgressTracker) Snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cur
}

func (t *ProgressTracker) Updates() <-chan Progress {
	return t.sub
}

// ExportResult is the outcome of a batch export: the archive plus the ids of
// assets that failed to hydrate, so the caller can retry only those.
type ExportResult struct {
	Archive        []byte
	Filename       string
	FailedAssetIDs []string
}

// ExportService is the hydration and export pipeline: the only component
// that touches asset bytes. It resolves rotating handles fresh on every
// attempt, fetches with bounded concurrency, and assembles deterministic
// archives.
type ExportService struct {
	db          *sql.DB
	repos       repomanager.RepositoryManager
	store       blobstore.Store
	client      *http.Client
	logger      logging.Logger
	concurrency int
	opTimeout   time.Duration
}

func NewExportService(db *sql.DB, repos repomanager.RepositoryManager, store blobstore.Store,
	concurrency int, opTimeout time.Duration, logger logging.Logger) *ExportService {

	if concurrency < 1 {
		concurrency = 1
	}
	return &ExportService{
		db:          db,
		repos:       repos,
		store:       store,
		client:      &http.Client{},
		logger:      logger.With("module", "export_service"),
		concurrency: concurrency,
		opTimeout:   opTimeout,
	}
}

// Hydrate returns a live fetch URL for one asset. The cached locator is
// probed first; on a miss a fresh URL is resolved and cached back onto the
// vault record, so repeated calls converge instead of multiplying network
// round-trips.
func (s *ExportService) Hydrate(ctx context.Context, vault *models.Vault, assetID string) (string, error) {

	idx := -1
	for i := range vault.Assets {
		if vault.Assets[i].ID == assetID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", common.ErrNotFound
	}
	asset := &vault.Assets[idx]

	if asset.CachedLocator != "" && s.probe(ctx, asset.CachedLocator) {
		return asset.CachedLocator, nil
	}

	rctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	url, err := s.store.Resolve(rctx, asset.RemoteHandle)
	cancel()
	if err != nil {
		return "", fmt.Errorf("resolving asset %s: %w", assetID, err)
	}

	asset.CachedLocator = url

	// Cache write-back is best effort; a failed write just means the next
	// call resolves again.
	if _, err := s.repos.Vaults(s.db).ReplaceAssets(ctx, vault.ID, vault.Assets); err != nil {
		s.logger.Warn(ctx, "locator cache write-back failed", "vault_id", vault.ID, "error", err.Error())
	}

	return url, nil
}

// Export hydrates the selected assets (all of them when assetIDs is nil) and
// assembles the successes into a zip archive. Per-item failures never abort
// the batch; they are reported in the result. Only a batch with zero
// successes fails, with ErrExportEmpty.
func (s *ExportService) Export(ctx context.Context, vault *models.Vault, assetIDs []string, tracker *ProgressTracker) (*ExportResult, error) {

	if vault.IsViewOnly {
		return nil, common.ErrViewOnly
	}

	targets := selectAssets(vault.Assets, assetIDs)
	if len(targets) == 0 {
		return nil, common.ErrExportEmpty
	}

	total := len(targets)
	payloads := make([][]byte, total)
	failures := make([]error, total)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	done := 0
	var mu sync.Mutex

	for i := range targets {
		// Cancellation is coarse-grained: stop launching new items once the
		// caller gives up, but let in-flight fetches finish.
		if ctx.Err() != nil {
			failures[i] = ctx.Err()
			continue
		}

		i := i
		asset := targets[i]
		g.Go(func() error {
			tracker.publish(Progress{Phase: PhaseResolving, Item: i + 1, Total: total})
			data, err := s.fetchAsset(gctx, asset, tracker, i+1, total)

			mu.Lock()
			payloads[i] = data
			failures[i] = err
			done++
			mu.Unlock()

			if err != nil {
				s.logger.Warn(ctx, "asset hydration failed",
					"vault_id", vault.ID, "asset_id", asset.ID, "error", err.Error())
			}
			return nil
		})
	}

	_ = g.Wait()

	tracker.publish(Progress{Phase: PhaseAssembling, Item: total, Total: total})

	names := archiveNames(targets)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	succeeded := 0
	var failedIDs []string
	for i, asset := range targets {
		if failures[i] != nil {
			failedIDs = append(failedIDs, asset.ID)
			continue
		}
		f, err := zw.Create(names[i])
		if err != nil {
			return nil, fmt.Errorf("assembling archive: %w", err)
		}
		if _, err := f.Write(payloads[i]); err != nil {
			return nil, fmt.Errorf("assembling archive: %w", err)
		}
		succeeded++
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("assembling archive: %w", err)
	}

	if succeeded == 0 {
		return nil, common.ErrExportEmpty
	}

	s.logger.Info(ctx, "export assembled",
		"vault_id", vault.ID, "succeeded", succeeded, "failed", len(failedIDs))

	return &ExportResult{
		Archive:        buf.Bytes(),
		Filename:       exportFilename(vault),
		FailedAssetIDs: failedIDs,
	}, nil
}

// fetchAsset resolves a fresh URL for the asset and downloads its bytes.
// Cached locators are deliberately ignored here: batch export always
// re-resolves, per the rotating-URL contract.
func (s *ExportService) fetchAsset(ctx context.Context, asset models.Asset, tracker *ProgressTracker, item, total int) ([]byte, error) {

	rctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	url, err := s.store.Resolve(rctx, asset.RemoteHandle)
	cancel()
	if err != nil {
		return nil, err
	}

	tracker.publish(Progress{Phase: PhaseFetching, Item: item, Total: total})

	fctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch failed: status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// probe checks whether a previously cached locator still serves bytes.
func (s *ExportService) probe(ctx context.Context, url string) bool {
	pctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(pctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// selectAssets keeps the vault's insertion order; a subset is the vault
// order filtered down, not the request order.
func selectAssets(assets []models.Asset, ids []string) []models.Asset {
	if ids == nil {
		return assets
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	selected := make([]models.Asset, 0, len(ids))
	for _, a := range assets {
		if _, ok := want[a.ID]; ok {
			selected = append(selected, a)
		}
	}
	return selected
}

// archiveNames assigns entry names in input order, suffixing duplicates
// deterministically: "a.jpg", "a (1).jpg", "a (2).jpg". Names are assigned
// over the full target set, so which items happened to fail does not shift
// the names of the survivors between runs.
func archiveNames(assets []models.Asset) []string {
	seen := make(map[string]int, len(assets))
	names := make([]string, len(assets))
	for i, a := range assets {
		n := seen[a.Name]
		seen[a.Name] = n + 1
		if n == 0 {
			names[i] = a.Name
			continue
		}
		ext := filepath.Ext(a.Name)
		base := strings.TrimSuffix(a.Name, ext)
		names[i] = fmt.Sprintf("%s (%d)%s", base, n, ext)
	}
	return names
}

func exportFilename(vault *models.Vault) string {
	name := vault.DisplayName
	if name == "" {
		name = vault.Username
	}
	return fmt.Sprintf("SnapVault_%s.zip", name)
}
