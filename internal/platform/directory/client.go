// Package directory talks to the external worker directory and attendance service.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"workforce/internal/domain/payroll"
	"workforce/internal/platform/metrics"
)

type SnapshotCache interface {
	SaveSnapshot(ctx context.Context, snapshot payroll.WorkerSnapshot) error
	LoadSnapshot(ctx context.Context, workerID string) (payroll.WorkerSnapshot, error)
}

type Client struct {
	baseURL string
	http    *http.Client
	cache   SnapshotCache
	metrics *metrics.Collector
	now     func() time.Time
}

func New(baseURL string, timeout time.Duration, cache SnapshotCache, collector *metrics.Collector) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		cache:   cache,
		metrics: collector,
		now:     time.Now,
	}
}

// Worker fetches the live profile. A 404 maps to payroll.ErrWorkerNotFound, every other
// failure to payroll.ErrDirectoryUnavailable.
func (c *Client) Worker(ctx context.Context, workerID string) (payroll.Worker, error) {
	var worker payroll.Worker
	if err := c.getJSON(ctx, "/workers/"+url.PathEscape(workerID), nil, &worker); err != nil {
		return payroll.Worker{}, err
	}
	if worker.ID == "" {
		worker.ID = workerID
	}
	return worker, nil
}

func (c *Client) Attendance(ctx context.Context, workerID, month string) ([]payroll.TimeEntry, error) {
	query := url.Values{}
	if month != "" {
		query.Set("month", month)
	}
	var entries []payroll.TimeEntry
	if err := c.getJSON(ctx, "/workers/"+url.PathEscape(workerID)+"/attendance", query, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Snapshot returns the live profile and refreshes the cache, or the cached profile when
// the directory cannot be reached.
func (c *Client) Snapshot(ctx context.Context, workerID string) (payroll.WorkerSnapshot, error) {
	worker, err := c.Worker(ctx, workerID)
	if err == nil {
		snapshot := payroll.WorkerSnapshot{Worker: worker, FetchedAt: c.now()}
		if c.cache != nil {
			if cacheErr := c.cache.SaveSnapshot(ctx, snapshot); cacheErr != nil {
				slog.Warn("directory cache write failed", "workerId", workerID, "error", cacheErr)
			}
		}
		return snapshot, nil
	}
	if errors.Is(err, payroll.ErrWorkerNotFound) || c.cache == nil {
		return payroll.WorkerSnapshot{}, err
	}

	cached, cacheErr := c.cache.LoadSnapshot(ctx, workerID)
	if cacheErr != nil {
		slog.Warn("directory unavailable and no cached snapshot", "workerId", workerID, "error", err)
		return payroll.WorkerSnapshot{}, err
	}
	c.metrics.CacheFallback()
	slog.Warn("directory unavailable, serving cached snapshot", "workerId", workerID, "fetchedAt", cached.FetchedAt, "error", err)
	return cached, nil
}

// LoadSession fetches the worker and the month's attendance concurrently. Attendance
// failures only set AttendanceError on the result.
func (c *Client) LoadSession(ctx context.Context, workerID, month string) (payroll.WorkerMonth, error) {
	var (
		snapshot      payroll.WorkerSnapshot
		entries       []payroll.TimeEntry
		attendanceErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snapshot, err = c.Snapshot(gctx, workerID)
		return err
	})
	g.Go(func() error {
		entries, attendanceErr = c.Attendance(gctx, workerID, month)
		return nil
	})
	if err := g.Wait(); err != nil {
		return payroll.WorkerMonth{}, err
	}

	out := payroll.NewWorkerMonth(snapshot, month, entries)
	if attendanceErr != nil {
		slog.Warn("attendance unavailable", "workerId", workerID, "month", month, "error", attendanceErr)
		out.AttendanceError = attendanceErr.Error()
	}
	return out, nil
}

func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", payroll.ErrDirectoryUnavailable, err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", payroll.ErrDirectoryUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", payroll.ErrDirectoryUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", payroll.ErrWorkerNotFound, path)
	case resp.StatusCode >= 300:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s returned %d", payroll.ErrDirectoryUnavailable, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", payroll.ErrDirectoryUnavailable, path, err)
	}
	return nil
}
