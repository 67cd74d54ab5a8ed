package preflight

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"clipforge/internal/brand"
	"clipforge/internal/config"
	"clipforge/internal/deps"
	"clipforge/internal/services/pexels"
)

// CheckPexels verifies that the Pexels video API is reachable and the key is
// accepted. A rate-limited response still passes: the key works, the budget
// is just spent.
func CheckPexels(ctx context.Context, baseURL, apiKey string) Result {
	const name = "Pexels API"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = pexels.DefaultBaseURL
	}
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "missing api key"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/search?query=nature&per_page=1", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	req.Header.Set("Authorization", strings.TrimSpace(apiKey))

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusTooManyRequests:
		return Result{Name: name, Passed: true, Detail: "Reachable (rate limited)"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%d)", resp.StatusCode)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFileAccess verifies that the file exists and is readable.
func CheckFileAccess(name, path string) Result {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable)", path)}
}

// CheckDiskSpace verifies that the filesystem holding path has at least
// minFree bytes available.
func CheckDiskSpace(name, path string, minFree uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	if free < minFree {
		return Result{Name: name, Detail: fmt.Sprintf("%.1f GiB free on %s, need %.1f GiB",
			float64(free)/(1<<30), path, float64(minFree)/(1<<30))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%.1f GiB free on %s",
		float64(free)/(1<<30), path)}
}

// CheckBrandKit verifies the configured brand kit parses and validates.
func CheckBrandKit(path string) Result {
	const name = "Brand kit"
	if _, err := brand.Load(path); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (valid)", strings.TrimSpace(path))}
}

// CheckWebhook validates the notification endpoint shape without posting to it.
func CheckWebhook(rawURL string) Result {
	const name = "Webhook"
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid url (%v)", err)}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Result{Name: name, Detail: fmt.Sprintf("unsupported scheme %q", parsed.Scheme)}
	}
	if parsed.Host == "" {
		return Result{Name: name, Detail: "url has no host"}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// CheckSystemDeps evaluates the external binaries the pipeline shells out to.
// The run, batch, and doctor commands all use this so the requirements list
// lives in one place.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for rendering",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for media inspection",
		},
	}
	return deps.CheckBinaries(requirements)
}
