package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"subwatch/internal/subtitles/opensubtitles"
)

const loginCheckTimeout = 30 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable and
// writable, since subtitles are written beside the videos.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
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

// CheckLogin runs a live login with a bounded timeout.
func CheckLogin(ctx context.Context, login LoginCheck) Result {
	const name = "OpenSubtitles login"
	checkCtx, cancel := context.WithTimeout(ctx, loginCheckTimeout)
	defer cancel()

	user, err := login(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeLoginError(err)}
	}
	detail := "login ok"
	if user != "" {
		detail = "logged in as " + user
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

func summarizeLoginError(err error) string {
	var apiErr *opensubtitles.APIError
	switch {
	case errors.As(err, &apiErr):
		switch apiErr.Status {
		case 401:
			return "rejected (check login and password)"
		case 403:
			return "forbidden (check api_key and user_agent)"
		case 429:
			return "rate limited (try again later)"
		default:
			return fmt.Sprintf("failed (%d)", apiErr.Status)
		}
	case errors.Is(err, opensubtitles.ErrNoToken):
		return "no token returned"
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return "unreachable (" + netErr.Error() + ")"
	}
	return err.Error()
}
