package subtitles

import (
	"context"
	"errors"
	"log/slog"

	"subwatch/internal/logging"
	"subwatch/internal/ratelimit"
	"subwatch/internal/subtitles/opensubtitles"
)

// invoke runs op behind the per-call interval gate and retries transient
// failures with exponential backoff.
func (f *Fetcher) invoke(ctx context.Context, logger *slog.Logger, op func() error) error {
	if op == nil {
		return errors.New("opensubtitles operation unavailable")
	}
	attempt := 0
	for {
		if err := f.apiGate.Wait(ctx); err != nil {
			return err
		}
		err := op()
		f.apiGate.Mark()
		if err == nil {
			return nil
		}
		if !opensubtitles.IsRetriable(err) || attempt >= opensubtitles.MaxRateRetries {
			return err
		}
		attempt++
		backoff := opensubtitles.Backoff(attempt)
		logging.WarnWithContext(logger, "opensubtitles rate limited, retrying", "opensubtitles_rate_limited",
			logging.Duration("backoff", backoff),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", opensubtitles.MaxRateRetries),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "wait for rate limits or check network connectivity"),
			logging.String(logging.FieldImpact, "fetch delayed"),
		)
		if err := ratelimit.Sleep(ctx, f.clock, backoff); err != nil {
			return err
		}
	}
}
