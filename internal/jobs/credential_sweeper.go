// credential_sweeper.go implements the CredentialSweeper background job,
// which periodically purges expired OTP rows and long-expired refresh tokens.
// Expired credentials are already rejected at validation time, so the sweep
// is housekeeping only; it keeps the otps and refresh_tokens tables from
// growing without bound. The job is always safe to start.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/societyhub/societyhub/internal/db/repositories"
	"github.com/societyhub/societyhub/internal/telemetry"
)

// retainExpiredTokens keeps revoked/expired refresh-token rows around long
// enough for token-reuse detection and audit trails before deletion.
const retainExpiredTokens = 30 * 24 * time.Hour

// CredentialSweeper periodically deletes expired OTPs and refresh tokens.
type CredentialSweeper struct {
	otpRepo   *repositories.OTPRepository
	tokenRepo *repositories.TokenRepository
	interval  time.Duration
	stopChan  chan struct{}
}

// NewCredentialSweeper creates a sweeper. intervalHours controls how often
// the sweep runs (default 24h).
func NewCredentialSweeper(
	otpRepo *repositories.OTPRepository,
	tokenRepo *repositories.TokenRepository,
	intervalHours int,
) *CredentialSweeper {
	if intervalHours <= 0 {
		intervalHours = 24
	}
	return &CredentialSweeper{
		otpRepo:   otpRepo,
		tokenRepo: tokenRepo,
		interval:  time.Duration(intervalHours) * time.Hour,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the background sweep loop. It runs an initial sweep
// immediately, then repeats on the configured interval. The loop exits when
// ctx is cancelled or Stop() is called.
func (s *CredentialSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("credential sweeper started", "interval", s.interval)

	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopChan:
			slog.Info("credential sweeper stopped")
			return
		case <-ctx.Done():
			slog.Info("credential sweeper context cancelled")
			return
		}
	}
}

// Stop signals the background loop to exit.
func (s *CredentialSweeper) Stop() {
	close(s.stopChan)
}

func (s *CredentialSweeper) runSweep(ctx context.Context) {
	otps, err := s.otpRepo.DeleteExpired(ctx)
	if err != nil {
		slog.Error("credential sweeper: failed to purge expired OTPs", "error", err)
		return
	}

	tokens, err := s.tokenRepo.DeleteExpired(ctx, retainExpiredTokens)
	if err != nil {
		slog.Error("credential sweeper: failed to purge expired refresh tokens", "error", err)
		return
	}

	telemetry.CredentialSweepsTotal.Inc()
	if otps > 0 || tokens > 0 {
		slog.Info("credential sweep completed", "otps_deleted", otps, "tokens_deleted", tokens)
	}
}
