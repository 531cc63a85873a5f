package reward

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukerupert/taskblast/internal/model"
)

// PendingScoreKey is where the game leaves a score that has not been credited yet.
const PendingScoreKey = "pendingGameScore"

var ErrInvalidScore = errors.New("invalid pending game score")

type PendingStore interface {
	Get(key string) (string, bool, error)
	Delete(key string) error
}

// ScoreFlusher moves a pending game score from device prefs into the balance.
type ScoreFlusher struct {
	prefs   PendingStore
	settler *Settler
}

func NewScoreFlusher(prefs PendingStore, settler *Settler) *ScoreFlusher {
	return &ScoreFlusher{prefs: prefs, settler: settler}
}

// Flush credits the pending score and returns the amount. The key is removed
// only after the credit succeeds. A malformed value is dropped.
func (f *ScoreFlusher) Flush(ctx context.Context, owner model.OwnerRef) (int, error) {
	raw, ok, err := f.prefs.Get(PendingScoreKey)
	if err != nil {
		return 0, fmt.Errorf("read pending score: %w", err)
	}
	if !ok {
		return 0, nil
	}

	score, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || score < 0 {
		if derr := f.prefs.Delete(PendingScoreKey); derr != nil {
			return 0, fmt.Errorf("clear pending score: %w", derr)
		}
		return 0, fmt.Errorf("%w: %q", ErrInvalidScore, raw)
	}

	if score > 0 {
		if _, err := f.settler.Settle(ctx, owner, score, model.SourceGameScore); err != nil {
			return 0, err
		}
	}
	if err := f.prefs.Delete(PendingScoreKey); err != nil {
		return score, fmt.Errorf("clear pending score: %w", err)
	}
	return score, nil
}
