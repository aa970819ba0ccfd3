package media

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/your-org/ytmerge/internal/models"
	"github.com/your-org/ytmerge/internal/observability"
)

// Resolver creates upstream sessions. Session creation failure is fatal for
// the request that asked for it.
type Resolver interface {
	NewSession(ctx context.Context) (Session, error)
}

// Session fetches basic info and resolves per-descriptor access URLs.
type Session interface {
	BasicInfo(ctx context.Context, id string) (*models.BasicInfo, error)
	// Decipher returns a directly fetchable URL for d.
	Decipher(ctx context.Context, d models.StreamDescriptor) (string, error)
}

// DecipherAll resolves the access URL of every descriptor using at most limit
// concurrent calls. Output order and length match the input. A descriptor whose
// decipher fails is replaced by its stripped form and the failure is logged.
func DecipherAll(ctx context.Context, sess Session, descriptors []models.StreamDescriptor, limit int) []models.StreamDescriptor {
	out := make([]models.StreamDescriptor, len(descriptors))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, d := range descriptors {
		g.Go(func() error {
			url, err := sess.Decipher(gctx, d)
			if err != nil || url == "" {
				slog.Warn("decipher format", "itag", d.Tag, "format_id", d.FormatID, "error", err)
				observability.DecipherFailures.Inc()
				out[i] = d.Stripped()
				return nil
			}
			out[i] = d.WithURL(url)
			return nil
		})
	}
	_ = g.Wait()

	return out
}
