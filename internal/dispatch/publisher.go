package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/draftdeck/draftdeck/internal/draft"
	"github.com/draftdeck/draftdeck/pkg/logger"
)

// LogPublisher records what would have been posted and fabricates an external
// id. Used until a platform client is wired in, and by local stacks.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, d *draft.Draft) (string, error) {
	logger.Infof("dispatching draft %s (%s, %d posts)", d.ID, d.Kind, len(d.Posts))
	return fmt.Sprintf("ext_%s_%d", d.ID, time.Now().UnixNano()), nil
}
