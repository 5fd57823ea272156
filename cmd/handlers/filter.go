package handlers

import (
	"radar/internal/batch"
	"radar/internal/config"

	"github.com/spf13/cobra"
)

// NewFilterCmd creates the cultural-relevance filter command group. The
// filter runs only through the batch lifecycle; its per-row cost is tiny
// and the 24h turnaround is acceptable.
func NewFilterCmd() *cobra.Command {
	filterCmd := newBatchLifecycleCmd("filter",
		"Classify summarized articles for cultural relevance",
		func() (batch.Task, error) {
			return batch.FilterTask{Model: config.Get().OpenAI.FilterModel}, nil
		})
	filterCmd.Long = `Sends every summarized article through a YES/NO relevance check for the
cultural-content study. Rows answered NO are kept in the store but excluded
from topic modeling and the dashboard. Failed requests default to relevant
so data is never silently dropped.`
	return filterCmd
}
