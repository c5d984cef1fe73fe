package qa

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/data-qa/internal/model"
)

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02/01/2006")
}

// brokenLinkMessage describes the archiver's failed download attempts
// for a broken link, including when the URL last worked, if ever.
func brokenLinkMessage(a *model.Archival) string {
	messages := []string{
		"File could not be downloaded.",
		fmt.Sprintf("Reason: %s.", a.Status),
		fmt.Sprintf("Error details: %s.", a.Reason),
		fmt.Sprintf("Attempted on %s.", formatDate(a.Updated)),
	}
	lastSuccess := formatDate(a.LastSuccess)
	if a.FailureCount == 1 {
		if lastSuccess != "" {
			messages = append(messages, fmt.Sprintf("This URL last worked on: %s.", lastSuccess))
		} else {
			messages = append(messages, "This was the first attempt.")
		}
	} else {
		messages = append(messages, fmt.Sprintf("Tried %d times since %s.",
			a.FailureCount, formatDate(a.FirstFailure)))
		if lastSuccess != "" {
			messages = append(messages, fmt.Sprintf("This URL last worked on: %s.", lastSuccess))
		} else {
			messages = append(messages, "This URL has not worked in the history of this tool.")
		}
	}
	return strings.Join(messages, " ")
}
