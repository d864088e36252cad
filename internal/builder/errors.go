package builder

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// BuildError reports the errors esbuild returned for a build.
type BuildError struct {
	Messages []api.Message
	// Formatted is the messages rendered the way esbuild prints them.
	Formatted string
}

func newBuildError(msgs []api.Message) *BuildError {
	formatted := api.FormatMessages(msgs, api.FormatMessagesOptions{
		Kind: api.ErrorMessage,
	})
	return &BuildError{
		Messages:  msgs,
		Formatted: strings.Join(formatted, ""),
	}
}

func (e *BuildError) Error() string {
	if len(e.Messages) == 1 {
		return fmt.Sprintf("build failed: %s", e.Messages[0].Text)
	}
	return fmt.Sprintf("build failed with %d errors:\n%s", len(e.Messages), e.Formatted)
}
