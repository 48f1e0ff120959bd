package agent

import (
	"fmt"

	"github.com/tryandromeda/copilot/internal/llm"
)

// Front-end names for DemoReply.
const (
	DemoForWeb      = "the frontend"
	DemoForTerminal = "the terminal interface"
)

// DemoUsage is the mock token count reported with a demo reply.
var DemoUsage = llm.Usage{PromptTokens: 50, CompletionTokens: 100, TotalTokens: 150}

// DemoReply is shown instead of an answer when the provider rejects the API key.
func DemoReply(frontend string) Reply {
	return Reply{
		Content: fmt.Sprintf(`⚠️ **Demo Mode**: Invalid OpenAI API key detected. Please set a valid OPENAI_API_KEY in your .env file to use the full functionality.

For now, this is a mock response to test %s. The agent would normally:
- Write and execute TypeScript files
- Use the Andromeda runtime
- Access file system operations
- Provide real AI assistance`, frontend),
		Usage: DemoUsage,
	}
}
