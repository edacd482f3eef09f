package backend

// Chat roles understood by every provider adapter.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of conversation history sent to a provider.
type Message struct {
	Role    string // "user" or "assistant"
	Name    string // Speaker name for multi-agent histories (optional)
	Content string
}

// Request is a single completion request.
type Request struct {
	System      string
	Messages    []Message
	Model       string
	Temperature float64
}

// Response is the text returned by a provider.
type Response struct {
	Content string
	Model   string
}

// Config defines the configuration for a backend.
type Config struct {
	Type      string // "openai" or "anthropic"
	Name      string // Provider key from config, used for breaker and limiter names
	APIKey    string
	BaseURL   string
	MaxTokens int
}
