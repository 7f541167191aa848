package sitepulse

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	username string
	password string

	keyPrefix string

	deviceWindowSec int64
	userWindowSec   int64
	deviceListLimit int64
	userListLimit   int64

	aiAPIKey     string
	aiBaseURL    string
	aiEmbedModel string
	aiChatModel  string
	aiMaxTokens  int
	aiTimeout    time.Duration

	logger *zap.Logger
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedisCluster configures the client with multiple seed addresses.
func WithRedisCluster(addrs []string, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = addrs
		c.password = password
	})
}

// WithUsername sets the store ACL username.
func WithUsername(username string) Option {
	return optionFunc(func(c *clientConfig) {
		c.username = username
	})
}

// WithKeyPrefix namespaces every key the client writes. Use it to run
// several deployments against one store.
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithWindows sets the presence window, in seconds, per domain.
// Defaults: 120 for both.
func WithWindows(deviceSec, userSec int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.deviceWindowSec = deviceSec
		c.userWindowSec = userSec
	})
}

// WithListLimits sets the default member listing limits per domain.
// Defaults: 20 devices, 50 users.
func WithListLimits(devices, users int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.deviceListLimit = devices
		c.userListLimit = users
	})
}

// WithOpenAI enables the AI features against an OpenAI-compatible API.
// Without it, natural-language search is unavailable and safety analysis
// serves its static fallback.
func WithOpenAI(apiKey, embedModel, chatModel string) Option {
	return optionFunc(func(c *clientConfig) {
		c.aiAPIKey = apiKey
		c.aiEmbedModel = embedModel
		c.aiChatModel = chatModel
	})
}

// WithAIBaseURL points the AI client at a non-default endpoint
// (a proxy or a self-hosted OpenAI-compatible server).
func WithAIBaseURL(baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.aiBaseURL = baseURL
	})
}

// WithAIMaxTokens caps the chat completion length. Default: 800.
func WithAIMaxTokens(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.aiMaxTokens = n
	})
}

// WithAITimeout bounds every AI provider call. Default: 30s.
func WithAITimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.aiTimeout = d
	})
}

// WithLogger sets the logger. Default: no-op.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
