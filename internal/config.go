package internal

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

type Config struct {
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,required=true"`
	GrpcPort             int           `env:"GRPC_PORT,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	DebugPort            int           `env:"DEBUG_PORT,default=8081"`
	InboxSize            int           `env:"INBOX_SIZE,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,required=true"`
	QuestionTimeout      time.Duration `env:"QUESTION_TIMEOUT,required=true"`
	QuestionProviderURL  string        `env:"QUESTION_PROVIDER_URL"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,required=true"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,required=true"`
	RateLimit            float64       `env:"RATE_LIMIT,required=true"`
	RateBurst            int           `env:"RATE_BURST,required=true"`
	PingInterval         time.Duration `env:"PING_INTERVAL,default=30s"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	// Comma separated, "*" accepts any origin. Empty keeps the same-origin check.
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`
}

func (c Config) HTTPAddr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }
func (c Config) GrpcAddr() string { return fmt.Sprintf("%s:%d", c.Host, c.GrpcPort) }

// Origins splits ALLOWED_ORIGINS, dropping blanks.
func (c Config) Origins() []string {
	return lo.Compact(lo.Map(strings.Split(c.AllowedOrigins, ","), func(o string, _ int) string {
		return strings.TrimSpace(o)
	}))
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
