package internal

import (
	"testing"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/stretchr/testify/require"
)

func TestCharacterRune(t *testing.T) {
	tests := []struct {
		description string
		input       string
		expected    rune
		wantErr     bool
	}{
		{description: "Single ascii char", input: "*", expected: '*'},
		{description: "Single multi-byte char", input: "€", expected: '€'},
		{description: "Empty", input: "", wantErr: true},
		{description: "Too long", input: "**", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			req := require.New(t)
			r, err := CharacterRune(tt.input)
			if tt.wantErr {
				req.Error(err)
				return
			}
			req.NoError(err)
			req.Equal(tt.expected, r)
		})
	}
}

func TestConfig_Unmarshal(t *testing.T) {
	req := require.New(t)
	es := env.EnvSet{
		"PORT":                   "8080",
		"GRPC_PORT":              "9090",
		"LOG_LEVEL":              "INFO",
		"BADGER_FILEPATH":        "/tmp/mixmatch",
		"INBOX_SIZE":             "64",
		"CONNECTION_BUFFER_SIZE": "128",
		"SINK_TIMEOUT":           "2s",
		"QUESTION_TIMEOUT":       "4s",
		"METRIC_INTERVAL":        "5s",
		"CHARACTER_REPLACEMENT":  "*",
		"RATE_LIMIT":             "10",
		"RATE_BURST":             "20",
	}

	var config Config
	err := env.Unmarshal(es, &config)

	req.NoError(err)
	req.Equal("0.0.0.0:8080", config.HTTPAddr())
	req.Equal("0.0.0.0:9090", config.GrpcAddr())
	req.Equal(4*time.Second, config.QuestionTimeout)
	req.Equal(30*time.Second, config.PingInterval)
	req.Empty(config.QuestionProviderURL)
}

func TestConfig_MissingRequired(t *testing.T) {
	var config Config
	err := env.Unmarshal(env.EnvSet{"PORT": "8080"}, &config)

	require.Error(t, err)
}

func TestConfig_Origins(t *testing.T) {
	tests := []struct {
		description string
		input       string
		expected    []string
	}{
		{description: "Unset", input: "", expected: []string{}},
		{description: "Single", input: "https://quiz.example", expected: []string{"https://quiz.example"}},
		{description: "Spaces and blanks", input: " https://a.example, ,https://b.example ,", expected: []string{"https://a.example", "https://b.example"}},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			require.Equal(t, tt.expected, Config{AllowedOrigins: tt.input}.Origins())
		})
	}
}
