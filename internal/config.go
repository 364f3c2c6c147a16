package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host                 string        `env:"HOST"`
	Port                 int           `env:"PORT,required=true"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath        string        `env:"BLUGE_FILEPATH,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,required=true"`
	MaxSessions          int           `env:"MAX_SESSIONS,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	HistoryLimit         int           `env:"HISTORY_LIMIT,required=true"`
	SearchLimit          int           `env:"SEARCH_LIMIT,required=true"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,required=true"`
	CharReplacement      string        `env:"CHARACTER_REPLACEMENT,required=true"`
	CensoredWordsFile    *string       `env:"CENSORED_WORDS_FILE"`
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
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
