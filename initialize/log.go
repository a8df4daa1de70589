package initialize

import (
	"os"

	"rigfleet/global"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	// basic zerolog setup: console writer to stdout
	cw := zerolog.ConsoleWriter{Out: os.Stdout}
	logger := log.Output(cw)
	global.Logger = logger
}

// SetLogLevel đổi mức log lúc runtime (config hot-reload).
func SetLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		global.Logger.Warn().Str("level", level).Msg("unknown log level ignored")
		return
	}
	global.Logger = global.Logger.Level(lvl)
}
