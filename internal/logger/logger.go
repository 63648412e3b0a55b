package logger

import (
	"go.uber.org/zap"
)

var Log *zap.Logger = zap.NewNop()

// Init builds the process-wide logger. Development mode uses the console
// encoder, production mode JSON.
func Init(development bool) (*zap.Logger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if development {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	Log = l
	return l, nil
}
