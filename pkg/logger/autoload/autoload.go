// Package autoload configures the global logger from LOG_* environment
// variables when imported.
package autoload

import (
	configx "github.com/tanpawarit/coach-agent/pkg/config"
	logx "github.com/tanpawarit/coach-agent/pkg/logger"
)

func init() {
	conf, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*conf)
}
