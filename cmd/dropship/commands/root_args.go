package commands

import "time"

type RootArgs struct {
	logLevel   *string
	logFormat  *string
	configPath *string
	timeout    *time.Duration
	quiet      *bool
}

func NewRootArgs() *RootArgs {
	return &RootArgs{
		logLevel:   new(string),
		logFormat:  new(string),
		configPath: new(string),
		timeout:    new(time.Duration),
		quiet:      new(bool),
	}
}

func (a *RootArgs) GetLogLevel() string {
	return *a.logLevel
}

func (a *RootArgs) GetLogFormat() string {
	return *a.logFormat
}

func (a *RootArgs) GetConfigPath() string {
	return *a.configPath
}

func (a *RootArgs) GetTimeout() time.Duration {
	return *a.timeout
}

func (a *RootArgs) GetQuiet() bool {
	return *a.quiet
}
