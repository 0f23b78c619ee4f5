package config

// SetPath sets the domain config file path for tests
func (a *App) SetPath(path string) {
	a.path = path
}

// SetLevel sets the log level for tests
func (l *Logger) SetLevel(level string) {
	l.level = level
}

// SetFormat sets the log format for tests
func (l *Logger) SetFormat(format string) {
	l.format = format
}

// SetOutput sets the log output for tests
func (l *Logger) SetOutput(output string) {
	l.output = output
}
