package logging

// Config is the "logging" section of vdd.yml.
//
//	logging:
//	  level: info
//	  components:
//	    ipc: debug
//	  format:
//	    preset: simple
//	  file:
//	    enabled: true
type Config struct {
	// Level is the default minimum level. VDD_LOG_LEVEL takes precedence.
	Level string `yaml:"level"`

	// Components overrides Level for individual components, keyed by the
	// name passed to NewLogger.
	Components map[string]string `yaml:"components"`

	// ReportCaller adds file and line to every entry. VDD_LOG_CALLER=true
	// has the same effect.
	ReportCaller bool `yaml:"report_caller"`

	File   FileSinkConfig `yaml:"file"`
	Format FormatConfig   `yaml:"format"`
}

// FileSinkConfig enables an additional log file per component.
type FileSinkConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path defaults to <state>/logs/<component>-<date>.log.
	Path string `yaml:"path"`
}

// FormatConfig selects the entry layout.
type FormatConfig struct {
	// Preset is "default", "simple" or "json".
	Preset           string `yaml:"preset"`
	DisableTimestamp bool   `yaml:"disable_timestamp"`
	DisableComponent bool   `yaml:"disable_component"`
	DisableColor     bool   `yaml:"disable_color"`
	// StructuredToStderr is "auto" (default), "always" or "never".
	StructuredToStderr string `yaml:"structured_to_stderr"`
}

// levelFor returns the configured level name for component.
func (c Config) levelFor(component string) string {
	if level, ok := c.Components[component]; ok && level != "" {
		return level
	}
	return c.Level
}
