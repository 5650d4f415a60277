package types

// CLIArgs represents the command-line arguments.
type CLIArgs struct {
	ConfigFile string
	Profile    string
	Region     string
	Timezone   string
	EmailTo    []string
	ReportName string
	ReportType []string
	Dir        string
	DryRun     bool
	LogLevel   string
	LogFormat  string
	NoBanner   bool

	// Somente no comando watch
	Schedule    string
	MetricsAddr string
	RunOnStart  bool
}
