// Package cmd contains the kong command implementations of iptsgo.
package cmd

// LogConfig groups the logging flags shared by all commands.
type LogConfig struct {
	Level   string `help:"Log level." enum:"trace,debug,info,warn,error" default:"info" env:"IPTSGO_LOG_LEVEL"`
	File    string `help:"Also write logs to this file, in addition to the console." env:"IPTSGO_LOG_FILE" type:"path"`
	RawFile string `help:"Dump raw report buffers to this file." env:"IPTSGO_LOG_RAW_FILE" type:"path"`
}

// CLI is the root command structure parsed by kong.
type CLI struct {
	Config string    `help:"Path to a configuration file." type:"path"`
	Log    LogConfig `embed:"" prefix:"log."`

	Daemon   Daemon     `cmd:"" help:"Decode touch data and forward it to a virtual stylus."`
	Record   Record     `cmd:"" help:"Record raw touch data into a database."`
	Sessions Sessions   `cmd:"" help:"List recorded sessions."`
	Print    Print      `cmd:"" help:"Print the DFT windows of a recorded session."`
	Plot     Plot       `cmd:"" help:"Render the DFT windows of a recorded session as images."`
	Init     ConfigInit `cmd:"" help:"Generate a configuration template."`

	Install   Install   `cmd:"" help:"Install iptsgo as a systemd service."`
	Uninstall Uninstall `cmd:"" help:"Remove the iptsgo systemd service."`
}
