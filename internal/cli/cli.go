package cli

import (
	"flag"
	"fmt"
	"io"
)

// CommandType represents the type of CLI command
type CommandType int

const (
	CommandHelp CommandType = iota
	CommandVersion
	CommandServe
	CommandUpdateYtdlp
)

// Command represents a parsed CLI command
type Command struct {
	Type       CommandType
	ConfigPath string
	Port       int // overrides the configured port when non-zero
	CheckOnly  bool
}

// String returns a string representation of the command
func (c *Command) String() string {
	switch c.Type {
	case CommandHelp:
		return "help"
	case CommandVersion:
		return "version"
	case CommandServe:
		if c.Port != 0 {
			return fmt.Sprintf("serve (port: %d)", c.Port)
		}
		return "serve"
	case CommandUpdateYtdlp:
		if c.CheckOnly {
			return "update-ytdlp (check only)"
		}
		return "update-ytdlp"
	default:
		return "unknown"
	}
}

// CLI represents the command-line interface
type CLI struct {
	version string
}

// NewCLI creates a new CLI instance
func NewCLI(version string) *CLI {
	return &CLI{
		version: version,
	}
}

// ParseCommand parses command-line arguments and returns a Command.
// No arguments means serve with defaults.
func (c *CLI) ParseCommand(args []string) (*Command, error) {
	if len(args) == 0 {
		return &Command{Type: CommandServe}, nil
	}

	if args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		return &Command{Type: CommandHelp}, nil
	}

	if args[0] == "-v" || args[0] == "--version" || args[0] == "version" {
		return &Command{Type: CommandVersion}, nil
	}

	switch args[0] {
	case "serve":
		return c.parseServeCommand(args[1:])
	case "update-ytdlp":
		return c.parseUpdateCommand(args[1:])
	default:
		return nil, fmt.Errorf("unknown command: %s", args[0])
	}
}

// parseServeCommand parses the serve command
func (c *CLI) parseServeCommand(args []string) (*Command, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "Path to YAML config file")
	port := fs.Int("port", 0, "Server port (overrides config)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *port < 0 || *port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", *port)
	}

	return &Command{
		Type:       CommandServe,
		ConfigPath: *configPath,
		Port:       *port,
	}, nil
}

// parseUpdateCommand parses the update-ytdlp command
func (c *CLI) parseUpdateCommand(args []string) (*Command, error) {
	fs := flag.NewFlagSet("update-ytdlp", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "Path to YAML config file")
	checkOnly := fs.Bool("check", false, "Only check for updates without installing")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &Command{
		Type:       CommandUpdateYtdlp,
		ConfigPath: *configPath,
		CheckOnly:  *checkOnly,
	}, nil
}

// PrintHelp prints the help message
func (c *CLI) PrintHelp(w io.Writer) {
	help := `videofetch - fetch YouTube video metadata and files over HTTP

Usage:
  videofetch [command] [flags]

Available Commands:
  serve          Start the HTTP server (default)
  update-ytdlp   Install or update the managed yt-dlp binary
  version        Print version information
  help           Print this help message

Serve Flags:
  -config string   Path to YAML config file
  -port int        Server port (default from config: 8000)

Update Flags:
  -config string   Path to YAML config file
  -check           Only check for updates without installing

Environment:
  VIDEOFETCH_SERVER_PORT, VIDEOFETCH_STORAGE_OUTPUT_DIR, VIDEOFETCH_YTDLP_PATH, ...

Examples:
  videofetch
  videofetch serve -port 9000
  videofetch serve -config videofetch.yaml
  videofetch update-ytdlp -check
  videofetch version
`
	fmt.Fprint(w, help)
}

// PrintVersion prints the version information
func (c *CLI) PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "videofetch version %s\n", c.version)
}
