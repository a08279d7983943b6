package main

type Command struct {
	Debug bool `help:"Enable debug logging."`

	Restore struct {
		Path        string `arg:"" optional:"" help:"Absolute path to look up."`
		UpdateCache bool   `help:"Update the archive cache before looking up." short:"u"`
		Destination string `help:"Restore into this directory instead of next to the original." short:"d"`
		Time        string `help:"Restore the newest version older than this age, e.g. 5d or 1.5h." short:"t"`
		Config      string `help:"Config file path." short:"c"`
	} `cmd:"" default:"withargs" help:"Look up a path in the cache and restore it from a borg archive."`

	Daemon struct {
		Config string `help:"Config file path." short:"c" required:""`
	} `cmd:"" help:"Keep the archive cache up to date on a schedule."`

	Version struct{} `cmd:"" help:"Print version information."`
}
