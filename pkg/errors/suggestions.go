package errors

// SuggestionGenerator generates suggestions for an error category.
type SuggestionGenerator interface {
	Generate(category ErrorCategory, affectedPath string) []string
}

// NewSuggestionGenerator creates a new SuggestionGenerator.
func NewSuggestionGenerator() SuggestionGenerator {
	return suggestionGenerator{}
}

type suggestionGenerator struct{}

// Generate returns the suggestions for category. affectedPath, when known,
// is worked into the advice.
func (suggestionGenerator) Generate(category ErrorCategory, affectedPath string) []string {
	build, ok := suggestionsByCategory[category]
	if !ok {
		build = unknownSuggestions
	}

	return build(affectedPath)
}

//nolint:gochecknoglobals // lookup table
var suggestionsByCategory = map[ErrorCategory]func(string) []string{
	CategoryCapacity:   capacitySuggestions,
	CategoryConnection: connectionSuggestions,
	CategoryTransport:  transportSuggestions,
	CategoryCopy:       copySuggestions,
	CategoryDelete:     deleteSuggestions,
	CategoryDiskSpace:  diskSpaceSuggestions,
	CategoryPath:       pathSuggestions,
	CategoryPermission: permissionSuggestions,
	CategoryUnknown:    unknownSuggestions,
}

func withPath(base []string, path string, format func(string) string) []string {
	if path == "" {
		return base
	}

	return append(base, format(path))
}

func capacitySuggestions(string) []string {
	return []string{
		"Remove games from the manifest or move some into the trash folder",
		"Use the linked storage layout so games in several menus are stored once",
		"Free space on the target; nothing was changed by this run",
	}
}

func connectionSuggestions(host string) []string {
	suggestions := withPath([]string{"Check that the device is powered on and connected"}, host,
		func(h string) string { return "Verify the device answers at " + h })

	return append(suggestions,
		"Check the SSH password (--password or the OS keyring) and the known_hosts file")
}

func transportSuggestions(string) []string {
	return []string{
		"Retry the sync; unchanged files are not transferred again",
		"Try --force-archive to send files as a tar stream over the shell",
		"Try --no-ftp if the device's FTP server is unreliable",
	}
}

func copySuggestions(path string) []string {
	return withPath([]string{
		"Retry the sync; files that arrived intact are skipped next time",
		"Check the game files in the manifest's games directory are readable and complete",
	}, path, func(p string) string { return "Compare the size of " + p + " on both sides" })
}

func deleteSuggestions(path string) []string {
	return withPath([]string{
		"Make sure nothing on the target holds the stale files open",
		"Add a --protect glob for files on the target you want to keep",
	}, path, func(p string) string { return "Remove " + p + " by hand and sync again" })
}

func diskSpaceSuggestions(path string) []string {
	return withPath([]string{
		"Free space on the target and run the sync again",
		"Run with --dry-run to see how much data the plan uploads",
	}, path, func(p string) string { return "Check free space with 'df -h " + p + "'" })
}

func pathSuggestions(path string) []string {
	return withPath([]string{
		"Check the manifest path and the games_dir it names",
		"Make sure every game code in a menu has a directory under games_dir",
	}, path, func(p string) string { return "Check that " + p + " exists" })
}

func permissionSuggestions(path string) []string {
	return withPath([]string{
		"Make sure the export directory or device filesystem is writable",
		"On a device, check the sync root is not mounted read-only",
	}, path, func(p string) string { return "Check permissions with 'ls -la " + p + "'" })
}

func unknownSuggestions(path string) []string {
	return withPath([]string{
		"Run again with --log-level debug and check the log",
		"Run with --dry-run to check the plan before changing anything",
	}, path, func(p string) string { return "Check that " + p + " is accessible" })
}
