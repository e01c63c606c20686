package mcp

import "github.com/mark3labs/mcp-go/mcp"

var stringItems = mcp.Items(map[string]any{"type": "string"})

var listToolDef = mcp.NewTool("mods_list",
	mcp.WithDescription("List every mod package under the managed mods directory, marked tracked or untracked."),
	mcp.WithBoolean("refresh", mcp.Description("Bypass the detection cache and rescan the directory.")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var untrackedToolDef = mcp.NewTool("mods_untracked",
	mcp.WithDescription("List detected mods that have no tracked record, such as mods copied in by hand."),
	mcp.WithBoolean("refresh", mcp.Description("Bypass the detection cache and rescan the directory.")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var showToolDef = mcp.NewTool("mods_show",
	mcp.WithDescription("Show one mod's descriptor, tracked record, dependents and README."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Mod name, id or directory name (case-insensitive).")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var installToolDef = mcp.NewTool("mods_install",
	mcp.WithDescription("Install a mod from a local zip, tar or tar.gz archive and track it. Reinstalling replaces the existing copy."),
	mcp.WithString("file", mcp.Required(), mcp.Description("Path to the archive on disk.")),
	mcp.WithString("source", mcp.Description("Download URL or file name the archive came from. Used to name loose archives.")),
	mcp.WithString("name", mcp.Description("Directory name for archives without a single top-level folder.")),
	mcp.WithDestructiveHintAnnotation(true),
)

var uninstallToolDef = mcp.NewTool("mods_uninstall",
	mcp.WithDescription("Remove a tracked mod's directory and record. With cascade, every mod depending on it is removed too."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Tracked mod name (case-insensitive).")),
	mcp.WithBoolean("cascade", mcp.Description("Also remove mods that transitively depend on this one.")),
	mcp.WithBoolean("fail_fast", mcp.Description("Stop a cascade at the first failure instead of continuing.")),
	mcp.WithBoolean("dry_run", mcp.Description("Report what would be removed without removing anything.")),
	mcp.WithDestructiveHintAnnotation(true),
)

var toggleToolDef = mcp.NewTool("mods_toggle",
	mcp.WithDescription("Enable or disable a mod. Disabled mods carry a .lovelyignore file and are skipped by the loader."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Mod name, id or directory name (case-insensitive).")),
	mcp.WithBoolean("enabled", mcp.Required(), mcp.Description("true to enable, false to disable.")),
)

var trackToolDef = mcp.NewTool("mods_track",
	mcp.WithDescription("Adopt untracked mods into the store. With no names, every untracked mod is tracked."),
	mcp.WithArray("names", stringItems, mcp.Description("Mods to track.")),
)

var reindexToolDef = mcp.NewTool("mods_reindex",
	mcp.WithDescription("Drop tracked records whose directory is gone and rescan the mods directory."),
)
