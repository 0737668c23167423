/*
Package config manages configuration loading and validation for docrc.

	            +-------------+
	            |   Config    |
	            | (Settings)  |
	            +------+------+
	                   |
	   +-------+-------+-------+-------+
	   |       |               |       |
	+--+--+ +--+--+        +---+--+ +--+---+
	| YAML| | JSON|        |  HCL | | TOML |
	+-----+ +-----+        +------+ +------+

🎯 Purpose:
- Builds the single Config value every component receives at construction
- Locates the store directory (.docrc) by walking up from the working directory
- Fills defaults for the isolated repository layout

📁 Layout (relative to the project root):

	.docrc/
	  config.yaml   optional, any registered format
	  repo/         isolated git metadata (--git-dir)
	  index         isolated index (GIT_INDEX_FILE)
	  docs/         documentation root and git work tree
	  backups/      timestamped copies of overwritten artifacts
	  templates/    optional index.md / history.md overrides

🤝 Interfaces:
- Parser: format-specific parsing, registered from init()

🔍 Example:

	root, _, err := config.FindProjectRoot(".", config.DefaultStoreDir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(ctx, root, config.DefaultStoreDir)
	if err != nil {
		return err
	}
	fmt.Println(cfg.DocRootPath())
*/
package config
