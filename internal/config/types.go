package config

// Config is the declarative description of the machine baseline.
// Every list is required in the file, though any of them may be empty.
type Config struct {
	Apt         []string      `toml:"apt" yaml:"apt"`                   // APT packages
	Snap        []string      `toml:"snap" yaml:"snap"`                 // strictly confined snaps
	SnapClassic []string      `toml:"snap_classic" yaml:"snap_classic"` // snaps installed with --classic
	MiseCore    []string      `toml:"mise_core" yaml:"mise_core"`       // core tools, e.g. "node@22"
	Mise        []string      `toml:"mise" yaml:"mise"`                 // other mise tools
	UvPython    []string      `toml:"uv_python" yaml:"uv_python"`       // Python versions for uv
	UvTool      []ToolInstall `toml:"uv_tool" yaml:"uv_tool"`           // tools installed with uv tool install
	DockerApt   []string      `toml:"docker_apt" yaml:"docker_apt"`     // APT packages added when Docker is missing
	DockerImage []string      `toml:"docker_image" yaml:"docker_image"` // images to pull
	Setup       []string      `toml:"setup" yaml:"setup"`               // shell commands run last
}

// ToolInstall is one uv tool entry. In the file it is either a bare name
// or a table with an operand and extra install options.
type ToolInstall struct {
	Operand string   `toml:"operand" yaml:"operand"`
	Options []string `toml:"options" yaml:"options"`
}

// requiredKeys lists every top-level key a config file must define.
var requiredKeys = []string{
	"apt", "snap", "snap_classic", "mise_core", "mise",
	"uv_python", "uv_tool", "docker_apt", "docker_image", "setup",
}
