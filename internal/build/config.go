package build

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config selects the external toolchain. All fields are optional. An empty
// Assembler or Linker falls back to the default below; empty AssemblerFlags
// fall back to the default flags only when Assembler is the default
// assembler, and LinkerFlags and KeepAsm have no non-zero default.
type Config struct {
	// Assembler is the assembler binary. It must accept NASM syntax and
	// produce x86-64 ELF objects.
	Assembler      string   `yaml:"assembler"`
	AssemblerFlags []string `yaml:"assembler_flags"`

	// Linker is the C linker driver used to produce the final executable,
	// linked against the C runtime for malloc and printf.
	Linker      string   `yaml:"linker"`
	LinkerFlags []string `yaml:"linker_flags"`

	// KeepAsm leaves the generated .asm file next to the executable instead
	// of removing it after assembly.
	KeepAsm bool `yaml:"keep_asm"`
}

// DefaultConfig returns the stock nasm + gcc toolchain.
func DefaultConfig() *Config {
	return &Config{
		Assembler:      "nasm",
		AssemblerFlags: []string{"-f", "elf64"},
		Linker:         "gcc",
	}
}

// LoadConfig reads a yaml config file and decodes it as ParseConfig does.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes yaml config bytes into an empty Config, then fills
// unset fields with defaults as described on Config.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg.withDefaults(), nil
}

func (c *Config) withDefaults() *Config {
	def := DefaultConfig()
	if c.Assembler == "" {
		c.Assembler = def.Assembler
	}
	if len(c.AssemblerFlags) == 0 && c.Assembler == def.Assembler {
		c.AssemblerFlags = def.AssemblerFlags
	}
	if c.Linker == "" {
		c.Linker = def.Linker
	}
	return c
}
