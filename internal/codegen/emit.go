package codegen

import (
	"strings"
)

// Emit serializes the whole program as NASM text: externs and exports, the
// data section of static byte arrays, and the text section with every
// function definition.
func (c *GenCtx) Emit() (string, error) {
	lines := []string{
		"extern malloc",
		"extern printf",
		"global main",
		"",
		"section .data",
	}

	for _, static := range c.statics {
		lines = append(lines, static.NASM())
	}

	lines = append(lines, "", "section .text")

	for _, fn := range c.fns {
		expanded, err := fn.NASM()
		if err != nil {
			return "", err
		}
		lines = append(lines, "")
		lines = append(lines, expanded...)
	}

	return strings.Join(lines, "\n") + "\n", nil
}
